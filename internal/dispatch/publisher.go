package dispatch

import "context"

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
