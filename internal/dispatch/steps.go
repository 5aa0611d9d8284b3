package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"joblinker/api/internal/logger"
)

// StepStore persists step outputs keyed by run id and step name.
type StepStore interface {
	Load(ctx context.Context, runID, step string) ([]byte, bool, error)
	Save(ctx context.Context, runID, step string, output []byte) error
}

// Steps memoizes the named steps of one event run.
type Steps struct {
	runID  string
	store  StepStore
	logger *zap.Logger
}

func NewSteps(runID string, store StepStore, log *zap.Logger) *Steps {
	return &Steps{runID: runID, store: store, logger: logger.OrNop(log)}
}

func (s *Steps) RunID() string {
	if s == nil {
		return ""
	}
	return s.runID
}

// Run executes fn as the named step of the run. When the step already completed in an
// earlier delivery its stored output is returned and fn is not called. Failed steps are
// never stored. A nil Steps runs fn directly.
func Run[T any](ctx context.Context, s *Steps, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if s == nil || s.store == nil {
		return fn(ctx)
	}

	log := s.logger.With(zap.String("run_id", s.runID), zap.String("step", name))

	stored, found, err := s.store.Load(ctx, s.runID, name)
	switch {
	case err != nil:
		log.Warn("failed to load step output, running step", zap.Error(err))
	case found:
		var out T
		decodeErr := json.Unmarshal(stored, &out)
		if decodeErr == nil {
			log.Debug("step output reused")
			return out, nil
		}
		log.Warn("stored step output unreadable, running step", zap.Error(decodeErr))
	}

	out, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("step %s: %w", name, err)
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		log.Warn("failed to encode step output", zap.Error(err))
		return out, nil
	}
	if err := s.store.Save(ctx, s.runID, name, encoded); err != nil {
		log.Warn("failed to save step output", zap.Error(err))
	}

	return out, nil
}
