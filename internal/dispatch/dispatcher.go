package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"joblinker/api/internal/logger"
)

// Handler processes one event. A returned error asks for the whole event to be retried;
// terminal problems should be reported through the result instead.
type Handler func(ctx context.Context, steps *Steps, ev Event) (any, error)

var ErrNoHandler = errors.New("no handler registered")

type Options struct {
	Concurrency  int
	MaxAttempts  int
	InitialDelay time.Duration
}

// Dispatcher runs registered handlers for events delivered from the queue.
type Dispatcher struct {
	handlers  map[string]Handler
	publisher Publisher
	store     StepStore
	opts      Options
	logger    *zap.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewDispatcher(publisher Publisher, store StepStore, opts Options, log *zap.Logger) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.InitialDelay < 0 {
		opts.InitialDelay = 0
	}

	return &Dispatcher{
		handlers:  make(map[string]Handler),
		publisher: publisher,
		store:     store,
		opts:      opts,
		logger:    logger.OrNop(log),
		stopChan:  make(chan struct{}),
	}
}

// Register binds a handler to an event name. It must be called before Start.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Start launches the worker goroutines consuming deliveries.
func (d *Dispatcher) Start(ctx context.Context, deliveries <-chan amqp.Delivery) {
	d.logger.Info("starting dispatcher", zap.Int("workers", d.opts.Concurrency))

	for i := 0; i < d.opts.Concurrency; i++ {
		d.wg.Add(1)
		go d.processDeliveries(ctx, i+1, deliveries)
	}
}

// Stop signals the workers and waits for in-flight events to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("stopping dispatcher")
		close(d.stopChan)
	})
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// Dispatch runs the handler registered for ev with steps bound to the event id.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (any, error) {
	handler, ok := d.handlers[ev.Name]
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoHandler, ev.Name)
	}

	log := logger.WithFields(d.logger, logger.EventFields(ev.ID, ev.Name, ev.Attempt)...)
	return handler(ctx, NewSteps(ev.ID, d.store, log), ev)
}

func (d *Dispatcher) processDeliveries(ctx context.Context, workerID int, deliveries <-chan amqp.Delivery) {
	defer d.wg.Done()
	log := d.logger.With(zap.Int("worker", workerID))

	for {
		select {
		case <-d.stopChan:
			log.Debug("worker stopped")
			return
		case <-ctx.Done():
			log.Debug("worker context done")
			return
		case msg, ok := <-deliveries:
			if !ok {
				log.Warn("delivery channel closed")
				return
			}
			d.handleDelivery(ctx, log, msg)
		}
	}
}

func (d *Dispatcher) handleDelivery(ctx context.Context, log *zap.Logger, msg amqp.Delivery) {
	name := gjson.GetBytes(msg.Body, "name").String()
	if _, ok := d.handlers[name]; !ok {
		log.Warn("dropping event without handler", zap.String(logger.FieldEventName, name))
		ack(log, msg)
		return
	}

	var ev Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil || ev.ID == "" {
		log.Error("dropping malformed event", zap.String(logger.FieldEventName, name), zap.Error(err))
		ack(log, msg)
		return
	}

	if ev.Attempt < 0 {
		ev.Attempt = 0
	}

	log = logger.WithFields(log, logger.EventFields(ev.ID, ev.Name, ev.Attempt)...)
	log.Info("processing event")

	result, err := d.Dispatch(ctx, ev)
	if err == nil {
		log.Info("event processed", zap.Any("result", result))
		ack(log, msg)
		return
	}

	d.retry(ctx, log, msg, ev, err)
}

// retry republishes ev after an exponential delay, or drops it once attempts run out.
func (d *Dispatcher) retry(ctx context.Context, log *zap.Logger, msg amqp.Delivery, ev Event, cause error) {
	next := ev.Attempt + 1
	if next >= d.opts.MaxAttempts || d.publisher == nil {
		log.Error("event failed, attempts exhausted", zap.Int("max_attempts", d.opts.MaxAttempts), zap.Error(cause))
		ack(log, msg)
		return
	}

	delay := d.opts.InitialDelay * time.Duration(1<<ev.Attempt)
	log.Warn("event failed, scheduling retry", zap.Duration("delay", delay), zap.Error(cause))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-d.stopChan:
		nack(log, msg)
		return
	case <-ctx.Done():
		nack(log, msg)
		return
	}

	ev.Attempt = next
	if err := d.publisher.Publish(ctx, ev); err != nil {
		log.Error("failed to republish event", zap.Error(err))
		nack(log, msg)
		return
	}

	ack(log, msg)
}

func ack(log *zap.Logger, msg amqp.Delivery) {
	if err := msg.Ack(false); err != nil {
		log.Error("failed to ack delivery", zap.Error(err))
	}
}

func nack(log *zap.Logger, msg amqp.Delivery) {
	if err := msg.Nack(false, true); err != nil {
		log.Error("failed to nack delivery", zap.Error(err))
	}
}
