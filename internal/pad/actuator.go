package pad

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Landixus/potato/internal/groutine"
	"github.com/Landixus/potato/internal/ringchan"
)

// queueCapacity bounds pending intents. Power notifications arrive at a few
// hertz and key events are human-paced, so a small buffer suffices; if the
// consumer ever falls behind, overwriting the oldest intent is the right
// recovery since only the newest state matters.
const queueCapacity = 64

// Actuator serializes all writes to a Sink. Producers enqueue intents from
// any goroutine; one dedicated goroutine applies them and commits after every
// intent, so no actuation is batched across notifications.
type Actuator struct {
	sink    Sink
	queue   *ringchan.RingChannel[Intent]
	logger  *logrus.Logger
	done    chan struct{}
	started atomic.Bool

	// mu orders sends against Close: a send holds the read lock for the
	// whole enqueue, so the queue can only be closed while no send is in
	// flight.
	mu     sync.RWMutex
	closed bool
}

// NewActuator wraps sink with a serialized intent queue.
func NewActuator(sink Sink, logger *logrus.Logger) *Actuator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Actuator{
		sink:   sink,
		queue:  ringchan.New[Intent](queueCapacity),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the consumer goroutine. It runs until ctx is cancelled or
// Close is called. Start may be called at most once.
func (a *Actuator) Start(ctx context.Context) {
	if !a.started.CompareAndSwap(false, true) {
		panic("pad: Actuator.Start called more than once")
	}

	groutine.Go(ctx, "pad-actuator", func(ctx context.Context) {
		defer close(a.done)
		for {
			select {
			case <-ctx.Done():
				return
			case intent, ok := <-a.queue.C():
				if !ok {
					return
				}
				a.apply(intent)
			}
		}
	})
}

func (a *Actuator) apply(in Intent) {
	var err error
	switch in.Kind {
	case IntentTrigger:
		err = a.sink.SetTrigger(in.Value)
	case IntentButton:
		err = a.sink.SetButton(in.Button, in.Pressed)
	}
	if err == nil {
		err = a.sink.Commit()
	}
	if err != nil {
		a.logger.WithError(err).WithField("intent", in.String()).Error("Failed to apply actuation")
	}
}

// SetTrigger enqueues an analog trigger update. Safe for concurrent use.
func (a *Actuator) SetTrigger(value uint8) {
	a.send(Intent{Kind: IntentTrigger, Value: value})
}

// SetButton enqueues a button press or release. Safe for concurrent use.
func (a *Actuator) SetButton(b Button, pressed bool) {
	a.send(Intent{Kind: IntentButton, Button: b, Pressed: pressed})
}

func (a *Actuator) send(in Intent) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	a.queue.Send(in)
}

// Close stops accepting intents, drains the consumer, and waits for it to
// exit. Safe to call with producers still running; their intents are silently
// discarded from then on.
func (a *Actuator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.queue.Close()
	if a.started.Load() {
		<-a.done
	}

	m := a.queue.GetMetrics()
	if m.Overwritten > 0 {
		a.logger.WithFields(logrus.Fields{
			"written":     m.Written,
			"overwritten": m.Overwritten,
		}).Warn("Actuation queue dropped stale intents")
	}
}

// Done is closed when the consumer goroutine has exited.
func (a *Actuator) Done() <-chan struct{} {
	return a.done
}
