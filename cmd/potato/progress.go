package main

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter displays a single-line countdown while a scan runs, e.g.
// "Scanning for trainer (Scanning 7s)". Phase updates arrive through
// Callback; reaching a stop phase ends the display.
//
// A ProgressPrinter is single-use: Start at most once, Stop exactly once.
type ProgressPrinter struct {
	prefix     string
	duration   time.Duration
	phase      atomic.Value        // current phase name
	stopPhases map[string]struct{} // phases that trigger a graceful shutdown
	startTime  time.Time
	ticker     atomic.Pointer[time.Ticker]
	stopChan   chan struct{}
	done       chan struct{}
	started    atomic.Bool
}

// NewProgressPrinter creates a countdown progress printer. stopPhases are
// phase names that stop the display when set via Callback.
func NewProgressPrinter(prefix, phase string, duration time.Duration, stopPhases ...string) *ProgressPrinter {
	stopSet := make(map[string]struct{}, len(stopPhases))
	for _, p := range stopPhases {
		stopSet[p] = struct{}{}
	}
	p := &ProgressPrinter{
		prefix:     prefix,
		duration:   duration,
		stopPhases: stopSet,
	}
	p.phase.Store(phase)
	return p
}

// Start begins displaying progress updates in a background goroutine.
// Panics if called more than once.
func (p *ProgressPrinter) Start() {
	if !p.started.CompareAndSwap(false, true) {
		panic("ProgressPrinter.Start called more than once")
	}

	p.done = make(chan struct{})
	p.stopChan = make(chan struct{})
	p.startTime = time.Now()
	ticker := time.NewTicker(progressUpdateInterval)
	p.ticker.Store(ticker)

	fmt.Printf("\r%s (%s...)   ", p.prefix, p.phase.Load().(string))

	go func() {
		defer close(p.done)
		for {
			select {
			case <-p.stopChan:
				return
			case <-ticker.C:
				phase := p.phase.Load().(string)
				if _, stop := p.stopPhases[phase]; stop {
					return
				}
				remaining := p.duration - time.Since(p.startTime)
				if remaining < 0 {
					remaining = 0
				}
				// Round to the nearest second.
				seconds := int(remaining.Seconds() + 0.5)
				fmt.Printf("\r%s (%s %ds)   ", p.prefix, phase, seconds)
			}
		}
	}()
}

// Callback returns a phase-update function safe to call from any goroutine.
// Setting a stop phase stops the display.
func (p *ProgressPrinter) Callback() func(phase string) {
	return func(phase string) {
		p.phase.Store(phase)
		if _, stop := p.stopPhases[phase]; stop {
			p.Stop()
		}
	}
}

// Stop ends the display and clears the line. Safe to call multiple times and
// from multiple goroutines.
func (p *ProgressPrinter) Stop() {
	ticker := p.ticker.Swap(nil)
	if ticker == nil {
		return
	}

	ticker.Stop()
	close(p.stopChan)
	<-p.done

	fmt.Print(clearLineSequence)
}
