// Package pacer spaces repeated probe requests at a fixed rate.
//
// A Pacer hands out evenly spaced send slots. Slots missed while a slow
// request was in flight are not made up in a burst: the next slot is
// scheduled from the later of the previous slot and now.
package pacer

import (
	"context"
	"sync"
	"time"
)

// Pacer schedules sends at a steady rate. The zero value is not usable;
// construct one with New.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	now      func() time.Time
	waited   time.Duration
	slots    int64
}

// New returns a Pacer issuing rate slots per second. A rate <= 0
// disables pacing: every slot is due immediately.
func New(rate float64) *Pacer {
	p := &Pacer{now: time.Now}
	if rate > 0 {
		p.interval = time.Duration(float64(time.Second) / rate)
	}
	return p
}

// Interval returns the spacing between slots.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Next reserves the next slot and returns when it is due.
func (p *Pacer) Next() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.slots++
	if p.interval == 0 || p.next.IsZero() || p.next.Before(now) {
		p.next = now.Add(p.interval)
		return now
	}
	due := p.next
	p.next = due.Add(p.interval)
	p.waited += due.Sub(now)
	return due
}

// Wait blocks until the next slot is due or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	d := time.Until(p.Next())
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stats reports the slots handed out and the total scheduled delay.
func (p *Pacer) Stats() (slots int64, waited time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots, p.waited
}
