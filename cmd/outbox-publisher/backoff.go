package main

import (
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// pacer spaces polls: a fixed interval while idle, doubling up to
// maxBackoff after consecutive failures. Every wait gets jitter so a fleet
// of publishers does not poll in lockstep.
type pacer struct {
	base    time.Duration
	current time.Duration
	jitter  func() time.Duration
}

func newPacer(base time.Duration) *pacer {
	return &pacer{
		base:    base,
		current: base,
		jitter: func() time.Duration {
			return time.Duration(rand.Int64N(int64(jitterWindow)))
		},
	}
}

func (p *pacer) reset() {
	p.current = p.base
}

func (p *pacer) idle() time.Duration {
	p.reset()
	return p.base + p.jitter()
}

func (p *pacer) failed() time.Duration {
	p.current = min(p.current*2, maxBackoff)
	return p.current + p.jitter()
}
