// File: internal/sms/reuse.go
package sms

import (
	"slices"
	"sync"
	"time"
)

// pooledNumber tracks a number whose first activation completed and that can
// still take extra activations inside the provider's reuse window. The window
// runs from the first time the number entered the pool, not from its latest
// use.
type pooledNumber struct {
	request  *VerificationRequest
	pooledAt time.Time
	usedAt   time.Time
	useCount int
	services []string
}

// ReusePool keeps recently completed phone numbers available for further
// verifications inside the provider's reuse window. A number is handed out at
// most once per service, least-used first, so no single number accumulates
// verifications quickly. Entries stay in the pool until their window elapses.
// Safe for concurrent use by parallel pipeline runs.
type ReusePool struct {
	mu     sync.Mutex
	window time.Duration
	pool   []pooledNumber
	now    func() time.Time
}

// NewReusePool creates a pool with the given reuse window.
func NewReusePool(window time.Duration) *ReusePool {
	return &ReusePool{window: window, now: time.Now}
}

// Put records a successfully used number as reusable and marks the service it
// just served. Re-putting a known number refreshes its use stats but never
// extends its window.
func (p *ReusePool) Put(req *VerificationRequest, service string) {
	if req == nil || req.Number == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune()
	for i := range p.pool {
		if p.pool[i].request.Number == req.Number {
			p.pool[i].usedAt = p.now()
			p.pool[i].useCount++
			if !slices.Contains(p.pool[i].services, service) {
				p.pool[i].services = append(p.pool[i].services, service)
			}
			return
		}
	}
	now := p.now()
	p.pool = append(p.pool, pooledNumber{
		request:  req,
		pooledAt: now,
		usedAt:   now,
		useCount: 1,
		services: []string{service},
	})
}

// Get hands out the least-used number still inside the reuse window that has
// not yet served the given service, or nil when none qualifies. The entry is
// updated in place and stays pooled; the returned request identifies the
// number and its original activation, which the caller must reactivate before
// polling for a new code.
func (p *ReusePool) Get(service string) *VerificationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune()
	best := -1
	for i := range p.pool {
		if slices.Contains(p.pool[i].services, service) {
			continue
		}
		if best < 0 || p.pool[i].useCount < p.pool[best].useCount {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	p.pool[best].usedAt = p.now()
	p.pool[best].useCount++
	p.pool[best].services = append(p.pool[best].services, service)
	out := *p.pool[best].request
	return &out
}

// Len reports how many numbers are currently inside the reuse window.
func (p *ReusePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune()
	return len(p.pool)
}

// prune drops entries whose window has elapsed since they first entered the
// pool. Caller holds p.mu.
func (p *ReusePool) prune() {
	cutoff := p.now().Add(-p.window)
	kept := p.pool[:0]
	for _, entry := range p.pool {
		if entry.pooledAt.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	p.pool = kept
}
