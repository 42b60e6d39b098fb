package coupon

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is transient feedback for the visitor. A zero ExpiresAt never expires.
type Notice struct {
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Board keeps the latest notice. Each post or clear bumps a generation so a
// pending auto-clear only ever removes the notice it was scheduled for.
type Board struct {
	mu     sync.Mutex
	notice *Notice
	gen    uint64
	timer  *time.Timer
}

// Post replaces the current notice. A positive ttl schedules it to clear itself.
func (b *Board) Post(kind Kind, message string, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reset()
	n := &Notice{Message: message, Kind: kind}
	b.notice = n
	if ttl <= 0 {
		return
	}

	n.ExpiresAt = time.Now().Add(ttl)
	gen := b.gen
	b.timer = time.AfterFunc(ttl, func() { b.expire(gen) })
}

func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *Board) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.notice == nil {
		return Notice{}, false
	}
	if !b.notice.ExpiresAt.IsZero() && !time.Now().Before(b.notice.ExpiresAt) {
		return Notice{}, false
	}
	return *b.notice, true
}

// Close cancels any pending auto-clear.
func (b *Board) Close() {
	b.Clear()
}

func (b *Board) expire(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	b.notice = nil
	b.timer = nil
}

// reset must be called with mu held.
func (b *Board) reset() {
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.notice = nil
}
