package config

import "sync/atomic"

// Holder holds the active configuration. Readers always see a complete configuration.
type Holder struct {
	p atomic.Pointer[Bot]
}

// NewHolder creates a holder with an initial configuration.
func NewHolder(b *Bot) *Holder {
	h := new(Holder)
	h.Store(b)
	return h
}

// Current returns the active configuration.
func (h *Holder) Current() *Bot {
	return h.p.Load()
}

// Store replaces the active configuration.
func (h *Holder) Store(b *Bot) {
	if b == nil {
		return
	}
	h.p.Store(b)
}
