// Package lock serializes register access on shared transports.
//
// Two levels are held for every bus operation: the channel (one physical
// line) and the device (one slave address on that line). They are always
// acquired channel first, device second, and released in reverse order.
package lock

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

type deviceKey struct {
	channel string
	address uint8
}

// Registry owns the lock set. Locks are created on first use and never
// removed; the device population is small and long-lived.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*semaphore.Weighted
	devices  map[deviceKey]*semaphore.Weighted
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*semaphore.Weighted),
		devices:  make(map[deviceKey]*semaphore.Weighted),
	}
}

func (r *Registry) locks(channel string, address uint8) (*semaphore.Weighted, *semaphore.Weighted) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[channel]
	if !ok {
		ch = semaphore.NewWeighted(1)
		r.channels[channel] = ch
	}
	k := deviceKey{channel: channel, address: address}
	dev, ok := r.devices[k]
	if !ok {
		dev = semaphore.NewWeighted(1)
		r.devices[k] = dev
	}
	return ch, dev
}

// WithExclusive runs fn while holding the channel lock and then the device
// lock. Waiting honors ctx; once fn runs it is not interrupted. Both locks
// are released on every exit path, panics included.
func (r *Registry) WithExclusive(ctx context.Context, channel string, address uint8, fn func() error) error {
	ch, dev := r.locks(channel, address)

	if err := ch.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("lock: channel %s: %w", channel, err)
	}
	defer ch.Release(1)

	if err := dev.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("lock: device %s/%d: %w", channel, address, err)
	}
	defer dev.Release(1)

	return fn()
}

// Size returns the number of channel and device locks created so far.
func (r *Registry) Size() (channels, devices int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels), len(r.devices)
}
