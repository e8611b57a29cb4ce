// Package transport is the register-access boundary. Framing, CRC and
// retransmission belong to the Modbus library behind it.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Transport reads registers and coils from slaves on one physical channel.
// Implementations are not required to be safe for concurrent use; callers
// serialize access per channel.
type Transport interface {
	// Channel identifies the physical medium shared by several slaves.
	Channel() string

	// ReadRegisters returns quantity holding registers starting at address,
	// two bytes per register in wire order.
	ReadRegisters(ctx context.Context, slave uint8, address, quantity uint16) ([]byte, error)

	// ReadCoil returns a single coil.
	ReadCoil(ctx context.Context, slave uint8, address uint16) (bool, error)

	Close() error
}

// ErrShortResponse is wrapped when a response carries fewer bytes than asked for.
var ErrShortResponse = errors.New("transport: short response")

// Error is a failed bus operation: timeout, I/O failure or malformed
// response length. It is recoverable; the next poll simply tries again.
type Error struct {
	Channel  string
	Slave    uint8
	Op       string
	Address  uint16
	Quantity uint16
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s/%d addr=%d qty=%d: %v",
		e.Op, e.Channel, e.Slave, e.Address, e.Quantity, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
