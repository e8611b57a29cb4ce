// internal/status/errorcode.go
package status

import (
	"context"
	"errors"

	"github.com/tamzrod/bms-poller/internal/codec"
	"github.com/tamzrod/bms-poller/internal/poller"
	"github.com/tamzrod/bms-poller/internal/transport"
)

// ErrorCode maps an error to its uint16 status code.
// Anything unclassified is ErrorGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return ErrorNone
	}

	var te *transport.Error
	var de *codec.DecodeError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCanceled
	case errors.Is(err, poller.ErrUnsupportedProtocolVersion):
		return ErrorUnsupportedVersion
	case errors.Is(err, poller.ErrUnknownField):
		return ErrorUnknownField
	case errors.Is(err, poller.ErrNotIdentified):
		return ErrorNotIdentified
	case errors.As(err, &de):
		return ErrorDecode
	case errors.As(err, &te):
		return ErrorTransport
	}
	return ErrorGeneric
}
