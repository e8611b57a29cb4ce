package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tamzrod/bms-poller/internal/version"
)

var (
	// ErrLength is wrapped when the raw span does not match the type.
	ErrLength = errors.New("codec: register count mismatch")
	// ErrString is wrapped for char payloads with garbage after the NUL trailer.
	ErrString = errors.New("codec: malformed string payload")
	// ErrType is wrapped for unknown types or unsupported arrays.
	ErrType = errors.New("codec: unsupported type")
)

// DecodeError describes a well-formed response with unusable content.
// Raw is kept for diagnosis.
type DecodeError struct {
	Type  Type
	Count uint16
	Raw   []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: decode %s[%d] from % x: %v", e.Type, e.Count, e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode converts a raw register span into a Value. raw holds the register
// bytes exactly as the transport returned them (two bytes per register, in
// wire order). Numeric arrays are not supported: count must be 1 unless t is
// char or semver, where count is the byte length.
func Decode(raw []byte, t Type, count uint16) (Value, error) {
	fail := func(err error) (Value, error) {
		return Value{}, &DecodeError{Type: t, Count: count, Raw: append([]byte(nil), raw...), Err: err}
	}

	if !t.Valid() {
		return fail(ErrType)
	}
	if t != TypeChar && t != TypeSemver && count != 1 {
		return fail(fmt.Errorf("%w: arrays of %s", ErrType, t))
	}
	want := int(Registers(t, count)) * 2
	if want == 0 || len(raw) != want {
		return fail(fmt.Errorf("%w: got %d bytes, want %d", ErrLength, len(raw), want))
	}

	switch t {
	case TypeInt8:
		return IntValue(t, int64(int8(raw[1]))), nil
	case TypeUint8:
		return UintValue(t, uint64(raw[1])), nil
	case TypeInt16:
		return IntValue(t, int64(int16(binary.BigEndian.Uint16(raw)))), nil
	case TypeUint16:
		return UintValue(t, uint64(binary.BigEndian.Uint16(raw))), nil
	case TypeInt32:
		return IntValue(t, int64(int32(binary.BigEndian.Uint32(raw)))), nil
	case TypeUint32:
		return UintValue(t, uint64(binary.BigEndian.Uint32(raw))), nil
	case TypeInt64:
		return IntValue(t, int64(binary.BigEndian.Uint64(raw))), nil
	case TypeUint64:
		return UintValue(t, binary.BigEndian.Uint64(raw)), nil
	case TypeFloat32:
		bits := binary.BigEndian.Uint32(wordSwap(raw))
		return FloatValue(t, float64(math.Float32frombits(bits))), nil
	case TypeFloat64:
		bits := binary.BigEndian.Uint64(wordSwap(raw))
		return FloatValue(t, math.Float64frombits(bits)), nil
	case TypeBool:
		return BoolValue(binary.BigEndian.Uint16(raw) == 1), nil
	case TypeChar:
		s, err := trimString(raw[:count])
		if err != nil {
			return fail(err)
		}
		return StringValue(s), nil
	case TypeSemver:
		s, err := trimString(raw[:count])
		if err != nil {
			return fail(err)
		}
		v, err := version.Coerce(s)
		if err != nil {
			return fail(err)
		}
		return VersionValue(v), nil
	}
	return fail(ErrType)
}

// wordSwap reverses the register order of raw, keeping the bytes inside each
// register. CDAB becomes ABCD; for 64-bit values GHEFCDAB becomes ABCDEFGH.
func wordSwap(raw []byte) []byte {
	out := make([]byte, len(raw))
	n := len(raw) / 2
	for i := 0; i < n; i++ {
		j := n - 1 - i
		out[2*j] = raw[2*i]
		out[2*j+1] = raw[2*i+1]
	}
	return out
}

// trimString right-trims NUL padding. A NUL followed by anything else, or
// text that is not valid UTF-8, is rejected.
func trimString(b []byte) (string, error) {
	s := strings.TrimRight(string(b), "\x00")
	if strings.IndexByte(s, 0) >= 0 {
		return "", fmt.Errorf("%w: embedded NUL", ErrString)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrString)
	}
	return s, nil
}
