package codec

import (
	"fmt"
	"strconv"

	"github.com/tamzrod/bms-poller/internal/version"
)

// Value is a decoded register value. Exactly one payload is meaningful,
// selected by Type.
type Value struct {
	Type Type

	i int64
	u uint64
	f float64
	s string
	b bool
	v version.Version
}

func IntValue(t Type, n int64) Value { return Value{Type: t, i: n} }
func UintValue(t Type, n uint64) Value { return Value{Type: t, u: n} }
func FloatValue(t Type, f float64) Value { return Value{Type: t, f: f} }
func StringValue(s string) Value { return Value{Type: TypeChar, s: s} }
func BoolValue(b bool) Value { return Value{Type: TypeBool, b: b} }
func VersionValue(v version.Version) Value { return Value{Type: TypeSemver, v: v, s: v.String()} }

// Int returns the value as a signed integer. Unsigned and float values are
// converted.
func (v Value) Int() int64 {
	switch v.Type {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return v.i
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return int64(v.u)
	case TypeFloat32, TypeFloat64:
		return int64(v.f)
	case TypeBool:
		if v.b {
			return 1
		}
	}
	return 0
}

// Uint returns the value as an unsigned integer.
func (v Value) Uint() uint64 {
	switch v.Type {
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return v.u
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		if v.i < 0 {
			return 0
		}
		return uint64(v.i)
	case TypeFloat32, TypeFloat64:
		if v.f < 0 {
			return 0
		}
		return uint64(v.f)
	case TypeBool:
		if v.b {
			return 1
		}
	}
	return 0
}

// Float returns the value as float64. Integer values are converted.
func (v Value) Float() float64 {
	switch v.Type {
	case TypeFloat32, TypeFloat64:
		return v.f
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return float64(v.i)
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return float64(v.u)
	}
	return 0
}

// Bool returns the boolean payload.
func (v Value) Bool() bool {
	if v.Type == TypeBool {
		return v.b
	}
	return v.Uint() != 0
}

// Version returns the semver payload.
func (v Value) Version() version.Version { return v.v }

// String renders the value for logs and text snapshots.
func (v Value) String() string {
	switch v.Type {
	case TypeChar, TypeSemver:
		return v.s
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeFloat32:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case TypeFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return strconv.FormatInt(v.i, 10)
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return strconv.FormatUint(v.u, 10)
	}
	return fmt.Sprintf("<%s>", v.Type)
}

// Any returns the natural Go representation of the value.
func (v Value) Any() any {
	switch v.Type {
	case TypeChar, TypeSemver:
		return v.s
	case TypeBool:
		return v.b
	case TypeFloat32, TypeFloat64:
		return v.f
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return v.i
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return v.u
	}
	return nil
}
