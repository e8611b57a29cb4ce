// Package codec decodes raw register spans into typed values.
//
// The byte layout is fixed by the battery firmware: every register is two
// bytes, big-endian as transmitted. Integers spanning several registers keep
// the high-order word first; floating point values are word-swapped (the
// low-order word is transmitted first).
package codec

import "strings"

// Type is the encoded type of a register span.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeChar
	TypeBool
	TypeSemver
)

var typeNames = map[Type]string{
	TypeInt8:    "int8",
	TypeUint8:   "uint8",
	TypeInt16:   "int16",
	TypeUint16:  "uint16",
	TypeInt32:   "int32",
	TypeUint32:  "uint32",
	TypeInt64:   "int64",
	TypeUint64:  "uint64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeChar:    "char",
	TypeBool:    "bool",
	TypeSemver:  "semver",
}

// ParseType maps a table type name to a Type. Unknown names yield
// TypeInvalid so callers can skip the entry instead of failing.
func ParseType(s string) Type {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t
		}
	}
	return TypeInvalid
}

// String returns the table name of t.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "invalid"
}

// Valid reports whether t is a decodable type.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Registers returns how many 16-bit registers a span of type t with count
// elements occupies. For char and semver, count is the length in bytes.
// Zero means the combination is not decodable.
func Registers(t Type, count uint16) uint16 {
	if count == 0 {
		return 0
	}
	switch t {
	case TypeInt8, TypeUint8, TypeInt16, TypeUint16, TypeBool:
		return count
	case TypeInt32, TypeUint32, TypeFloat32:
		return 2 * count
	case TypeInt64, TypeUint64, TypeFloat64:
		return 4 * count
	case TypeChar, TypeSemver:
		return (count + 1) / 2
	}
	return 0
}
