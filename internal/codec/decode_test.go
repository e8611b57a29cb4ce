package codec

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tamzrod/bms-poller/internal/version"
)

func TestDecodeFloat32_WordSwapped(t *testing.T) {
	// 51.2 is 0x424CCCCD; the low word travels first.
	raw := []byte{0xCC, 0xCD, 0x42, 0x4C}

	v, err := Decode(raw, TypeFloat32, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(float32(51.2)), v.Float())
	assert.Equal(t, TypeFloat32, v.Type)
}

func TestDecodeFloat64_WordSwapped(t *testing.T) {
	// 51.2 is 0x404999999999999A.
	raw := []byte{0x99, 0x9A, 0x99, 0x99, 0x99, 0x99, 0x40, 0x49}

	v, err := Decode(raw, TypeFloat64, 1)
	require.NoError(t, err)
	assert.Equal(t, 51.2, v.Float())
}

func TestDecodeIntegers(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		typ  Type
		want any
	}{
		{"uint16", []byte{0x00, 0x10}, TypeUint16, uint64(16)},
		{"int16 negative", []byte{0xFF, 0xFE}, TypeInt16, int64(-2)},
		{"uint8 low byte", []byte{0x00, 0x02}, TypeUint8, uint64(2)},
		{"int8 negative", []byte{0x00, 0xFF}, TypeInt8, int64(-1)},
		{"uint32 high word first", []byte{0x00, 0x01, 0x00, 0x02}, TypeUint32, uint64(0x00010002)},
		{"int32 negative", []byte{0xFF, 0xFF, 0xFF, 0xFE}, TypeInt32, int64(-2)},
		{"uint64", []byte{0, 0, 0, 0, 0, 1, 0, 0}, TypeUint64, uint64(0x10000)},
		{"int64 negative", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, TypeInt64, int64(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.raw, tt.typ, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Any())
		})
	}
}

func TestDecodeBool_EqualsOne(t *testing.T) {
	tests := []struct {
		raw  []byte
		want bool
	}{
		{[]byte{0x00, 0x01}, true},
		{[]byte{0x00, 0x00}, false},
		{[]byte{0x00, 0x02}, false},
		{[]byte{0x01, 0x00}, false},
	}
	for _, tt := range tests {
		v, err := Decode(tt.raw, TypeBool, 1)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v.Bool(), "raw % x", tt.raw)
	}
}

func TestDecodeChar_TrimsNUL(t *testing.T) {
	raw := []byte("iRock 424\x00\x00\x00\x00\x00\x00\x00")

	v, err := Decode(raw, TypeChar, 16)
	require.NoError(t, err)
	assert.Equal(t, "iRock 424", v.String())
}

func TestDecodeChar_KeepsSpaces(t *testing.T) {
	raw := []byte("SN01 \x00\x00\x00")

	v, err := Decode(raw, TypeChar, 8)
	require.NoError(t, err)
	assert.Equal(t, "SN01 ", v.String())
}

func TestDecodeChar_OddLength(t *testing.T) {
	// 5 bytes occupy 3 registers; the pad byte is ignored.
	raw := []byte{'A', 'B', 'C', 'D', 'E', 0xFF}

	v, err := Decode(raw, TypeChar, 5)
	require.NoError(t, err)
	assert.Equal(t, "ABCDE", v.String())
}

func TestDecodeChar_EmbeddedNUL(t *testing.T) {
	raw := []byte{'A', 0x00, 'B', 0x00}

	_, err := Decode(raw, TypeChar, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrString))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, raw, de.Raw)
}

func TestDecodeSemver(t *testing.T) {
	raw := make([]byte, 16)
	copy(raw, "2.0.1")

	v, err := Decode(raw, TypeSemver, 16)
	require.NoError(t, err)
	assert.Equal(t, version.Version{Major: 2, Minor: 0, Patch: 1}, v.Version())
	assert.Equal(t, "2.0.1", v.String())
}

func TestDecodeSemver_Unparsable(t *testing.T) {
	raw := make([]byte, 16)
	copy(raw, "garbage")

	_, err := Decode(raw, TypeSemver, 16)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}

func TestDecode_LengthMismatch(t *testing.T) {
	tests := []struct {
		name  string
		raw   []byte
		typ   Type
		count uint16
	}{
		{"float32 short", []byte{0x00, 0x01}, TypeFloat32, 1},
		{"uint16 long", []byte{0, 1, 0, 2}, TypeUint16, 1},
		{"char short", []byte("AB"), TypeChar, 16},
		{"uint64 short", make([]byte, 6), TypeUint64, 1},
		{"zero count", nil, TypeChar, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw, tt.typ, tt.count)
			assert.ErrorIs(t, err, ErrLength)
		})
	}
}

func TestDecode_UnsupportedType(t *testing.T) {
	_, err := Decode([]byte{0, 1}, TypeInvalid, 1)
	assert.ErrorIs(t, err, ErrType)

	_, err = Decode([]byte{0, 1, 0, 2}, TypeUint16, 2)
	assert.ErrorIs(t, err, ErrType)
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeFloat32, ParseType("float32"))
	assert.Equal(t, TypeChar, ParseType(" CHAR "))
	assert.Equal(t, TypeInvalid, ParseType("bcd16"))
	assert.Equal(t, "invalid", TypeInvalid.String())
}

func TestRegisters(t *testing.T) {
	assert.Equal(t, uint16(1), Registers(TypeBool, 1))
	assert.Equal(t, uint16(2), Registers(TypeFloat32, 1))
	assert.Equal(t, uint16(4), Registers(TypeUint64, 1))
	assert.Equal(t, uint16(8), Registers(TypeChar, 16))
	assert.Equal(t, uint16(3), Registers(TypeChar, 5))
	assert.Equal(t, uint16(0), Registers(TypeInvalid, 1))
}

// wire lays out a big-endian IEEE value the way the battery transmits it.
func wire(be []byte) []byte {
	return wordSwap(be)
}

func TestDecodeFloat32_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := rapid.Float32Range(-1e9, 1e9).Draw(t, "f")

		be := make([]byte, 4)
		binary.BigEndian.PutUint32(be, math.Float32bits(f))

		v, err := Decode(wire(be), TypeFloat32, 1)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if float32(v.Float()) != f {
			t.Fatalf("got %v want %v", v.Float(), f)
		}
	})
}

func TestDecodeUint32_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Uint32().Draw(t, "n")

		raw := make([]byte, 4)
		binary.BigEndian.PutUint32(raw, n)

		v, err := Decode(raw, TypeUint32, 1)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if v.Uint() != uint64(n) {
			t.Fatalf("got %d want %d", v.Uint(), n)
		}
	})
}
