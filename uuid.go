package ecgble

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// bluetoothBaseUUID is the Bluetooth SIG base UUID. 16-bit UUIDs are
// shorthand for 0000xxxx-0000-1000-8000-00805f9b34fb.
const bluetoothBaseUUID = "0000%04x-0000-1000-8000-00805f9b34fb"

// A UUID is a BLE UUID, either a 16-bit SIG-assigned shorthand or a
// full 128-bit UUID.
type UUID struct {
	b []byte
}

// UUID16 converts a uint16 (such as 0x1800) to a UUID.
func UUID16(i uint16) UUID {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, i)
	return UUID{b}
}

// ParseUUID parses a standard-format UUID string, such as
// "1800" or "34DA3AD1-7110-41A1-B1EF-4430F509CDE7".
func ParseUUID(s string) (UUID, error) {
	if len(s) == 4 {
		b, err := hex.DecodeString(s)
		if err != nil {
			return UUID{}, fmt.Errorf("invalid 16-bit UUID %q: %w", s, err)
		}
		return UUID{b}, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	b := make([]byte, 16)
	copy(b, u[:])
	return UUID{b}, nil
}

// MustParseUUID parses a standard-format UUID string,
// like ParseUUID, but panics in case of error.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Len returns the length of the UUID, in bytes: 2 for a 16-bit UUID
// and 16 for a 128-bit UUID.
func (u UUID) Len() int {
	return len(u.b)
}

// Equal reports whether u and v represent the same UUID.
// A 16-bit UUID and its 128-bit base-UUID expansion compare equal.
func (u UUID) Equal(v UUID) bool {
	return u.Canonical() == v.Canonical()
}

// String returns the compact hex representation of the UUID,
// e.g. "2902" or "12345678-1234-1234-1234-123456789abc".
func (u UUID) String() string {
	if len(u.b) == 2 {
		return hex.EncodeToString(u.b)
	}
	return u.Canonical()
}

// Canonical returns the full dashed 128-bit form expected by BlueZ.
// 16-bit UUIDs are expanded over the Bluetooth base UUID.
func (u UUID) Canonical() string {
	if len(u.b) == 2 {
		return fmt.Sprintf(bluetoothBaseUUID, binary.BigEndian.Uint16(u.b))
	}
	var v uuid.UUID
	copy(v[:], u.b)
	return v.String()
}
