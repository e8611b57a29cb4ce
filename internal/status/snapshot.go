// internal/status/snapshot.go
package status

import "time"

// Snapshot represents exactly what the writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
// CBOR encoding uses integer keys for compactness.
type Snapshot struct {
	At     time.Time `cbor:"1,keyasint"`
	Device string    `cbor:"2,keyasint"`

	Health         uint16 `cbor:"3,keyasint"`
	LastErrorCode  uint16 `cbor:"4,keyasint"`
	SecondsInError uint16 `cbor:"5,keyasint"`
	LastError      string `cbor:"6,keyasint,omitempty"`

	State   string `cbor:"7,keyasint"`
	Version string `cbor:"8,keyasint,omitempty"`
	Model   string `cbor:"9,keyasint,omitempty"`
	Name    string `cbor:"10,keyasint,omitempty"`
	Serial  string `cbor:"11,keyasint,omitempty"`
	Session string `cbor:"12,keyasint,omitempty"`

	// Fields and Cells are keyed by aggregation attribute name.
	Fields map[string]any   `cbor:"13,keyasint,omitempty"`
	Cells  []map[string]any `cbor:"14,keyasint,omitempty"`

	Product string `cbor:"15,keyasint,omitempty"`
}
