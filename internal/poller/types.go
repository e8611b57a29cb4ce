package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/bms-poller/internal/field"
	"github.com/tamzrod/bms-poller/internal/version"
)

// MaxCells bounds the per-cell block of one device.
const MaxCells = 48

var (
	// ErrUnknownField means no catalog version defines the field. It is a
	// programming error and fails only the field that asked for it.
	ErrUnknownField = errors.New("poller: unknown field")

	// ErrUnsupportedProtocolVersion means the device reported a version no
	// table matches. The device cannot proceed past version resolution.
	ErrUnsupportedProtocolVersion = errors.New("poller: unsupported protocol version")

	// ErrCellOutOfRange means the cell index is outside [0, cell count).
	ErrCellOutOfRange = errors.New("poller: cell index out of range")

	// ErrNotIdentified means the device has no usable settings yet.
	ErrNotIdentified = errors.New("poller: device not identified")
)

// Outcome of one field read.
type Outcome uint8

const (
	Read Outcome = iota + 1
	Cached
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Read:
		return "read"
	case Cached:
		return "cached"
	case Skipped:
		return "skipped"
	default:
		return "none"
	}
}

// Skip explains a soft failure. The field stays unset and the enclosing
// pass continues.
type Skip uint8

const (
	NoSkip Skip = iota
	SkipNotInVersion
	SkipUnsupportedByModel
	SkipCapabilityDenied
)

func (s Skip) String() string {
	switch s {
	case SkipNotInVersion:
		return "not in protocol version"
	case SkipUnsupportedByModel:
		return "not supported by hardware model"
	case SkipCapabilityDenied:
		return "capability denied"
	default:
		return ""
	}
}

// Result reports what happened to one field read that did not fail hard.
type Result struct {
	Outcome Outcome
	Skip    Skip
}

// Ok reports whether the field now holds a value.
func (r Result) Ok() bool { return r.Outcome == Read || r.Outcome == Cached }

// Step is one field of a pass.
type Step struct {
	Field     field.ID
	Mandatory bool
}

// PassError is returned when a mandatory step fails.
type PassError struct {
	Pass  string
	Field field.ID
	Cell  int // -1 for device-level fields
	Err   error
}

func (e *PassError) Error() string {
	if e.Cell >= 0 {
		return fmt.Sprintf("poller: %s pass: %s cell %d: %v", e.Pass, e.Field, e.Cell, e.Err)
	}
	return fmt.Sprintf("poller: %s pass: %s: %v", e.Pass, e.Field, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// State of a device handle.
type State uint8

const (
	Unidentified State = iota
	VersionResolved
	SettingsLoaded
	Polling
)

func (s State) String() string {
	switch s {
	case Unidentified:
		return "unidentified"
	case VersionResolved:
		return "version_resolved"
	case SettingsLoaded:
		return "settings_loaded"
	case Polling:
		return "polling"
	default:
		return "invalid"
	}
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	DeviceID string
	At       time.Time

	State   State
	Version version.Version
	Model   string
	Product string
	Serial  string
	Name    string
	Session string

	// Fields and Cells are keyed by aggregation attribute name.
	Fields map[string]any
	Cells  []map[string]any

	Err error // non-nil means the poll cycle failed
}
