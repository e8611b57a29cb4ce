// internal/status/tracker.go
package status

import (
	"github.com/tamzrod/bms-poller/internal/poller"
)

// Tracker owns the status state of one device across poll cycles.
// It is not safe for concurrent use; one orchestrator goroutine drives it.
type Tracker struct {
	snap Snapshot
}

// NewTracker returns a tracker in the boot state.
func NewTracker(device string) *Tracker {
	return &Tracker{snap: Snapshot{
		Device: device,
		Health: HealthUnknown,
		State:  poller.Unidentified.String(),
	}}
}

// Snapshot returns the current status.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe folds one poll result into the status and reports whether the
// health or error code changed.
func (t *Tracker) Observe(res poller.PollResult) (Snapshot, bool) {
	prevHealth, prevCode := t.snap.Health, t.snap.LastErrorCode

	s := &t.snap
	s.At = res.At
	s.State = res.State.String()
	s.Model = res.Model
	s.Session = res.Session
	s.Fields = res.Fields
	s.Cells = res.Cells
	s.Version = ""
	if !res.Version.IsZero() {
		s.Version = res.Version.String()
	}
	s.Serial = res.Serial
	s.Name = res.Name
	s.Product = res.Product

	if res.Err == nil {
		// Recovery / OK
		s.Health = HealthOK
		s.LastErrorCode = ErrorNone
		s.LastError = ""
		s.SecondsInError = 0
	} else {
		code := ErrorCode(res.Err)
		s.Health = HealthError
		if code == ErrorUnsupportedVersion {
			s.Health = HealthUnsupported
		}
		s.LastErrorCode = code
		s.LastError = res.Err.Error()
		// seconds_in_error increments on Tick only.
	}

	return t.snap, s.Health != prevHealth || s.LastErrorCode != prevCode
}

// Tick advances the seconds-in-error counter while not OK and reports
// whether it changed.
func (t *Tracker) Tick() bool {
	if t.snap.Health == HealthOK {
		return false
	}
	if t.snap.SecondsInError >= MaxSecondsInError {
		return false
	}
	t.snap.SecondsInError++
	return true
}
