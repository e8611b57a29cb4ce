// internal/status/constants.go
package status

// Status codes delivered with every snapshot.
// These values define the output contract and MUST NOT be configurable.

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// HealthUnsupported represents a device whose protocol version no table covers.
const HealthUnsupported uint16 = 3

// ---- ERROR CODES ----

// ErrorNone means the last cycle succeeded.
const ErrorNone uint16 = 0

// ErrorGeneric is any failure without a more specific code.
const ErrorGeneric uint16 = 1

// ErrorTransport is a timeout, I/O failure or short response.
const ErrorTransport uint16 = 2

// ErrorDecode is a well-formed response with unusable content.
const ErrorDecode uint16 = 3

// ErrorUnsupportedVersion is a protocol version with no matching table.
const ErrorUnsupportedVersion uint16 = 4

// ErrorUnknownField is a request for a field no table defines.
const ErrorUnknownField uint16 = 5

// ErrorNotIdentified is a refresh attempted before settings were loaded.
const ErrorNotIdentified uint16 = 6

// ErrorCanceled is a cycle cut short by shutdown.
const ErrorCanceled uint16 = 7

// ---- LIMITS ----

// MaxSecondsInError caps the seconds-in-error counter.
const MaxSecondsInError = 65535
