package diag

// Severity orders diagnostics; a Bag with any SevError fails the run.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

// String uses the words C compilers print after the location.
func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}
