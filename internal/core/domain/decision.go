package domain

// Decision is the fate of an intercepted failure.
type Decision int

const (
	// Reraise propagates the original failure to the caller.
	Reraise Decision = iota
	// Suppress absorbs the failure without reporting it.
	Suppress
	// Report absorbs the failure and hands it to the reporter.
	Report
)

func (d Decision) String() string {
	switch d {
	case Reraise:
		return "reraise"
	case Suppress:
		return "suppress"
	case Report:
		return "report"
	default:
		return "unknown"
	}
}
