package errors

// Decision is the outcome of the soft-fault policy.
type Decision int

const (
	// LogOnly absorbs the fault into the log; the caller continues.
	LogOnly Decision = iota
	// Raise returns the fault to the caller.
	Raise
)

func (d Decision) String() string {
	if d == Raise {
		return "raise"
	}
	return "log-only"
}

// SoftPolicy decides what happens to a soft fault at the given verbosity.
// Any verbosity above zero raises.
func SoftPolicy(verbosity int) Decision {
	if verbosity > 0 {
		return Raise
	}
	return LogOnly
}
