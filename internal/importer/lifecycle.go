package importer

// Signal is an external lifecycle event the coordinator reacts to by
// checkpointing and, under pressure, shedding concurrency.
type Signal int

const (
	// SignalBackgrounded: the process lost foreground status.
	SignalBackgrounded Signal = iota
	// SignalBackgroundTimeLow: the remaining execution budget is small.
	SignalBackgroundTimeLow
	// SignalMemoryWarning: the host is under memory pressure.
	SignalMemoryWarning
	// SignalWillTerminate: the process is about to be killed.
	SignalWillTerminate
)

func (s Signal) String() string {
	switch s {
	case SignalBackgrounded:
		return "backgrounded"
	case SignalBackgroundTimeLow:
		return "background-time-low"
	case SignalMemoryWarning:
		return "memory-warning"
	case SignalWillTerminate:
		return "will-terminate"
	default:
		return "unknown"
	}
}

// sheddingSteps is how much concurrency each signal sheds on top of the
// checkpoint it triggers.
func (s Signal) sheddingSteps() int {
	switch s {
	case SignalBackgroundTimeLow, SignalMemoryWarning:
		return 2
	case SignalBackgrounded:
		return 1
	default:
		return 0
	}
}
