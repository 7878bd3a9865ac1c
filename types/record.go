package types

import (
	"strconv"
	"syscall"
)

const (
	ExitOK      = 0
	ExitNoMatch = 1
	ExitFatal   = 2
)

// UnknownOwner is reported when a uid cannot be resolved to a username.
const UnknownOwner = "unknown"

// UnknownAttr is reported for verbose attributes that could not be read.
const UnknownAttr = "unknown"

// ProcessRecord is one process as seen at snapshot time. Records are built once
// by the reader and never mutated; WithDetails returns a copy.
type ProcessRecord struct {
	PID   int
	Name  string
	Owner string

	// populated lazily, only for verbose output
	Cmdline     string
	ThreadCount string
	detailed    bool
}

func (r ProcessRecord) PIDString() string {
	return strconv.Itoa(r.PID)
}

func (r ProcessRecord) Detailed() bool {
	return r.detailed
}

func (r ProcessRecord) WithDetails(cmdline, threads string) ProcessRecord {
	if cmdline == "" {
		cmdline = UnknownAttr
	}
	if threads == "" {
		threads = UnknownAttr
	}
	r.Cmdline = cmdline
	r.ThreadCount = threads
	r.detailed = true
	return r
}

type OutcomeKind string

const (
	OutcomeListed        OutcomeKind = "listed"
	OutcomeWouldSignal   OutcomeKind = "would-signal"
	OutcomeSignaled      OutcomeKind = "signaled"
	OutcomeSignalFailed  OutcomeKind = "signal-failed"
	OutcomeSkippedZombie OutcomeKind = "skipped-zombie"
)

func (k OutcomeKind) IncludesSignal() bool {
	return k == OutcomeWouldSignal || k == OutcomeSignaled
}

// Outcome is the result of acting, or declining to act, on one selected target.
type Outcome struct {
	Kind   OutcomeKind
	Record ProcessRecord
	Signal syscall.Signal
	Err    error
}
