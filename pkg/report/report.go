package report

import (
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/cprobe/swordfish/pkg/sigutil"
	"github.com/cprobe/swordfish/types"
)

// Details fills in the verbose attributes of a record on demand.
type Details interface {
	Details(rec types.ProcessRecord) types.ProcessRecord
}

type Reporter struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
	details Details
	counts  map[types.OutcomeKind]int
}

// New returns a reporter writing results to out and failures to errOut.
// details is only consulted when verbose is set.
func New(out, errOut io.Writer, verbose bool, details Details) *Reporter {
	return &Reporter{
		out:     out,
		errOut:  errOut,
		verbose: verbose && details != nil,
		details: details,
		counts:  make(map[types.OutcomeKind]int),
	}
}

// Describe renders one record, optionally tagged with the signal.
func (r *Reporter) Describe(prefix string, rec types.ProcessRecord, sig syscall.Signal, includeSignal bool) string {
	var sb strings.Builder

	if r.verbose {
		rec = r.details.Details(rec)
		sb.WriteString("[VERBOSE] ")
		sb.WriteString(prefix)
		fmt.Fprintf(&sb, "%d (%s) cmdl (%s) threads (%s) owned by %s", rec.PID, rec.Name, rec.Cmdline, rec.ThreadCount, rec.Owner)
	} else {
		sb.WriteString(prefix)
		fmt.Fprintf(&sb, "%d (%s) owned by %s", rec.PID, rec.Name, rec.Owner)
	}

	if includeSignal {
		fmt.Fprintf(&sb, " [signal %d (%s)]", int(sig), sigutil.Name(sig))
	}
	return sb.String()
}

// Outcome prints the result line for one target.
func (r *Reporter) Outcome(o types.Outcome) {
	r.counts[o.Kind]++

	rec := o.Record
	switch o.Kind {
	case types.OutcomeSkippedZombie:
		fmt.Fprintf(r.out, "PID %d (%s) is a zombie process and may not be killed.\n", rec.PID, rec.Name)
	case types.OutcomeSignalFailed:
		fmt.Fprintf(r.errOut, "Failed to kill PID %d (%s): %v\n", rec.PID, rec.Name, o.Err)
	case types.OutcomeSignaled:
		fmt.Fprintln(r.out, r.Describe("Sent signal to ", rec, o.Signal, o.Kind.IncludesSignal()))
	case types.OutcomeWouldSignal:
		fmt.Fprintln(r.out, r.Describe("Would send signal to ", rec, o.Signal, o.Kind.IncludesSignal()))
	default:
		fmt.Fprintln(r.out, r.Describe("", rec, o.Signal, o.Kind.IncludesSignal()))
	}
}

// Counts returns how many outcomes of each kind were reported.
func (r *Reporter) Counts() map[types.OutcomeKind]int {
	out := make(map[types.OutcomeKind]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

func (r *Reporter) ConfirmHeader(sig syscall.Signal, targets []types.ProcessRecord) {
	fmt.Fprintf(r.out, "The following processes will be killed (signal %d - %s):\n", int(sig), sigutil.Name(sig))
	for _, rec := range targets {
		fmt.Fprintln(r.out, r.Describe("  PID ", rec, sig, false))
	}
}

func (r *Reporter) SelectionList(matches []types.ProcessRecord) {
	fmt.Fprintln(r.out, "Select which processes to act on:")
	for i, rec := range matches {
		fmt.Fprintf(r.out, "[%d] PID %d (%s)\n", i+1, rec.PID, rec.Name)
	}
}

func (r *Reporter) Aborted() {
	fmt.Fprintln(r.out, "Aborted.")
}

func (r *Reporter) NoMatch() {
	fmt.Fprintln(r.errOut, "No processes matched.")
}

func (r *Reporter) Fatal(err error) {
	fmt.Fprintf(r.errOut, "swordfish: %v\n", err)
}

// PIDs prints one pid per line and returns the exit status of the
// print-pids-only mode.
func PIDs(w io.Writer, matches []types.ProcessRecord) int {
	for _, rec := range matches {
		fmt.Fprintf(w, "%d\n", rec.PID)
	}
	if len(matches) == 0 {
		return types.ExitNoMatch
	}
	return types.ExitOK
}

// ExitCode is the aggregate status of a completed run. Per-target signal
// failures and user aborts still count as normal completion.
func ExitCode(matched int) int {
	if matched == 0 {
		return types.ExitNoMatch
	}
	return types.ExitOK
}
