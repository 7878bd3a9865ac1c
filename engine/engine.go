package engine

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/cprobe/swordfish/config"
	"github.com/cprobe/swordfish/logger"
	"github.com/cprobe/swordfish/pkg/escalate"
	"github.com/cprobe/swordfish/pkg/filter"
	"github.com/cprobe/swordfish/pkg/planner"
	"github.com/cprobe/swordfish/pkg/procutil"
	"github.com/cprobe/swordfish/pkg/prompt"
	"github.com/cprobe/swordfish/pkg/report"
	"github.com/cprobe/swordfish/pkg/safe"
	"github.com/cprobe/swordfish/pkg/sigutil"
	"github.com/cprobe/swordfish/types"
)

const (
	selectPrompt  = "Enter numbers (e.g., 1,2,5-7) or leave empty for all: "
	confirmPrompt = "Proceed? [y/N]: "
)

// Options is everything one invocation asks for, already validated.
type Options struct {
	Signal      syscall.Signal
	Kill        bool
	DryRun      bool
	Select      bool
	Verbose     bool
	PrintPIDs   bool
	AutoConfirm bool
	Mode        filter.Mode
	User        string
	OnlyPIDs    []int

	MaxMatches int
	Overflow   safe.OverflowPolicy

	// ConfigFile is handed to an escalated re-run.
	ConfigFile string
}

func (o Options) Action() planner.Action {
	return planner.ResolveAction(o.Kill, o.DryRun)
}

// ReexecArgs rebuilds the command line for an escalated run restricted to
// pids. The re-run is auto-confirmed since the user already agreed.
func (o Options) ReexecArgs(patterns []string, pids []int) []string {
	args := []string{"-y", "-s", strconv.Itoa(int(o.Signal))}
	if o.Kill {
		args = append(args, "-k")
	}
	if o.DryRun {
		args = append(args, "-N")
	}
	if o.Verbose {
		args = append(args, "-v")
	}
	switch o.Mode {
	case filter.ModeExact:
		args = append(args, "-x")
	case filter.ModeGlob:
		args = append(args, "-g")
	}
	if o.User != "" {
		args = append(args, "-u", o.User)
	}
	if o.ConfigFile != "" {
		args = append(args, "--config", o.ConfigFile)
	}
	if len(pids) > 0 {
		ids := make([]string, len(pids))
		for i, pid := range pids {
			ids[i] = strconv.Itoa(pid)
		}
		args = append(args, "--only-pids", strings.Join(ids, ","))
	}
	args = append(args, "--")
	return append(args, patterns...)
}

// Engine runs the discovery, matching, selection, action and reporting
// pipeline against one snapshot of the process table.
type Engine struct {
	Table    procutil.Table
	Users    procutil.UserResolver
	Signaler sigutil.Signaler
	Prompter prompt.Prompter

	// Checker and Escalator are optional; without them no escalation is offered.
	Checker   escalate.Checker
	Escalator escalate.Strategy
	IsRoot    func() bool

	// DropPrivileges is called before scanning when no signal will be sent.
	DropPrivileges func() error

	Stdout io.Writer
	Stderr io.Writer
}

// Run performs one invocation and returns the process exit status.
func (e *Engine) Run(opts Options, patterns []string) int {
	reader := procutil.NewReader(e.Table, e.Users)
	rep := report.New(e.Stdout, e.Stderr, opts.Verbose, reader)

	if len(patterns) == 0 {
		rep.Fatal(errors.New("no pattern supplied"))
		return types.ExitFatal
	}

	if !opts.Kill && e.DropPrivileges != nil {
		if err := e.DropPrivileges(); err != nil {
			rep.Fatal(err)
			return types.ExitFatal
		}
	}

	matcher, err := filter.Compile(patterns, filter.Options{
		Mode:     opts.Mode,
		User:     opts.User,
		OnlyPIDs: opts.OnlyPIDs,
	})
	if err != nil {
		rep.Fatal(err)
		return types.ExitFatal
	}

	matches, err := collect(reader, matcher, opts)
	if err != nil {
		rep.Fatal(err)
		return types.ExitFatal
	}

	logger.Logger.Debugw("matched processes", "patterns", patterns, "mode", opts.Mode.String(), "user", opts.User, "count", len(matches))

	if opts.PrintPIDs {
		return report.PIDs(e.Stdout, matches)
	}

	if len(matches) == 0 {
		rep.NoMatch()
		return types.ExitNoMatch
	}

	selection := planner.All(len(matches))
	if opts.Select && !opts.AutoConfirm {
		rep.SelectionList(matches)
		input, err := e.Prompter.ReadLine(selectPrompt)
		if errors.Is(err, prompt.ErrInterrupted) {
			rep.Aborted()
			return types.ExitOK
		}
		if err != nil && !errors.Is(err, io.EOF) {
			rep.Fatal(fmt.Errorf("failed to read selection: %v", err))
			return types.ExitFatal
		}
		selection = planner.ParseSelection(input, len(matches))
	}

	targets := planner.Targets(matches, selection)
	pl := planner.New(opts.Action(), opts.Signal, reader, e.Signaler)

	if pl.NeedsConfirmation(opts.AutoConfirm) && len(targets) > 0 {
		rep.ConfirmHeader(pl.Signal(), targets)
		if ok, _ := prompt.Ask(e.Prompter, confirmPrompt); !ok {
			rep.Aborted()
			return types.ExitOK
		}
	}

	if pl.Action() == planner.ActionSignal {
		if code, handled := e.escalate(rep, opts, patterns, targets); handled {
			return code
		}
	}

	for _, t := range targets {
		rep.Outcome(pl.Act(t))
	}

	logger.Logger.Debugw("run finished", "action", pl.Action().String(), "targets", len(targets), "outcomes", rep.Counts())

	return report.ExitCode(len(matches))
}

// collect walks the table once, keeping matches up to the configured limit.
func collect(reader *procutil.Reader, matcher *filter.Matcher, opts Options) ([]types.ProcessRecord, error) {
	limit := opts.MaxMatches
	if limit <= 0 {
		limit = config.DefaultMaxMatches
	}

	buf := safe.NewLimitedList[types.ProcessRecord](limit, opts.Overflow)
	err := reader.Scan(func(rec types.ProcessRecord) error {
		if !matcher.Match(rec) {
			return nil
		}
		if err := buf.Push(rec); err != nil {
			return fmt.Errorf("too many matching processes (limit %d)", buf.Cap())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if n := buf.Dropped(); n > 0 {
		logger.Logger.Debugw("match limit reached, extra matches dropped", "limit", limit, "dropped", n)
	}

	return buf.Items(), nil
}

// escalate offers an elevated re-run when some targets cannot be signaled
// with the current privileges. handled is true when the re-run took over or
// the user interrupted the question.
func (e *Engine) escalate(rep *report.Reporter, opts Options, patterns []string, targets []types.ProcessRecord) (code int, handled bool) {
	if e.Checker == nil || e.Escalator == nil || len(targets) == 0 {
		return 0, false
	}
	if e.IsRoot != nil && e.IsRoot() {
		return 0, false
	}

	var denied []int
	seen := make(map[int]struct{}, len(targets))
	pids := make([]int, 0, len(targets))
	for _, t := range targets {
		if _, dup := seen[t.PID]; dup {
			continue
		}
		seen[t.PID] = struct{}{}
		pids = append(pids, t.PID)
		if !e.Checker.CanSignal(t.PID) {
			denied = append(denied, t.PID)
		}
	}

	if len(denied) == 0 {
		return 0, false
	}

	logger.Logger.Debugw("targets need elevated privileges", "pids", denied)
	fmt.Fprintf(e.Stderr, "Warning: sending signals to %d of %d processes requires elevated privileges.\n", len(denied), len(pids))

	if !opts.AutoConfirm {
		ok, err := prompt.Ask(e.Prompter, fmt.Sprintf("Rerun with %s? [y/N]: ", e.Escalator.Name()))
		if errors.Is(err, prompt.ErrInterrupted) {
			rep.Aborted()
			return types.ExitOK, true
		}
		if !ok {
			return 0, false
		}
	}

	code, err := e.Escalator.Escalate(opts.ReexecArgs(patterns, pids))
	if err != nil {
		fmt.Fprintf(e.Stderr, "swordfish: %s failed: %v\n", e.Escalator.Name(), err)
		return types.ExitFatal, true
	}
	return code, true
}
