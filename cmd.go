//go:build !windows

package main

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/cprobe/swordfish/config"
	"github.com/cprobe/swordfish/engine"
	"github.com/cprobe/swordfish/logger"
	"github.com/cprobe/swordfish/pkg/escalate"
	"github.com/cprobe/swordfish/pkg/filter"
	"github.com/cprobe/swordfish/pkg/procutil"
	"github.com/cprobe/swordfish/pkg/prompt"
	"github.com/cprobe/swordfish/pkg/safe"
	"github.com/cprobe/swordfish/pkg/sigutil"
	"github.com/cprobe/swordfish/types"
	"github.com/spf13/cobra"
)

const longHelp = `Find processes by name or pid and list, signal, or kill them.

Patterns are matched case-insensitively against the process name. A pattern
made only of digits names a pid. A process matches when any pattern matches.
Without -k or -N matching processes are only listed.

A leading -<SIGNAL> argument (-9, -KILL, -SIGKILL) selects the signal and
implies -k.`

const examples = `  swordfish firefox              list processes whose name contains "firefox"
  swordfish -k -x bash           send SIGTERM to processes named exactly "bash"
  swordfish -9 chrome            send SIGKILL to chrome processes
  swordfish -N -s HUP nginx      show what would be sent without sending it
  swordfish -S -k worker         pick which workers to terminate
  swordfish -g 'python3.*'       glob match against the whole name
  swordfish -p -u alice ssh      print pids of alice's ssh processes`

type cliFlags struct {
	selectMode bool
	dryRun     bool
	kill       bool
	exact      bool
	glob       bool
	yes        bool
	printPIDs  bool
	verbose    bool
	signal     string
	user       string

	configFile string
	logLevel   string
	source     string
	maxMatches int
	onlyPIDs   []int
}

// invocation carries one command line through cobra and back out as an
// exit status.
type invocation struct {
	flags     cliFlags
	shorthand syscall.Signal
	hasShort  bool
	stdout    io.Writer
	stderr    io.Writer
	code      int
}

func run(args []string) int {
	return execute(args, os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	sig, ok, rest := splitSignalShorthand(args)
	inv := &invocation{shorthand: sig, hasShort: ok, stdout: stdout, stderr: stderr}

	root := newRootCmd(inv)
	root.SetArgs(rest)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "swordfish: %v\n", err)
		fmt.Fprintln(stderr, "Try 'swordfish --help' for more information.")
		return types.ExitFatal
	}
	return inv.code
}

func newRootCmd(inv *invocation) *cobra.Command {
	f := &inv.flags

	root := &cobra.Command{
		Use:                   "swordfish [OPTIONS] pattern [pattern ...]",
		Short:                 "Find and signal processes by name or pid",
		Long:                  longHelp,
		Example:               examples,
		Version:               config.Version,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprint(inv.stderr, cmd.UsageString())
				inv.code = types.ExitFatal
				return nil
			}
			inv.code = inv.runEngine(cmd, args)
			return nil
		},
	}

	flags := root.Flags()
	flags.BoolVarP(&f.selectMode, "select", "S", false, "choose interactively which matches to act on")
	flags.BoolVarP(&f.dryRun, "dry-run", "N", false, "show what would be signaled without sending anything")
	flags.BoolVarP(&f.kill, "kill", "k", false, "send the signal to matching processes")
	flags.BoolVarP(&f.exact, "exact", "x", false, "match the whole process name")
	flags.BoolVarP(&f.glob, "glob", "g", false, "match the process name against a glob pattern")
	flags.BoolVarP(&f.yes, "yes", "y", false, "do not ask for confirmation")
	flags.BoolVarP(&f.printPIDs, "pids", "p", false, "only print the pids of matching processes")
	flags.StringVarP(&f.signal, "signal", "s", "", "signal name or number to send (default TERM)")
	flags.StringVarP(&f.user, "user", "u", "", "only match processes owned by this user")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "also show command line and thread count")

	flags.StringVar(&f.configFile, "config", "", "path to the configuration file")
	flags.StringVar(&f.logLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	flags.StringVar(&f.source, "source", "", "process table source: proc, procfs, gopsutil")
	flags.IntVar(&f.maxMatches, "max-matches", 0, "upper bound on the number of matches kept")

	flags.IntSliceVar(&f.onlyPIDs, "only-pids", nil, "restrict matches to these pids")
	_ = flags.MarkHidden("only-pids")

	root.MarkFlagsMutuallyExclusive("exact", "glob")

	return root
}

func (inv *invocation) runEngine(cmd *cobra.Command, patterns []string) int {
	f := inv.flags

	err := config.InitConfig(f.configFile, config.Overrides{
		LogLevel:   f.logLevel,
		Source:     f.source,
		MaxMatches: f.maxMatches,
	})
	if err != nil {
		fmt.Fprintf(inv.stderr, "swordfish: %v\n", err)
		return types.ExitFatal
	}

	closefn, err := logger.Build()
	if err != nil {
		fmt.Fprintf(inv.stderr, "swordfish: failed to build logger: %v\n", err)
		return types.ExitFatal
	}
	defer closefn()

	opts, err := inv.options(cmd.Flags().Changed("signal"))
	if err != nil {
		fmt.Fprintln(inv.stderr, err)
		return types.ExitFatal
	}

	table, err := procutil.OpenTable(config.Config.Scan.Source, config.Config.Scan.ProcRoot)
	if err != nil {
		fmt.Fprintf(inv.stderr, "swordfish: failed to open process table: %v\n", err)
		return types.ExitFatal
	}

	logger.Logger.Debugw("starting", "version", config.Version, "source", config.Config.Scan.Source, "action", opts.Action().String(), "signal", int(opts.Signal))

	e := &engine.Engine{
		Table:          table,
		Signaler:       sigutil.NewSignaler(),
		Prompter:       prompt.NewStdio(),
		IsRoot:         escalate.IsRoot,
		DropPrivileges: escalate.DropPrivileges,
		Stdout:         inv.stdout,
		Stderr:         inv.stderr,
	}
	if config.Config.Kill.Escalation == config.EscalationSudo {
		e.Checker = escalate.NewChecker()
		e.Escalator = escalate.NewSudo()
	}

	return e.Run(opts, patterns)
}

// options turns parsed flags and the loaded config into engine options.
// The signal comes from the config default, then the -<SIGNAL> shorthand,
// then an explicit -s.
func (inv *invocation) options(signalFlagSet bool) (engine.Options, error) {
	f := inv.flags

	opts := engine.Options{
		Kill:        f.kill,
		DryRun:      f.dryRun,
		Select:      f.selectMode,
		Verbose:     f.verbose,
		PrintPIDs:   f.printPIDs,
		AutoConfirm: f.yes,
		User:        f.user,
		OnlyPIDs:    f.onlyPIDs,
		MaxMatches:  config.Config.Scan.MaxMatches,
		ConfigFile:  f.configFile,
	}

	switch {
	case f.exact:
		opts.Mode = filter.ModeExact
	case f.glob:
		opts.Mode = filter.ModeGlob
	}

	if config.Config.Scan.Overflow == config.OverflowError {
		opts.Overflow = safe.OverflowError
	}

	sig, err := parseSignal(config.Config.Kill.DefaultSignal)
	if err != nil {
		return opts, err
	}
	if inv.hasShort {
		sig = inv.shorthand
		opts.Kill = true
	}
	if signalFlagSet {
		if sig, err = parseSignal(f.signal); err != nil {
			return opts, err
		}
	}
	opts.Signal = sig

	return opts, nil
}

type unknownSignalError string

func (e unknownSignalError) Error() string {
	return "Unknown signal: " + string(e)
}

func parseSignal(s string) (syscall.Signal, error) {
	sig, err := sigutil.Parse(s)
	if err != nil {
		logger.Logger.Debugw("signal rejected", "signal", s, "error", err)
		return 0, unknownSignalError(s)
	}
	return sig, nil
}
