package engine

import (
	"bytes"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/cprobe/swordfish/pkg/filter"
	"github.com/cprobe/swordfish/pkg/procutil"
	"github.com/cprobe/swordfish/pkg/procutil/proctest"
	"github.com/cprobe/swordfish/pkg/prompt"
	"github.com/cprobe/swordfish/pkg/safe"
	"github.com/cprobe/swordfish/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type recordingSignaler struct {
	calls []int
	fail  map[int]error
}

func (s *recordingSignaler) Signal(pid int, sig syscall.Signal) error {
	s.calls = append(s.calls, pid)
	return s.fail[pid]
}

// scriptedPrompter answers prompts in order and reports EOF once the
// script runs out, or an interrupt when interrupt is set.
type scriptedPrompter struct {
	answers   []string
	prompts   []string
	interrupt bool
}

func (p *scriptedPrompter) ReadLine(question string) (string, error) {
	p.prompts = append(p.prompts, question)
	if len(p.answers) == 0 {
		if p.interrupt {
			return "", prompt.ErrInterrupted
		}
		return "", io.EOF
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

type denyList map[int]bool

func (d denyList) CanSignal(pid int) bool {
	return !d[pid]
}

type fakeEscalator struct {
	args [][]string
	code int
	err  error
}

func (f *fakeEscalator) Name() string { return "sudo" }

func (f *fakeEscalator) Escalate(args []string) (int, error) {
	f.args = append(f.args, args)
	return f.code, f.err
}

var desktop = []proctest.Proc{
	{PID: 100, Name: "bash", UID: 0},
	{PID: 101, Name: "bash-helper", UID: 0},
	{PID: 1234, Name: "firefox", UID: 1000, Threads: 42, Cmdline: []string{"/usr/lib/firefox/firefox", "-P", "default"}},
	{PID: 5678, Name: "firefox-bin", UID: 1000},
}

type harness struct {
	engine   *Engine
	fs       afero.Fs
	signaler *recordingSignaler
	prompter *scriptedPrompter
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func newHarness(procs []proctest.Proc, answers ...string) *harness {
	h := &harness{
		fs:       proctest.NewFS(procs...),
		signaler: &recordingSignaler{},
		prompter: &scriptedPrompter{answers: answers},
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}
	h.engine = &Engine{
		Table:    procutil.NewProcTable(h.fs, proctest.Root),
		Users:    procutil.StaticUsers{0: "root", 1000: "alice"},
		Signaler: h.signaler,
		Prompter: h.prompter,
		Stdout:   h.stdout,
		Stderr:   h.stderr,
	}
	return h
}

func (h *harness) run(opts Options, patterns ...string) int {
	if opts.Signal == 0 {
		opts.Signal = syscall.SIGTERM
	}
	return h.engine.Run(opts, patterns)
}

func TestSubstringKill(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{Kill: true, AutoConfirm: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t, []int{1234, 5678}, h.signaler.calls)
	require.Equal(t,
		"Sent signal to 1234 (firefox) owned by alice [signal 15 (SIGTERM)]\n"+
			"Sent signal to 5678 (firefox-bin) owned by alice [signal 15 (SIGTERM)]\n",
		h.stdout.String())
	require.Empty(t, h.prompter.prompts)
}

func TestExactList(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{Mode: filter.ModeExact}, "bash")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t, "100 (bash) owned by root\n", h.stdout.String())
	require.Empty(t, h.signaler.calls)
}

func TestNoMatch(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{Kill: true}, "nothingmatches")

	require.Equal(t, types.ExitNoMatch, code)
	require.Equal(t, "No processes matched.\n", h.stderr.String())
	require.Empty(t, h.stdout.String())
	require.Empty(t, h.prompter.prompts)
}

func TestPrintPIDs(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{PrintPIDs: true, Kill: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t, "1234\n5678\n", h.stdout.String())
	require.Empty(t, h.signaler.calls)

	h = newHarness(desktop)
	code = h.run(Options{PrintPIDs: true}, "nothingmatches")
	require.Equal(t, types.ExitNoMatch, code)
	require.Empty(t, h.stdout.String())
}

func TestPIDPattern(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{}, "5678")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t, "5678 (firefox-bin) owned by alice\n", h.stdout.String())
}

func TestDryRunNeverSignals(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{Kill: true, DryRun: true, Signal: syscall.SIGKILL}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Empty(t, h.signaler.calls)
	require.Empty(t, h.prompter.prompts, "dry-run must not ask for confirmation")
	require.Equal(t,
		"Would send signal to 1234 (firefox) owned by alice [signal 9 (SIGKILL)]\n"+
			"Would send signal to 5678 (firefox-bin) owned by alice [signal 9 (SIGKILL)]\n",
		h.stdout.String())
}

func TestZombieIsNeverSignaled(t *testing.T) {
	procs := append([]proctest.Proc{{PID: 300, Name: "zed", UID: 1000, State: "Z"}}, desktop...)
	h := newHarness(procs)

	code := h.run(Options{Kill: true, AutoConfirm: true}, "zed")

	require.Equal(t, types.ExitOK, code)
	require.Empty(t, h.signaler.calls)
	require.Equal(t, "PID 300 (zed) is a zombie process and may not be killed.\n", h.stdout.String())
}

func TestConfirmationDeclined(t *testing.T) {
	h := newHarness(desktop, "n")

	code := h.run(Options{Kill: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Empty(t, h.signaler.calls)
	require.Equal(t,
		"The following processes will be killed (signal 15 - SIGTERM):\n"+
			"  PID 1234 (firefox) owned by alice\n"+
			"  PID 5678 (firefox-bin) owned by alice\n"+
			"Aborted.\n",
		h.stdout.String())
	require.Equal(t, []string{confirmPrompt}, h.prompter.prompts)
}

func TestConfirmationEOFDeclines(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{Kill: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Empty(t, h.signaler.calls)
	require.Contains(t, h.stdout.String(), "Aborted.\n")
}

func TestSelectMode(t *testing.T) {
	workers := []proctest.Proc{
		{PID: 201, Name: "worker", UID: 1000},
		{PID: 202, Name: "worker", UID: 1000},
		{PID: 203, Name: "worker", UID: 1000},
		{PID: 204, Name: "worker", UID: 1000},
		{PID: 205, Name: "worker", UID: 1000},
		{PID: 206, Name: "worker", UID: 1000},
	}
	h := newHarness(workers, "1,3-5", "y")

	code := h.run(Options{Kill: true, Select: true}, "worker")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t, []int{201, 203, 204, 205}, h.signaler.calls)
	require.Equal(t, []string{selectPrompt, confirmPrompt}, h.prompter.prompts)
	require.Contains(t, h.stdout.String(), "Select which processes to act on:\n[1] PID 201 (worker)\n")
	require.Contains(t, h.stdout.String(), "[6] PID 206 (worker)\n")
}

func TestSelectNothingSkipsConfirmation(t *testing.T) {
	h := newHarness(desktop, "99")

	code := h.run(Options{Kill: true, Select: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Empty(t, h.signaler.calls)
	require.Equal(t, []string{selectPrompt}, h.prompter.prompts)
}

func TestAutoConfirmSkipsSelection(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{Kill: true, Select: true, AutoConfirm: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t, []int{1234, 5678}, h.signaler.calls)
	require.Empty(t, h.prompter.prompts)
}

func TestSignalFailureIsReportedNotFatal(t *testing.T) {
	h := newHarness(desktop)
	h.signaler.fail = map[int]error{1234: syscall.EPERM}

	code := h.run(Options{Kill: true, AutoConfirm: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t, []int{1234, 5678}, h.signaler.calls)
	require.Equal(t, "Failed to kill PID 1234 (firefox): operation not permitted\n", h.stderr.String())
	require.Equal(t, "Sent signal to 5678 (firefox-bin) owned by alice [signal 15 (SIGTERM)]\n", h.stdout.String())
}

func TestVerboseListing(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{Verbose: true, Mode: filter.ModeExact}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t,
		"[VERBOSE] 1234 (firefox) cmdl (/usr/lib/firefox/firefox -P default) threads (42) owned by alice\n",
		h.stdout.String())
}

func TestUserFilter(t *testing.T) {
	h := newHarness(desktop)

	code := h.run(Options{User: "root"}, "firefox", "bash")

	require.Equal(t, types.ExitOK, code)
	require.Equal(t, "100 (bash) owned by root\n101 (bash-helper) owned by root\n", h.stdout.String())
}

func TestMatchLimit(t *testing.T) {
	h := newHarness(desktop)
	code := h.run(Options{PrintPIDs: true, MaxMatches: 1, Overflow: safe.OverflowDrop}, "firefox")
	require.Equal(t, types.ExitOK, code)
	require.Equal(t, "1234\n", h.stdout.String())

	h = newHarness(desktop)
	code = h.run(Options{PrintPIDs: true, MaxMatches: 1, Overflow: safe.OverflowError}, "firefox")
	require.Equal(t, types.ExitFatal, code)
	require.Empty(t, h.stdout.String())
	require.Equal(t, "swordfish: too many matching processes (limit 1)\n", h.stderr.String())
}

func TestFatalErrors(t *testing.T) {
	h := newHarness(desktop)
	require.NoError(t, h.fs.RemoveAll(proctest.Root))
	code := h.run(Options{}, "firefox")
	require.Equal(t, types.ExitFatal, code)
	require.Contains(t, h.stderr.String(), "failed to read process table")

	h = newHarness(desktop)
	code = h.run(Options{})
	require.Equal(t, types.ExitFatal, code)
	require.Equal(t, "swordfish: no pattern supplied\n", h.stderr.String())

	h = newHarness(desktop)
	code = h.run(Options{Mode: filter.ModeGlob}, "[abc")
	require.Equal(t, types.ExitFatal, code)
	require.NotEmpty(t, h.stderr.String())
}

func TestDropPrivilegesOnlyWhenNotKilling(t *testing.T) {
	drops := 0
	h := newHarness(desktop)
	h.engine.DropPrivileges = func() error {
		drops++
		return nil
	}

	h.run(Options{}, "firefox")
	require.Equal(t, 1, drops)

	h.run(Options{Kill: true, AutoConfirm: true}, "firefox")
	require.Equal(t, 1, drops)
}

func TestEscalation(t *testing.T) {
	cases := []struct {
		name        string
		answers     []string
		autoConfirm bool
		root        bool
		escalated   bool
		signaled    []int
	}{
		{name: "accepted", answers: []string{"y", "y"}, escalated: true},
		{name: "declined signals directly", answers: []string{"y", "n"}, signaled: []int{1234, 5678}},
		{name: "auto confirm", autoConfirm: true, escalated: true},
		{name: "already root", answers: []string{"y"}, root: true, signaled: []int{1234, 5678}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(desktop, tc.answers...)
			esc := &fakeEscalator{code: 0}
			h.engine.Checker = denyList{1234: true}
			h.engine.Escalator = esc
			h.engine.IsRoot = func() bool { return tc.root }

			code := h.run(Options{Kill: true, AutoConfirm: tc.autoConfirm}, "firefox")

			require.Equal(t, types.ExitOK, code)
			require.Equal(t, tc.signaled, h.signaler.calls)
			if !tc.escalated {
				require.Empty(t, esc.args)
				return
			}
			require.Equal(t, [][]string{{"-y", "-s", "15", "-k", "--only-pids", "1234,5678", "--", "firefox"}}, esc.args)
			require.Contains(t, h.stderr.String(), "requires elevated privileges")
		})
	}
}

func TestEscalationNotOfferedWhenPermitted(t *testing.T) {
	h := newHarness(desktop, "y")
	esc := &fakeEscalator{}
	h.engine.Checker = denyList{}
	h.engine.Escalator = esc

	code := h.run(Options{Kill: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Empty(t, esc.args)
	require.Equal(t, []int{1234, 5678}, h.signaler.calls)
}

func TestEscalationPassesExitCode(t *testing.T) {
	h := newHarness(desktop)
	h.engine.Checker = denyList{5678: true}
	h.engine.Escalator = &fakeEscalator{code: 1}

	code := h.run(Options{Kill: true, AutoConfirm: true}, "firefox")

	require.Equal(t, 1, code)
	require.Empty(t, h.signaler.calls)
}

func TestReexecArgs(t *testing.T) {
	opts := Options{
		Signal:     syscall.SIGKILL,
		Kill:       true,
		Verbose:    true,
		Mode:       filter.ModeGlob,
		User:       "alice",
		ConfigFile: "/etc/swordfish.toml",
	}

	got := opts.ReexecArgs([]string{"fire*", "-weird"}, []int{7, 9})

	require.Equal(t, []string{
		"-y", "-s", "9", "-k", "-v", "-g",
		"-u", "alice",
		"--config", "/etc/swordfish.toml",
		"--only-pids", "7,9",
		"--", "fire*", "-weird",
	}, got)
}

func TestInterruptAtSelectionTouchesNothing(t *testing.T) {
	for _, opts := range []Options{
		{Select: true},
		{Select: true, DryRun: true},
		{Select: true, Kill: true},
	} {
		h := newHarness(desktop)
		h.prompter.interrupt = true

		code := h.run(opts, "firefox")

		require.Equal(t, types.ExitOK, code)
		require.Empty(t, h.signaler.calls)
		require.Equal(t, []string{selectPrompt}, h.prompter.prompts)
		require.NotContains(t, h.stdout.String(), "signal to")
		require.NotContains(t, h.stdout.String(), "owned by alice\n")
		require.True(t, strings.HasSuffix(h.stdout.String(), "Aborted.\n"), h.stdout.String())
	}
}

func TestInterruptAtConfirmationAborts(t *testing.T) {
	h := newHarness(desktop)
	h.prompter.interrupt = true

	code := h.run(Options{Kill: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Empty(t, h.signaler.calls)
	require.True(t, strings.HasSuffix(h.stdout.String(), "Aborted.\n"))
}

func TestInterruptAtEscalationAborts(t *testing.T) {
	h := newHarness(desktop, "y")
	h.prompter.interrupt = true
	esc := &fakeEscalator{}
	h.engine.Checker = denyList{1234: true}
	h.engine.Escalator = esc

	code := h.run(Options{Kill: true}, "firefox")

	require.Equal(t, types.ExitOK, code)
	require.Empty(t, h.signaler.calls)
	require.Empty(t, esc.args)
	require.True(t, strings.HasSuffix(h.stdout.String(), "Aborted.\n"))
}
