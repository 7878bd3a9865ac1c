package planner

import (
	"strings"
	"syscall"

	"github.com/cprobe/swordfish/logger"
	"github.com/cprobe/swordfish/pkg/sigutil"
	"github.com/cprobe/swordfish/types"
)

type Action int

const (
	ActionList Action = iota
	ActionDryRun
	ActionSignal
)

func (a Action) String() string {
	switch a {
	case ActionDryRun:
		return "dry-run"
	case ActionSignal:
		return "signal"
	default:
		return "list"
	}
}

// ResolveAction picks the action for the kill and dry-run flags. Dry-run
// wins over kill.
func ResolveAction(kill, dryRun bool) Action {
	switch {
	case dryRun:
		return ActionDryRun
	case kill:
		return ActionSignal
	default:
		return ActionList
	}
}

// Liveness re-derives whether a process is a zombie right before acting on it.
type Liveness interface {
	IsZombie(pid int) bool
}

type Planner struct {
	action   Action
	signal   syscall.Signal
	liveness Liveness
	signaler sigutil.Signaler
}

func New(action Action, sig syscall.Signal, liveness Liveness, signaler sigutil.Signaler) *Planner {
	return &Planner{
		action:   action,
		signal:   sig,
		liveness: liveness,
		signaler: signaler,
	}
}

func (p *Planner) Action() Action {
	return p.action
}

func (p *Planner) Signal() syscall.Signal {
	return p.signal
}

// NeedsConfirmation reports whether the user must approve before any
// signal is sent.
func (p *Planner) NeedsConfirmation(autoConfirm bool) bool {
	return p.action == ActionSignal && !autoConfirm
}

// Act computes the outcome for one selected target, delivering the signal
// when the action asks for it. Zombies are never signaled.
func (p *Planner) Act(rec types.ProcessRecord) types.Outcome {
	out := types.Outcome{Record: rec, Signal: p.signal}

	if p.liveness.IsZombie(rec.PID) {
		out.Kind = types.OutcomeSkippedZombie
		return out
	}

	switch p.action {
	case ActionSignal:
		if err := p.signaler.Signal(rec.PID, p.signal); err != nil {
			logger.Logger.Warnw("signal delivery failed", "pid", rec.PID, "name", rec.Name, "signal", int(p.signal), "error", err)
			out.Kind = types.OutcomeSignalFailed
			out.Err = err
			return out
		}
		logger.Logger.Debugw("signal delivered", "pid", rec.PID, "signal", int(p.signal))
		out.Kind = types.OutcomeSignaled
	case ActionDryRun:
		out.Kind = types.OutcomeWouldSignal
	default:
		out.Kind = types.OutcomeListed
	}
	return out
}

// Targets resolves a selection into records, in selection order.
func Targets(matches []types.ProcessRecord, selection []int) []types.ProcessRecord {
	out := make([]types.ProcessRecord, 0, len(selection))
	for _, idx := range selection {
		if idx >= 0 && idx < len(matches) {
			out = append(out, matches[idx])
		}
	}
	return out
}

// All selects every match in discovery order.
func All(count int) []int {
	sel := make([]int, count)
	for i := range sel {
		sel[i] = i
	}
	return sel
}

// ParseSelection turns an expression like "1,2,5-7" into 0-based indices
// into a list of count matches. Empty input selects everything. Indices
// outside [1, count] are ignored, duplicates are kept, and the selection
// never grows beyond count entries.
func ParseSelection(input string, count int) []int {
	input = strings.TrimSpace(input)
	if input == "" {
		return All(count)
	}

	sel := make([]int, 0, count)
	for _, tok := range strings.Split(input, ",") {
		if len(sel) >= count {
			break
		}

		if first, last, isRange := strings.Cut(tok, "-"); isRange {
			start, end := leadingInt(first), leadingInt(last)
			if start <= 0 || end < start {
				continue
			}
			if end > count {
				end = count
			}
			for j := start; j <= end && len(sel) < count; j++ {
				sel = append(sel, j-1)
			}
			continue
		}

		idx := leadingInt(tok) - 1
		if idx >= 0 && idx < count {
			sel = append(sel, idx)
		}
	}
	return sel
}

// leadingInt parses the decimal number at the start of s, ignoring leading
// blanks and anything after the digits. It returns 0 when there is none.
func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t")
	s = strings.TrimPrefix(s, "+")

	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return 1 << 30
		}
	}
	return n
}
