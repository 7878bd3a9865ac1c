package filter

import (
	"fmt"
	"strings"

	"github.com/cprobe/swordfish/pkg/procutil"
	"github.com/cprobe/swordfish/types"
	"github.com/gobwas/glob"
	"golang.org/x/text/cases"
)

type Mode int

const (
	// ModeSubstring matches when the name contains the pattern.
	ModeSubstring Mode = iota
	// ModeExact matches when the name equals the pattern.
	ModeExact
	// ModeGlob matches the whole name against a glob pattern.
	ModeGlob
)

func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeGlob:
		return "glob"
	default:
		return "substring"
	}
}

// Filter reports whether a case-folded name matches.
type Filter interface {
	Match(string) bool
}

type Options struct {
	Mode Mode

	// User, when set, excludes processes owned by anyone else.
	User string

	// OnlyPIDs, when set, excludes every pid not listed.
	OnlyPIDs []int
}

// Pattern is one user supplied token. All-digit tokens are literal pids,
// everything else is compared against process names.
type Pattern struct {
	Raw   string
	IsPID bool
}

func Classify(raw string) Pattern {
	return Pattern{Raw: raw, IsPID: procutil.IsAllDigits(raw)}
}

// Matcher applies a pattern list with OR semantics, intersected with the
// user and pid restrictions of Options.
type Matcher struct {
	pids  map[string]struct{}
	names []Filter
	user  string
	only  map[int]struct{}
	fold  cases.Caser
}

func Compile(patterns []string, opts Options) (*Matcher, error) {
	m := &Matcher{
		pids: make(map[string]struct{}),
		fold: cases.Fold(),
	}

	for _, raw := range patterns {
		p := Classify(raw)
		if p.IsPID {
			m.pids[p.Raw] = struct{}{}
			continue
		}

		f, err := m.compileName(p.Raw, opts.Mode)
		if err != nil {
			return nil, err
		}
		m.names = append(m.names, f)
	}

	if opts.User != "" {
		m.user = m.fold.String(opts.User)
	}

	if len(opts.OnlyPIDs) > 0 {
		m.only = make(map[int]struct{}, len(opts.OnlyPIDs))
		for _, pid := range opts.OnlyPIDs {
			m.only[pid] = struct{}{}
		}
	}

	return m, nil
}

func (m *Matcher) compileName(raw string, mode Mode) (Filter, error) {
	folded := m.fold.String(raw)
	switch mode {
	case ModeExact:
		return &exactFilter{s: folded}, nil
	case ModeGlob:
		g, err := glob.Compile(folded)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %v", raw, err)
		}
		return g, nil
	default:
		return &substringFilter{s: folded}, nil
	}
}

func (m *Matcher) Match(rec types.ProcessRecord) bool {
	if m.only != nil {
		if _, has := m.only[rec.PID]; !has {
			return false
		}
	}

	if m.user != "" && m.fold.String(rec.Owner) != m.user {
		return false
	}

	if _, has := m.pids[rec.PIDString()]; has {
		return true
	}

	if len(m.names) == 0 {
		return false
	}

	name := m.fold.String(rec.Name)
	for _, f := range m.names {
		if f.Match(name) {
			return true
		}
	}
	return false
}

type exactFilter struct {
	s string
}

func (f *exactFilter) Match(s string) bool {
	return f.s == s
}

type substringFilter struct {
	s string
}

func (f *substringFilter) Match(s string) bool {
	return strings.Contains(s, f.s)
}
