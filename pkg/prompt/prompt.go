// Package prompt reads single lines of interactive input.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the user interrupts a prompt, e.g. with
// Ctrl-C on a terminal in raw mode.
var ErrInterrupted = errors.New("interrupted")

// Prompter shows prompt and blocks until one line is read. The returned
// line has no trailing newline. At end of input it returns what was read
// so far together with io.EOF.
type Prompter interface {
	ReadLine(prompt string) (string, error)
}

type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter reads lines from r and writes prompts to w.
func NewLinePrompter(r io.Reader, w io.Writer) Prompter {
	return &linePrompter{in: bufio.NewReader(r), out: w}
}

func (p *linePrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return line, io.EOF
		}
		return line, err
	}
	return line, nil
}

type terminalPrompter struct{}

func (terminalPrompter) ReadLine(prompt string) (string, error) {
	rl, err := readline.NewFromConfig(&readline.Config{Prompt: prompt})
	if err != nil {
		return "", err
	}
	defer rl.Close()

	line, err := rl.ReadLine()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupted
	}
	return strings.TrimRight(line, "\r\n"), err
}

// NewStdio returns a line editing prompter when stdin is a terminal and a
// plain line reader otherwise.
func NewStdio() Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return terminalPrompter{}
	}
	return NewLinePrompter(os.Stdin, os.Stdout)
}

// Ask asks question and reports whether the answer starts with y or Y.
// Read failures count as a decline; an interrupt is also returned as
// ErrInterrupted so callers can stop altogether.
func Ask(p Prompter, question string) (bool, error) {
	answer, err := p.ReadLine(question)
	if errors.Is(err, ErrInterrupted) {
		return false, err
	}
	if err != nil && answer == "" {
		return false, nil
	}
	return strings.HasPrefix(answer, "y") || strings.HasPrefix(answer, "Y"), nil
}

// Confirm is Ask without the interrupt distinction.
func Confirm(p Prompter, question string) bool {
	ok, _ := Ask(p, question)
	return ok
}
