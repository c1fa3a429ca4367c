package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrNoAnswer is returned when the console closes before a Y/N answer.
var ErrNoAnswer = errors.New("no overwrite answer")

// Asker decides whether an existing artifact may be overwritten.
type Asker interface {
	Ask(artifact string) (bool, error)
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(artifact string) (bool, error)

// Ask calls f.
func (f AskerFunc) Ask(artifact string) (bool, error) { return f(artifact) }

// Always overwrites without asking.
var Always Asker = AskerFunc(func(string) (bool, error) { return true, nil })

// Never keeps every existing artifact.
var Never Asker = AskerFunc(func(string) (bool, error) { return false, nil })

// Overwrite modes accepted by ParseMode.
const (
	ModePrompt = "prompt"
	ModeAlways = "always"
	ModeNever  = "never"
)

// ParseMode returns the Asker for an overwrite mode. Prompt mode reads
// answers from in and writes prompts to out.
func ParseMode(mode string, in io.Reader, out io.Writer) (Asker, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModePrompt, "":
		return NewConsoleAsker(in, out), nil
	case ModeAlways:
		return Always, nil
	case ModeNever:
		return Never, nil
	}
	return nil, fmt.Errorf("unknown overwrite mode %q (want prompt, always or never)", mode)
}

var (
	cNotice = color.New(color.FgYellow)
	cPrompt = color.New(color.FgCyan, color.Bold)
	cMuted  = color.New(color.Faint)
)

// ConsoleAsker prompts on a terminal until it gets Y or N. It never times out.
type ConsoleAsker struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewConsoleAsker returns an Asker reading answers line by line from in.
func NewConsoleAsker(in io.Reader, out io.Writer) *ConsoleAsker {
	return &ConsoleAsker{in: bufio.NewScanner(in), out: out}
}

// Ask prompts for artifact and returns the decision.
func (a *ConsoleAsker) Ask(artifact string) (bool, error) {
	cNotice.Fprintf(a.out, "A file with this name already exists: %s\n", artifact)
	for {
		cPrompt.Fprint(a.out, "Would you like to overwrite the current file(s)? Y/N: ")
		if !a.in.Scan() {
			fmt.Fprintln(a.out)
			if err := a.in.Err(); err != nil {
				return false, fmt.Errorf("read answer for %s: %w", artifact, err)
			}
			return false, fmt.Errorf("%s: %w", artifact, ErrNoAnswer)
		}
		switch strings.ToUpper(strings.TrimSpace(a.in.Text())) {
		case "Y":
			return true, nil
		case "N":
			cMuted.Fprintln(a.out, "Ok, the current file will not be overwritten")
			return false, nil
		default:
			fmt.Fprintln(a.out, "Please enter either Y or N")
		}
	}
}
