// Package interactive provides interactive prompts for user confirmation.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/adamancini/ezupdate/internal/update"
)

// Response represents the user's response to a prompt.
type Response int

const (
	ResponseYes  Response = iota // Install the update
	ResponseNo                   // Keep the running version
	ResponseQuit                 // Input closed or user aborted
)

func (r Response) String() string {
	switch r {
	case ResponseYes:
		return "yes"
	case ResponseNo:
		return "no"
	case ResponseQuit:
		return "quit"
	}
	return fmt.Sprintf("Response(%d)", int(r))
}

// notesLimit caps how many lines of release notes are shown before asking.
const notesLimit = 12

// Prompter handles interactive prompts for update confirmation.
type Prompter struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompt displays a question and reads the response.
func (p *Prompter) prompt(format string, args ...interface{}) Response {
	_, _ = fmt.Fprintf(p.out, format, args...)
	_, _ = fmt.Fprint(p.out, " [y/n] ")

	if !p.scanner.Scan() {
		return ResponseQuit
	}

	input := strings.ToLower(strings.TrimSpace(p.scanner.Text()))
	switch input {
	case "y", "yes":
		return ResponseYes
	case "n", "no", "":
		return ResponseNo
	case "q", "quit":
		return ResponseQuit
	default:
		_, _ = fmt.Fprintln(p.out, "Invalid response, not updating.")
		return ResponseNo
	}
}

// ConfirmUpdate shows what is about to be installed and asks whether to
// proceed. Only a yes answer returns true.
func (p *Prompter) ConfirmUpdate(st update.Status) bool {
	_, _ = fmt.Fprintf(p.out, "%s %s -> %s", st.ProgramFileName, st.ProgramVersion, st.ReleaseVersion)
	if st.ReleaseName != "" && st.ReleaseName != st.ReleaseVersion {
		_, _ = fmt.Fprintf(p.out, " (%s)", st.ReleaseName)
	}
	_, _ = fmt.Fprintln(p.out)

	if st.Asset != nil && st.Asset.Size > 0 {
		_, _ = fmt.Fprintf(p.out, "  Asset: %s, %s\n", st.Asset.Name, humanize.Bytes(uint64(st.Asset.Size)))
	}

	if notes := strings.TrimSpace(st.ReleaseBody); notes != "" {
		lines := strings.Split(notes, "\n")
		_, _ = fmt.Fprintln(p.out, "  Release notes:")
		for i, line := range lines {
			if i == notesLimit {
				_, _ = fmt.Fprintf(p.out, "    ... %d more lines\n", len(lines)-notesLimit)
				break
			}
			_, _ = fmt.Fprintf(p.out, "    %s\n", strings.TrimRight(line, "\r"))
		}
	}

	switch p.prompt("Install update?") {
	case ResponseYes:
		return true
	case ResponseQuit:
		_, _ = fmt.Fprintln(p.out, "\nAborted.")
	}
	return false
}
