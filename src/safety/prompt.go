package safety

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoInput is returned by Prompt when the reader is exhausted before a
// non-empty answer.
var ErrNoInput = errors.New("no input")

// Confirm asks a yes/no question before a destructive action such as
// forgetting snapshots or registering discovered remotes.
// - opts.Yes confirms without prompting.
// - opts.DryRun declines without prompting and without error.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		return false, nil
	}
	if opts.Yes {
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	line, err := readLine(in)
	if err != nil {
		return false, err
	}
	ans := strings.TrimSpace(strings.ToLower(line))
	return ans == "y" || ans == "yes", nil
}

// Prompt reads a free-text answer, e.g. a commit message.
func Prompt(in io.Reader, out io.Writer, question string) (string, error) {
	if out != nil {
		fmt.Fprintf(out, "%s: ", strings.TrimSpace(question))
	}
	line, err := readLine(in)
	if err != nil {
		return "", err
	}
	ans := strings.TrimSpace(line)
	if ans == "" {
		return "", ErrNoInput
	}
	return ans, nil
}

func readLine(in io.Reader) (string, error) {
	if in == nil {
		return "", nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}
