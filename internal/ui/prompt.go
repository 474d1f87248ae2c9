package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bamsammich/purge/internal/safety"
)

// Prompter asks the user to confirm paths that need it. Only "y" or "yes",
// in any case, confirm; anything else, including EOF, declines.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm shows c and reads one answer line.
func (p *Prompter) Confirm(c safety.Classification) bool {
	fmt.Fprintf(p.out, "purge: %s is an %s\nremove it and everything below it? [y/N] ", c.Path, c.Reason)

	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		fmt.Fprintln(p.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
