package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"lrcfetch/internal/library"
	"lrcfetch/internal/match"
)

// prompter asks the user on the terminal. It serves both as the per-song
// prompt and as the confirmer for doubtful matches.
type prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) Continue(song library.Song) bool {
	found := ""
	if song.HasLyrics {
		found = "(Lyrics found) "
	}
	return p.ask(fmt.Sprintf("Continue? %s[y/N]: ", found))
}

func (p *prompter) Confirm(provider string, diags match.Diagnostics) bool {
	fields := make([]string, 0, len(diags))
	for field := range diags {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	fmt.Fprintf(&b, "The %s match differs from the local tags:\n", provider)
	for _, field := range fields {
		d := diags[field]
		fmt.Fprintf(&b, "  %s: expected %q, found %q\n", field, d.Expected, d.Found)
	}
	b.WriteString("Use it anyway? [y/N]: ")
	return p.ask(b.String())
}

// ask prints question and reports whether the answer was yes. EOF is a no.
func (p *prompter) ask(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
