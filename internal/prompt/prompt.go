// Package prompt resolves run options that were left out on the command
// line, either by matching against the source header or by asking the user.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"upvariants/internal/variants"
)

// ResolveParam maps a user supplied parameter name onto a header.
//
// An exact header match wins. Otherwise query is compared case-insensitively
// after NFC normalisation, first as a whole name and then as a substring of
// the parameter columns; a unique hit is returned. Several hits are an
// error. No hit returns query unchanged so the builder reports it.
func ResolveParam(query string, columns []string) (string, error) {
	for _, c := range columns {
		if c == query {
			return c, nil
		}
	}
	q := fold(query)
	if q == "" {
		return query, nil
	}

	params := variants.ParameterColumns(columns)
	for _, c := range params {
		if fold(c) == q {
			return c, nil
		}
	}

	var hits []string
	for _, c := range params {
		if strings.Contains(fold(c), q) {
			hits = append(hits, c)
		}
	}
	switch len(hits) {
	case 0:
		return query, nil
	case 1:
		return hits[0], nil
	}
	return "", &variants.ConfigurationError{
		Field: "param",
		Msg:   fmt.Sprintf("%q matches several parameter columns: %s", query, strings.Join(hits, ", ")),
	}
}

func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// ErrNoAnswer is returned when input ends before a question is answered.
var ErrNoAnswer = errors.New("prompt: no answer")

// Prompter asks questions on a terminal-like pair of streams.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a Prompter reading answers from in and writing questions to out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && line != "":
	case errors.Is(err, io.EOF):
		return "", ErrNoAnswer
	default:
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Ask prints label with def in brackets and returns the answer, or def for
// an empty answer.
func (p *Prompter) Ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	ans, err := p.readLine()
	if err != nil {
		return "", err
	}
	if ans == "" {
		return def, nil
	}
	return ans, nil
}

// ChooseParam lists the candidate columns and reads a 1-based choice.
// An empty answer picks the first. A non-numeric answer is resolved with
// ResolveParam. Invalid answers are asked again.
func (p *Prompter) ChooseParam(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", &variants.ConfigurationError{Field: "param", Msg: "source has no parameter columns"}
	}
	fmt.Fprintln(p.out, "Parameter columns:")
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, c)
	}
	for {
		ans, err := p.Ask("Distinguishing parameter", "1")
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(ans); err == nil {
			if n >= 1 && n <= len(candidates) {
				return candidates[n-1], nil
			}
			fmt.Fprintf(p.out, "Choose a number between 1 and %d.\n", len(candidates))
			continue
		}
		col, err := ResolveParam(ans, candidates)
		if err == nil && contains(candidates, col) {
			return col, nil
		}
		fmt.Fprintf(p.out, "No single parameter column matches %q.\n", ans)
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
