package csv

import "strings"

// delimiterCandidates are tried in this order; earlier wins ties.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// SniffDelimiter guesses the field delimiter from the start of a file.
//
// Each candidate is counted per line, ignoring quoted sections. The winner
// is the candidate that appears the same non-zero number of times on the
// most lines; a count-based fallback picks ';' over ',' when nothing is
// consistent.
func SniffDelimiter(sample string) rune {
	lines := sampleLines(sample, 20)

	best, bestLines, bestCount := rune(0), 0, 0
	for _, d := range delimiterCandidates {
		counts := make(map[int]int)
		for _, l := range lines {
			if n := countOutsideQuotes(l, d); n > 0 {
				counts[n]++
			}
		}
		mode, modeLines := 0, 0
		for n, c := range counts {
			if c > modeLines || (c == modeLines && n > mode) {
				mode, modeLines = n, c
			}
		}
		if modeLines > bestLines || (modeLines == bestLines && modeLines > 0 && mode > bestCount) {
			best, bestLines, bestCount = d, modeLines, mode
		}
	}
	if best != 0 {
		return best
	}
	if strings.Count(sample, ";") >= strings.Count(sample, ",") && strings.Contains(sample, ";") {
		return ';'
	}
	return ','
}

func sampleLines(s string, max int) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
		if len(out) == max {
			break
		}
	}
	return out
}

func countOutsideQuotes(line string, d rune) int {
	n := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == d && !inQuotes:
			n++
		}
	}
	return n
}
