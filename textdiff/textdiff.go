package textdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const contextLines = 3

type lineOp struct {
	op   diffmatchpatch.Operation
	line string
}

// Unified renders a unified diff between oldText and newText with three
// lines of context per hunk. Returns the empty string when the inputs are
// identical.
func Unified(fromFile, toFile, oldText, newText string) string {
	if oldText == newText {
		return ""
	}

	ops := lineOps(oldText, newText)

	// Line numbers on each side before every op index.
	oldAt := make([]int, len(ops)+1)
	newAt := make([]int, len(ops)+1)
	for i, op := range ops {
		oldAt[i+1] = oldAt[i]
		newAt[i+1] = newAt[i]
		switch op.op {
		case diffmatchpatch.DiffEqual:
			oldAt[i+1]++
			newAt[i+1]++
		case diffmatchpatch.DiffDelete:
			oldAt[i+1]++
		case diffmatchpatch.DiffInsert:
			newAt[i+1]++
		}
	}

	type span struct{ start, end int }
	var spans []span
	for i, op := range ops {
		if op.op == diffmatchpatch.DiffEqual {
			continue
		}
		s := i - contextLines
		if s < 0 {
			s = 0
		}
		e := i + contextLines + 1
		if e > len(ops) {
			e = len(ops)
		}
		if n := len(spans); n > 0 && s <= spans[n-1].end {
			spans[n-1].end = e
		} else {
			spans = append(spans, span{s, e})
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", fromFile, toFile)
	for _, sp := range spans {
		oldStart := oldAt[sp.start] + 1
		oldCount := oldAt[sp.end] - oldAt[sp.start]
		newStart := newAt[sp.start] + 1
		newCount := newAt[sp.end] - newAt[sp.start]
		if oldCount == 0 {
			oldStart--
		}
		if newCount == 0 {
			newStart--
		}
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		for _, op := range ops[sp.start:sp.end] {
			switch op.op {
			case diffmatchpatch.DiffDelete:
				b.WriteString("-")
			case diffmatchpatch.DiffInsert:
				b.WriteString("+")
			default:
				b.WriteString(" ")
			}
			b.WriteString(op.line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// lineOps computes a line-granular diff using diffmatchpatch's
// lines-to-chars optimization.
func lineOps(oldText, newText string) []lineOp {
	dmp := diffmatchpatch.New()
	a, b, arr := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), arr)

	var ops []lineOp
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			ops = append(ops, lineOp{d.Type, line})
		}
	}
	return ops
}
