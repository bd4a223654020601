package notify

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffContext is the number of unchanged lines kept around each change.
const DiffContext = 7

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

// Unified renders a line diff of before and after in unified format. It returns
// an empty string when both are equal.
func Unified(oldName, newName string, before, after []byte, context int) string {
	lines := lineDiff(string(before), string(after))
	changed := false
	for _, l := range lines {
		if l.op != diffmatchpatch.DiffEqual {
			changed = true
			break
		}
	}
	if !changed {
		return ""
	}

	// oldNo[i] and newNo[i] count the lines of each side before lines[i].
	oldNo := make([]int, len(lines)+1)
	newNo := make([]int, len(lines)+1)
	for i, l := range lines {
		oldNo[i+1], newNo[i+1] = oldNo[i], newNo[i]
		if l.op != diffmatchpatch.DiffInsert {
			oldNo[i+1]++
		}
		if l.op != diffmatchpatch.DiffDelete {
			newNo[i+1]++
		}
	}

	sb := strings.Builder{}
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", oldName, newName)
	for i := 0; i < len(lines); {
		if lines[i].op == diffmatchpatch.DiffEqual {
			i++
			continue
		}
		start := max(0, i-context)
		last := i
		for j := i; j < len(lines); j++ {
			if lines[j].op != diffmatchpatch.DiffEqual {
				last = j
			} else if j-last > 2*context {
				break
			}
		}
		stop := min(len(lines), last+context+1)
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n",
			oldNo[start]+1, oldNo[stop]-oldNo[start],
			newNo[start]+1, newNo[stop]-newNo[start])
		for _, l := range lines[start:stop] {
			switch l.op {
			case diffmatchpatch.DiffDelete:
				sb.WriteByte('-')
			case diffmatchpatch.DiffInsert:
				sb.WriteByte('+')
			default:
				sb.WriteByte(' ')
			}
			sb.WriteString(l.text)
			sb.WriteByte('\n')
		}
		i = stop
	}
	return sb.String()
}

func lineDiff(before, after string) []diffLine {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []diffLine
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			out = append(out, diffLine{op: d.Type, text: text})
		}
	}
	return out
}

func splitLines(s string) []string {
	parts := strings.SplitAfter(s, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, strings.TrimRight(p, "\r\n"))
	}
	return out
}
