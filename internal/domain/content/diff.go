package content

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffOp is the kind of change a hunk represents.
type DiffOp string

const (
	DiffEqual  DiffOp = "equal"
	DiffInsert DiffOp = "insert"
	DiffDelete DiffOp = "delete"
)

// DiffHunk is a run of consecutive lines sharing one operation.
type DiffHunk struct {
	Op    DiffOp   `json:"op"`
	Lines []string `json:"lines"`
	// OldStart/NewStart are 1-based line numbers of the hunk in the old and
	// new text. A start of 0 means the hunk does not appear on that side.
	OldStart int `json:"old_start"`
	NewStart int `json:"new_start"`
}

// DiffResult is a line-oriented comparison of two revisions.
type DiffResult struct {
	Hunks        []DiffHunk `json:"hunks"`
	LinesAdded   int        `json:"lines_added"`
	LinesRemoved int        `json:"lines_removed"`
	Identical    bool       `json:"identical"`
}

// DiffText compares two texts line by line. Page bodies are HTML, so the
// comparison runs in diffmatchpatch's line mode to keep hunks readable.
func DiffText(oldText, newText string) DiffResult {
	if oldText == newText {
		return DiffResult{Identical: true}
	}

	dmp := diffmatchpatch.New()
	oldRunes, newRunes, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	diffs := dmp.DiffMainRunes(oldRunes, newRunes, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	result := DiffResult{}
	oldLine, newLine := 1, 1

	for _, d := range diffs {
		lines := splitLines(d.Text)
		if len(lines) == 0 {
			continue
		}

		hunk := DiffHunk{Lines: lines}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			hunk.Op = DiffEqual
			hunk.OldStart = oldLine
			hunk.NewStart = newLine
			oldLine += len(lines)
			newLine += len(lines)
		case diffmatchpatch.DiffInsert:
			hunk.Op = DiffInsert
			hunk.NewStart = newLine
			newLine += len(lines)
			result.LinesAdded += len(lines)
		case diffmatchpatch.DiffDelete:
			hunk.Op = DiffDelete
			hunk.OldStart = oldLine
			oldLine += len(lines)
			result.LinesRemoved += len(lines)
		}
		result.Hunks = append(result.Hunks, hunk)
	}

	return result
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(text, "\n")
	if trimmed == "" {
		// Text was only newlines; each is an empty line.
		return make([]string, strings.Count(text, "\n"))
	}
	return strings.Split(trimmed, "\n")
}
