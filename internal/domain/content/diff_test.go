package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffText_Identical(t *testing.T) {
	result := DiffText("<p>hello</p>\n", "<p>hello</p>\n")
	assert.True(t, result.Identical)
	assert.Empty(t, result.Hunks)
	assert.Zero(t, result.LinesAdded)
	assert.Zero(t, result.LinesRemoved)
}

func TestDiffText_InsertedLine(t *testing.T) {
	oldText := "line one\nline two\n"
	newText := "line one\nline inserted\nline two\n"

	result := DiffText(oldText, newText)
	require.False(t, result.Identical)
	assert.Equal(t, 1, result.LinesAdded)
	assert.Equal(t, 0, result.LinesRemoved)

	var insert *DiffHunk
	for i := range result.Hunks {
		if result.Hunks[i].Op == DiffInsert {
			insert = &result.Hunks[i]
		}
	}
	require.NotNil(t, insert)
	assert.Equal(t, []string{"line inserted"}, insert.Lines)
	assert.Equal(t, 2, insert.NewStart)
}

func TestDiffText_DeletedLines(t *testing.T) {
	oldText := "a\nb\nc\nd\n"
	newText := "a\nd\n"

	result := DiffText(oldText, newText)
	assert.Equal(t, 0, result.LinesAdded)
	assert.Equal(t, 2, result.LinesRemoved)

	var deleted []string
	for _, h := range result.Hunks {
		if h.Op == DiffDelete {
			deleted = append(deleted, h.Lines...)
		}
	}
	assert.Equal(t, []string{"b", "c"}, deleted)
}

func TestDiffText_ReplacementCountsBothSides(t *testing.T) {
	result := DiffText("old headline\n", "new headline\n")
	assert.Equal(t, 1, result.LinesAdded)
	assert.Equal(t, 1, result.LinesRemoved)
}

func TestDiffText_LineNumbersTrackBothSides(t *testing.T) {
	oldText := strings.Join([]string{"h1", "intro", "body", "footer"}, "\n") + "\n"
	newText := strings.Join([]string{"h1", "body", "footer", "legal"}, "\n") + "\n"

	result := DiffText(oldText, newText)

	for _, h := range result.Hunks {
		switch h.Op {
		case DiffEqual:
			assert.Positive(t, h.OldStart)
			assert.Positive(t, h.NewStart)
		case DiffInsert:
			assert.Zero(t, h.OldStart)
			assert.Positive(t, h.NewStart)
		case DiffDelete:
			assert.Positive(t, h.OldStart)
			assert.Zero(t, h.NewStart)
		}
	}
}
