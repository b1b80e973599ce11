package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() { Out = prev })
	return &buf
}

func TestTableAlignsColumns(t *testing.T) {
	buf := capture(t)
	require.NoError(t, Table([]string{"ARTICLE", "SIZES"}, [][]string{
		{"A1", "42 43"},
		{"LONG-ARTICLE", "40"},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	col := strings.Index(lines[0], "SIZES")
	assert.Equal(t, col, strings.Index(lines[1], "42 43"))
	assert.Equal(t, col, strings.Index(lines[2], "40"))
}

func TestMessagesEndWithNewline(t *testing.T) {
	buf := capture(t)
	Success("applied %d", 2)
	Warning("careful")
	assert.Contains(t, buf.String(), "applied 2\n")
	assert.Contains(t, buf.String(), "careful\n")
}
