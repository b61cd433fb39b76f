package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStyles_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	st := newStyles(&buf)

	assert.Equal(t, "READY", st.Success.Render("READY"))
	assert.Equal(t, "title", st.Title.Render("title"))
}

func TestNewTable(t *testing.T) {
	tbl := newTable("Plugin", "Gate")
	tbl.AppendRow([]any{"qobuzarr", "schema"})

	out := tbl.Render()

	assert.Contains(t, out, "PLUGIN")
	assert.Contains(t, out, "qobuzarr")
	assert.Contains(t, out, "┌")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer

	err := writeJSON(&buf, map[string]int{"passed": 2})

	require.NoError(t, err)
	assert.Equal(t, "{\n  \"passed\": 2\n}\n", buf.String())
}

func TestWriteJSON_Unsupported(t *testing.T) {
	var buf bytes.Buffer

	err := writeJSON(&buf, make(chan int))

	assert.Error(t, err)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "quiet", "config-dir"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}
