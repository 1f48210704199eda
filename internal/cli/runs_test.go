package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryohei-iwamoto/mml-mvp/internal/store"
)

// seedRunStore writes two plate runs an hour apart and returns the store
// path. The later run (run-b) lists first.
func seedRunStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	rec, rep := finalizePlateRecord(t)
	ctx := context.Background()

	_, err = st.WriteRun(ctx, store.Run{
		ID:        "aaaaaaaa11112222333344445555bbbb",
		CreatedAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		Source:    "sketch_a.json",
	}, rec, rep)
	require.NoError(t, err)

	_, err = st.WriteRun(ctx, store.Run{
		ID:        "cccccccc66667777888899990000dddd",
		CreatedAt: time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
		Source:    "sketch_b.json",
	}, rec, rep)
	require.NoError(t, err)

	return dbPath
}

func TestRunsCommand_NoStore(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunsCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E006]:")
}

func TestRunsCommand_EmptyStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewRunsCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "No runs stored.")
}

func TestRunsCommand_ListsNewestFirst(t *testing.T) {
	dbPath := seedRunStore(t)

	rootOpts := &RootOptions{Format: "text", Verbose: true, Database: dbPath}
	cmd := NewRunsCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "2 run(s)")
	assert.Contains(t, out, "cover_plate")
	assert.Contains(t, out, "plate")
	assert.Contains(t, out, "cccccccc...0000dddd")
	assert.Contains(t, out, "  source: sketch_b.json")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("cccccccc")), bytes.Index(buf.Bytes(), []byte("aaaaaaaa")))
}

func TestRunsCommand_Filters(t *testing.T) {
	dbPath := seedRunStore(t)

	t.Run("archetype excludes everything else", func(t *testing.T) {
		rootOpts := &RootOptions{Format: "text", Database: dbPath}
		cmd := NewRunsCommand(rootOpts)
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"--archetype", "bracket"})

		require.NoError(t, cmd.Execute())

		assert.Contains(t, buf.String(), "No runs stored.")
	})

	t.Run("source substring", func(t *testing.T) {
		rootOpts := &RootOptions{Format: "text", Database: dbPath}
		cmd := NewRunsCommand(rootOpts)
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"--source", "sketch_a"})

		require.NoError(t, cmd.Execute())

		assert.Contains(t, buf.String(), "1 run(s)")
		assert.Contains(t, buf.String(), "aaaaaaaa...5555bbbb")
	})

	t.Run("limit keeps the newest", func(t *testing.T) {
		rootOpts := &RootOptions{Format: "text", Database: dbPath}
		cmd := NewRunsCommand(rootOpts)
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"--limit", "1"})

		require.NoError(t, cmd.Execute())

		assert.Contains(t, buf.String(), "1 run(s)")
		assert.Contains(t, buf.String(), "cccccccc...0000dddd")
		assert.NotContains(t, buf.String(), "aaaaaaaa")
	})
}

func TestRunsCommand_JSON(t *testing.T) {
	dbPath := seedRunStore(t)

	rootOpts := &RootOptions{Format: "json", Database: dbPath}
	cmd := NewRunsCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	runs, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, runs, 2)

	first, ok := runs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cccccccc66667777888899990000dddd", first["id"])
	assert.Equal(t, "cover_plate", first["part"])
	assert.Equal(t, "sketch_b.json", first["source"])
}

func TestTruncateID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"short", "abc12345", "abc12345"},
		{"boundary", "0123456789abcdef", "0123456789abcdef"},
		{"long", "aaaaaaaa11112222333344445555bbbb", "aaaaaaaa...5555bbbb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateID(tt.id))
		})
	}
}
