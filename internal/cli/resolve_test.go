package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCommand_Finalizes(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)
	outDir := filepath.Join(dir, "out")

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewResolveCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		obsPath, "-o", outDir,
		"--part", "cover_plate", "--archetype", "plate",
		"--px-to-mm", "0.5", "--thickness-mm", "3",
	})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "✓ finalized cover_plate (plate)")
	assert.Contains(t, buf.String(), "fingerprint: ")
	assert.Contains(t, buf.String(), "record.json")
	assert.Contains(t, buf.String(), "report.json")

	rec, err := ReadRecord(filepath.Join(outDir, "record.json"))
	require.NoError(t, err)
	assert.Equal(t, "cover_plate", rec.Part)
	assert.Equal(t, 0.5, rec.Scale.PxToMM)
	assert.FileExists(t, filepath.Join(outDir, "report.json"))
}

func TestResolveCommand_JSONSummary(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)

	rootOpts := &RootOptions{Format: "json"}
	cmd := NewResolveCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		obsPath, "-o", filepath.Join(dir, "out"),
		"--part", "cover_plate", "--archetype", "plate",
		"--px-to-mm", "0.5", "--thickness-mm", "3",
	})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "finalized", data["state"])
	assert.Equal(t, "cover_plate", data["part"])
	assert.Equal(t, "plate", data["archetype"])
	assert.NotEmpty(t, data["fingerprint"])
	assert.NotEmpty(t, data["record_path"])
}

func TestResolveCommand_QuestionsOutstanding(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewResolveCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{obsPath, "-o", filepath.Join(dir, "out")})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "question(s) outstanding")
	assert.Contains(t, buf.String(), "? px_to_mm")
	assert.Contains(t, buf.String(), "Answer with the matching flags or --answer id=value.")
	assert.NoFileExists(t, filepath.Join(dir, "out", "record.json"))
}

func TestResolveCommand_QuestionsJSON(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)

	rootOpts := &RootOptions{Format: "json"}
	cmd := NewResolveCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{obsPath, "-o", filepath.Join(dir, "out")})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SCALE_UNDEFINED", resp.Error.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "awaiting_scale", data["state"])
	questions, ok := data["questions"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, questions)
}

func TestResolveCommand_RejectsSelfIntersection(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, bowtieObservationJSON)

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewResolveCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		obsPath, "-o", filepath.Join(dir, "out"),
		"--px-to-mm", "0.5", "--thickness-mm", "3",
	})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ rejected [INVALID_GEOMETRY]")
}

func TestResolveCommand_AnswerFlags(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewResolveCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		obsPath, "-o", filepath.Join(dir, "out"),
		"--answer", "px_to_mm=0.5", "--answer", "thickness_mm=3",
	})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "✓ finalized")
	assert.Contains(t, buf.String(), "(plate)")
}

func TestResolveCommand_BadAnswer(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewResolveCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{obsPath, "-o", filepath.Join(dir, "out"), "--answer", "nonsense"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "invalid --answer")
}

func TestResolveFlags_Params(t *testing.T) {
	t.Run("only changed flags become answers", func(t *testing.T) {
		cmd := &cobra.Command{Use: "x"}
		f := &ResolveFlags{}
		addResolveFlags(cmd, f)
		require.NoError(t, cmd.ParseFlags([]string{"--px-to-mm", "0.5", "--unify-holes"}))

		params, err := f.Params(cmd)

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"px_to_mm": 0.5, "unify_holes": true}, params)
	})

	t.Run("untouched flags stay unanswered", func(t *testing.T) {
		cmd := &cobra.Command{Use: "x"}
		f := &ResolveFlags{}
		addResolveFlags(cmd, f)
		require.NoError(t, cmd.ParseFlags(nil))

		params, err := f.Params(cmd)

		require.NoError(t, err)
		assert.Empty(t, params)
	})

	t.Run("answer values stay strings", func(t *testing.T) {
		cmd := &cobra.Command{Use: "x"}
		f := &ResolveFlags{}
		addResolveFlags(cmd, f)
		require.NoError(t, cmd.ParseFlags([]string{"--answer", "hole_standard=M5"}))

		params, err := f.Params(cmd)

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"hole_standard": "M5"}, params)
	})

	t.Run("malformed answer rejected", func(t *testing.T) {
		cmd := &cobra.Command{Use: "x"}
		f := &ResolveFlags{}
		addResolveFlags(cmd, f)
		require.NoError(t, cmd.ParseFlags([]string{"--answer", "=5"}))

		_, err := f.Params(cmd)

		var ierr *InputError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, ErrCodeBadInput, ierr.Code)
	})
}
