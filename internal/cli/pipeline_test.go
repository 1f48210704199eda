package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryohei-iwamoto/mml-mvp/internal/store"
)

func TestPipelineCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)
	outDir := filepath.Join(dir, "out")

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPipelineCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		obsPath, "-o", outDir,
		"--part", "cover_plate", "--archetype", "plate",
		"--px-to-mm", "0.5", "--thickness-mm", "3",
	})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "✓ pipeline for cover_plate (plate) complete")
	assert.Contains(t, buf.String(), "fingerprint: ")
	assert.NotContains(t, buf.String(), "Run stored")

	for _, name := range []string{"record.json", "report.json", "drawing.dxf", "drawing.svg", "model.stl"} {
		assert.FileExists(t, filepath.Join(outDir, name), name)
	}
}

func TestPipelineCommand_StoresRun(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)
	dbPath := filepath.Join(dir, "runs.db")

	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewPipelineCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		obsPath, "-o", filepath.Join(dir, "out"),
		"--part", "cover_plate", "--archetype", "plate",
		"--px-to-mm", "0.5", "--thickness-mm", "3",
	})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Run stored: ")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "cover_plate", runs[0].Part)
	assert.Equal(t, "plate", runs[0].Archetype)
	assert.Equal(t, obsPath, runs[0].Source)
	assert.NotEmpty(t, runs[0].Fingerprint)

	artifacts, err := st.ReadArtifacts(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, artifacts, 5)
}

func TestPipelineCommand_QuestionsBlock(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)
	outDir := filepath.Join(dir, "out")

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPipelineCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{obsPath, "-o", outDir})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "question(s) outstanding")
	assert.NoFileExists(t, filepath.Join(outDir, "record.json"))
}

func TestPipelineCommand_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)
	outDir := filepath.Join(dir, "out")

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPipelineCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		obsPath, "-o", outDir,
		"--part", "cover_plate", "--archetype", "plate",
		"--px-to-mm", "0.5", "--thickness-mm", "3",
		"--intent", "--answer", "subcomponents=base, gimbal doohickey",
	})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ pipeline for cover_plate (plate) finished with failures")
	assert.Contains(t, buf.String(), "! mesh: UNRESOLVED_SUBCOMPONENT")

	// Record, report, and drawing survive the mesh stage failure.
	for _, name := range []string{"record.json", "report.json", "drawing.dxf", "drawing.svg"} {
		assert.FileExists(t, filepath.Join(outDir, name), name)
	}
	assert.NoFileExists(t, filepath.Join(outDir, "model.stl"))
	assert.NoFileExists(t, filepath.Join(outDir, "assembly.stl"))
}

func TestPipelineCommand_PartialFailureJSON(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)

	rootOpts := &RootOptions{Format: "json"}
	cmd := NewPipelineCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		obsPath, "-o", filepath.Join(dir, "out"),
		"--part", "cover_plate", "--archetype", "plate",
		"--px-to-mm", "0.5", "--thickness-mm", "3",
		"--intent", "--answer", "subcomponents=base, gimbal doohickey",
	})

	err := cmd.Execute()

	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_STAGE_FAILED", resp.Error.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cover_plate", data["part"])
	artifacts, ok := data["artifacts"].([]any)
	require.True(t, ok)
	assert.Len(t, artifacts, 4)
}

func TestPipelineCommand_JSONSuccess(t *testing.T) {
	dir := t.TempDir()
	obsPath := writeObservationFile(t, dir, plateObservationJSON)

	rootOpts := &RootOptions{Format: "json"}
	cmd := NewPipelineCommand(rootOpts)
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
	artifacts, ok := data["artifacts"].([]any)
	require.True(t, ok)
	assert.Len(t, artifacts, 5)
	assert.Equal(t, false, data["stored"])
}
