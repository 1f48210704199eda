package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleCommand_ComposesComponents(t *testing.T) {
	dir := t.TempDir()
	recPath := writeAssemblyRecordFile(t, dir)
	outDir := filepath.Join(dir, "out")

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAssembleCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{recPath, "-o", outDir})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "✓ assembled gearbox: 2 component(s)")
	assert.Contains(t, buf.String(), "(* = kinematic chain member)")
	assert.FileExists(t, filepath.Join(outDir, "01_base.stl"))
	assert.FileExists(t, filepath.Join(outDir, "02_gear.stl"))
	assert.FileExists(t, filepath.Join(outDir, "assembly.stl"))
}

func TestAssembleCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	recPath := writeAssemblyRecordFile(t, dir)

	rootOpts := &RootOptions{Format: "json"}
	cmd := NewAssembleCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{recPath, "-o", filepath.Join(dir, "out")})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gearbox", data["part"])

	components, ok := data["components"].([]any)
	require.True(t, ok)
	require.Len(t, components, 2)

	first, ok := components[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "base", first["name"])
	assert.Equal(t, true, first["chain"])
	triangles, ok := first["triangles"].(float64)
	require.True(t, ok)
	assert.Greater(t, triangles, 0.0)

	second, ok := components[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gear", second["name"])
	assert.Equal(t, false, second["chain"])
}

func TestAssembleCommand_NoSubcomponents(t *testing.T) {
	dir := t.TempDir()
	rec, _ := finalizePlateRecord(t)
	recPath := writeRecordFile(t, dir, rec)

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAssembleCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{recPath, "-o", filepath.Join(dir, "out")})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E003]:")
	assert.Contains(t, buf.String(), "lists no subcomponents")
}

func TestAssembleCommand_UnresolvedSubcomponent(t *testing.T) {
	dir := t.TempDir()
	recPath := writeAssemblyRecordFile(t, dir, "base", "gimbal doohickey")

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAssembleCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{recPath, "-o", filepath.Join(dir, "out")})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [UNRESOLVED_SUBCOMPONENT]:")
	assert.Contains(t, buf.String(), `cannot match "gimbal doohickey"`)
}

func TestAssembleCommand_MissingRecord(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAssembleCommand(rootOpts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.json"), "-o", t.TempDir()})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E002]:")
}
