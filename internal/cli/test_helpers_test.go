package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/resolver"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// plateObservationJSON traces a 400x200 px rectangle. At 0.5 mm/px it
// resolves into a 200x100 mm plate.
const plateObservationJSON = `{"outline": {"points_px": [[0, 0], [400, 0], [400, 200], [0, 200]]}}`

// bowtieObservationJSON self-intersects and fails geometry validation.
const bowtieObservationJSON = `{"outline": {"points_px": [[0, 0], [400, 200], [400, 0], [0, 200]]}}`

// writeObservationFile writes an observation fixture and returns its path.
func writeObservationFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "observation.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

// finalizePlateRecord resolves the plate observation with pre-answered scale
// and thickness and returns the finalized record and report.
func finalizePlateRecord(t *testing.T) (*ir.Record, *ir.Report) {
	t.Helper()
	obs, err := vision.Decode([]byte(plateObservationJSON))
	require.NoError(t, err)
	sess, err := resolver.NewSession(resolver.Options{
		Part:      "cover_plate",
		Archetype: "plate",
		Params:    map[string]any{"px_to_mm": 0.5, "thickness_mm": 3.0},
	})
	require.NoError(t, err)
	require.NoError(t, sess.Observe(obs))
	outcome, err := sess.Resolve()
	require.NoError(t, err)
	require.Equal(t, resolver.StateFinalized, outcome.State)
	return outcome.Record, outcome.Report
}

// writeRecordFile marshals a finalized record into dir and returns its path.
func writeRecordFile(t *testing.T, dir string, rec *ir.Record) string {
	t.Helper()
	data, err := ir.MarshalCanonical(rec)
	require.NoError(t, err)
	path := filepath.Join(dir, "record.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// writeAssemblyRecordFile writes a link record whose intent names the given
// subcomponents (base and gear when none are given). It carries no
// fingerprint, so the loader accepts it without verification.
func writeAssemblyRecordFile(t *testing.T, dir string, subs ...any) string {
	t.Helper()
	if len(subs) == 0 {
		subs = []any{"base", "gear"}
	}
	rec := &ir.Record{
		FormatVersion: ir.FormatVersion,
		Part:          "gearbox",
		Identity:      ir.Identity{Archetype: ir.ArchetypeLink, Units: "mm"},
		Intent:        ir.Intent{"subcomponents": subs},
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	path := filepath.Join(dir, "assembly_record.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}
