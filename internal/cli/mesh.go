package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
	"github.com/ryohei-iwamoto/mml-mvp/internal/solid"
)

// MeshOptions holds flags for the mesh command.
type MeshOptions struct {
	*RootOptions
	Output string
}

// MeshSummary is the JSON payload for a synthesized solid.
type MeshSummary struct {
	Part      string   `json:"part"`
	Archetype string   `json:"archetype"`
	Triangles int      `json:"triangles"`
	Warnings  []string `json:"warnings,omitempty"`
	Path      string   `json:"path"`
}

// NewMeshCommand creates the mesh command.
func NewMeshCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MeshOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mesh <record.json>",
		Short: "Synthesize a printable solid",
		Long: `Synthesize a record into a closed triangle mesh and write binary STL.

Plate and bracket records extrude their resolved outline with the hole
pattern (folding across a declared bend); other archetypes dispatch to
their parametric generator. Records with a subcomponents intent field are
composed as an assembly: one STL per component plus assembly.stl, the same
output the assemble command produces. Catalog bounds warnings for
intent-supplied dimensions are reported alongside the mesh.

Exit codes:
  0 - Mesh written
  1 - Synthesis failed or the mesh is not manifold
  2 - Command error (missing or unreadable record)

Examples:
  mml mesh out/record.json -o out
  mml mesh out/record.json -o out --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMesh(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out", "output directory")

	return cmd
}

func runMesh(opts *MeshOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	rec, err := ReadRecord(input)
	if err != nil {
		return outputInputError(formatter, err)
	}
	cat, err := catalog.Load()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading catalog", err)
	}

	if _, ok := rec.Intent["subcomponents"]; ok {
		return writeAssembly(formatter, opts.Output, cat, rec)
	}

	m, err := solid.Synthesize(cat, rec)
	if err != nil {
		var merr *solid.NotManifoldError
		if errors.As(err, &merr) {
			_ = formatter.Error("MESH_NOT_MANIFOLD", merr.Detail, map[string]any{"part": merr.Part})
			return WrapExitError(ExitFailure, "mesh failed", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "mesh failed", err)
	}

	// Bounds warnings cover only intent-supplied dimensions; defaults are in
	// range by construction.
	var warnings []string
	if dims, w, derr := solid.Dims(cat, string(rec.Identity.Archetype), rec.Intent); derr == nil {
		warnings = w
		formatter.VerboseLog("Resolved %d generator dimension(s)", len(dims))
	}

	path, err := writeArtifact(opts.Output, "model.stl", mesh.EncodeSTL(rec.Part, m))
	if err != nil {
		return outputInputError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(MeshSummary{
			Part:      rec.Part,
			Archetype: string(rec.Identity.Archetype),
			Triangles: len(m.Triangles),
			Warnings:  warnings,
			Path:      path,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ meshed %s (%s): %d triangle(s), manifold\n",
		rec.Part, rec.Identity.Archetype, len(m.Triangles))
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", w)
	}
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", path)
	return nil
}
