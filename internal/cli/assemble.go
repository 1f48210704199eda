package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryohei-iwamoto/mml-mvp/internal/assembly"
	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
	"github.com/ryohei-iwamoto/mml-mvp/internal/solid"
)

// AssembleOptions holds flags for the assemble command.
type AssembleOptions struct {
	*RootOptions
	Output string
}

// ComponentInfo describes one placed part of a composed assembly.
type ComponentInfo struct {
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
	Chain     bool   `json:"chain"`
	Triangles int    `json:"triangles"`
	Path      string `json:"path"`
}

// AssemblySummary is the JSON payload for a composed assembly.
type AssemblySummary struct {
	Part       string          `json:"part"`
	Triangles  int             `json:"triangles"`
	Components []ComponentInfo `json:"components"`
	Path       string          `json:"path"`
}

// NewAssembleCommand creates the assemble command.
func NewAssembleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssembleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assemble <record.json>",
		Short: "Compose a multi-component record into one plate",
		Long: `Compose the subcomponents of a record into a single print plate.

The record's subcomponents intent field names the parts. Each one is
synthesized through the parametric generators and placed on the plate;
the command writes one STL per component plus the combined assembly.stl.

Exit codes:
  0 - Assembly written
  1 - A subcomponent could not be resolved or meshed
  2 - Command error (missing record, record lists no subcomponents)

Examples:
  mml assemble out/record.json -o out
  mml assemble out/record.json -o out --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out", "output directory")

	return cmd
}

func runAssemble(opts *AssembleOptions, input string, cmd *cobra.Command) error {
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

	return writeAssembly(formatter, opts.Output, cat, rec)
}

// writeAssembly builds and writes the composed assembly for one record:
// numbered per-component STLs plus the combined assembly.stl. Shared by the
// assemble and mesh commands.
func writeAssembly(formatter *OutputFormatter, outDir string, cat *catalog.Catalog, rec *ir.Record) error {
	asm, err := assembly.Build(cat, rec)
	if err != nil {
		return outputAssemblyError(formatter, err)
	}

	infos := make([]ComponentInfo, 0, len(asm.Components))
	for i, comp := range asm.Components {
		name := fmt.Sprintf("%02d_%s.stl", i+1, comp.Name)
		path, err := writeArtifact(outDir, name, mesh.EncodeSTL(comp.Name, comp.Mesh))
		if err != nil {
			return outputInputError(formatter, err)
		}
		infos = append(infos, ComponentInfo{
			Name:      comp.Name,
			Source:    comp.Source,
			Chain:     comp.Chain,
			Triangles: len(comp.Mesh.Triangles),
			Path:      path,
		})
	}
	asmPath, err := writeArtifact(outDir, "assembly.stl", mesh.EncodeSTL(rec.Part, asm.Mesh))
	if err != nil {
		return outputInputError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(AssemblySummary{
			Part:       rec.Part,
			Triangles:  len(asm.Mesh.Triangles),
			Components: infos,
			Path:       asmPath,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ assembled %s: %d component(s), %d triangle(s)\n",
		rec.Part, len(infos), len(asm.Mesh.Triangles))
	for _, info := range infos {
		marker := " "
		if info.Chain {
			marker = "*"
		}
		fmt.Fprintf(formatter.Writer, "  %s %-16s %6d triangle(s)  %s\n", marker, info.Name, info.Triangles, info.Path)
	}
	fmt.Fprintln(formatter.Writer, "  (* = kinematic chain member)")
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", asmPath)
	return nil
}

// outputAssemblyError maps composition failures to exit codes: unresolved
// subcomponents and manifold defects are operation failures (exit 1), a
// record without subcomponents is a command error (exit 2).
func outputAssemblyError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, assembly.ErrNoSubcomponents) {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "nothing to assemble", err)
	}

	var uerr *assembly.UnresolvedSubcomponentError
	if errors.As(err, &uerr) {
		_ = formatter.Error("UNRESOLVED_SUBCOMPONENT", uerr.Reason, map[string]any{
			"subcomponent": uerr.Subcomponent,
			"index":        uerr.Index,
		})
		return WrapExitError(ExitFailure, "assembly failed", err)
	}

	var merr *solid.NotManifoldError
	if errors.As(err, &merr) {
		_ = formatter.Error("MESH_NOT_MANIFOLD", merr.Detail, map[string]any{"part": merr.Part})
		return WrapExitError(ExitFailure, "assembly failed", err)
	}

	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitFailure, "assembly failed", err)
}
