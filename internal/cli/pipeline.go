package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ryohei-iwamoto/mml-mvp/internal/assembly"
	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/drawing"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ids"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
	"github.com/ryohei-iwamoto/mml-mvp/internal/resolver"
	"github.com/ryohei-iwamoto/mml-mvp/internal/solid"
	"github.com/ryohei-iwamoto/mml-mvp/internal/store"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// PipelineOptions holds flags for the pipeline command.
type PipelineOptions struct {
	*RootOptions
	Output string
	AI     bool
	Model  string
	Flags  ResolveFlags
}

// pipelineArtifact pairs a written file with its run-store kind.
type pipelineArtifact struct {
	Kind string
	Path string
}

// PipelineSummary is the JSON payload for a pipeline run.
type PipelineSummary struct {
	RunID       string   `json:"run_id,omitempty"`
	Part        string   `json:"part"`
	Archetype   string   `json:"archetype"`
	Fingerprint string   `json:"fingerprint"`
	Artifacts   []string `json:"artifacts"`
	Failures    []string `json:"failures,omitempty"`
	Stored      bool     `json:"stored"`
}

// NewPipelineCommand creates the pipeline command.
func NewPipelineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PipelineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pipeline <image|observation.json>",
		Short: "Run vision, resolve, draw, and mesh in one pass",
		Long: `Run the full chain on one input: observe, resolve to a millimeter
record, draw, and mesh. Stage artifacts land in the output directory.
When --db (or MML_DB) names a run store, the run is recorded there with
its record, report, and artifact paths.

Drawing and meshing are independent stages: if one fails the other still
writes its files, the failure is reported, and the run is stored either
way. The record and report are always written once resolution finalizes.

Exit codes:
  0 - Every stage succeeded
  1 - Questions outstanding, part rejected, or a stage failed
  2 - Command error (missing file, malformed input, store failure)

Examples:
  mml pipeline sketch.png --ai -o out --px-to-mm 0.5 --thickness-mm 3
  mml pipeline out/vision.json -o out --plate-width-mm 120 --db runs.db
  mml pipeline out/vision.json -o out --px-to-mm 0.5 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out", "output directory")
	cmd.Flags().BoolVar(&opts.AI, "ai", false, "treat the input as an image and extract it with Gemini")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Gemini model name (default "+vision.DefaultModel+")")
	addResolveFlags(cmd, &opts.Flags)

	return cmd
}

func runPipeline(opts *PipelineOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	obs, err := extractObservation(opts.RootOptions, opts.AI, opts.Model, input, cmd)
	if err != nil {
		return err
	}
	params, err := opts.Flags.Params(cmd)
	if err != nil {
		return outputInputError(formatter, err)
	}

	outcome, err := resolveObservation(&opts.Flags, params, obs)
	if err != nil {
		return outputResolveError(formatter, err)
	}
	if outcome.State != resolver.StateFinalized {
		return outputQuestions(formatter, outcome)
	}
	rec, rep := outcome.Record, outcome.Report
	slog.Debug("record finalized", "part", rec.Part, "archetype", rec.Identity.Archetype, "fingerprint", rec.Fingerprint)

	recData, err := ir.MarshalCanonical(rec)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("encoding record: %v", err), nil)
		return WrapExitError(ExitCommandError, "encoding record", err)
	}
	recPath, err := writeArtifact(opts.Output, "record.json", recData)
	if err != nil {
		return outputInputError(formatter, err)
	}
	repData, err := ir.MarshalCanonical(rep)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("encoding report: %v", err), nil)
		return WrapExitError(ExitCommandError, "encoding report", err)
	}
	repPath, err := writeArtifact(opts.Output, "report.json", repData)
	if err != nil {
		return outputInputError(formatter, err)
	}

	artifacts := []pipelineArtifact{
		{store.ArtifactRecord, recPath},
		{store.ArtifactReport, repPath},
	}
	var failures []string

	// Drawing and meshing fail independently; whatever succeeds is kept.
	if doc, derr := drawing.Compile(rec); derr != nil {
		failures = append(failures, fmt.Sprintf("draw: %v", derr))
	} else {
		dxfPath, werr := writeArtifact(opts.Output, "drawing.dxf", drawing.EncodeDXF(doc))
		if werr != nil {
			return outputInputError(formatter, werr)
		}
		svgPath, werr := writeArtifact(opts.Output, "drawing.svg", drawing.EncodeSVG(doc))
		if werr != nil {
			return outputInputError(formatter, werr)
		}
		artifacts = append(artifacts, pipelineArtifact{store.ArtifactDXF, dxfPath}, pipelineArtifact{store.ArtifactSVG, svgPath})
		slog.Debug("drawing written", "dxf", dxfPath, "svg", svgPath)
	}

	cat, err := catalog.Load()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("loading catalog: %v", err), nil)
		return WrapExitError(ExitCommandError, "loading catalog", err)
	}
	stls, merr := writeMeshArtifacts(opts.Output, cat, rec)
	if merr != nil {
		var ierr *InputError
		if errors.As(merr, &ierr) {
			return outputInputError(formatter, merr)
		}
		failures = append(failures, fmt.Sprintf("mesh: %v", merr))
	} else {
		for _, p := range stls {
			artifacts = append(artifacts, pipelineArtifact{store.ArtifactSTL, p})
		}
		slog.Debug("meshes written", "count", len(stls))
	}

	runID := ""
	stored := false
	if opts.Database != "" {
		id, serr := storeRun(ctx, opts, input, rec, rep, artifacts)
		if serr != nil {
			var ierr *InputError
			if errors.As(serr, &ierr) {
				return outputInputError(formatter, serr)
			}
			_ = formatter.Error(ErrCodeStore, serr.Error(), nil)
			return WrapExitError(ExitCommandError, "storing run", serr)
		}
		runID = id
		stored = true
		slog.Debug("run stored", "run_id", runID, "db", opts.Database)
	}

	return outputPipeline(formatter, rec, runID, stored, artifacts, failures)
}

// writeMeshArtifacts synthesizes the record's solid, or its assembly when
// subcomponents are present, and writes every STL under outDir.
func writeMeshArtifacts(outDir string, cat *catalog.Catalog, rec *ir.Record) ([]string, error) {
	if _, ok := rec.Intent["subcomponents"]; ok {
		asm, err := assembly.Build(cat, rec)
		if err != nil {
			return nil, err
		}
		var paths []string
		for i, comp := range asm.Components {
			name := fmt.Sprintf("%02d_%s.stl", i+1, comp.Name)
			p, err := writeArtifact(outDir, name, mesh.EncodeSTL(comp.Name, comp.Mesh))
			if err != nil {
				return nil, err
			}
			paths = append(paths, p)
		}
		p, err := writeArtifact(outDir, "assembly.stl", mesh.EncodeSTL(rec.Part, asm.Mesh))
		if err != nil {
			return nil, err
		}
		return append(paths, p), nil
	}

	m, err := solid.Synthesize(cat, rec)
	if err != nil {
		return nil, err
	}
	p, err := writeArtifact(outDir, "model.stl", mesh.EncodeSTL(rec.Part, m))
	if err != nil {
		return nil, err
	}
	return []string{p}, nil
}

// storeRun records the run and its artifact paths in the SQLite store.
func storeRun(ctx context.Context, opts *PipelineOptions, source string, rec *ir.Record, rep *ir.Report, artifacts []pipelineArtifact) (string, error) {
	st, err := openStore(opts.RootOptions)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("closing run store", "error", closeErr)
		}
	}()

	run, err := st.WriteRun(ctx, store.Run{ID: ids.UUIDv7Generator{}.Generate(), Source: source}, rec, rep)
	if err != nil {
		return "", err
	}
	for _, a := range artifacts {
		if err := st.WriteArtifact(ctx, run.ID, a.Kind, a.Path); err != nil {
			return "", err
		}
	}
	return run.ID, nil
}

// outputPipeline reports what the chain produced. Stage failures exit 1
// with the surviving artifacts already on disk.
func outputPipeline(formatter *OutputFormatter, rec *ir.Record, runID string, stored bool, artifacts []pipelineArtifact, failures []string) error {
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.Path
	}
	summary := PipelineSummary{
		RunID:       runID,
		Part:        rec.Part,
		Archetype:   string(rec.Identity.Archetype),
		Fingerprint: rec.Fingerprint,
		Artifacts:   paths,
		Failures:    failures,
		Stored:      stored,
	}

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: summary, RunID: runID}
		if len(failures) > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_STAGE_FAILED",
				Message: fmt.Sprintf("%d stage(s) failed", len(failures)),
				Details: failures,
			}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		if len(failures) > 0 {
			return NewExitError(ExitFailure, "pipeline finished with failures")
		}
		return nil
	}

	if len(failures) > 0 {
		fmt.Fprintf(formatter.Writer, "✗ pipeline for %s (%s) finished with failures\n", rec.Part, rec.Identity.Archetype)
		for _, f := range failures {
			fmt.Fprintf(formatter.Writer, "  ! %s\n", f)
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✓ pipeline for %s (%s) complete\n", rec.Part, rec.Identity.Archetype)
	}
	fmt.Fprintf(formatter.Writer, "  fingerprint: %s\n", rec.Fingerprint)
	for _, p := range paths {
		fmt.Fprintf(formatter.Writer, "Wrote %s\n", p)
	}
	if stored {
		fmt.Fprintf(formatter.Writer, "Run stored: %s\n", runID)
	}
	if len(failures) > 0 {
		return NewExitError(ExitFailure, "pipeline finished with failures")
	}
	return nil
}
