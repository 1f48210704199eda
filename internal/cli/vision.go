package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// VisionOptions holds flags for the vision command.
type VisionOptions struct {
	*RootOptions
	Output string
	AI     bool
	Model  string
}

// VisionSummary is the JSON payload for a written observation.
type VisionSummary struct {
	PartHint      string `json:"part_hint,omitempty"`
	OutlinePoints int    `json:"outline_points"`
	Holes         int    `json:"holes"`
	BendLines     int    `json:"bend_lines"`
	Path          string `json:"path"`
}

// NewVisionCommand creates the vision command.
func NewVisionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VisionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vision <image|observation.json>",
		Short: "Extract a pixel-space observation",
		Long: `Extract a pixel-space observation and write it as vision.json.

Without --ai the input is perception JSON from any producer; it is decoded
through the tolerant reader (key aliases accepted, malformed candidates
dropped) and re-emitted normalized. With --ai the input is a sketch image
sent to the Gemini API, which requires GEMINI_API_KEY.

Exit codes:
  0 - Observation written
  1 - Extraction failed
  2 - Command error (missing file, missing API key)

Examples:
  mml vision sketch.json -o out
  mml vision sketch.png --ai -o out
  mml vision sketch.png --ai --model gemini-2.0-flash --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVision(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out", "output directory")
	cmd.Flags().BoolVar(&opts.AI, "ai", false, "extract from an image via the Gemini API")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Gemini model name (default "+vision.DefaultModel+")")

	return cmd
}

func runVision(opts *VisionOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	obs, err := extractObservation(opts.RootOptions, opts.AI, opts.Model, input, cmd)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(obs, "", "  ")
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("encoding observation: %v", err), nil)
		return WrapExitError(ExitCommandError, "encoding observation", err)
	}
	path, err := writeArtifact(opts.Output, "vision.json", data)
	if err != nil {
		return outputInputError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(VisionSummary{
			PartHint:      obs.PartHint,
			OutlinePoints: len(obs.Outline.PointsPx),
			Holes:         len(obs.Holes),
			BendLines:     len(obs.BendLines),
			Path:          path,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ observed %d outline point(s), %d hole(s), %d bend line(s)\n",
		len(obs.Outline.PointsPx), len(obs.Holes), len(obs.BendLines))
	if obs.PartHint != "" {
		fmt.Fprintf(formatter.Writer, "  part hint: %s\n", obs.PartHint)
	}
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", path)
	return nil
}

// extractObservation runs the AI extractor or the tolerant JSON decoder,
// depending on --ai. Shared by the vision and pipeline commands.
func extractObservation(rootOpts *RootOptions, ai bool, model, input string, cmd *cobra.Command) (vision.Observation, error) {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if !ai {
		obs, err := ReadObservation(input)
		if err != nil {
			return vision.Observation{}, outputInputError(formatter, err)
		}
		return obs, nil
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		_ = formatter.Error(ErrCodeNoAPIKey, "GEMINI_API_KEY is not set", nil)
		return vision.Observation{}, NewExitError(ExitCommandError, "GEMINI_API_KEY is not set")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	extractor, err := vision.NewGeminiExtractor(ctx, apiKey, model)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return vision.Observation{}, WrapExitError(ExitCommandError, "creating gemini client", err)
	}

	formatter.VerboseLog("Extracting %s via %s", input, modelOrDefault(model))
	obs, err := extractor.Extract(ctx, input)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return vision.Observation{}, WrapExitError(ExitFailure, "extraction failed", err)
	}
	return obs, nil
}

func modelOrDefault(model string) string {
	if model == "" {
		return vision.DefaultModel
	}
	return model
}
