package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryohei-iwamoto/mml-mvp/internal/drawing"
	"github.com/ryohei-iwamoto/mml-mvp/internal/resolver"
)

// DrawOptions holds flags for the draw command.
type DrawOptions struct {
	*RootOptions
	Output string
}

// DrawSummary is the JSON payload for a compiled drawing.
type DrawSummary struct {
	Part    string   `json:"part"`
	Layers  []string `json:"layers"`
	Views   []string `json:"views"`
	DXFPath string   `json:"dxf_path"`
	SVGPath string   `json:"svg_path"`
}

// NewDrawCommand creates the draw command.
func NewDrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DrawOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "draw <record.json>",
		Short: "Compile a record into a layered drawing",
		Long: `Compile a finalized record into a third-angle orthographic drawing.

The drawing places top, front, and right views on named layers and is
written twice: drawing.dxf (DXF R12) and drawing.svg.

Exit codes:
  0 - Drawing written
  1 - Record geometry cannot be drawn
  2 - Command error (missing or unreadable record)

Examples:
  mml draw out/record.json -o out
  mml draw out/record.json -o out --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraw(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out", "output directory")

	return cmd
}

func runDraw(opts *DrawOptions, input string, cmd *cobra.Command) error {
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

	doc, err := drawing.Compile(rec)
	if err != nil {
		_ = formatter.Error(string(resolver.ErrCodeInvalidGeometry), err.Error(), nil)
		return WrapExitError(ExitFailure, "drawing failed", err)
	}

	dxfPath, err := writeArtifact(opts.Output, "drawing.dxf", drawing.EncodeDXF(doc))
	if err != nil {
		return outputInputError(formatter, err)
	}
	svgPath, err := writeArtifact(opts.Output, "drawing.svg", drawing.EncodeSVG(doc))
	if err != nil {
		return outputInputError(formatter, err)
	}

	layers := populatedLayers(doc)
	views := make([]string, len(doc.Views))
	for i, v := range doc.Views {
		views[i] = v.Name
	}

	if formatter.Format == "json" {
		return formatter.Success(DrawSummary{
			Part:    doc.Part,
			Layers:  layers,
			Views:   views,
			DXFPath: dxfPath,
			SVGPath: svgPath,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ drew %s: %d view(s)\n", doc.Part, len(doc.Views))
	fmt.Fprintf(formatter.Writer, "  layers: %s\n", strings.Join(layers, ", "))
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", dxfPath)
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", svgPath)
	return nil
}

// populatedLayers returns the names of layers holding at least one entity,
// in document order.
func populatedLayers(doc *drawing.Document) []string {
	var names []string
	for _, l := range doc.Layers {
		if !l.Empty() {
			names = append(names, l.Name)
		}
	}
	return names
}
