package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/resolver"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// ResolveFlags collects the non-interactive answer flags shared by the
// resolve and pipeline commands. Each flag pre-answers one clarifying
// question; flags never touched stay unanswered.
type ResolveFlags struct {
	Part      string
	Material  string
	Process   string
	Archetype string
	Intent    bool

	PxToMM         float64
	PlateWidthMM   float64
	HoleStandard   string
	HoleDiameterMM float64
	ThicknessMM    float64
	BendAngleDeg   float64
	BendRadiusMM   float64
	UnifyHoles     bool
	Answers        []string
}

// addResolveFlags registers the answer flags on a command.
func addResolveFlags(cmd *cobra.Command, f *ResolveFlags) {
	cmd.Flags().StringVar(&f.Part, "part", "", "part name for the record")
	cmd.Flags().StringVar(&f.Material, "material", "", "material name (default A5052)")
	cmd.Flags().StringVar(&f.Process, "process", "", "process name (default sheet_metal)")
	cmd.Flags().StringVar(&f.Archetype, "archetype", "", "force the generator archetype instead of inferring it")
	cmd.Flags().BoolVar(&f.Intent, "intent", false, "include the design-intent interview")
	cmd.Flags().Float64Var(&f.PxToMM, "px-to-mm", 0, "millimeters per pixel")
	cmd.Flags().Float64Var(&f.PlateWidthMM, "plate-width-mm", 0, "outlined part width in millimeters (alternative scale reference)")
	cmd.Flags().StringVar(&f.HoleStandard, "hole-standard", "", "hole standard (M3/M4/M5/M6/M8)")
	cmd.Flags().Float64Var(&f.HoleDiameterMM, "hole-diameter-mm", 0, "hole diameter in millimeters")
	cmd.Flags().Float64Var(&f.ThicknessMM, "thickness-mm", 0, "plate thickness in millimeters")
	cmd.Flags().Float64Var(&f.BendAngleDeg, "bend-angle-deg", 0, "bend angle in degrees")
	cmd.Flags().Float64Var(&f.BendRadiusMM, "bend-radius-mm", 0, "bend inner radius in millimeters")
	cmd.Flags().BoolVar(&f.UnifyHoles, "unify-holes", false, "unify detected hole sizes")
	cmd.Flags().StringArrayVar(&f.Answers, "answer", nil, "extra answer as id=value (repeatable)")
}

// Params converts the flags the user actually set into pre-answered
// questions keyed by question ID. --answer values stay strings; the
// resolver coerces them by question type.
func (f *ResolveFlags) Params(cmd *cobra.Command) (map[string]any, error) {
	params := map[string]any{}
	set := func(flag, questionID string, value any) {
		if cmd.Flags().Changed(flag) {
			params[questionID] = value
		}
	}
	set("px-to-mm", resolver.QuestionScale, f.PxToMM)
	set("plate-width-mm", resolver.QuestionPlateWidth, f.PlateWidthMM)
	set("hole-standard", resolver.QuestionHoleStandard, f.HoleStandard)
	set("hole-diameter-mm", resolver.QuestionHoleDiameter, f.HoleDiameterMM)
	set("thickness-mm", resolver.QuestionThickness, f.ThicknessMM)
	set("bend-angle-deg", resolver.QuestionBendAngle, f.BendAngleDeg)
	set("bend-radius-mm", resolver.QuestionBendRadius, f.BendRadiusMM)
	set("unify-holes", resolver.QuestionUnifyHoles, f.UnifyHoles)

	for _, raw := range f.Answers {
		id, value, ok := strings.Cut(raw, "=")
		if !ok || id == "" {
			return nil, &InputError{Code: ErrCodeBadInput, Message: fmt.Sprintf("invalid --answer %q: want id=value", raw)}
		}
		params[id] = value
	}
	return params, nil
}

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Output string
	Flags  ResolveFlags
}

// ResolveSummary is the JSON payload for a finalized resolution.
type ResolveSummary struct {
	State       string `json:"state"`
	Part        string `json:"part"`
	Archetype   string `json:"archetype"`
	Fingerprint string `json:"fingerprint"`
	Decisions   int    `json:"decisions"`
	RecordPath  string `json:"record_path"`
	ReportPath  string `json:"report_path"`
}

// QuestionList is the JSON payload when resolution still needs answers.
type QuestionList struct {
	State     string        `json:"state"`
	Questions []ir.Question `json:"questions"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <vision.json>",
		Short: "Resolve an observation into a millimeter record",
		Long: `Resolve a pixel-space observation into a validated millimeter record.

The resolver asks clarifying questions (scale, hole standard, thickness,
bend parameters); each one is pre-answered by the matching flag or by
--answer id=value. Once no mandatory question is open, the record is
normalized, validated, fingerprinted, and written as canonical JSON
together with the dialogue report.

Exit codes:
  0 - Record finalized and written
  1 - Questions outstanding, or the part was rejected
  2 - Command error (missing file, malformed observation)

Examples:
  mml resolve out/vision.json -o out --px-to-mm 0.5 --thickness-mm 3
  mml resolve out/vision.json -o out --plate-width-mm 120 --hole-standard M5
  mml resolve out/vision.json -o out --answer thickness_mm=3 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out", "output directory")
	addResolveFlags(cmd, &opts.Flags)

	return cmd
}

func runResolve(opts *ResolveOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	obs, err := ReadObservation(input)
	if err != nil {
		return outputInputError(formatter, err)
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

	recData, err := ir.MarshalCanonical(outcome.Record)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("encoding record: %v", err), nil)
		return WrapExitError(ExitCommandError, "encoding record", err)
	}
	recPath, err := writeArtifact(opts.Output, "record.json", recData)
	if err != nil {
		return outputInputError(formatter, err)
	}
	repData, err := ir.MarshalCanonical(outcome.Report)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("encoding report: %v", err), nil)
		return WrapExitError(ExitCommandError, "encoding report", err)
	}
	repPath, err := writeArtifact(opts.Output, "report.json", repData)
	if err != nil {
		return outputInputError(formatter, err)
	}

	return outputResolveSuccess(formatter, outcome, recPath, repPath)
}

// resolveObservation drives one session from observation to outcome with
// every answer pre-supplied.
func resolveObservation(f *ResolveFlags, params map[string]any, obs vision.Observation) (resolver.Outcome, error) {
	sess, err := resolver.NewSession(resolver.Options{
		Part:          f.Part,
		Material:      f.Material,
		Process:       f.Process,
		Archetype:     f.Archetype,
		IncludeIntent: f.Intent,
		Params:        params,
	})
	if err != nil {
		return resolver.Outcome{}, err
	}
	if err := sess.Observe(obs); err != nil {
		return resolver.Outcome{}, err
	}
	return sess.Resolve()
}

// outputResolveError distinguishes part rejections (exit 1, stable resolver
// code) from command errors (exit 2).
func outputResolveError(formatter *OutputFormatter, err error) error {
	var rerr *resolver.ResolveError
	if errors.As(err, &rerr) {
		if formatter.Format == "json" {
			var details any
			if len(rerr.Violations) > 0 {
				details = rerr.Violations
			}
			_ = formatter.Error(string(rerr.Code), rerr.Message, details)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ rejected [%s]: %s\n", rerr.Code, rerr.Message)
			for _, v := range rerr.Violations {
				fmt.Fprintf(formatter.Writer, "  %s\n", v.Error())
			}
		}
		return WrapExitError(ExitFailure, "part rejected", rerr)
	}

	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "resolve failed", err)
}

// outputQuestions prints the outstanding questions and exits 1. The caller
// re-runs the command with more answers.
func outputQuestions(formatter *OutputFormatter, outcome resolver.Outcome) error {
	code := "E_NEEDS_ANSWERS"
	switch {
	case outcome.State == resolver.StateAwaitingScale:
		code = string(resolver.ErrCodeScaleUndefined)
	case len(outcome.Violations) > 0:
		code = string(resolver.ErrCodeConstraintViolation)
	}
	message := fmt.Sprintf("%d question(s) outstanding", len(outcome.Questions))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   QuestionList{State: string(outcome.State), Questions: outcome.Questions},
			Error:  &CLIError{Code: code, Message: message},
		}
		if len(outcome.Violations) > 0 {
			response.Error.Details = outcome.Violations
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	fmt.Fprintf(formatter.Writer, "✗ %s\n\n", message)
	for _, v := range outcome.Violations {
		fmt.Fprintf(formatter.Writer, "  ! %s\n", v.Error())
	}
	if len(outcome.Violations) > 0 {
		fmt.Fprintln(formatter.Writer)
	}
	for _, q := range outcome.Questions {
		fmt.Fprintf(formatter.Writer, "  ? %-18s %s\n", q.ID, q.Text)
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, "Answer with the matching flags or --answer id=value.")
	return NewExitError(ExitFailure, message)
}

// outputResolveSuccess reports the finalized record and where it was
// written.
func outputResolveSuccess(formatter *OutputFormatter, outcome resolver.Outcome, recPath, repPath string) error {
	rec, rep := outcome.Record, outcome.Report

	if formatter.Format == "json" {
		return formatter.Success(ResolveSummary{
			State:       string(resolver.StateFinalized),
			Part:        rec.Part,
			Archetype:   string(rec.Identity.Archetype),
			Fingerprint: rec.Fingerprint,
			Decisions:   len(rep.Decisions),
			RecordPath:  recPath,
			ReportPath:  repPath,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ finalized %s (%s)\n", rec.Part, rec.Identity.Archetype)
	fmt.Fprintf(formatter.Writer, "  fingerprint: %s\n", rec.Fingerprint)
	for _, d := range rep.Decisions {
		if d.Detail != "" {
			fmt.Fprintf(formatter.Writer, "  decision: %s (%s)\n", d.Kind, d.Detail)
		} else {
			fmt.Fprintf(formatter.Writer, "  decision: %s on %s\n", d.Kind, d.FieldPath)
		}
	}
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", recPath)
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", repPath)
	return nil
}
