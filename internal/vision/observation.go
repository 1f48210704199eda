// Package vision decodes pixel-space feature observations.
//
// An observation is what a perception pass (classical CV or a multimodal
// model) reports about one image: an outer contour, circular hole
// candidates, straight interior lines that may be bends, and a part-type
// hint. Everything is in pixels with per-feature confidence; the resolver
// owns the conversion to millimeters.
//
// Producers are sloppy about key names, so Decode accepts the common
// variants (center_px/center/center_xy/cx+cy, radius_px/radius,
// line_px/start+end) and normalizes them into one shape. Entries missing
// required coordinates are dropped, not errored: a partial observation is
// still useful and the resolver asks follow-up questions for the gaps.
package vision

import (
	"encoding/json"
	"fmt"
)

// DefaultConfidence is assigned to features the producer scored implicitly.
const DefaultConfidence = 0.6

// PointPx is a pixel-space coordinate pair serialized as [x, y].
type PointPx [2]float64

// X returns the first coordinate.
func (p PointPx) X() float64 { return p[0] }

// Y returns the second coordinate.
func (p PointPx) Y() float64 { return p[1] }

// Outline is the detected outer contour.
type Outline struct {
	// Type is "polygon" for mostly straight edges or "spline" for sampled
	// curves. Defaults by point count when the producer omits it.
	Type     string    `json:"type"`
	PointsPx []PointPx `json:"points_px"`
}

// Hole is one circular feature candidate.
type Hole struct {
	CenterPx   PointPx `json:"center_px"`
	RadiusPx   float64 `json:"radius_px"`
	Confidence float64 `json:"confidence"`
}

// BendLine is a long straight line inside the outline, a bend candidate.
type BendLine struct {
	LinePx     [2]PointPx `json:"line_px"`
	Confidence float64    `json:"confidence"`
}

// Observation is one normalized perception result.
type Observation struct {
	PartHint           string     `json:"part_hint,omitempty"`
	PartHintConfidence *float64   `json:"part_hint_confidence,omitempty"`
	Outline            Outline    `json:"outline"`
	Holes              []Hole     `json:"holes"`
	BendLines          []BendLine `json:"bend_lines"`
	NotesRegions       []any      `json:"notes_regions,omitempty"`
}

// MeanHoleConfidence averages the hole confidences. False when there are no
// holes; there is no default.
func (o *Observation) MeanHoleConfidence() (float64, bool) {
	return meanConfidence(len(o.Holes), func(i int) float64 { return o.Holes[i].Confidence })
}

// MeanBendConfidence averages the bend line confidences.
func (o *Observation) MeanBendConfidence() (float64, bool) {
	return meanConfidence(len(o.BendLines), func(i int) float64 { return o.BendLines[i].Confidence })
}

func meanConfidence(n int, at func(int) float64) (float64, bool) {
	if n == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += at(i)
	}
	return sum / float64(n), true
}

// rawObservation mirrors the producer formats, one field per accepted key.
type rawObservation struct {
	PartHint           string        `json:"part_hint"`
	PartHintConfidence *float64      `json:"part_hint_confidence"`
	Outline            *rawOutline   `json:"outline"`
	OutlineType        string        `json:"outline_type"`
	Holes              []rawHole     `json:"holes"`
	BendLines          []rawBendLine `json:"bend_lines"`
	NotesRegions       []any         `json:"notes_regions"`
}

type rawOutline struct {
	Type        string      `json:"type"`
	PointsPx    [][]float64 `json:"points_px"`
	Coordinates [][]float64 `json:"coordinates"`
	Points      [][]float64 `json:"points"`
}

type rawHole struct {
	CenterPx   []float64 `json:"center_px"`
	Center     []float64 `json:"center"`
	CenterXY   []float64 `json:"center_xy"`
	CX         *float64  `json:"cx"`
	CY         *float64  `json:"cy"`
	RadiusPx   *float64  `json:"radius_px"`
	Radius     *float64  `json:"radius"`
	Confidence *float64  `json:"confidence"`
}

type rawBendLine struct {
	LinePx     [][]float64 `json:"line_px"`
	Start      []float64   `json:"start"`
	End        []float64   `json:"end"`
	Confidence *float64    `json:"confidence"`
}

// Decode parses a producer's JSON into a normalized Observation.
func Decode(data []byte) (Observation, error) {
	var raw rawObservation
	if err := json.Unmarshal(data, &raw); err != nil {
		return Observation{}, fmt.Errorf("decode observation: %w", err)
	}

	obs := Observation{
		PartHint:           raw.PartHint,
		PartHintConfidence: raw.PartHintConfidence,
		Holes:              []Hole{},
		BendLines:          []BendLine{},
		NotesRegions:       raw.NotesRegions,
	}

	var points [][]float64
	outlineType := raw.OutlineType
	if raw.Outline != nil {
		if raw.Outline.Type != "" {
			outlineType = raw.Outline.Type
		}
		points = firstNonEmpty(raw.Outline.PointsPx, raw.Outline.Coordinates, raw.Outline.Points)
	}
	for _, p := range points {
		if len(p) != 2 {
			return Observation{}, fmt.Errorf("decode observation: outline point has %d coordinates, want 2", len(p))
		}
		obs.Outline.PointsPx = append(obs.Outline.PointsPx, PointPx{p[0], p[1]})
	}
	if outlineType == "" {
		outlineType = "polygon"
		if len(obs.Outline.PointsPx) > 20 {
			outlineType = "spline"
		}
	}
	obs.Outline.Type = outlineType

	for _, h := range raw.Holes {
		center := firstPair(h.CenterPx, h.Center, h.CenterXY)
		if center == nil && h.CX != nil && h.CY != nil {
			center = []float64{*h.CX, *h.CY}
		}
		radius := firstFloat(h.RadiusPx, h.Radius)
		if center == nil || radius == nil || *radius <= 0 {
			continue
		}
		obs.Holes = append(obs.Holes, Hole{
			CenterPx:   PointPx{center[0], center[1]},
			RadiusPx:   *radius,
			Confidence: confidenceOrDefault(h.Confidence),
		})
	}

	for _, b := range raw.BendLines {
		line := b.LinePx
		if line == nil && len(b.Start) == 2 && len(b.End) == 2 {
			line = [][]float64{b.Start, b.End}
		}
		if len(line) != 2 || len(line[0]) != 2 || len(line[1]) != 2 {
			continue
		}
		obs.BendLines = append(obs.BendLines, BendLine{
			LinePx: [2]PointPx{
				{line[0][0], line[0][1]},
				{line[1][0], line[1][1]},
			},
			Confidence: confidenceOrDefault(b.Confidence),
		})
	}

	return obs, nil
}

func firstNonEmpty(candidates ...[][]float64) [][]float64 {
	for _, c := range candidates {
		if len(c) > 0 {
			return c
		}
	}
	return nil
}

func firstPair(candidates ...[]float64) []float64 {
	for _, c := range candidates {
		if len(c) == 2 {
			return c
		}
	}
	return nil
}

func firstFloat(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func confidenceOrDefault(c *float64) float64 {
	if c == nil {
		return DefaultConfidence
	}
	return *c
}
