package drawing

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

const (
	// DefaultThicknessMM is used when the record carries no min_thickness
	// constraint. Matches the solid synthesizer's slab default.
	DefaultThicknessMM = 5.0

	// minGapMM is the smallest spacing between adjacent views.
	minGapMM = 20.0

	// textHeightMM is the cap height for every annotation.
	textHeightMM = 3.0

	// centerOverrunMM is how far centerlines extend past the feature they
	// mark.
	centerOverrunMM = 3.0

	// captionOffsetMM is the gap between a view's top edge and its caption.
	captionOffsetMM = 6.0

	// annotationStepMM is the vertical spacing of the metadata block lines.
	annotationStepMM = 5.0
)

// Compile lowers a finalized record into a layered drawing document using
// third-angle projection: the front view holds the outline at its record
// coordinates, the top view (width x thickness) sits above it, and the
// right view (thickness x height) sits to its right.
func Compile(rec *ir.Record) (*Document, error) {
	if rec == nil {
		return nil, errors.New("drawing: nil record")
	}
	outline := outlinePoints(rec)
	if len(outline) < 3 {
		return nil, fmt.Errorf("drawing: outline has %d points, need at least 3", len(outline))
	}

	b := geom.BoundsOf(outline)
	c := &compiler{
		rec:     rec,
		doc:     NewDocument(rec.Part),
		outline: outline,
		bounds:  b,
		width:   b.Width(),
		height:  b.Height(),
		thick:   thicknessOf(rec),
	}
	c.gap = maxf(minGapMM, 0.25*maxf(c.width, c.height))

	c.frontView()
	c.topView()
	c.rightView()
	c.captions()
	c.annotationBlock()
	return c.doc, nil
}

type compiler struct {
	rec     *ir.Record
	doc     *Document
	outline []geom.Point
	bounds  geom.Bounds
	width   float64
	height  float64
	thick   float64
	gap     float64
}

// topY0 is the bottom edge of the top view.
func (c *compiler) topY0() float64 { return c.bounds.MaxY + c.gap }

// rightX0 is the left edge of the right view.
func (c *compiler) rightX0() float64 { return c.bounds.MaxX + c.gap }

// frontView draws the face-on projection: the outline polygon, hole
// circles with crosshair centerlines, and the bend line when it does not
// degenerate to a point.
func (c *compiler) frontView() {
	c.doc.Views = append(c.doc.Views, View{
		Name:   ViewFront,
		Origin: geom.Point{X: c.bounds.MinX, Y: c.bounds.MinY},
		Width:  c.width,
		Height: c.height,
	})

	c.doc.Layer(LayerOutline).AddPolyline(c.outline, true)
	c.doc.Layer(LayerViewFrame).AddPolyline(rectPoints(c.bounds.MinX, c.bounds.MinY, c.width, c.height), true)

	center := c.doc.Layer(LayerCenter)
	holes := c.doc.Layer(LayerHoles)
	for _, h := range c.rec.Geometry.Holes {
		p := geom.Point{X: h.CenterMM.X(), Y: h.CenterMM.Y()}
		r := h.DiameterMM / 2
		holes.AddCircle(p, r)
		arm := r + centerOverrunMM
		center.AddLine(geom.Point{X: p.X - arm, Y: p.Y}, geom.Point{X: p.X + arm, Y: p.Y})
		center.AddLine(geom.Point{X: p.X, Y: p.Y - arm}, geom.Point{X: p.X, Y: p.Y + arm})
	}

	if bend := c.rec.Geometry.Bend; bend != nil {
		a := geom.Point{X: bend.LineMM[0].X(), Y: bend.LineMM[0].Y()}
		b := geom.Point{X: bend.LineMM[1].X(), Y: bend.LineMM[1].Y()}
		// A bend that projects to a point is omitted, never drawn as a
		// zero-length segment.
		if a.Dist(b) > geom.Eps {
			c.doc.Layer(LayerBend).AddLine(a, b)
		}
	}
}

// topView draws the projection seen from above: a width x thickness
// rectangle with each hole as an axis line spanning the material, its
// centerline overrunning both faces, and hidden lines for the bore walls.
func (c *compiler) topView() {
	y0 := c.topY0()
	y1 := y0 + c.thick
	c.doc.Views = append(c.doc.Views, View{
		Name:   ViewTop,
		Origin: geom.Point{X: c.bounds.MinX, Y: y0},
		Width:  c.width,
		Height: c.thick,
	})

	rect := rectPoints(c.bounds.MinX, y0, c.width, c.thick)
	c.doc.Layer(LayerOutline).AddPolyline(rect, true)
	c.doc.Layer(LayerViewFrame).AddPolyline(rect, true)

	holes := c.doc.Layer(LayerHoles)
	center := c.doc.Layer(LayerCenter)
	hidden := c.doc.Layer(LayerHidden)
	for _, h := range c.rec.Geometry.Holes {
		x := h.CenterMM.X()
		r := h.DiameterMM / 2
		holes.AddLine(geom.Point{X: x, Y: y0}, geom.Point{X: x, Y: y1})
		center.AddLine(geom.Point{X: x, Y: y0 - centerOverrunMM}, geom.Point{X: x, Y: y1 + centerOverrunMM})
		hidden.AddLine(geom.Point{X: x - r, Y: y0}, geom.Point{X: x - r, Y: y1})
		hidden.AddLine(geom.Point{X: x + r, Y: y0}, geom.Point{X: x + r, Y: y1})
	}
}

// rightView mirrors topView for the projection seen from the right:
// thickness x height, with the part's Y axis kept vertical.
func (c *compiler) rightView() {
	x0 := c.rightX0()
	x1 := x0 + c.thick
	c.doc.Views = append(c.doc.Views, View{
		Name:   ViewRight,
		Origin: geom.Point{X: x0, Y: c.bounds.MinY},
		Width:  c.thick,
		Height: c.height,
	})

	rect := rectPoints(x0, c.bounds.MinY, c.thick, c.height)
	c.doc.Layer(LayerOutline).AddPolyline(rect, true)
	c.doc.Layer(LayerViewFrame).AddPolyline(rect, true)

	holes := c.doc.Layer(LayerHoles)
	center := c.doc.Layer(LayerCenter)
	hidden := c.doc.Layer(LayerHidden)
	for _, h := range c.rec.Geometry.Holes {
		y := h.CenterMM.Y()
		r := h.DiameterMM / 2
		holes.AddLine(geom.Point{X: x0, Y: y}, geom.Point{X: x1, Y: y})
		center.AddLine(geom.Point{X: x0 - centerOverrunMM, Y: y}, geom.Point{X: x1 + centerOverrunMM, Y: y})
		hidden.AddLine(geom.Point{X: x0, Y: y - r}, geom.Point{X: x1, Y: y - r})
		hidden.AddLine(geom.Point{X: x0, Y: y + r}, geom.Point{X: x1, Y: y + r})
	}
}

// captions labels each view just above its top edge.
func (c *compiler) captions() {
	text := c.doc.Layer(LayerText)
	text.AddText(geom.Point{X: c.bounds.MinX, Y: c.topY0() + c.thick + captionOffsetMM}, textHeightMM, "TOP VIEW")
	text.AddText(geom.Point{X: c.bounds.MinX, Y: c.bounds.MaxY + captionOffsetMM}, textHeightMM, "FRONT VIEW")
	text.AddText(geom.Point{X: c.rightX0(), Y: c.bounds.MaxY + captionOffsetMM}, textHeightMM, "RIGHT VIEW")
}

// annotationBlock writes the fixed-format metadata block to the right of
// the right view, one line per fact, top-down.
func (c *compiler) annotationBlock() {
	lines := []string{
		fmt.Sprintf("PART: %s", c.rec.Part),
		fmt.Sprintf("MAT: %s t=%s", c.rec.Material.Name, fmtNum(c.thick)),
		fmt.Sprintf("SIZE: W=%.2f D=%.2f T=%.2f", c.width, c.height, c.thick),
	}
	if n := len(c.rec.Geometry.Holes); n > 0 {
		lines = append(lines, fmt.Sprintf("HOLES: %dx %s clearance", n, c.rec.HoleStandard()))
	}
	if bend := c.rec.Geometry.Bend; bend != nil {
		lines = append(lines, fmt.Sprintf("BEND: %sdeg R=%s", fmtNum(bend.AngleDeg), fmtNum(bend.InnerRadiusMM)))
	}

	text := c.doc.Layer(LayerText)
	x := c.rightX0() + c.thick + c.gap*0.5
	y := c.topY0() + c.thick
	for i, line := range lines {
		text.AddText(geom.Point{X: x, Y: y - annotationStepMM*float64(i)}, textHeightMM, line)
	}
}

func outlinePoints(rec *ir.Record) []geom.Point {
	pts := make([]geom.Point, len(rec.Geometry.Outline.PointsMM))
	for i, p := range rec.Geometry.Outline.PointsMM {
		pts[i] = geom.Point{X: p.X(), Y: p.Y()}
	}
	return pts
}

func thicknessOf(rec *ir.Record) float64 {
	if t, ok := rec.ThicknessMM(); ok && t > 0 {
		return t
	}
	return DefaultThicknessMM
}

func rectPoints(x, y, w, h float64) []geom.Point {
	return []geom.Point{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// fmtNum renders a millimeter value without trailing zeros.
func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
