package drawing

import (
	"math"

	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
)

// Layer names. The set is closed; consumers key line styles and colors off
// these names.
const (
	LayerOutline   = "OUTLINE"
	LayerHoles     = "HOLES"
	LayerBend      = "BEND"
	LayerCenter    = "CENTER"
	LayerHidden    = "HIDDEN"
	LayerText      = "TEXT"
	LayerViewFrame = "VIEW_FRAME"
)

// LayerNames lists every layer in document order.
func LayerNames() []string {
	return []string{
		LayerOutline, LayerHoles, LayerBend, LayerCenter,
		LayerHidden, LayerText, LayerViewFrame,
	}
}

// View names.
const (
	ViewTop   = "TOP"
	ViewFront = "FRONT"
	ViewRight = "RIGHT"
)

// Line is a straight segment from A to B.
type Line struct {
	A geom.Point
	B geom.Point
}

// Circle is a full circle of radius R around Center.
type Circle struct {
	Center geom.Point
	R      float64
}

// Text is an annotation string inserted at At with the given cap height.
type Text struct {
	At     geom.Point
	Height float64
	Value  string
}

// Polyline is a chain of points, closed back to the first point when
// Closed is set.
type Polyline struct {
	Points []geom.Point
	Closed bool
}

// Layer is one named group of primitives. Primitives keep insertion order.
type Layer struct {
	Name      string
	Polylines []Polyline
	Lines     []Line
	Circles   []Circle
	Texts     []Text
}

// AddPolyline appends a polyline built from pts.
func (l *Layer) AddPolyline(pts []geom.Point, closed bool) {
	l.Polylines = append(l.Polylines, Polyline{Points: pts, Closed: closed})
}

// AddLine appends a segment.
func (l *Layer) AddLine(a, b geom.Point) {
	l.Lines = append(l.Lines, Line{A: a, B: b})
}

// AddCircle appends a circle.
func (l *Layer) AddCircle(center geom.Point, r float64) {
	l.Circles = append(l.Circles, Circle{Center: center, R: r})
}

// AddText appends an annotation.
func (l *Layer) AddText(at geom.Point, height float64, value string) {
	l.Texts = append(l.Texts, Text{At: at, Height: height, Value: value})
}

// Empty reports whether the layer holds no primitives.
func (l *Layer) Empty() bool {
	return len(l.Polylines) == 0 && len(l.Lines) == 0 &&
		len(l.Circles) == 0 && len(l.Texts) == 0
}

// View is the placement record for one projection: its name and the
// axis-aligned box the projection occupies on the sheet.
type View struct {
	Name   string
	Origin geom.Point
	Width  float64
	Height float64
}

// Document is one compiled drawing: the part name, the fixed layer set in
// document order, and the three view placements.
type Document struct {
	Part   string
	Layers []*Layer
	Views  []View
}

// NewDocument creates a document with every layer present and empty.
func NewDocument(part string) *Document {
	names := LayerNames()
	layers := make([]*Layer, len(names))
	for i, name := range names {
		layers[i] = &Layer{Name: name}
	}
	return &Document{Part: part, Layers: layers}
}

// Layer returns the named layer, or nil for names outside the fixed set.
func (d *Document) Layer(name string) *Layer {
	for _, l := range d.Layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// View returns the named view placement.
func (d *Document) View(name string) (View, bool) {
	for _, v := range d.Views {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// Bounds returns the box enclosing every primitive in the document. Text
// extent is approximated by its insertion point; encoders pad with their
// own margin.
func (d *Document) Bounds() geom.Bounds {
	b := geom.Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	grow := func(x, y float64) {
		b.MinX = math.Min(b.MinX, x)
		b.MinY = math.Min(b.MinY, y)
		b.MaxX = math.Max(b.MaxX, x)
		b.MaxY = math.Max(b.MaxY, y)
	}
	seen := false
	for _, l := range d.Layers {
		for _, p := range l.Polylines {
			for _, pt := range p.Points {
				grow(pt.X, pt.Y)
				seen = true
			}
		}
		for _, ln := range l.Lines {
			grow(ln.A.X, ln.A.Y)
			grow(ln.B.X, ln.B.Y)
			seen = true
		}
		for _, c := range l.Circles {
			grow(c.Center.X-c.R, c.Center.Y-c.R)
			grow(c.Center.X+c.R, c.Center.Y+c.R)
			seen = true
		}
		for _, t := range l.Texts {
			grow(t.At.X, t.At.Y)
			grow(t.At.X, t.At.Y+t.Height)
			seen = true
		}
	}
	if !seen {
		return geom.Bounds{}
	}
	return b
}
