package drawing

import (
	"strconv"
	"strings"
)

// AutoCAD color indexes per layer. 7 renders black on white, 8 gray.
var dxfColors = map[string]int{
	LayerOutline:   7,
	LayerHoles:     7,
	LayerBend:      2,
	LayerCenter:    3,
	LayerHidden:    8,
	LayerText:      7,
	LayerViewFrame: 8,
}

var dxfLinetypes = map[string]string{
	LayerBend:   "CENTER",
	LayerCenter: "CENTER",
	LayerHidden: "HIDDEN",
}

// EncodeDXF renders the document as an R12 ASCII DXF: header with
// millimeter units, linetype and layer tables covering the full layer set,
// and one entity per primitive in document order.
func EncodeDXF(doc *Document) []byte {
	w := &dxfWriter{}
	w.header()
	w.tables()
	w.entities(doc)
	w.pair(0, "EOF")
	return []byte(w.sb.String())
}

type dxfWriter struct {
	sb strings.Builder
}

func (w *dxfWriter) pair(code int, value string) {
	w.sb.WriteString(strconv.Itoa(code))
	w.sb.WriteByte('\n')
	w.sb.WriteString(value)
	w.sb.WriteByte('\n')
}

func (w *dxfWriter) num(code int, v float64) {
	w.pair(code, strconv.FormatFloat(v, 'f', -1, 64))
}

func (w *dxfWriter) intPair(code, v int) {
	w.pair(code, strconv.Itoa(v))
}

func (w *dxfWriter) header() {
	w.pair(0, "SECTION")
	w.pair(2, "HEADER")
	w.pair(9, "$ACADVER")
	w.pair(1, "AC1009")
	w.pair(9, "$INSUNITS")
	w.intPair(70, 4) // millimeters
	w.pair(9, "$MEASUREMENT")
	w.intPair(70, 1)
	w.pair(0, "ENDSEC")
}

func (w *dxfWriter) tables() {
	w.pair(0, "SECTION")
	w.pair(2, "TABLES")

	w.pair(0, "TABLE")
	w.pair(2, "LTYPE")
	w.intPair(70, 3)
	w.linetype("CONTINUOUS", "Solid line", nil)
	w.linetype("CENTER", "Center ____ _ ____ _ ____", []float64{10, -2, 2, -2})
	w.linetype("HIDDEN", "Hidden __ __ __ __", []float64{6, -3})
	w.pair(0, "ENDTAB")

	w.pair(0, "TABLE")
	w.pair(2, "LAYER")
	w.intPair(70, len(LayerNames()))
	for _, name := range LayerNames() {
		lt := dxfLinetypes[name]
		if lt == "" {
			lt = "CONTINUOUS"
		}
		w.pair(0, "LAYER")
		w.pair(2, name)
		w.intPair(70, 64)
		w.intPair(62, dxfColors[name])
		w.pair(6, lt)
	}
	w.pair(0, "ENDTAB")

	w.pair(0, "ENDSEC")
}

// linetype writes one LTYPE entry. Group 40 is the total pattern length,
// group 49 each dash (positive) or gap (negative) element.
func (w *dxfWriter) linetype(name, desc string, pattern []float64) {
	w.pair(0, "LTYPE")
	w.pair(2, name)
	w.intPair(70, 64)
	w.pair(3, desc)
	w.intPair(72, 65)
	w.intPair(73, len(pattern))
	total := 0.0
	for _, e := range pattern {
		if e < 0 {
			total -= e
		} else {
			total += e
		}
	}
	w.num(40, total)
	for _, e := range pattern {
		w.num(49, e)
	}
}

func (w *dxfWriter) entities(doc *Document) {
	w.pair(0, "SECTION")
	w.pair(2, "ENTITIES")
	for _, layer := range doc.Layers {
		for _, p := range layer.Polylines {
			w.polyline(layer.Name, p)
		}
		for _, ln := range layer.Lines {
			w.line(layer.Name, ln)
		}
		for _, c := range layer.Circles {
			w.circle(layer.Name, c)
		}
		for _, t := range layer.Texts {
			w.text(layer.Name, t)
		}
	}
	w.pair(0, "ENDSEC")
}

func (w *dxfWriter) polyline(layer string, p Polyline) {
	w.pair(0, "POLYLINE")
	w.pair(8, layer)
	w.intPair(66, 1)
	closed := 0
	if p.Closed {
		closed = 1
	}
	w.intPair(70, closed)
	for _, pt := range p.Points {
		w.pair(0, "VERTEX")
		w.pair(8, layer)
		w.num(10, pt.X)
		w.num(20, pt.Y)
	}
	w.pair(0, "SEQEND")
	w.pair(8, layer)
}

func (w *dxfWriter) line(layer string, ln Line) {
	w.pair(0, "LINE")
	w.pair(8, layer)
	w.num(10, ln.A.X)
	w.num(20, ln.A.Y)
	w.num(11, ln.B.X)
	w.num(21, ln.B.Y)
}

func (w *dxfWriter) circle(layer string, c Circle) {
	w.pair(0, "CIRCLE")
	w.pair(8, layer)
	w.num(10, c.Center.X)
	w.num(20, c.Center.Y)
	w.num(40, c.R)
}

func (w *dxfWriter) text(layer string, t Text) {
	w.pair(0, "TEXT")
	w.pair(8, layer)
	w.num(10, t.At.X)
	w.num(20, t.At.Y)
	w.num(40, t.Height)
	w.pair(1, t.Value)
}
