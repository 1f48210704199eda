package drawing

import (
	"fmt"
	"strings"
)

// svgMarginMM pads the sheet on every side.
const svgMarginMM = 20.0

// Dash arrays mirroring the DXF linetypes.
var svgDashes = map[string]string{
	LayerBend:   "10 2 2 2",
	LayerCenter: "10 2 2 2",
	LayerHidden: "6 3",
}

var svgStrokeWidths = map[string]float64{
	LayerOutline:   0.5,
	LayerHoles:     0.5,
	LayerBend:      0.35,
	LayerCenter:    0.25,
	LayerHidden:    0.3,
	LayerViewFrame: 0.2,
}

// EncodeSVG renders the document as a standalone SVG preview: white sheet,
// black strokes, one group per non-empty layer, with the Y axis flipped
// from millimeter space into screen space.
func EncodeSVG(doc *Document) []byte {
	b := doc.Bounds()
	w := b.Width() + 2*svgMarginMM
	h := b.Height() + 2*svgMarginMM
	sx := func(x float64) float64 { return x - b.MinX + svgMarginMM }
	sy := func(y float64) float64 { return b.MaxY - y + svgMarginMM }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%smm" height="%smm" viewBox="0 0 %s %s">`+"\n",
		fmtNum(w), fmtNum(h), fmtNum(w), fmtNum(h))
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%s" height="%s" fill="white"/>`+"\n", fmtNum(w), fmtNum(h))

	for _, layer := range doc.Layers {
		if layer.Empty() {
			continue
		}
		if layer.Name == LayerText {
			sb.WriteString(`<g id="TEXT" fill="black" font-family="monospace">` + "\n")
			for _, t := range layer.Texts {
				fmt.Fprintf(&sb, `<text x="%s" y="%s" font-size="%s">%s</text>`+"\n",
					fmtNum(sx(t.At.X)), fmtNum(sy(t.At.Y)), fmtNum(t.Height), escapeSVG(t.Value))
			}
			sb.WriteString("</g>\n")
			continue
		}

		fmt.Fprintf(&sb, `<g id="%s" fill="none" stroke="black" stroke-width="%s"`, layer.Name, fmtNum(svgStrokeWidths[layer.Name]))
		if dash, ok := svgDashes[layer.Name]; ok {
			fmt.Fprintf(&sb, ` stroke-dasharray="%s"`, dash)
		}
		sb.WriteString(">\n")

		for _, p := range layer.Polylines {
			tag := "polyline"
			if p.Closed {
				tag = "polygon"
			}
			fmt.Fprintf(&sb, `<%s points="`, tag)
			for i, pt := range p.Points {
				if i > 0 {
					sb.WriteByte(' ')
				}
				fmt.Fprintf(&sb, "%s,%s", fmtNum(sx(pt.X)), fmtNum(sy(pt.Y)))
			}
			fmt.Fprintf(&sb, `"/>`+"\n")
		}
		for _, ln := range layer.Lines {
			fmt.Fprintf(&sb, `<line x1="%s" y1="%s" x2="%s" y2="%s"/>`+"\n",
				fmtNum(sx(ln.A.X)), fmtNum(sy(ln.A.Y)), fmtNum(sx(ln.B.X)), fmtNum(sy(ln.B.Y)))
		}
		for _, c := range layer.Circles {
			fmt.Fprintf(&sb, `<circle cx="%s" cy="%s" r="%s"/>`+"\n",
				fmtNum(sx(c.Center.X)), fmtNum(sy(c.Center.Y)), fmtNum(c.R))
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>\n")
	return []byte(sb.String())
}

var svgEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeSVG(s string) string {
	return svgEscaper.Replace(s)
}
