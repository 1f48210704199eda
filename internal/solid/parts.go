package solid

import (
	"fmt"
	"math"

	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
)

// referenceReachMM is the arm reach corresponding to assembly scale 1.0.
const referenceReachMM = 300.0

// assemblyScale derives the global size factor from the declared arm reach,
// clamped so parametric parts stay printable at extreme reaches.
func assemblyScale(in ir.Intent) float64 {
	reach, ok := in.Float("arm_reach_mm")
	if !ok || reach <= 0 {
		reach = referenceReachMM
	}
	return math.Max(0.6, math.Min(1.4, reach/referenceReachMM))
}

// resolveDims produces the generator dimensions for one catalog part:
// defaults with millimeter values multiplied by the assembly scale, then
// intent-bound fields overriding unscaled. Thickness always comes from the
// record, so thickness_mm is never scaled.
func resolveDims(cat *catalog.Catalog, name string, in ir.Intent, scale float64) (map[string]float64, error) {
	def, ok := cat.Get(name)
	if !ok {
		return nil, fmt.Errorf("solid: no catalog entry for %q", name)
	}
	dims := make(map[string]float64, len(def.Params))
	for _, p := range def.Params {
		v := p.Default
		if p.Unit == "mm" && p.Name != "thickness_mm" {
			v *= scale
		}
		if p.Intent != "" {
			if o, ok := in.Float(p.Intent); ok {
				v = o
			}
		}
		dims[p.Name] = v
	}
	return dims, nil
}

// Dims returns the resolved dimensions for one part plus catalog bounds
// warnings. Only intent-supplied values are bounds-checked; defaults are in
// range by construction.
func Dims(cat *catalog.Catalog, name string, in ir.Intent) (map[string]float64, []string, error) {
	dims, err := resolveDims(cat, name, in, assemblyScale(in))
	if err != nil {
		return nil, nil, err
	}
	def, _ := cat.Get(name)
	supplied := make(map[string]float64)
	for _, p := range def.Params {
		if p.Intent == "" {
			continue
		}
		if v, ok := in.Float(p.Intent); ok {
			supplied[p.Name] = v
		}
	}
	warnings, err := cat.CheckBounds(name, supplied)
	if err != nil {
		return nil, nil, err
	}
	return dims, warnings, nil
}

// Generate builds the parametric solid for one canonical part name. Names
// without a dedicated generator produce the fallback box so an assembly row
// never loses a slot.
func Generate(cat *catalog.Catalog, name string, in ir.Intent, thickness float64) (*mesh.Mesh, error) {
	scale := assemblyScale(in)
	dims, err := resolveDims(cat, name, in, scale)
	if err != nil {
		return fallbackBox(scale, thickness)
	}
	switch name {
	case "link":
		return generateLink(dims, thickness)
	case "joint":
		return generateJoint(dims, thickness)
	case "base":
		return generateBase(dims, thickness)
	case "end_effector", "housing":
		return shell(rectPoints(dims["width_mm"], dims["depth_mm"]), nil, 0, thickness)
	case "shaft":
		return shell(geom.CirclePoints(geom.Point{}, dims["diameter_mm"]/2, 48), nil, 0, dims["length_mm"])
	case "actuator":
		return shell(geom.CirclePoints(geom.Point{}, dims["outer_diameter_mm"]/2, 64), nil, 0, dims["length_mm"])
	case "motor_mount":
		return generateMotorMount(dims, thickness)
	case "bearing":
		return ringShell(geom.Point{}, dims["outer_diameter_mm"]/2, dims["bore_mm"]/2, 0, thickness, 96, 64)
	case "spacer":
		return ringShell(geom.Point{}, dims["outer_diameter_mm"]/2, dims["bore_mm"]/2, 0, thickness, 64, 48)
	case "bracket":
		return generateBracket(dims, thickness)
	case "gear":
		return generateGear(dims)
	default:
		return fallbackBox(scale, thickness)
	}
}

// generateLink extrudes the stadium bar and stacks a boss ring over each
// pivot bore.
func generateLink(d map[string]float64, t float64) (*mesh.Mesh, error) {
	length, width := d["length_mm"], d["width_mm"]
	boreR := d["bore_mm"] / 2
	centers := []geom.Point{
		{X: d["hole_offset_mm"], Y: width / 2},
		{X: length - d["hole_offset_mm"], Y: width / 2},
	}

	holes := make([][]geom.Point, len(centers))
	for i, c := range centers {
		holes[i] = geom.CirclePoints(c, boreR, 48)
	}
	slab, err := shell(roundedRect(length, width, d["fillet_mm"], 10), holes, 0, t)
	if err != nil {
		return nil, err
	}

	shells := []*mesh.Mesh{slab}
	bossH := math.Max(2, 0.4*t)
	for _, c := range centers {
		boss, err := ringShell(c, boreR+4, boreR, t, bossH, 48, 48)
		if err != nil {
			return nil, err
		}
		shells = append(shells, boss)
	}
	return mesh.Concat(shells...), nil
}

// generateJoint extrudes the pivot disc and its raised collar.
func generateJoint(d map[string]float64, t float64) (*mesh.Mesh, error) {
	boreR := d["bore_mm"] / 2
	disc, err := ringShell(geom.Point{}, d["outer_diameter_mm"]/2, boreR, 0, t, 80, 48)
	if err != nil {
		return nil, err
	}
	collar, err := ringShell(geom.Point{}, boreR+6, boreR, t, math.Max(3, 0.5*t), 72, 48)
	if err != nil {
		return nil, err
	}
	return mesh.Concat(disc, collar), nil
}

// generateBase extrudes the mounting slab with a standoff over each corner
// hole.
func generateBase(d map[string]float64, t float64) (*mesh.Mesh, error) {
	w, dep := d["width_mm"], d["depth_mm"]
	boreR := d["bore_mm"] / 2
	off := math.Min(d["corner_offset_mm"], math.Min(w/4, dep/4))
	centers := []geom.Point{
		{X: off, Y: off}, {X: w - off, Y: off},
		{X: w - off, Y: dep - off}, {X: off, Y: dep - off},
	}

	holes := make([][]geom.Point, len(centers))
	for i, c := range centers {
		holes[i] = geom.CirclePoints(c, boreR, 36)
	}
	slab, err := shell(roundedRect(w, dep, d["fillet_mm"], 10), holes, 0, t)
	if err != nil {
		return nil, err
	}

	shells := []*mesh.Mesh{slab}
	standH := math.Max(3, 0.6*t)
	for _, c := range centers {
		stand, err := ringShell(c, boreR+3, boreR, t, standH, 36, 36)
		if err != nil {
			return nil, err
		}
		shells = append(shells, stand)
	}
	return mesh.Concat(shells...), nil
}

func generateMotorMount(d map[string]float64, t float64) (*mesh.Mesh, error) {
	w, h := d["width_mm"], d["height_mm"]
	off := d["corner_offset_mm"]
	cornerR := d["corner_hole_diameter_mm"] / 2
	holes := [][]geom.Point{
		geom.CirclePoints(geom.Point{X: off, Y: off}, cornerR, 36),
		geom.CirclePoints(geom.Point{X: w - off, Y: off}, cornerR, 36),
		geom.CirclePoints(geom.Point{X: w - off, Y: h - off}, cornerR, 36),
		geom.CirclePoints(geom.Point{X: off, Y: h - off}, cornerR, 36),
		geom.CirclePoints(geom.Point{X: w / 2, Y: h / 2}, d["center_bore_mm"]/2, 48),
	}
	return shell(roundedRect(w, h, d["fillet_mm"], 10), holes, 0, t)
}

// generateBracket extrudes the L section with a fastening hole centered in
// each leg.
func generateBracket(d map[string]float64, t float64) (*mesh.Mesh, error) {
	bl, bd := d["base_length_mm"], d["base_depth_mm"]
	wd, wh := d["wall_depth_mm"], d["wall_height_mm"]
	outline := []geom.Point{
		{X: 0, Y: 0}, {X: bl, Y: 0}, {X: bl, Y: bd},
		{X: wd, Y: bd}, {X: wd, Y: wh}, {X: 0, Y: wh},
	}
	holeR := d["hole_diameter_mm"] / 2
	inset := wd / 2
	holes := [][]geom.Point{
		geom.CirclePoints(geom.Point{X: inset, Y: inset}, holeR, 36),
		geom.CirclePoints(geom.Point{X: inset, Y: wh - inset}, holeR, 36),
	}
	return shell(outline, holes, 0, t)
}

// generateGear extrudes the tooth profile by the face width. The pressure
// angle is resolved and bounds-checked but does not alter the simplified
// flank. The bore is capped at 60% of the root circle: a fine-module pinion
// cannot swallow its own teeth, whatever bore the intent asks for.
func generateGear(d map[string]float64) (*mesh.Mesh, error) {
	module, teeth := d["module_mm"], int(d["teeth"])
	outline := gearProfile(module, teeth)
	var holes [][]geom.Point
	if boreR := d["bore_mm"] / 2; boreR > 0 {
		boreR = math.Min(boreR, 0.6*gearRootRadius(module, teeth))
		holes = append(holes, geom.CirclePoints(geom.Point{}, boreR, 64))
	}
	return shell(outline, holes, 0, d["width_mm"])
}

// fallbackBox stands in for parts without a dedicated generator.
func fallbackBox(scale, t float64) (*mesh.Mesh, error) {
	return shell(rectPoints(60*scale, 40*scale), nil, 0, t)
}
