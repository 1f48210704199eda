// Package harness runs YAML conformance scenarios through the live
// resolution pipeline.
//
// A scenario feeds one pixel-space observation and a scripted dialogue to
// the resolver and checks the outcome. Finalized records are additionally
// lowered through the drawing compiler and the solid synthesizer and
// written to a fresh in-memory store, so a single scenario covers the whole
// path from perception JSON to stored, content-addressed artifacts.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: plate_basic
//	description: "Plate resolved in one pass from pre-answered params"
//	part: cover_plate
//	archetype: plate
//	observation:
//	  outline:
//	    points_px: [[0, 0], [400, 0], [400, 200], [0, 200]]
//	params:
//	  px_to_mm: 0.5
//	  thickness_mm: 3
//	expect:
//	  outcome: finalized
//	  layers: [OUTLINE, VIEW_FRAME, TEXT]
//	  mesh:
//	    triangles: 12
//	    manifold: true
//
// The observation is inline JSON-shaped YAML or a JSON file referenced via
// observation_file. The expect clause names the required outcome (finalized,
// questions, or rejected) and narrows it: open question IDs, the rejection
// code, hole diameters, decision counts, populated drawing layers, and mesh
// statistics.
//
// # Determinism
//
// Resolution, lowering, and canonical serialization are deterministic, so
// finalized scenarios pin their full record and report bytes in golden
// files under testdata/golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/plate_basic.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
