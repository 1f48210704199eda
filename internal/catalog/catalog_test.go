package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	for _, name := range []string{
		"plate", "bracket", "gear", "link", "joint", "base",
		"shaft", "bearing", "end_effector", "actuator",
		"motor_mount", "spacer", "housing",
	} {
		def, ok := c.Get(name)
		require.True(t, ok, "missing catalog entry %s", name)
		assert.NotEmpty(t, def.Description)
		assert.NotEmpty(t, def.Keywords)
	}

	assert.Equal(t, []string{"drive", "linkage", "structural"}, c.Categories())
}

func TestGearParamSpec(t *testing.T) {
	c := MustLoad()
	gear, ok := c.Get("gear")
	require.True(t, ok)

	teeth, ok := gear.Param("teeth")
	require.True(t, ok)
	assert.Equal(t, "int", teeth.Type)
	assert.Equal(t, 24.0, teeth.Default)
	require.NotNil(t, teeth.Min)
	assert.Equal(t, 8.0, *teeth.Min)
	assert.Equal(t, "gear_teeth_count", teeth.Intent)

	module, ok := gear.Param("module_mm")
	require.True(t, ok)
	assert.Equal(t, "float", module.Type)
	assert.Equal(t, 2.5, module.Default)
	assert.Equal(t, "mm", module.Unit)
}

func TestDefaults(t *testing.T) {
	c := MustLoad()

	dims, err := c.Defaults("link")
	require.NoError(t, err)
	assert.Equal(t, 160.0, dims["length_mm"])
	assert.Equal(t, 30.0, dims["width_mm"])
	assert.Equal(t, 18.0, dims["hole_offset_mm"])
	assert.Equal(t, 12.0, dims["bore_mm"])

	_, err = c.Defaults("flywheel")
	assert.Error(t, err)
}

func TestCheckBounds(t *testing.T) {
	c := MustLoad()

	warnings, err := c.CheckBounds("gear", map[string]float64{
		"teeth":     24,
		"module_mm": 2.0,
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	warnings, err = c.CheckBounds("gear", map[string]float64{
		"teeth":     6,    // below minimum 8
		"module_mm": 12.0, // above maximum 10
		"lead_mm":   1.0,  // not a gear parameter
	})
	require.NoError(t, err)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "unknown parameter")
	assert.Contains(t, warnings[1], "above maximum")
	assert.Contains(t, warnings[2], "below minimum")

	warnings, err = c.CheckBounds("gear", map[string]float64{"teeth": 24.5})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "expected int")
}

func TestMatchHint(t *testing.T) {
	c := MustLoad()

	def, ok := c.MatchHint("Gear")
	require.True(t, ok)
	assert.Equal(t, "gear", def.Name)

	def, ok = c.MatchHint("RobotArm")
	require.True(t, ok)
	assert.Equal(t, "link", def.Name)

	def, ok = c.MatchHint("Motor")
	require.True(t, ok)
	assert.Equal(t, "actuator", def.Name)

	_, ok = c.MatchHint("Unknown")
	assert.False(t, ok)
}

func TestCanonical(t *testing.T) {
	c := MustLoad()

	tests := []struct {
		text string
		want string
	}{
		{"Servo Motor", "actuator"},
		{"motor_mount", "motor_mount"},
		{"motor mount plate", "motor_mount"},
		{"upper arm segment", "link"},
		{"Gripper", "end_effector"},
		{"drive shaft", "shaft"},
		{"Spur Gear", "gear"},
		{"ball bearing", "bearing"},
		{"base plate", "base"},
	}
	for _, tt := range tests {
		got, ok := c.Canonical(tt.text)
		require.True(t, ok, "no canonical name for %q", tt.text)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}

	_, ok := c.Canonical("flux capacitor")
	assert.False(t, ok)
	_, ok = c.Canonical("  ")
	assert.False(t, ok)
}

func TestByCategory(t *testing.T) {
	c := MustLoad()

	drive := c.ByCategory("drive")
	names := make([]string, len(drive))
	for i, def := range drive {
		names[i] = def.Name
	}
	assert.Equal(t, []string{"gear", "shaft", "bearing", "actuator"}, names)
}
