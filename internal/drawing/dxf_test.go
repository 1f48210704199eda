package drawing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDXF_HeaderAndTables(t *testing.T) {
	doc, err := Compile(plateRecord())
	require.NoError(t, err)

	s := string(EncodeDXF(doc))
	assert.True(t, strings.HasPrefix(s, "0\nSECTION\n2\nHEADER\n"))
	assert.True(t, strings.HasSuffix(s, "0\nEOF\n"))
	assert.Contains(t, s, "9\n$ACADVER\n1\nAC1009\n")
	assert.Contains(t, s, "9\n$INSUNITS\n70\n4\n")

	// Dashed linetypes: total pattern length then the dash/gap elements.
	assert.Contains(t, s, "0\nLTYPE\n2\nCENTER\n")
	assert.Contains(t, s, "40\n16\n49\n10\n49\n-2\n49\n2\n49\n-2\n")
	assert.Contains(t, s, "0\nLTYPE\n2\nHIDDEN\n")
	assert.Contains(t, s, "40\n9\n49\n6\n49\n-3\n")

	// Full layer table with colors and linetype bindings.
	assert.Contains(t, s, "0\nLAYER\n2\nOUTLINE\n70\n64\n62\n7\n6\nCONTINUOUS\n")
	assert.Contains(t, s, "0\nLAYER\n2\nBEND\n70\n64\n62\n2\n6\nCENTER\n")
	assert.Contains(t, s, "0\nLAYER\n2\nCENTER\n70\n64\n62\n3\n6\nCENTER\n")
	assert.Contains(t, s, "0\nLAYER\n2\nHIDDEN\n70\n64\n62\n8\n6\nHIDDEN\n")
	assert.Contains(t, s, "0\nLAYER\n2\nVIEW_FRAME\n70\n64\n62\n8\n6\nCONTINUOUS\n")
}

func TestEncodeDXF_EntityCounts(t *testing.T) {
	doc, err := Compile(plateRecord())
	require.NoError(t, err)

	s := string(EncodeDXF(doc))
	assert.Equal(t, 4, strings.Count(s, "\n0\nCIRCLE\n"))
	assert.Equal(t, 40, strings.Count(s, "\n0\nLINE\n"))
	assert.Equal(t, 6, strings.Count(s, "\n0\nPOLYLINE\n"))
	assert.Equal(t, 24, strings.Count(s, "\n0\nVERTEX\n"))
	assert.Equal(t, 6, strings.Count(s, "\n0\nSEQEND\n"))
	assert.Equal(t, 7, strings.Count(s, "\n0\nTEXT\n"))
}

func TestEncodeDXF_Entities(t *testing.T) {
	doc, err := Compile(plateRecord())
	require.NoError(t, err)

	s := string(EncodeDXF(doc))

	// Outline polylines are closed (flag 70=1) and carry vertices.
	assert.Contains(t, s, "0\nPOLYLINE\n8\nOUTLINE\n66\n1\n70\n1\n0\nVERTEX\n8\nOUTLINE\n10\n0\n20\n0\n")
	assert.Contains(t, s, "0\nCIRCLE\n8\nHOLES\n10\n30\n20\n30\n40\n2.75\n")
	assert.Contains(t, s, "0\nLINE\n8\nHIDDEN\n10\n27.25\n20\n150\n11\n27.25\n21\n153\n")
	assert.Contains(t, s, "0\nTEXT\n8\nTEXT\n10\n0\n20\n106\n40\n3\n1\nFRONT VIEW\n")
	assert.Contains(t, s, "1\nPART: cover_plate\n")
	assert.Contains(t, s, "1\nHOLES: 4x M5 clearance\n")
}

func TestEncodeDXF_BendEntityOnBendLayer(t *testing.T) {
	doc, err := Compile(bentRecord())
	require.NoError(t, err)

	s := string(EncodeDXF(doc))
	assert.Contains(t, s, "0\nLINE\n8\nBEND\n10\n100\n20\n0\n11\n100\n21\n100\n")
	assert.Contains(t, s, "1\nBEND: 90deg R=2\n")
}

func TestEncodeDXF_Deterministic(t *testing.T) {
	doc, err := Compile(plateRecord())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(EncodeDXF(doc), EncodeDXF(doc)))
}
