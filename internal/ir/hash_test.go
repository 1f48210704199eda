package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFingerprintStable(t *testing.T) {
	rec := sampleRecord()

	a, err := RecordFingerprint(rec)
	require.NoError(t, err)
	b, err := RecordFingerprint(rec)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "hex SHA-256")
}

func TestRecordFingerprintIgnoresStoredFingerprint(t *testing.T) {
	rec := sampleRecord()
	plain, err := RecordFingerprint(rec)
	require.NoError(t, err)

	rec.Fingerprint = plain
	again, err := RecordFingerprint(rec)
	require.NoError(t, err)
	assert.Equal(t, plain, again, "fingerprint field is excluded from hashing")
}

func TestRecordFingerprintSensitivity(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.Geometry.Holes[0].DiameterMM = 6.6

	fa := MustRecordFingerprint(a)
	fb := MustRecordFingerprint(b)
	assert.NotEqual(t, fa, fb)
}

func TestDomainSeparation(t *testing.T) {
	// The same canonical bytes under different domains must not collide.
	data := []byte(`{"x":1}`)
	assert.NotEqual(t,
		hashWithDomain(DomainRecord, data),
		hashWithDomain(DomainReport, data),
	)
}

func TestReportFingerprint(t *testing.T) {
	rep := Report{
		ScalePxToMM: 1,
		Questions:   []Question{{ID: "thickness_mm", Text: "Thickness?", Type: QuestionFloat}},
		Answers:     []Answer{{ID: "thickness_mm", Value: 3.0}},
		Decisions:   []Decision{},
		Notes:       []string{},
	}
	fp, err := ReportFingerprint(rep)
	require.NoError(t, err)
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, MustReportFingerprint(rep))
}
