package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix allows
// future algorithm migration without colliding with old fingerprints.
const (
	DomainRecord = "mml/record/v1"
	DomainReport = "mml/report/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte prevents domain/data boundary
// ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordFingerprint computes the content address of a record. The
// Fingerprint field itself is excluded (cleared before hashing), so a
// finalized record's stored fingerprint matches a recomputation over it.
// Stable across processes and runs given an identical record.
func RecordFingerprint(r Record) (string, error) {
	r.Fingerprint = ""
	canonical, err := MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("record fingerprint: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// ReportFingerprint computes the content address of a report.
func ReportFingerprint(rep Report) (string, error) {
	canonical, err := MarshalCanonical(rep)
	if err != nil {
		return "", fmt.Errorf("report fingerprint: %w", err)
	}
	return hashWithDomain(DomainReport, canonical), nil
}

// MustRecordFingerprint is RecordFingerprint but panics on error. Use only
// in tests or when the record is known to be canonical-safe.
func MustRecordFingerprint(r Record) string {
	fp, err := RecordFingerprint(r)
	if err != nil {
		panic(err)
	}
	return fp
}

// MustReportFingerprint is ReportFingerprint but panics on error.
func MustReportFingerprint(rep Report) string {
	fp, err := ReportFingerprint(rep)
	if err != nil {
		panic(err)
	}
	return fp
}
