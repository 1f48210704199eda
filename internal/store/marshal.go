package store

import (
	"encoding/json"
	"fmt"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// marshalRecord converts a record to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal records always produce byte-equal
// payloads, which is what makes the records table content-addressable.
func marshalRecord(rec ir.Record) (string, error) {
	data, err := ir.MarshalCanonical(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(data), nil
}

// marshalReport converts a resolution report to canonical JSON TEXT.
func marshalReport(rep ir.Report) (string, error) {
	data, err := ir.MarshalCanonical(rep)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

// unmarshalRecord parses stored canonical JSON TEXT back into a record.
func unmarshalRecord(data string) (*ir.Record, error) {
	var rec ir.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// unmarshalReport parses stored canonical JSON TEXT back into a report.
func unmarshalReport(data string) (*ir.Report, error) {
	var rep ir.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}
