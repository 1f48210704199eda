package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/store"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// Error code constants - unified across all CLI commands. Resolver, mesh,
// and assembly failures keep their own stable codes (SCALE_UNDEFINED,
// MESH_NOT_MANIFOLD, ...); these cover command-level input problems.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Input file not found
	ErrCodeBadInput    = "E003" // Input file unreadable or malformed
	ErrCodeWriteFailed = "E004" // Artifact write error
	ErrCodeNoAPIKey    = "E005" // --ai without GEMINI_API_KEY
	ErrCodeNoStore     = "E006" // Run store path not configured
	ErrCodeStore       = "E007" // Run store access error
)

// InputError reports an unusable command input or output location.
type InputError struct {
	Code    string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ReadObservation loads and normalizes a perception JSON file.
func ReadObservation(path string) (vision.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return vision.Observation{}, &InputError{Code: ErrCodeNotFound, Message: fmt.Sprintf("observation file not found: %s", path)}
		}
		return vision.Observation{}, &InputError{Code: ErrCodeBadInput, Message: fmt.Sprintf("reading observation: %v", err)}
	}
	obs, err := vision.Decode(data)
	if err != nil {
		return vision.Observation{}, &InputError{Code: ErrCodeBadInput, Message: err.Error()}
	}
	return obs, nil
}

// ReadRecord loads a finalized record, checking the format version and the
// fingerprint when one is present. A fingerprint mismatch means the file was
// edited after finalization, so its geometry can no longer be trusted.
func ReadRecord(path string) (*ir.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &InputError{Code: ErrCodeNotFound, Message: fmt.Sprintf("record file not found: %s", path)}
		}
		return nil, &InputError{Code: ErrCodeBadInput, Message: fmt.Sprintf("reading record: %v", err)}
	}

	var rec ir.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &InputError{Code: ErrCodeBadInput, Message: fmt.Sprintf("parsing record: %v", err)}
	}
	if rec.FormatVersion != ir.FormatVersion {
		return nil, &InputError{Code: ErrCodeBadInput, Message: fmt.Sprintf("unsupported format_version %q (want %q)", rec.FormatVersion, ir.FormatVersion)}
	}
	if rec.Fingerprint != "" {
		sum, err := ir.RecordFingerprint(rec)
		if err != nil {
			return nil, &InputError{Code: ErrCodeBadInput, Message: fmt.Sprintf("fingerprinting record: %v", err)}
		}
		if sum != rec.Fingerprint {
			return nil, &InputError{Code: ErrCodeBadInput, Message: fmt.Sprintf("fingerprint mismatch: %s was edited after finalization", path)}
		}
	}
	return &rec, nil
}

// writeArtifact writes one output file under dir, creating dir on demand.
// Returns the written path.
func writeArtifact(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &InputError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("creating output directory: %v", err)}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", &InputError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing %s: %v", path, err)}
	}
	return path, nil
}

// openStore opens the configured run store. An empty path is a command
// error: persistence commands need --db or MML_DB.
func openStore(opts *RootOptions) (*store.Store, error) {
	if opts.Database == "" {
		return nil, &InputError{Code: ErrCodeNoStore, Message: "no run store configured: pass --db or set MML_DB"}
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, &InputError{Code: ErrCodeStore, Message: fmt.Sprintf("opening run store: %v", err)}
	}
	return st, nil
}

// outputInputError prints an input error in the configured format and maps
// it to a command-level exit.
func outputInputError(formatter *OutputFormatter, err error) error {
	var ierr *InputError
	if errors.As(err, &ierr) {
		_ = formatter.Error(ierr.Code, ierr.Message, nil)
		return NewExitError(ExitCommandError, ierr.Error())
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "command failed", err)
}
