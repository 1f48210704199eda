package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for fingerprinting and storage.
// CRITICAL: this is the ONLY serialization used for content-addressed
// identity; byte-identical output for equal values is the whole point.
//
// Differences from standard json.Marshal:
//  1. Object keys sorted by UTF-16 code units (RFC 8785), not UTF-8 bytes
//  2. No HTML escaping (< > & stay literal)
//  3. Strings NFC normalized
//  4. Numbers in shortest round-trip fixed notation (5.0 -> "5", 5.50 -> "5.5");
//     NaN and Inf are rejected
//  5. No null anywhere - absent fields are omitted, never null
//
// v may be any JSON-marshalable value; struct tags apply as usual.
func MarshalCanonical(v any) ([]byte, error) {
	plain, err := encodePlain(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodePlain marshals v without HTML escaping. The round trip through a
// plain encoding lets canonicalization honor json struct tags without
// reflecting over every record type itself.
func encodePlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("canonical: null is forbidden; omit absent fields instead")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		s, err := canonicalString(val)
		if err != nil {
			return err
		}
		buf.Write(s)
		return nil
	case json.Number:
		n, err := canonicalNumber(val)
		if err != nil {
			return err
		}
		buf.Write(n)
		return nil
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		buf.WriteByte('{')
		keys := sortedKeysRFC8785(val)
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := canonicalString(k)
			if err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("canonical: unsupported type %T", v)
	}
}

// canonicalNumber renders a number in shortest round-trip fixed notation.
// Integer-looking text passes through untouched; everything else is parsed
// as float64 and re-rendered, so "5.50" and "5.5" canonicalize identically.
func canonicalNumber(n json.Number) ([]byte, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if s == "-0" {
			s = "0"
		}
		return []byte(s), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("canonical: bad number %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("canonical: non-finite number %q", s)
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if out == "-0" {
		out = "0"
	}
	return []byte(out), nil
}

// canonicalString produces a canonical JSON string: NFC normalized, no HTML
// escaping, and U+2028/U+2029 left literal per RFC 8785 (Go's encoder
// escapes them for JavaScript embedding, which we undo).
func canonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}
	result := bytes.TrimRight(buf.Bytes(), "\n")
	return unescapeLineSeps(result), nil
}

// unescapeLineSeps rewrites   and   escapes to literal characters.
// Escaped-backslash pairs are consumed first so a literal " " in source
// text (encoded as \\u2028) survives untouched.
func unescapeLineSeps(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if data[i] == '\\' && i+1 < len(data) {
			next := data[i+1]
			if next == '\\' {
				out = append(out, '\\', '\\')
				i += 2
				continue
			}
			if next == 'u' && i+6 <= len(data) &&
				data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
				(data[i+5] == '8' || data[i+5] == '9') {
				if data[i+5] == '8' {
					out = append(out, " "...)
				} else {
					out = append(out, " "...)
				}
				i += 6
				continue
			}
		}
		out = append(out, data[i])
		i++
	}
	return out
}

// sortedKeysRFC8785 returns map keys in RFC 8785 canonical order.
// CRITICAL: Go's sort.Strings compares UTF-8 bytes, which orders some
// non-BMP keys differently; RFC 8785 requires UTF-16 code unit order.
func sortedKeysRFC8785(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units, surrogates
// included, as RFC 8785 requires.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
