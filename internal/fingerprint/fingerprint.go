// Package fingerprint computes canonical content hashes over sets of records,
// independent of row order, so redelivered files can be recognized.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

const (
	fieldDelimiter = "|"
	rowSeparator   = "\n"
)

// Row is one record contributing to a fingerprint. Tag discriminates the
// record family ("CAB", "POS", ...); Keys are the business key fields used for
// ordering; Fields are the remaining values.
type Row struct {
	Tag    string
	Keys   []string
	Fields []string
}

// Signature returns the canonical single-line form of the row: every value
// trimmed, joined by "|", tag first and keys before the other fields.
func (r Row) Signature() string {
	parts := make([]string, 0, 1+len(r.Keys)+len(r.Fields))
	parts = append(parts, normalize(r.Tag))
	for _, k := range r.Keys {
		parts = append(parts, normalize(k))
	}
	for _, f := range r.Fields {
		parts = append(parts, normalize(f))
	}
	return strings.Join(parts, fieldDelimiter)
}

// Canonical returns the sorted, newline-joined signatures of rows.
func Canonical(rows []Row) string {
	sigs := make([]string, len(rows))
	for i, r := range rows {
		sigs[i] = r.Signature()
	}
	sort.Strings(sigs)
	return strings.Join(sigs, rowSeparator)
}

// Compute returns the hex SHA-256 of the canonical form of rows.
func Compute(rows []Row) string {
	sum := sha256.Sum256([]byte(Canonical(rows)))
	return hex.EncodeToString(sum[:])
}

// normalize trims whitespace and strips delimiter characters so a field value
// cannot forge a field or row boundary.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, fieldDelimiter, " ")
	return strings.ReplaceAll(s, rowSeparator, " ")
}
