// Package evidence builds and reads the evidence bundle (C11): a
// deterministic directory of the transcript (or a redacted view of
// it), the constitution text it was judged under, every derived
// artifact (C5/C7/C8/C9 outputs), a manifest binding them together by
// content hash, and a plain-language summary.
package evidence

import "time"

// View selects which audience a bundle is generated for. Internal
// carries the transcript unredacted; Partner and Auditor redact
// policy_hash and strategy_hash per the redaction rules in redact.go.
type View string

const (
	ViewInternal View = "internal"
	ViewPartner  View = "partner"
	ViewAuditor  View = "auditor"
)

// ManifestVersion is the format version recorded in every MANIFEST.json.
const ManifestVersion = "evidence-bundle/1.0"

// Entry is one file tracked in the manifest, keyed by its
// bundle-relative path.
type Entry struct {
	Path        string `json:"path"`
	ContentHash string `json:"content_hash"`
	Bytes       int    `json:"bytes"`
}

// RedactedField records one field that was replaced in a non-internal
// view, so a reader can tell a redaction from tampering without the
// manifest itself leaking the value it redacted.
type RedactedField struct {
	Path       string `json:"path"`
	Substitute string `json:"substitute"`
}

// Manifest is MANIFEST.json. BundleID is computed last, over every
// other field, and then folded back in — the one field a manifest
// cannot include in its own hash domain.
type Manifest struct {
	Version           string          `json:"version"`
	BundleID          string          `json:"bundle_id"`
	TranscriptID      string          `json:"transcript_id"`
	View              View            `json:"view"`
	GeneratedAtMs     int64           `json:"generated_at_ms"`
	ConstitutionHash  string          `json:"constitution_hash"`
	Entries           []Entry         `json:"entries"`
	RedactedFields    []RedactedField `json:"redacted_fields,omitempty"`
	ToolVersion       string          `json:"tool_version"`
}

// ToolVersion is embedded in every manifest and verify report, so a
// bundle can be traced back to the generator that produced it.
const ToolVersion = "pactaudit/1.0"

// Clock abstracts wall-clock time so bundle generation stays
// deterministic under test, mirroring pkg/envelope's injectable-clock
// convention.
type Clock func() int64

// SystemClock returns the current time in milliseconds since epoch.
func SystemClock() int64 { return time.Now().UnixMilli() }
