package evidence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pactaudit/pactaudit/pkg/canon"
	"github.com/pactaudit/pactaudit/pkg/constitution"
	"github.com/pactaudit/pactaudit/pkg/contention"
	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/gcview"
	"github.com/pactaudit/pactaudit/pkg/insurer"
	"github.com/pactaudit/pactaudit/pkg/replay"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

// BuildInput is everything Build needs to assemble a bundle. Every
// derived artifact is recomputed here, against whichever transcript
// the chosen View actually ships — never borrowed from a caller's own
// prior computation — so a verifier reading only the bundle can
// recompute the identical thing.
type BuildInput struct {
	Transcript       *transcript.Transcript
	View             View
	ConstitutionReg  *constitution.Registry // nil uses constitution.DefaultRegistry()
	PassportSnapshot interface{}             // optional, opaque to this package
	ContentionReport *contention.Report      // optional
	Now              Clock                   // nil uses SystemClock
}

// Bundle is the in-memory result of Build: every file keyed by its
// bundle-relative path, plus the manifest describing them.
type Bundle struct {
	Manifest *Manifest
	Files    map[string][]byte
}

// Build runs C5/C7/C8/C9 against the (possibly redacted) transcript
// for View, assembles the fixed directory layout, and computes the
// manifest and bundle_id. It never mutates input.Transcript.
func Build(input BuildInput) (*Bundle, error) {
	if input.Transcript == nil {
		return nil, fmt.Errorf("evidence: transcript is required")
	}
	view := input.View
	if view == "" {
		view = ViewInternal
	}
	now := input.Now
	if now == nil {
		now = SystemClock
	}
	reg := input.ConstitutionReg
	if reg == nil {
		reg = constitution.DefaultRegistry()
	}

	bundleTranscript, redactedFields := redact(input.Transcript, view)

	rep, err := replay.Replay(bundleTranscript)
	if err != nil {
		return nil, fmt.Errorf("evidence: replay: %w", err)
	}
	judgment, err := dbl.Judge(bundleTranscript, rep)
	if err != nil {
		return nil, fmt.Errorf("evidence: judge: %w", err)
	}
	gcv := gcview.Render(bundleTranscript, rep, judgment, reg)
	summary, err := insurer.Render(rep, judgment, judgment.PassportImpact, nil)
	if err != nil {
		return nil, fmt.Errorf("evidence: insurer summary: %w", err)
	}

	files := map[string][]byte{}

	loaded := constitution.Load(constitution.DefaultText(), reg)
	files["constitution/CONSTITUTION_v1.md"] = []byte(loaded.CanonicalText)

	inputJSON, err := canonicalJSON(bundleTranscript)
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal input: %w", err)
	}
	inputPath := "input/ORIGINAL.json"
	if view != ViewInternal {
		inputPath = "input/VIEW.json"
	}
	files[inputPath] = inputJSON

	gcJSON, err := canonicalJSON(gcv)
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal gc_view: %w", err)
	}
	files["derived/gc_view.json"] = gcJSON

	judgmentJSON, err := canonicalJSON(judgment)
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal judgment: %w", err)
	}
	files["derived/judgment.json"] = judgmentJSON

	insurerJSON, err := canonicalJSON(summary)
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal insurer_summary: %w", err)
	}
	files["derived/insurer_summary.json"] = insurerJSON

	if input.PassportSnapshot != nil {
		b, err := canonicalJSON(input.PassportSnapshot)
		if err != nil {
			return nil, fmt.Errorf("evidence: marshal passport_snapshot: %w", err)
		}
		files["derived/passport_snapshot.json"] = b
	}
	if input.ContentionReport != nil {
		b, err := canonicalJSON(input.ContentionReport)
		if err != nil {
			return nil, fmt.Errorf("evidence: marshal contention_report: %w", err)
		}
		files["derived/contention_report.json"] = b
	}

	files["SUMMARY.md"] = []byte(renderSummaryMarkdown(bundleTranscript, rep, judgment, gcv, summary, view))

	entries := make([]Entry, 0, len(files))
	for path, data := range files {
		entries = append(entries, Entry{Path: path, ContentHash: canon.HashBytes(data), Bytes: len(data)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	manifest := &Manifest{
		Version:          ManifestVersion,
		TranscriptID:     bundleTranscript.TranscriptID,
		View:             view,
		GeneratedAtMs:    now(),
		ConstitutionHash: loaded.Hash,
		Entries:          entries,
		RedactedFields:   redactedFields,
		ToolVersion:      ToolVersion,
	}
	manifest.BundleID, err = computeBundleID(manifest)
	if err != nil {
		return nil, fmt.Errorf("evidence: compute bundle_id: %w", err)
	}

	manifestJSON, err := canonicalJSON(manifest)
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal manifest: %w", err)
	}
	files["MANIFEST.json"] = manifestJSON
	files["checksums.sha256"] = checksumsFile(entries)

	return &Bundle{Manifest: manifest, Files: files}, nil
}

// computeBundleID hashes the canonical manifest with bundle_id
// excluded from its own domain, mirroring round_hash's self-exclusion
// in pkg/replay, then prefixes the digest so a bundle_id is
// recognizable by shape alone.
func computeBundleID(m *Manifest) (string, error) {
	generic, err := transcript.ToGeneric(m)
	if err != nil {
		return "", err
	}
	h, err := canon.Hash(canon.WithoutField(generic, "bundle_id"))
	if err != nil {
		return "", err
	}
	return "bundle-" + h, nil
}

// checksumsFile renders checksums.sha256: two-space-separated
// "<hex-hash>  <relative-path>" lines, sorted by path, trailing
// newline — the same record shape `sha256sum` itself emits, so the
// file can be verified with either tool.
func checksumsFile(entries []Entry) []byte {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s\n", e.ContentHash, e.Path)
	}
	return []byte(b.String())
}

func canonicalJSON(v interface{}) ([]byte, error) {
	generic, err := transcript.ToGeneric(v)
	if err != nil {
		return nil, err
	}
	return canon.Canonicalize(generic)
}

// Persist writes every file in b, plus MANIFEST.json and
// checksums.sha256, through store.
func (b *Bundle) Persist(ctx context.Context, store BlobStore) error {
	paths := make([]string, 0, len(b.Files))
	for p := range b.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := store.WriteFile(ctx, p, b.Files[p]); err != nil {
			return fmt.Errorf("evidence: write %s: %w", p, err)
		}
	}
	return nil
}

func renderSummaryMarkdown(t *transcript.Transcript, rep *replay.Result, j *dbl.Judgment, v *gcview.View, s *insurer.Summary, view View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Evidence bundle: %s\n\n", t.TranscriptID)
	fmt.Fprintf(&b, "View: %s\n\n", view)
	fmt.Fprintf(&b, "Integrity status: %s\n\n", rep.IntegrityStatus)
	fmt.Fprintf(&b, "Determination: %s (confidence %.2f)\n\n", j.DBLDetermination, j.Confidence)
	fmt.Fprintf(&b, "Required next actor: %s — %s\n\n", j.RequiredNextActor, j.RequiredAction)
	fmt.Fprintf(&b, "Coverage: %s (tier %s)\n\n", s.Coverage, s.Tier)
	fmt.Fprintf(&b, "%s\n", v.ExecutiveSummary.Narrative)
	return b.String()
}
