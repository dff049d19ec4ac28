// Package verifier implements the bundle verifier (C12): read back a
// bundle directory produced by pkg/evidence, compare every file
// against its declared content hash and checksums.sha256, check the
// constitution hash against the accepted registry, and then
// re-derive the judgment, GC view, and insurer summary from the
// bundle's own contained transcript and byte-compare each against what
// was stored. The optional passport snapshot and contention report are
// checked by content hash only.
//
// Trust model: the verifier reads only the bundle it was pointed at.
// It trusts nothing about how the bundle was produced or where it was
// fetched from — a tampering attack that rewrites a derived artifact
// and regenerates checksums.sha256 to match is still caught, because
// the recompute gate treats the derived artifacts as pure functions
// of the checksummed transcript, not as additional ground truth.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pactaudit/pactaudit/pkg/canon"
	"github.com/pactaudit/pactaudit/pkg/constitution"
	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/evidence"
	"github.com/pactaudit/pactaudit/pkg/gcview"
	"github.com/pactaudit/pactaudit/pkg/insurer"
	"github.com/pactaudit/pactaudit/pkg/replay"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

// VerifierVersion is the result format version.
const VerifierVersion = "auditor_pack_verify/1.0"

// Report is the final C12 output.
type Report struct {
	Version     string   `json:"version"`
	OK          bool     `json:"ok"`
	ChecksumsOK bool     `json:"checksums_ok"`
	RecomputeOK bool     `json:"recompute_ok"`
	Mismatches  []string `json:"mismatches"`
	ToolVersion string   `json:"tool_version"`
}

// Options controls non-default verification behavior.
type Options struct {
	AllowNonstandard bool
	ConstitutionReg  *constitution.Registry // nil uses constitution.DefaultRegistry()
}

// VerifyBundle reads the bundle from store and runs the full C12
// algorithm.
func VerifyBundle(ctx context.Context, store evidence.BlobStore, opts Options) (*Report, error) {
	report := &Report{
		Version:     VerifierVersion,
		Mismatches:  []string{},
		ToolVersion: evidence.ToolVersion,
	}

	manifestRaw, err := store.ReadFile(ctx, "MANIFEST.json")
	if err != nil {
		report.Mismatches = append(report.Mismatches, "MISSING_MANIFEST")
		return report, nil
	}

	var manifest evidence.Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		report.Mismatches = append(report.Mismatches, fmt.Sprintf("MISSING_MANIFEST: %v", err))
		return report, nil
	}

	checksumsOK, mismatches := checkFiles(ctx, store, &manifest)
	report.ChecksumsOK = checksumsOK
	report.Mismatches = append(report.Mismatches, mismatches...)

	if err := checkConstitution(manifest.ConstitutionHash, opts); err != nil {
		report.Mismatches = append(report.Mismatches, err.Error())
	}

	recomputeOK, recomputeMismatches, err := checkRecompute(ctx, store, &manifest)
	if err != nil {
		report.Mismatches = append(report.Mismatches, fmt.Sprintf("RECOMPUTE_ERROR: %v", err))
	} else {
		report.RecomputeOK = recomputeOK
		report.Mismatches = append(report.Mismatches, recomputeMismatches...)
	}

	sort.Strings(report.Mismatches)
	report.OK = len(report.Mismatches) == 0
	return report, nil
}

// checkFiles verifies every manifest entry's content hash and
// cross-checks checksums.sha256 against the same set.
func checkFiles(ctx context.Context, store evidence.BlobStore, manifest *evidence.Manifest) (bool, []string) {
	var mismatches []string
	ok := true

	for _, e := range manifest.Entries {
		data, err := store.ReadFile(ctx, e.Path)
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("Missing file: %s", e.Path))
			ok = false
			continue
		}
		if canon.HashBytes(data) != e.ContentHash {
			mismatches = append(mismatches, fmt.Sprintf("Hash mismatch: %s", e.Path))
			ok = false
		}
	}

	sumsRaw, err := store.ReadFile(ctx, "checksums.sha256")
	if err != nil {
		mismatches = append(mismatches, "Missing file: checksums.sha256")
		return false, mismatches
	}
	declared := map[string]string{}
	for _, line := range strings.Split(strings.TrimRight(string(sumsRaw), "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "  ", 2)
		if len(parts) != 2 {
			mismatches = append(mismatches, fmt.Sprintf("Malformed checksums.sha256 line: %q", line))
			ok = false
			continue
		}
		declared[parts[1]] = parts[0]
	}
	for _, e := range manifest.Entries {
		h, present := declared[e.Path]
		if !present {
			mismatches = append(mismatches, fmt.Sprintf("checksums.sha256 missing entry: %s", e.Path))
			ok = false
			continue
		}
		if h != e.ContentHash {
			mismatches = append(mismatches, fmt.Sprintf("checksums.sha256 disagrees with manifest: %s", e.Path))
			ok = false
		}
	}

	return ok, mismatches
}

func checkConstitution(hash string, opts Options) error {
	reg := opts.ConstitutionReg
	if reg == nil {
		reg = constitution.DefaultRegistry()
	}
	if err := constitution.CheckHash(hash, reg); err != nil {
		if opts.AllowNonstandard {
			return nil
		}
		return err
	}
	return nil
}

// checkRecompute re-runs C5/C7/C8/C9 against the bundle's own
// contained transcript and compares the result, byte-for-byte after
// canonicalization, against what the bundle shipped.
func checkRecompute(ctx context.Context, store evidence.BlobStore, manifest *evidence.Manifest) (bool, []string, error) {
	inputPath := "input/ORIGINAL.json"
	if manifest.View != evidence.ViewInternal {
		inputPath = "input/VIEW.json"
	}
	inputRaw, err := store.ReadFile(ctx, inputPath)
	if err != nil {
		return false, []string{fmt.Sprintf("Missing file: %s", inputPath)}, nil
	}

	var t transcript.Transcript
	if err := json.Unmarshal(inputRaw, &t); err != nil {
		return false, nil, fmt.Errorf("unmarshal %s: %w", inputPath, err)
	}

	rep, err := replay.Replay(&t)
	if err != nil {
		return false, nil, fmt.Errorf("replay: %w", err)
	}
	judgment, err := dbl.Judge(&t, rep)
	if err != nil {
		return false, nil, fmt.Errorf("judge: %w", err)
	}
	view := gcview.Render(&t, rep, judgment, nil)
	summary, err := insurer.Render(rep, judgment, judgment.PassportImpact, nil)
	if err != nil {
		return false, nil, fmt.Errorf("insurer summary: %w", err)
	}

	var mismatches []string
	if err := compareDerived(ctx, store, "derived/judgment.json", judgment, &mismatches); err != nil {
		return false, nil, err
	}
	if err := compareDerived(ctx, store, "derived/gc_view.json", view, &mismatches); err != nil {
		return false, nil, err
	}
	if err := compareDerived(ctx, store, "derived/insurer_summary.json", summary, &mismatches); err != nil {
		return false, nil, err
	}

	return len(mismatches) == 0, mismatches, nil
}

func compareDerived(ctx context.Context, store evidence.BlobStore, path string, recomputed interface{}, mismatches *[]string) error {
	stored, err := store.ReadFile(ctx, path)
	if err != nil {
		*mismatches = append(*mismatches, fmt.Sprintf("Missing file: %s", path))
		return nil
	}
	generic, err := transcript.ToGeneric(recomputed)
	if err != nil {
		return fmt.Errorf("marshal recomputed %s: %w", path, err)
	}
	recomputedCanonical, err := canon.Canonicalize(generic)
	if err != nil {
		return fmt.Errorf("canonicalize recomputed %s: %w", path, err)
	}
	storedGeneric, err := canon.Parse(stored)
	if err != nil {
		*mismatches = append(*mismatches, fmt.Sprintf("Hash mismatch: %s", path))
		return nil
	}
	storedCanonical, err := canon.Canonicalize(storedGeneric)
	if err != nil {
		return fmt.Errorf("canonicalize stored %s: %w", path, err)
	}
	if string(storedCanonical) != string(recomputedCanonical) {
		*mismatches = append(*mismatches, fmt.Sprintf("Recompute mismatch: %s", path))
	}
	return nil
}
