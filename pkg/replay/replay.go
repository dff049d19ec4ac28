// Package replay implements the transcript replay engine (C5): linear
// validation of a signed round chain, Last Valid Signed Hash (LVSH)
// discovery, and the container-hash convenience check.
package replay

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/pactaudit/pactaudit/pkg/canon"
	"github.com/pactaudit/pactaudit/pkg/crypto"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

// ErrorType is the replay error taxonomy. Structural errors invalidate
// the chain; FINAL_HASH_MISMATCH and TIMESTAMP_NON_MONOTONIC are
// partial-confidence conditions only.
type ErrorType string

const (
	ErrSignatureInvalid      ErrorType = "SIGNATURE_INVALID"
	ErrHashChainBroken       ErrorType = "HASH_CHAIN_BROKEN"
	ErrFinalHashMismatch     ErrorType = "FINAL_HASH_MISMATCH"
	ErrTimestampNonMonotonic ErrorType = "TIMESTAMP_NON_MONOTONIC"
	ErrRoundSequenceInvalid  ErrorType = "ROUND_SEQUENCE_INVALID"
	ErrInvalidStructure      ErrorType = "INVALID_STRUCTURE"
)

// IntegrityStatus summarizes the outcome of a replay.
type IntegrityStatus string

const (
	StatusValid    IntegrityStatus = "VALID"
	StatusTampered IntegrityStatus = "TAMPERED" // reserved for bundle-level call sites
	StatusInvalid  IntegrityStatus = "INVALID"
	StatusPartial  IntegrityStatus = "PARTIAL"
)

// Error is a single replay finding.
type Error struct {
	Type        ErrorType `json:"type"`
	RoundNumber *int      `json:"round_number,omitempty"`
	Message     string    `json:"message"`
}

// Result is the output of replaying one transcript.
type Result struct {
	OK                     bool            `json:"ok"`
	IntegrityStatus        IntegrityStatus `json:"integrity_status"`
	Errors                 []Error         `json:"errors"`
	Warnings               []string        `json:"warnings,omitempty"`
	SignatureVerifications int             `json:"signature_verifications"`
	HashChainVerifications int             `json:"hash_chain_verifications"`
	RoundsVerified         int             `json:"rounds_verified"`

	// LastValidRound/LastValidHash are the LVSH anchor consumed by the
	// DBL resolver (C7). -1 / "" mean no round verified contiguously
	// from round 0.
	LastValidRound int    `json:"last_valid_round"`
	LastValidHash  string `json:"last_valid_hash,omitempty"`
}

func intPtr(i int) *int { return &i }

// Engine replays transcripts using an injected hashing capability, so
// both a synchronous and an asynchronous SHA-256 backend can drive it.
type Engine struct {
	hasher      crypto.Hasher
	asyncHasher crypto.AsyncHasher
}

// NewEngine returns an Engine backed by the default synchronous hasher.
func NewEngine() *Engine {
	return &Engine{hasher: crypto.NewSyncHasher()}
}

// NewEngineWithHasher returns an Engine backed by a caller-supplied
// synchronous Hasher.
func NewEngineWithHasher(h crypto.Hasher) *Engine {
	return &Engine{hasher: h}
}

// NewEngineWithAsyncHasher returns an Engine that suspends at every
// hash call, driven by an AsyncHasher.
func NewEngineWithAsyncHasher(h crypto.AsyncHasher) *Engine {
	return &Engine{asyncHasher: h}
}

func (e *Engine) hashHex(ctx context.Context, data []byte) (string, error) {
	if e.asyncHasher != nil {
		out, errc := e.asyncHasher.Sum256Async(ctx, data)
		select {
		case sum := <-out:
			return hex.EncodeToString(sum[:]), nil
		case err := <-errc:
			if err != nil {
				return "", err
			}
			return "", fmt.Errorf("replay: async hasher produced no result")
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	sum := e.hasher.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (e *Engine) canonHashHex(ctx context.Context, v interface{}) (string, error) {
	b, err := canon.Canonicalize(v)
	if err != nil {
		return "", err
	}
	return e.hashHex(ctx, b)
}

// Replay runs the full C5 algorithm against t using the default
// synchronous hasher.
func Replay(t *transcript.Transcript) (*Result, error) {
	return NewEngine().Replay(context.Background(), t)
}

// Replay runs the full C5 algorithm against t.
func (e *Engine) Replay(ctx context.Context, t *transcript.Transcript) (*Result, error) {
	res := &Result{
		OK:             false,
		Errors:         []Error{},
		Warnings:       []string{},
		LastValidRound: -1,
	}

	// 1. Structural check.
	if t.TranscriptVersion != transcript.Version {
		res.Errors = append(res.Errors, Error{
			Type:    ErrInvalidStructure,
			Message: fmt.Sprintf("unsupported transcript_version %q", t.TranscriptVersion),
		})
		res.IntegrityStatus = StatusInvalid
		return res, nil
	}
	if len(t.Rounds) == 0 && t.FailureEvent == nil {
		res.Errors = append(res.Errors, Error{
			Type:    ErrInvalidStructure,
			Message: "rounds is empty and no failure_event explains it",
		})
		res.IntegrityStatus = StatusInvalid
		return res, nil
	}

	if len(t.Rounds) > 0 {
		// 2. Genesis hash.
		genesis, err := e.hashHex(ctx, []byte(t.IntentID+":"+strconv.FormatInt(t.CreatedAtMs, 10)))
		if err != nil {
			return nil, fmt.Errorf("replay: compute genesis hash: %w", err)
		}
		if t.Rounds[0].PreviousRoundHash != genesis {
			res.Errors = append(res.Errors, Error{
				Type:        ErrHashChainBroken,
				RoundNumber: intPtr(0),
				Message:     fmt.Sprintf("round[0].previous_round_hash %q does not match genesis %q", t.Rounds[0].PreviousRoundHash, genesis),
			})
		}

		contiguousValid := true

		// 3. Per-round verification.
		for i, round := range t.Rounds {
			roundOK := true

			if round.RoundNumber != i {
				res.Errors = append(res.Errors, Error{
					Type:        ErrRoundSequenceInvalid,
					RoundNumber: intPtr(i),
					Message:     fmt.Sprintf("round_number %d at index %d", round.RoundNumber, i),
				})
				roundOK = false
			}

			if i > 0 {
				prev := t.Rounds[i-1]
				if round.PreviousRoundHash != prev.RoundHash {
					res.Errors = append(res.Errors, Error{
						Type:        ErrHashChainBroken,
						RoundNumber: intPtr(i),
						Message:     fmt.Sprintf("round[%d].previous_round_hash does not match round[%d].round_hash", i, i-1),
					})
					roundOK = false
				}
				if round.TimestampMs < prev.TimestampMs {
					res.Errors = append(res.Errors, Error{
						Type:        ErrTimestampNonMonotonic,
						RoundNumber: intPtr(i),
						Message:     fmt.Sprintf("round[%d].timestamp_ms %d precedes round[%d].timestamp_ms %d", i, round.TimestampMs, i-1, prev.TimestampMs),
					})
					// Timestamp issues downgrade confidence but do not break contiguity.
				}
			}

			roundMap, err := transcript.ToGeneric(round)
			if err != nil {
				return nil, fmt.Errorf("replay: marshal round[%d]: %w", i, err)
			}

			// round_hash commits to the round's content only: it excludes
			// both itself and signature, since signature is derived from
			// round_hash and so cannot also feed it.
			expectedRoundHash, err := e.canonHashHex(ctx, canon.WithoutFields(roundMap, "round_hash", "signature"))
			if err != nil {
				return nil, fmt.Errorf("replay: hash round[%d]: %w", i, err)
			}
			if expectedRoundHash != round.RoundHash {
				res.Errors = append(res.Errors, Error{
					Type:        ErrHashChainBroken,
					RoundNumber: intPtr(i),
					Message:     fmt.Sprintf("round[%d].round_hash mismatch (expected %s, got %s)", i, expectedRoundHash, round.RoundHash),
				})
				roundOK = false
			} else {
				res.HashChainVerifications++
			}

			signatureDomainHash, err := e.canonHashHex(ctx, canon.WithoutField(roundMap, "signature"))
			if err != nil {
				return nil, fmt.Errorf("replay: hash round[%d] signature domain: %w", i, err)
			}
			sigOK, err := crypto.Ed25519Verify(round.Signature.SignerPublicKeyB58, round.Signature.SignatureB58, []byte(signatureDomainHash))
			if err != nil || !sigOK {
				msg := "signature verification failed"
				if err != nil {
					msg = err.Error()
				}
				res.Errors = append(res.Errors, Error{
					Type:        ErrSignatureInvalid,
					RoundNumber: intPtr(i),
					Message:     msg,
				})
				roundOK = false
			} else {
				res.SignatureVerifications++
			}

			res.RoundsVerified++

			if !roundOK {
				contiguousValid = false
			}
			if contiguousValid {
				res.LastValidRound = i
				res.LastValidHash = round.RoundHash
			}
		}
	}

	// 4. Container hash (convenience check; never resets LVSH).
	if t.FinalHash != "" {
		tMap, err := transcript.ToGeneric(t)
		if err != nil {
			return nil, fmt.Errorf("replay: marshal transcript: %w", err)
		}
		container, err := e.canonHashHex(ctx, canon.WithoutField(tMap, "final_hash"))
		if err != nil {
			return nil, fmt.Errorf("replay: hash transcript container: %w", err)
		}
		if container != t.FinalHash {
			res.Errors = append(res.Errors, Error{
				Type:    ErrFinalHashMismatch,
				Message: fmt.Sprintf("final_hash mismatch (expected %s, got %s)", container, t.FinalHash),
			})
		}
	}

	res.IntegrityStatus = classify(res.Errors)
	res.OK = res.IntegrityStatus == StatusValid

	sortErrors(res.Errors)
	return res, nil
}

func classify(errs []Error) IntegrityStatus {
	if len(errs) == 0 {
		return StatusValid
	}
	invalidating := map[ErrorType]bool{
		ErrHashChainBroken:      true,
		ErrSignatureInvalid:     true,
		ErrRoundSequenceInvalid: true,
		ErrInvalidStructure:     true,
	}
	for _, e := range errs {
		if invalidating[e.Type] {
			return StatusInvalid
		}
	}
	return StatusPartial
}

// sortErrors imposes a stable, deterministic order (by round number
// then type then message) so two replays of the same transcript always
// serialize identically regardless of internal iteration order.
func sortErrors(errs []Error) {
	sort.SliceStable(errs, func(i, j int) bool {
		ri, rj := roundOrMinusOne(errs[i]), roundOrMinusOne(errs[j])
		if ri != rj {
			return ri < rj
		}
		if errs[i].Type != errs[j].Type {
			return errs[i].Type < errs[j].Type
		}
		return errs[i].Message < errs[j].Message
	})
}

func roundOrMinusOne(e Error) int {
	if e.RoundNumber == nil {
		return -1
	}
	return *e.RoundNumber
}
