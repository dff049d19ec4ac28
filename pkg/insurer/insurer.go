// Package insurer produces the coverage decision and risk-tier summary
// (C9) an underwriter reads alongside the GC view: a total function
// from judgment + integrity to a coverage verdict, plus an extension
// point for supplemental risk flags evaluated with CEL so a deployment
// can add underwriting rules without recompiling the resolver.
package insurer

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/replay"
)

const Version = "insurer-summary/1.0"

type Coverage string

const (
	Covered               Coverage = "COVERED"
	CoveredWithSurcharge  Coverage = "COVERED_WITH_SURCHARGE"
	EscrowRequired        Coverage = "ESCROW_REQUIRED"
	Excluded              Coverage = "EXCLUDED"
)

type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// Summary is the rendered insurer-facing artifact.
type Summary struct {
	Version    string   `json:"version"`
	Coverage   Coverage `json:"coverage"`
	Tier       Tier     `json:"tier"`
	RiskFlags  []string `json:"risk_flags"`
	Rationale  string   `json:"rationale"`
}

// Decide is the total coverage function: every (integrity, judgment)
// combination maps to exactly one Coverage, with no fallthrough error
// case.
func Decide(rep *replay.Result, j *dbl.Judgment) Coverage {
	switch {
	case rep.IntegrityStatus != replay.StatusValid:
		return Excluded
	case j.DBLDetermination == dbl.IndeterminateTamper:
		return Excluded
	case hasDoubleCommitFlag(j):
		return Excluded
	case j.DBLDetermination == dbl.NoFault:
		return Covered
	case j.DBLDetermination == dbl.ProviderAtFault || j.DBLDetermination == dbl.ProviderRailAtFault:
		return CoveredWithSurcharge
	case j.DBLDetermination == dbl.Indeterminate && j.RequiredNextActor == dbl.ActorArbiter:
		return EscrowRequired
	default:
		return Excluded
	}
}

func hasDoubleCommitFlag(j *dbl.Judgment) bool {
	if j.FailureCode == nil {
		return false
	}
	return *j.FailureCode == "PACT-331"
}

// TierFromPassportDelta maps the single-transcript passport-score
// delta to an underwriting tier.
func TierFromPassportDelta(delta float64) Tier {
	switch {
	case delta >= 0.20:
		return TierA
	case delta <= -0.10:
		return TierD
	case delta < 0:
		return TierC
	default:
		return TierB
	}
}

// RiskFlag is one supplemental finding produced by a CEL expression
// evaluated against the judgment and replay result.
type RiskFlag struct {
	Name       string
	Expression string
}

// DefaultRiskFlags are the in-binary supplemental rules. Each
// expression sees `confidence`, `passport_impact`, `determination`,
// and `rounds_verified` as CEL variables.
var DefaultRiskFlags = []RiskFlag{
	{Name: "LOW_CONFIDENCE", Expression: `confidence < 0.80`},
	{Name: "THIN_CHAIN", Expression: `rounds_verified < 2`},
	{Name: "NEGATIVE_PASSPORT_IMPACT", Expression: `passport_impact < 0.0`},
}

// EvaluateRiskFlags runs flags against rep/j and returns the sorted
// names of every flag whose expression evaluates true. A flag whose
// expression fails to compile or evaluate is skipped, never fatal —
// underwriting rules are supplemental, not load-bearing for C7/C8.
func EvaluateRiskFlags(rep *replay.Result, j *dbl.Judgment, flags []RiskFlag) ([]string, error) {
	env, err := cel.NewEnv(
		cel.Variable("confidence", cel.DoubleType),
		cel.Variable("passport_impact", cel.DoubleType),
		cel.Variable("determination", cel.StringType),
		cel.Variable("rounds_verified", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("insurer: build CEL env: %w", err)
	}

	vars := map[string]interface{}{
		"confidence":      j.Confidence,
		"passport_impact": j.PassportImpact,
		"determination":   string(j.DBLDetermination),
		"rounds_verified": int64(rep.RoundsVerified),
	}

	var triggered []string
	for _, f := range flags {
		ok, err := evalBoolFlag(env, f.Expression, vars)
		if err != nil {
			continue
		}
		if ok {
			triggered = append(triggered, f.Name)
		}
	}
	sort.Strings(triggered)
	return triggered, nil
}

func evalBoolFlag(env *cel.Env, expr string, vars map[string]interface{}) (bool, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return false, iss.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, err
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("insurer: risk flag expression did not evaluate to bool: %v", out)
	}
	return bool(b), nil
}

// Render composes the full insurer summary, including passportDelta
// (the same single-transcript delta C7 computed) for tiering.
func Render(rep *replay.Result, j *dbl.Judgment, passportDelta float64, flags []RiskFlag) (*Summary, error) {
	if flags == nil {
		flags = DefaultRiskFlags
	}
	riskFlags, err := EvaluateRiskFlags(rep, j, flags)
	if err != nil {
		return nil, err
	}
	coverage := Decide(rep, j)
	tier := TierFromPassportDelta(passportDelta)
	return &Summary{
		Version:   Version,
		Coverage:  coverage,
		Tier:      tier,
		RiskFlags: riskFlags,
		Rationale: rationale(coverage, j),
	}, nil
}

func rationale(c Coverage, j *dbl.Judgment) string {
	switch c {
	case Covered:
		return "No fault found against an intact signed chain."
	case CoveredWithSurcharge:
		return fmt.Sprintf("%s with an otherwise intact signed chain.", j.DBLDetermination)
	case EscrowRequired:
		return "Deadlock pending arbiter escalation; funds held in escrow."
	default:
		return "Excluded: compromised integrity, tamper indication, or a flagged double commit."
	}
}
