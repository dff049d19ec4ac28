package dbl

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ArbiterClaims is the payload of a transcript's arbiter_decision_ref
// JWT: a human arbiter's ruling on a PACT-303 escalation, signed by
// the arbiter service so the resolver never has to trust an
// unauthenticated override.
type ArbiterClaims struct {
	jwt.RegisteredClaims
	Determination string `json:"determination"`
	NextActor     string `json:"next_actor"`
}

// ResolveArbiterOverride applies a verified arbiter ruling to an
// ESCALATE judgment. It never lowers confidence below the original
// escalation and never applies an unverified or malformed token — an
// invalid arbiter_decision_ref leaves the original ESCALATE judgment
// untouched rather than failing the whole resolution.
func ResolveArbiterOverride(j *Judgment, arbiterDecisionRef string, verifyKey interface{}) (*Judgment, error) {
	if j.RequiredNextActor != ActorArbiter || j.RequiredAction != "ESCALATE" {
		return j, nil
	}
	if arbiterDecisionRef == "" {
		return j, nil
	}

	claims := &ArbiterClaims{}
	_, err := jwt.ParseWithClaims(arbiterDecisionRef, claims, func(t *jwt.Token) (interface{}, error) {
		return verifyKey, nil
	})
	if err != nil {
		return j, fmt.Errorf("dbl: arbiter_decision_ref did not verify, leaving ESCALATE in place: %w", err)
	}

	det, ok := determinationByName[claims.Determination]
	if !ok {
		return j, fmt.Errorf("dbl: arbiter_decision_ref names unknown determination %q", claims.Determination)
	}

	out := *j
	out.DBLDetermination = det
	out.Status = statusForDetermination(det)
	out.RequiredNextActor = ActorNone
	out.RequiredAction = "NONE"
	out.Terminal = true
	out.Recommendation = fmt.Sprintf("Arbiter decision %s applied.", claims.Determination)
	out.Notes = "resolved by verified arbiter_decision_ref"
	return &out, nil
}

var determinationByName = map[string]Determination{
	string(NoFault):             NoFault,
	string(BuyerAtFault):        BuyerAtFault,
	string(ProviderAtFault):     ProviderAtFault,
	string(BuyerRailAtFault):    BuyerRailAtFault,
	string(ProviderRailAtFault): ProviderRailAtFault,
	string(Indeterminate):       Indeterminate,
}

func statusForDetermination(d Determination) Status {
	if d == Indeterminate {
		return StatusIndeterminate
	}
	if d == NoFault {
		return StatusOK
	}
	return StatusFailed
}
