package transcript

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func validDoc() map[string]interface{} {
	return map[string]interface{}{
		"transcript_version":     Version,
		"transcript_id":          "t-1",
		"intent_id":              "intent-success1-test",
		"intent_type":            "swap",
		"created_at_ms":          json.Number("1000000000000"),
		"policy_hash":            "abc",
		"strategy_hash":          "def",
		"identity_snapshot_hash": "ghi",
		"rounds": []interface{}{
			map[string]interface{}{
				"round_number":         json.Number("0"),
				"round_type":           "INTENT",
				"message_hash":         "a",
				"envelope_hash":        "b",
				"timestamp_ms":         json.Number("1000000000000"),
				"previous_round_hash":  "c",
				"round_hash":           "d",
				"agent_id":             "buyer-1",
				"public_key_b58":       "pub",
				"signature": map[string]interface{}{
					"signer_public_key_b58": "pub",
					"signature_b58":         "sig",
					"signed_hash":           "h",
					"scheme":                "ed25519",
				},
			},
		},
	}
}

func TestValidateStructureAcceptsWellFormedDoc(t *testing.T) {
	require.NoError(t, ValidateStructure(validDoc()))
}

func TestValidateStructureRejectsWrongVersion(t *testing.T) {
	doc := validDoc()
	doc["transcript_version"] = "pact-transcript/3.0"
	require.Error(t, ValidateStructure(doc))
}

func TestValidateStructureRejectsMissingRounds(t *testing.T) {
	doc := validDoc()
	delete(doc, "rounds")
	require.Error(t, ValidateStructure(doc))
}

func TestValidateStructureRejectsUnknownRoundType(t *testing.T) {
	doc := validDoc()
	rounds := doc["rounds"].([]interface{})
	round := rounds[0].(map[string]interface{})
	round["round_type"] = "NOT_A_ROUND_TYPE"
	require.Error(t, ValidateStructure(doc))
}
