package envelope

import (
	"errors"
	"testing"

	"github.com/pactaudit/pactaudit/pkg/crypto"
	"github.com/stretchr/testify/require"
)

func TestSignThenVerify(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)

	msg := map[string]interface{}{
		"protocol_version": "pact-transcript/4.0",
		"type":             "INTENT",
		"intent_id":        "intent-success1-test",
	}

	env, err := Sign(msg, signer, 1000000000000)
	require.NoError(t, err)

	ok, err := Verify(env)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyDetectsHashMismatch(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)

	msg := map[string]interface{}{"type": "ASK"}
	env, err := Sign(msg, signer, 1)
	require.NoError(t, err)

	env.Message["type"] = "BID" // mutate after signing without resigning

	_, err = Verify(env)
	require.True(t, errors.Is(err, ErrHashMismatch))
}

func TestVerifyDetectsSignatureTamper(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)

	msg := map[string]interface{}{"type": "BID"}
	env, err := Sign(msg, signer, 1)
	require.NoError(t, err)

	other, err := crypto.NewEd25519Signer()
	require.NoError(t, err)
	env.SignatureB58 = other.SignB58([]byte(env.MessageHashHex))

	_, err = Verify(env)
	require.True(t, errors.Is(err, ErrSignatureInvalid))
}
