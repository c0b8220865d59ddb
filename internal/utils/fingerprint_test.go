package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoterFingerprint(t *testing.T) {
	a := VoterFingerprint("203.0.113.7", "Mozilla/5.0")
	b := VoterFingerprint("203.0.113.7", "Mozilla/5.0")
	assert.Equal(t, a, b, "same caller must fingerprint identically")
	assert.Len(t, a, 64, "hex sha-256")

	assert.NotEqual(t, a, VoterFingerprint("203.0.113.8", "Mozilla/5.0"))
	assert.NotEqual(t, a, VoterFingerprint("203.0.113.7", "curl/8.0"))

	// The separator keeps "ab"+"c" and "a"+"bc" apart.
	assert.NotEqual(t, VoterFingerprint("ab", "c"), VoterFingerprint("a", "bc"))
}
