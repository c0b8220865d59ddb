package utils // package utils provides small helpers shared across handlers

import (
    "crypto/sha256" // SHA-256 hashing for voter fingerprints
    "encoding/hex"  // hex encoding of the digest
    "strings"       // joining the fingerprint inputs
)

// VoterFingerprint derives the anonymous voter identity used for
// double-vote detection.  Only the SHA-256 hash of address and user agent
// is ever stored, so vote rows cannot be mapped back to a reader.
func VoterFingerprint(ip, userAgent string) string {
    sum := sha256.Sum256([]byte(strings.Join([]string{ip, userAgent}, "|")))
    return hex.EncodeToString(sum[:])
}
