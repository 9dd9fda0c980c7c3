package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const keyPrefix = "cm-v1"

// ParseAPIKey splits an API key into its parts.
// Format: cm-v1-<secret_id>-<random_data>-<signature> (168 chars total).
// Returns ErrInvalidKeyFormat if format doesn't match.
func ParseAPIKey(key string) (secretID, randomData, signature string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 5 {
		return "", "", "", ErrInvalidKeyFormat
	}
	if parts[0] != "cm" || parts[1] != "v1" {
		return "", "", "", ErrInvalidKeyFormat
	}

	secretID, randomData, signature = parts[2], parts[3], parts[4]

	// secret_id is a UUID without hyphens; random data and signature are 256 bits each
	if len(secretID) != 32 || len(randomData) != 64 || len(signature) != 64 {
		return "", "", "", ErrInvalidKeyFormat
	}
	if !isLowerHex(secretID + randomData + signature) {
		return "", "", "", ErrInvalidKeyFormat
	}

	return secretID, randomData, signature, nil
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// ComputeHMAC computes HMAC-SHA256 of message using secret.
func ComputeHMAC(secret []byte, message string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(message))
	return h.Sum(nil)
}

// VerifyHMAC verifies HMAC signature using constant-time comparison.
func VerifyHMAC(expectedHash, computedHash []byte) bool {
	return hmac.Equal(expectedHash, computedHash)
}

// FormatAPIKey constructs a signed API key from its unsigned parts.
func FormatAPIKey(secret []byte, secretID, randomData string) string {
	unsigned := fmt.Sprintf("%s-%s-%s", keyPrefix, secretID, randomData)
	return unsigned + "-" + hex.EncodeToString(ComputeHMAC(secret, unsigned))
}

// GenerateAPIKey creates a new key signed by the given secret.
func GenerateAPIKey(secretID string, secret []byte) (string, error) {
	if len(secretID) != 32 || !isLowerHex(secretID) {
		return "", fmt.Errorf("secret_id must be 32 lowercase hex chars")
	}
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return FormatAPIKey(secret, secretID, hex.EncodeToString(random)), nil
}
