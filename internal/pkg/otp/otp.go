// Package otp generates and hashes one-time passcodes.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CodeLength is the fixed number of digits in every code.
const CodeLength = 6

// GenerateCode returns a random numeric code of CodeLength digits.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}

	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

// HashCode returns the one-way hash stored in place of the plaintext code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyCode compares a presented code against a stored hash in constant time.
func VerifyCode(storedHash, code string) bool {
	presented := HashCode(code)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(presented)) == 1
}
