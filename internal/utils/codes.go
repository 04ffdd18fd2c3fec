package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math/big"
)

var authCodeSpace = big.NewInt(1000000)

// NewAuthCode returns a 6-digit one-time code from crypto/rand.
// Six digits are enough only together with the attempt ceiling and
// the short TTL enforced by the verification service.
func NewAuthCode() (string, error) {
	n, err := rand.Int(rand.Reader, authCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

var invitationEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewInvitationCode returns an unguessable invitation code
// (80 random bits, base32).
func NewInvitationCode() (string, error) {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return invitationEncoding.EncodeToString(b), nil
}
