// Package codes generates short human-typed codes such as team invite codes.
package codes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// InviteAlphabet omits characters that are easy to misread (0, O, 1, I).
const InviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InviteLength is the number of characters in a generated invite code.
const InviteLength = 6

// NewInviteCode returns a random code of InviteLength characters drawn uniformly from InviteAlphabet.
func NewInviteCode() (string, error) {
	return generate(InviteAlphabet, InviteLength)
}

// NewUniqueInviteCode draws codes until exists reports the code is free, up to maxAttempts draws.
func NewUniqueInviteCode(exists func(code string) (bool, error), maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 32
	}
	for i := 0; i < maxAttempts; i++ {
		code, err := NewInviteCode()
		if err != nil {
			return "", err
		}
		taken, err := exists(code)
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free invite code after %d attempts", maxAttempts)
}

// NormalizeInviteCode upper-cases and trims a user-typed code.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generate(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}
