// Package linkcode generates the one-time linking codes handed to portal
// users out of band. Codes look like "AB3D5-FG7H9": two five-character
// groups drawn from an alphabet with the visually ambiguous characters
// 0, O, 1, I and L removed, so they survive being read over the phone.
package linkcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is every character a linking code may contain.
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	groupLen  = 5
	numGroups = 2
	separator = "-"
)

// New generates a fresh linking code.
func New() (string, error) {
	groups := make([]string, 0, numGroups)

	for range numGroups {
		var b strings.Builder
		for range groupLen {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(Alphabet))))
			if err != nil {
				return "", fmt.Errorf("linkcode: failed to read entropy: %w", err)
			}
			b.WriteByte(Alphabet[n.Int64()])
		}
		groups = append(groups, b.String())
	}

	return strings.Join(groups, separator), nil
}

// Normalize canonicalizes user input before lookup: trims whitespace and
// uppercases, so "ab3d5-fg7h9 " matches the stored code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the canonical XXXXX-XXXXX shape over the
// allowed alphabet.
func Valid(code string) bool {
	groups := strings.Split(code, separator)
	if len(groups) != numGroups {
		return false
	}
	for _, g := range groups {
		if len(g) != groupLen {
			return false
		}
		for i := 0; i < len(g); i++ {
			if !strings.ContainsRune(Alphabet, rune(g[i])) {
				return false
			}
		}
	}
	return true
}
