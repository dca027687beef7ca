package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet keys accepted by RandomString.
const (
	Lower  = "a-z"
	Upper  = "A-Z"
	Digits = "0-9"
	Symbol = "-_"
)

// TokenLength is the length of session tokens minted by NewSessionToken.
const TokenLength = 32

var alphabets = map[string]string{
	Lower:  "abcdefghijklmnopqrstuvwxyz",
	Upper:  "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	Digits: "0123456789",
	Symbol: "-_",
}

var allAlphabets = []string{Lower, Upper, Digits, Symbol}

// RandomString draws length characters uniformly from the union of the named
// alphabets using crypto/rand. All four alphabets are used when none are given.
//
// RandomString panics when length <= 0 or an alphabet key is unknown. Both are
// programmer errors; callers never pass attacker-controlled values here.
func RandomString(length int, sets ...string) string {
	if length <= 0 {
		panic(fmt.Sprintf("aegis/crypto: random string length must be > 0, got %d", length))
	}
	chars := charset(sets)

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(chars)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("aegis/crypto: read random: %v", err))
		}
		b.WriteByte(chars[n.Int64()])
	}
	return b.String()
}

// charset joins the named alphabets once each, in order of first mention.
func charset(sets []string) string {
	if len(sets) == 0 {
		sets = allAlphabets
	}
	seen := make(map[string]bool, len(sets))
	var b strings.Builder
	for _, key := range sets {
		chars, ok := alphabets[key]
		if !ok {
			panic(fmt.Sprintf("aegis/crypto: unknown alphabet %q", key))
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		b.WriteString(chars)
	}
	return b.String()
}

// NewSessionToken mints a 32-character alphanumeric session token.
func NewSessionToken() string {
	return RandomString(TokenLength, Lower, Upper, Digits)
}
