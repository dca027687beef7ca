package password

import (
	"errors"
	"fmt"
	"unicode"
)

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrPasswordTooLong is returned when the input exceeds the algorithm limit.
	ErrPasswordTooLong = errors.New("password exceeds algorithm limit")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Algorithm names accepted by [New].
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Policy rejects a password with a user-facing message.
type Policy func(password string) error

// Strategy is the full pluggable password strategy consumed by the auth
// flows. It is built once and shared.
type Strategy interface {
	Hasher
	Validate(password string) error
}

type strategy struct {
	Hasher
	policies []Policy
}

func (s strategy) Validate(password string) error {
	for _, p := range s.policies {
		if err := p(password); err != nil {
			return err
		}
	}
	return nil
}

// WithPolicy combines h with zero or more policies. Policies run in order
// and the first rejection wins.
func WithPolicy(h Hasher, policies ...Policy) Strategy {
	kept := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return strategy{Hasher: h, policies: kept}
}

// RequireCharacterClasses returns a Policy demanding at least n of the four
// character classes: lower case, upper case, digit and other.
func RequireCharacterClasses(n int) Policy {
	return func(password string) error {
		var lower, upper, digit, other bool
		for _, r := range password {
			switch {
			case unicode.IsLower(r):
				lower = true
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsDigit(r):
				digit = true
			default:
				other = true
			}
		}
		got := 0
		for _, ok := range []bool{lower, upper, digit, other} {
			if ok {
				got++
			}
		}
		if got < n {
			return fmt.Errorf("Password must mix at least %d of: lowercase, uppercase, digits, symbols.", n)
		}
		return nil
	}
}

// Config selects and parameterizes a hashing algorithm.
type Config struct {
	Algorithm  string
	Argon2     Argon2Params
	BcryptCost int
}

// DefaultConfig returns Argon2id with DefaultArgon2Params.
func DefaultConfig() Config {
	return Config{
		Algorithm: AlgorithmArgon2id,
		Argon2:    DefaultArgon2Params(),
	}
}

// New builds the Hasher named by cfg.Algorithm.
func New(cfg Config) (Hasher, error) {
	switch cfg.Algorithm {
	case AlgorithmArgon2id, "":
		return NewArgon2(cfg.Argon2)
	case AlgorithmBcrypt:
		return NewBcrypt(cfg.BcryptCost)
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}
}
