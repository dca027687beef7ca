package password

import (
	"errors"
	"strings"
	"testing"
)

// cheapParams sit at the accepted minimums so the suite stays fast.
func cheapParams() Argon2Params {
	return Argon2Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func mustArgon2(t *testing.T, p Argon2Params) *Argon2 {
	t.Helper()
	h, err := NewArgon2(p)
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func TestArgon2RoundTrip(t *testing.T) {
	h := mustArgon2(t, cheapParams())

	hash, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	other, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if other == hash {
		t.Fatal("two hashes of one password share a salt")
	}

	for pw, want := range map[string]bool{"correct-horse": true, "correct-horsf": false, "x": false} {
		ok, err := h.Verify(pw, hash)
		if err != nil {
			t.Fatalf("Verify(%q) failed: %v", pw, err)
		}
		if ok != want {
			t.Fatalf("Verify(%q) = %v, want %v", pw, ok, want)
		}
	}
}

func TestArgon2VerifyRejectsBadEncodings(t *testing.T) {
	h := mustArgon2(t, cheapParams())
	hash, err := h.Hash("encoding-check")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	cases := map[string]string{
		"not phc":       "not-a-phc-hash",
		"bcrypt":        "$2a$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234",
		"wrong version": strings.Replace(hash, "$v=19$", "$v=18$", 1),
		"argon2i":       strings.Replace(hash, "$argon2id$", "$argon2i$", 1),
		"bad params":    strings.Replace(hash, "m=8192", "m=abc", 1),
	}
	for name, encoded := range cases {
		if _, err := h.Verify("encoding-check", encoded); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := h.Verify("x", "not-a-phc-hash"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak := mustArgon2(t, cheapParams())
	hash, err := weak.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("same params: up=%v err=%v", up, err)
	}

	stronger := cheapParams()
	stronger.Time = 2
	if up, err := mustArgon2(t, stronger).NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("stronger params: up=%v err=%v", up, err)
	}
}

func TestArgon2InputBounds(t *testing.T) {
	p := cheapParams()
	p.MaxPasswordBytes = 64
	h := mustArgon2(t, p)

	if _, err := h.Hash(""); err == nil {
		t.Fatal("empty password hashed")
	}
	// policy lives in the flows, so one-character passwords still hash
	if _, err := h.Hash("x"); err != nil {
		t.Fatalf("short password rejected: %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("max-length password rejected: %v", err)
	}
	if ok, err := h.Verify(exact, hash); err != nil || !ok {
		t.Fatalf("Verify at max length: ok=%v err=%v", ok, err)
	}

	long := strings.Repeat("c", 65)
	if _, err := h.Hash(long); err == nil {
		t.Fatal("over-long password hashed")
	}
	if _, err := h.Verify(long, hash); err == nil {
		t.Fatal("over-long password verified")
	}
}

func TestArgon2DefaultMaxBytes(t *testing.T) {
	h := mustArgon2(t, cheapParams())

	if _, err := h.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); err == nil {
		t.Fatalf("password above %d bytes hashed", DefaultMaxPasswordBytes)
	}
	if _, err := h.Hash(strings.Repeat("e", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("password of %d bytes rejected: %v", DefaultMaxPasswordBytes, err)
	}
}

func TestNewArgon2RejectsWeakParams(t *testing.T) {
	mutations := map[string]func(*Argon2Params){
		"memory":      func(p *Argon2Params) { p.Memory = 1024 },
		"time":        func(p *Argon2Params) { p.Time = 0 },
		"parallelism": func(p *Argon2Params) { p.Parallelism = 0 },
		"salt":        func(p *Argon2Params) { p.SaltLength = 8 },
		"key":         func(p *Argon2Params) { p.KeyLength = 8 },
		"max bytes":   func(p *Argon2Params) { p.MaxPasswordBytes = -1 },
	}
	for name, mutate := range mutations {
		p := cheapParams()
		mutate(&p)
		if _, err := NewArgon2(p); err == nil {
			t.Fatalf("%s: weak params accepted", name)
		}
	}
}
