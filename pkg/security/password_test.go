package security_test

import (
	"testing"

	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/security"
	"golang.org/x/crypto/bcrypt"
)

var fastParams = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password1", fastParams)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password1", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := security.HashPassword("", fastParams); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
	} {
		if _, err := security.VerifyPassword("irrelevant", encoded); err == nil {
			t.Fatalf("expected error for malformed hash %q", encoded)
		}
	}
}

func TestCheckStrength(t *testing.T) {
	cases := map[string]bool{
		"short1":        false,
		"onlyletters":   false,
		"1234567890":    false,
		"pharmacy2024":  true,
		"Tr0ub4dor&3xx": true,
	}
	for pw, ok := range cases {
		err := security.CheckStrength(pw)
		if ok && err != nil {
			t.Fatalf("expected %q to pass: %v", pw, err)
		}
		if !ok && err == nil {
			t.Fatalf("expected %q to fail", pw)
		}
	}
}

func TestVerifyPasswordAcceptsBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("test123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	ok, err := security.VerifyPassword("test123", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected bcrypt hash to verify, got %v (%v)", ok, err)
	}
	ok, err = security.VerifyPassword("wrong", string(legacy))
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got %v (%v)", ok, err)
	}
	if !security.NeedsRehash(string(legacy), fastParams) {
		t.Fatal("bcrypt hashes should be upgraded")
	}
}

func TestNeedsRehashComparesCost(t *testing.T) {
	hash, err := security.HashPassword("pharmacy2024", fastParams)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if security.NeedsRehash(hash, fastParams) {
		t.Fatal("hash made with current params should not need a rehash")
	}
	stronger := fastParams
	stronger.ArgonTime = 2
	if !security.NeedsRehash(hash, stronger) {
		t.Fatal("changed time cost should trigger a rehash")
	}
}
