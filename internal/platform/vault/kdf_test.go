package vault

import (
	"bytes"
	"testing"
)

// Tests use a tiny iteration count; correctness does not depend on it.
const testIterations = 16

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}

	k1 := DeriveKey("correct horse", salt, testIterations)
	k2 := DeriveKey("correct horse", salt, testIterations)
	if len(k1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(k1), KeySize)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt produced different keys")
	}

	t.Run("different passphrase", func(t *testing.T) {
		if bytes.Equal(k1, DeriveKey("battery staple", salt, testIterations)) {
			t.Error("different passphrases produced the same key")
		}
	})

	t.Run("different salt", func(t *testing.T) {
		other, _ := NewSalt()
		if bytes.Equal(k1, DeriveKey("correct horse", other, testIterations)) {
			t.Error("different salts produced the same key")
		}
	})

	t.Run("different iterations", func(t *testing.T) {
		if bytes.Equal(k1, DeriveKey("correct horse", salt, testIterations*2)) {
			t.Error("different iteration counts produced the same key")
		}
	})
}

func TestKDFParamsRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	params := NewKDFParams(salt, testIterations)
	if params.Algorithm != KDFAlgorithm {
		t.Errorf("algorithm = %q", params.Algorithm)
	}

	fromParams, err := params.KeyFromPassphrase("correct horse")
	if err != nil {
		t.Fatalf("key from passphrase: %v", err)
	}
	direct := DeriveKey("correct horse", salt, testIterations)
	if !bytes.Equal(fromParams, direct) {
		t.Error("params roundtrip disagrees with direct derivation")
	}
}

func TestKDFParamsRejectsUnknownAlgorithm(t *testing.T) {
	p := &KDFParams{Algorithm: "scrypt", Iterations: 1, Salt: ""}
	if _, err := p.KeyFromPassphrase("x"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestNewKDFParamsDefaultsIterations(t *testing.T) {
	salt, _ := NewSalt()
	p := NewKDFParams(salt, 0)
	if p.Iterations != DefaultIterations {
		t.Errorf("iterations = %d, want %d", p.Iterations, DefaultIterations)
	}
}

func TestNewSaltUnique(t *testing.T) {
	a, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	b, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	if len(a) != SaltSize {
		t.Errorf("salt length = %d, want %d", len(a), SaltSize)
	}
	if bytes.Equal(a, b) {
		t.Error("two salts came out identical")
	}
}
