package vault

import (
	"bytes"
	"errors"
	"testing"
)

func testKey(fill byte) []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = fill
	}
	return key
}

func TestCipherSealOpen(t *testing.T) {
	c, err := NewCipher(testKey(0x42))
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	plaintext := []byte(`{"patients":[]}`)
	ciphertext, nonce, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Fatal("plaintext visible in ciphertext")
	}

	got, err := c.Open(ciphertext, nonce)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("roundtrip = %q, want %q", got, plaintext)
	}
}

func TestCipherFreshNoncePerSeal(t *testing.T) {
	c, _ := NewCipher(testKey(0x42))
	_, n1, err := c.Seal([]byte("x"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	_, n2, err := c.Seal([]byte("x"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(n1, n2) {
		t.Error("nonce reused across seals")
	}
}

func TestCipherOpenFailures(t *testing.T) {
	c, _ := NewCipher(testKey(0x42))
	ciphertext, nonce, err := c.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	t.Run("wrong key", func(t *testing.T) {
		other, _ := NewCipher(testKey(0x43))
		if _, err := other.Open(ciphertext, nonce); !errors.Is(err, ErrAuthenticationFailed) {
			t.Errorf("got %v, want ErrAuthenticationFailed", err)
		}
	})

	t.Run("flipped ciphertext bit", func(t *testing.T) {
		tampered := append([]byte(nil), ciphertext...)
		tampered[0] ^= 0x01
		if _, err := c.Open(tampered, nonce); !errors.Is(err, ErrAuthenticationFailed) {
			t.Errorf("got %v, want ErrAuthenticationFailed", err)
		}
	})

	t.Run("bad nonce length", func(t *testing.T) {
		if _, err := c.Open(ciphertext, nonce[:4]); err == nil {
			t.Error("expected error for truncated nonce")
		}
	})
}

func TestNewCipherKeyLength(t *testing.T) {
	if _, err := NewCipher(make([]byte, 16)); err == nil {
		t.Fatal("expected error for 16-byte key")
	}
}
