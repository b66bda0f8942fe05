package vault

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

type testPayload struct {
	Patients []string `json:"patients"`
	Doctors  []string `json:"doctors"`
}

func testEnvelope(t *testing.T, key []byte, opts Options) *Envelope {
	t.Helper()
	env, err := Encrypt(testPayload{
		Patients: []string{"John Doe", "Jane Roe"},
		Doctors:  []string{"Dr. Gregory"},
	}, key, opts)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return env
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(0x42)
	env := testEnvelope(t, key, Options{
		DeviceID:    "device-1",
		DataVersion: 7,
		ItemCount:   ItemCount{Patients: 2, Doctors: 1},
	})

	if env.Metadata.Version != EnvelopeVersion {
		t.Errorf("version = %q", env.Metadata.Version)
	}
	if env.Metadata.EncryptionAlgorithm != AlgorithmAESGCM {
		t.Errorf("algorithm = %q", env.Metadata.EncryptionAlgorithm)
	}
	if env.Metadata.CompressionAlgorithm != CompressionNone {
		t.Errorf("compression = %q", env.Metadata.CompressionAlgorithm)
	}
	if env.Metadata.ItemCount.Patients != 2 || env.Metadata.ItemCount.Doctors != 1 {
		t.Errorf("item count = %+v", env.Metadata.ItemCount)
	}
	if len(env.Metadata.Checksum) != 64 {
		t.Errorf("checksum %q is not hex sha-256", env.Metadata.Checksum)
	}
	if strings.Contains(env.EncryptedData, "John Doe") {
		t.Error("payload visible in encrypted data")
	}

	var out testPayload
	if err := Decrypt(env, key, &out); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(out.Patients) != 2 || out.Patients[0] != "John Doe" {
		t.Errorf("payload = %+v", out)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	env := testEnvelope(t, testKey(0x42), Options{})
	var out testPayload
	if err := Decrypt(env, testKey(0x43), &out); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("got %v, want ErrAuthenticationFailed", err)
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	key := testKey(0x42)
	env := testEnvelope(t, key, Options{})

	raw, err := base64.StdEncoding.DecodeString(env.EncryptedData)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)/2] ^= 0xFF
	env.EncryptedData = base64.StdEncoding.EncodeToString(raw)

	var out testPayload
	if err := Decrypt(env, key, &out); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("got %v, want ErrAuthenticationFailed", err)
	}
}

func TestDecryptChecksumMismatch(t *testing.T) {
	key := testKey(0x42)
	env := testEnvelope(t, key, Options{})
	// The AEAD still verifies; only the redundant plaintext checksum is
	// wrong. This is the silent-corruption signal.
	env.Metadata.Checksum = strings.Repeat("0", 64)

	var out testPayload
	if err := Decrypt(env, key, &out); !errors.Is(err, ErrIntegrityMismatch) {
		t.Fatalf("got %v, want ErrIntegrityMismatch", err)
	}
}

func TestDecryptVersionGate(t *testing.T) {
	key := testKey(0x42)

	t.Run("newer major refused", func(t *testing.T) {
		env := testEnvelope(t, key, Options{})
		env.Metadata.Version = "3.0.0"
		var out testPayload
		if err := Decrypt(env, key, &out); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("got %v, want ErrUnsupportedVersion", err)
		}
	})

	t.Run("minor drift tolerated", func(t *testing.T) {
		env := testEnvelope(t, key, Options{})
		env.Metadata.Version = "2.9.1"
		var out testPayload
		if err := Decrypt(env, key, &out); err != nil {
			t.Fatalf("decrypt: %v", err)
		}
	})

	t.Run("malformed version refused", func(t *testing.T) {
		env := testEnvelope(t, key, Options{})
		env.Metadata.Version = "latest"
		var out testPayload
		if err := Decrypt(env, key, &out); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("got %v, want ErrUnsupportedVersion", err)
		}
	})
}

func TestEncryptWithCompression(t *testing.T) {
	key := testKey(0x42)
	env := testEnvelope(t, key, Options{Compress: true})
	if env.Metadata.CompressionAlgorithm != CompressionGzip {
		t.Fatalf("compression = %q, want gzip", env.Metadata.CompressionAlgorithm)
	}

	var out testPayload
	if err := Decrypt(env, key, &out); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(out.Patients) != 2 {
		t.Errorf("payload = %+v", out)
	}
}

func TestChangeKey(t *testing.T) {
	oldKey, newKey := testKey(0x42), testKey(0x43)

	t.Run("re-seals under the new key", func(t *testing.T) {
		salt, _ := NewSalt()
		env := testEnvelope(t, oldKey, Options{
			Compress:      true,
			KeyDerivation: NewKDFParams(salt, testIterations),
		})

		newSalt, _ := NewSalt()
		newKDF := NewKDFParams(newSalt, testIterations)
		rotated, err := ChangeKey(env, oldKey, newKey, newKDF)
		if err != nil {
			t.Fatalf("change key: %v", err)
		}

		var out testPayload
		if err := Decrypt(rotated, newKey, &out); err != nil {
			t.Fatalf("decrypt under new key: %v", err)
		}
		if err := Decrypt(rotated, oldKey, &out); !errors.Is(err, ErrAuthenticationFailed) {
			t.Errorf("old key still opens the rotated envelope: %v", err)
		}
		if rotated.Metadata.KeyDerivation.Salt != newKDF.Salt {
			t.Error("rotated envelope carries the old kdf params")
		}
	})

	t.Run("wrong old key leaves the envelope usable", func(t *testing.T) {
		env := testEnvelope(t, oldKey, Options{})
		before := env.EncryptedData

		if _, err := ChangeKey(env, newKey, testKey(0x44), nil); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("got %v, want ErrAuthenticationFailed", err)
		}
		if env.EncryptedData != before {
			t.Error("failed rotation modified the input envelope")
		}
		var out testPayload
		if err := Decrypt(env, oldKey, &out); err != nil {
			t.Errorf("original envelope broken after failed rotation: %v", err)
		}
	})
}

func TestPassphraseEnvelopeSelfDescribing(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	kdf := NewKDFParams(salt, testIterations)
	key, err := kdf.KeyFromPassphrase("correct horse")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	env := testEnvelope(t, key, Options{KeyDerivation: kdf})

	// Import side: re-derive the key from metadata alone.
	reKey, err := env.Metadata.KeyDerivation.KeyFromPassphrase("correct horse")
	if err != nil {
		t.Fatalf("re-derive: %v", err)
	}
	var out testPayload
	if err := Decrypt(env, reKey, &out); err != nil {
		t.Fatalf("decrypt with re-derived key: %v", err)
	}
}
