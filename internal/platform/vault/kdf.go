package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// KDF parameters. Iterations follow current OWASP guidance for
// PBKDF2-HMAC-SHA256; the value travels in the envelope metadata so older
// backups keep decrypting after the default changes.
const (
	KDFAlgorithm      = "PBKDF2-SHA256"
	DefaultIterations = 210_000
	SaltSize          = 16
)

// KDFParams records how a passphrase was stretched into the envelope key.
type KDFParams struct {
	Algorithm  string `json:"algorithm"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"` // base64
}

// NewSalt returns a fresh random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("kdf: generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a passphrase into a 32-byte envelope key.
func DeriveKey(passphrase string, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(passphrase), salt, iterations, KeySize, sha256.New)
}

// NewKDFParams packages a salt and iteration count for envelope metadata.
func NewKDFParams(salt []byte, iterations int) *KDFParams {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &KDFParams{
		Algorithm:  KDFAlgorithm,
		Iterations: iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}
}

// KeyFromPassphrase re-derives the envelope key from a passphrase and the
// parameters stored in an envelope.
func (p *KDFParams) KeyFromPassphrase(passphrase string) ([]byte, error) {
	if p.Algorithm != KDFAlgorithm {
		return nil, fmt.Errorf("kdf: unsupported algorithm %q", p.Algorithm)
	}
	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil {
		return nil, fmt.Errorf("kdf: decode salt: %w", err)
	}
	return DeriveKey(passphrase, salt, p.Iterations), nil
}
