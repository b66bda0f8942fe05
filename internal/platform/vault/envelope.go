package vault

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// EnvelopeVersion is the format version written to new envelopes. Major
// bumps mean older builds must refuse the file instead of guessing.
const EnvelopeVersion = "2.0.0"

// Declared algorithm names carried in metadata.
const (
	AlgorithmAESGCM = "AES-GCM"
	CompressionNone = "none"
	CompressionGzip = "gzip"
)

var (
	// ErrAuthenticationFailed means the AEAD tag check failed: wrong key
	// or tampered ciphertext.
	ErrAuthenticationFailed = errors.New("authentication failed: wrong key or corrupted data")

	// ErrIntegrityMismatch means the AEAD opened but the redundant
	// plaintext checksum disagrees with metadata. Distinct from a wrong
	// password on purpose: it points at silent corruption of the payload
	// before it was sealed.
	ErrIntegrityMismatch = errors.New("integrity mismatch: payload checksum disagrees with metadata")

	// ErrUnsupportedVersion means the envelope was written by a newer
	// major format version than this build understands.
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
)

// ItemCount is the display-purpose entity tally carried in metadata.
type ItemCount struct {
	Patients int `json:"patients"`
	Doctors  int `json:"doctors"`
}

// Metadata describes an envelope without revealing its payload.
type Metadata struct {
	Version              string     `json:"version"`
	CreatedAt            time.Time  `json:"createdAt"`
	DeviceID             string     `json:"deviceId"`
	DataVersion          int        `json:"dataVersion"`
	EncryptionAlgorithm  string     `json:"encryptionAlgorithm"`
	CompressionAlgorithm string     `json:"compressionAlgorithm"`
	Checksum             string     `json:"checksum"`
	ItemCount            ItemCount  `json:"itemCount"`
	KeyDerivation        *KDFParams `json:"keyDerivation,omitempty"`
}

// Envelope is the backup container: what an exported file holds.
type Envelope struct {
	Metadata      Metadata `json:"metadata"`
	EncryptedData string   `json:"encryptedData"`
	IV            string   `json:"iv"`
}

// Options configures Encrypt.
type Options struct {
	DeviceID    string
	DataVersion int
	ItemCount   ItemCount
	Compress    bool
	// KeyDerivation is recorded when the key came from a passphrase, so
	// the file is self-describing on import.
	KeyDerivation *KDFParams
}

// Encrypt serializes payload to canonical JSON, checksums the plaintext,
// optionally compresses it, and seals it under key.
func Encrypt(payload any, key []byte, opts Options) (*Envelope, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("envelope: serialize payload: %w", err)
	}

	sum := sha256.Sum256(plaintext)
	meta := Metadata{
		Version:              EnvelopeVersion,
		CreatedAt:            time.Now().UTC(),
		DeviceID:             opts.DeviceID,
		DataVersion:          opts.DataVersion,
		EncryptionAlgorithm:  AlgorithmAESGCM,
		CompressionAlgorithm: CompressionNone,
		Checksum:             hex.EncodeToString(sum[:]),
		ItemCount:            opts.ItemCount,
		KeyDerivation:        opts.KeyDerivation,
	}

	body := plaintext
	if opts.Compress {
		body, err = gzipBytes(plaintext)
		if err != nil {
			return nil, fmt.Errorf("envelope: compress payload: %w", err)
		}
		meta.CompressionAlgorithm = CompressionGzip
	}

	return seal(body, key, meta)
}

// Decrypt opens the envelope under key and unmarshals the payload into out.
// Version is checked first, then the AEAD tag, then the redundant plaintext
// checksum.
func Decrypt(env *Envelope, key []byte, out any) error {
	plaintext, err := open(env, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("envelope: decode payload: %w", err)
	}
	return nil
}

// ChangeKey re-seals the envelope under newKey. The input envelope is never
// modified: a failed decrypt under oldKey leaves everything untouched.
// newKDF replaces the recorded key-derivation parameters (nil clears them,
// for raw keys).
func ChangeKey(env *Envelope, oldKey, newKey []byte, newKDF *KDFParams) (*Envelope, error) {
	plaintext, err := open(env, oldKey)
	if err != nil {
		return nil, err
	}

	meta := env.Metadata
	meta.KeyDerivation = newKDF

	body := plaintext
	if meta.CompressionAlgorithm == CompressionGzip {
		body, err = gzipBytes(plaintext)
		if err != nil {
			return nil, fmt.Errorf("envelope: compress payload: %w", err)
		}
	}
	return seal(body, newKey, meta)
}

// CheckVersion rejects envelopes whose major format version is newer than
// this build. Older majors and any minor drift decode best-effort.
func CheckVersion(meta Metadata) error {
	envMajor, err := majorVersion(meta.Version)
	if err != nil {
		return fmt.Errorf("%w: malformed version %q", ErrUnsupportedVersion, meta.Version)
	}
	ownMajor, _ := majorVersion(EnvelopeVersion)
	if envMajor > ownMajor {
		return fmt.Errorf("%w: envelope is v%s, this build understands up to major %d",
			ErrUnsupportedVersion, meta.Version, ownMajor)
	}
	return nil
}

func majorVersion(v string) (int, error) {
	head, _, _ := strings.Cut(v, ".")
	return strconv.Atoi(head)
}

func seal(body, key []byte, meta Metadata) (*Envelope, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	ciphertext, nonce, err := c.Seal(body)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Metadata:      meta,
		EncryptedData: base64.StdEncoding.EncodeToString(ciphertext),
		IV:            base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// open performs the full inbound pipeline: version check, base64 decode,
// AEAD open, decompress, checksum verify. Returns the plaintext JSON.
func open(env *Envelope, key []byte) ([]byte, error) {
	if err := CheckVersion(env.Metadata); err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("envelope: decode ciphertext: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("envelope: decode iv: %w", err)
	}

	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	body, err := c.Open(ciphertext, nonce)
	if err != nil {
		return nil, err
	}

	plaintext := body
	if env.Metadata.CompressionAlgorithm == CompressionGzip {
		plaintext, err = gunzipBytes(body)
		if err != nil {
			return nil, fmt.Errorf("envelope: decompress payload: %w", err)
		}
	}

	sum := sha256.Sum256(plaintext)
	if hex.EncodeToString(sum[:]) != env.Metadata.Checksum {
		return nil, ErrIntegrityMismatch
	}
	return plaintext, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
