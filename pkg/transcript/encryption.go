package transcript

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// envelopePrefix marks an encrypted record text.
const envelopePrefix = "enc:v1:"

// ErrKeySize is returned for keys that are not 32 bytes long.
var ErrKeySize = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new records.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt a record,
	// which allows key rotation without rewriting old transcripts.
	FallbackKeys [][]byte
}

func (c EncryptionConfig) validate() error {
	if len(c.ActiveKey) != 32 {
		return ErrKeySize
	}
	for _, k := range c.FallbackKeys {
		if len(k) != 32 {
			return ErrKeySize
		}
	}
	return nil
}

type encryptor struct {
	next ports.TranscriptSink
	key  []byte
}

// Encrypt seals the record text with AES-GCM before delegating. Ids, actors and block ids
// stay readable for indexing.
func Encrypt(cfg EncryptionConfig) (Middleware, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return func(next ports.TranscriptSink) ports.TranscriptSink {
		return &encryptor{next: next, key: cfg.ActiveKey}
	}, nil
}

func (e *encryptor) Append(ctx context.Context, record domain.TranscriptRecord) error {
	sealed, err := encrypt([]byte(record.Text), e.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt transcript record: %w", err)
	}
	record.Text = envelopePrefix + base64.StdEncoding.EncodeToString(sealed)
	return e.next.Append(ctx, record)
}

type decryptingReader struct {
	next ports.TranscriptReader
	cfg  EncryptionConfig
}

// DecryptReader opens records written through Encrypt. Plain records are returned as stored.
func DecryptReader(next ports.TranscriptReader, cfg EncryptionConfig) (ports.TranscriptReader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &decryptingReader{next: next, cfg: cfg}, nil
}

func (d *decryptingReader) List(ctx context.Context, sessionID string) ([]domain.TranscriptRecord, error) {
	records, err := d.next.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i, r := range records {
		encoded, ok := strings.CutPrefix(r.Text, envelopePrefix)
		if !ok {
			continue
		}
		sealed, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("record %s: failed to decode ciphertext: %w", r.ID, err)
		}
		plain, err := decryptWithRotation(sealed, d.cfg.ActiveKey, d.cfg.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		records[i].Text = string(plain)
	}
	return records, nil
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
