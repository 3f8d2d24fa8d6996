// Package vault provides authenticated encryption for long-lived access
// credentials. Secrets are stored as three colon-joined hex fields
// (iv:tag:ciphertext); this exact layout is a persisted contract, so existing
// stored secrets must remain decryptable across releases.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/scrypt"

	"github.com/codefionn/daybook/internal/logger"
)

const (
	// keySalt is fixed so previously stored secrets keep decrypting. It must
	// stay distinct from the session key salt; the two derived keys are not
	// interchangeable.
	keySalt = "daybook/vault/v1"

	ivSize  = 16
	tagSize = 16

	// scrypt cost parameters (N=32768)
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	fallbackSecret = "daybook-dev-only-master-secret"
)

var (
	// ErrInvalidInput is returned when the plaintext to encrypt is empty.
	ErrInvalidInput = errors.New("invalid plaintext input")
	// ErrMalformedSecret indicates the stored value is not iv:tag:ciphertext.
	ErrMalformedSecret = errors.New("malformed encrypted secret")
	// ErrTampered indicates authentication failed: the secret was modified,
	// truncated, or encrypted under a different master secret.
	ErrTampered = errors.New("encrypted secret failed authentication")
	// ErrNoMasterSecret is returned on first use when no master secret was
	// configured and insecure fallback mode is off.
	ErrNoMasterSecret = errors.New("master secret is not configured")
)

// Options control vault construction.
type Options struct {
	// AllowInsecureFallback derives the key from a well-known development
	// secret when no master secret is configured. Never enable in production.
	AllowInsecureFallback bool
}

// Vault encrypts and decrypts opaque credential strings with AES-256-GCM.
// The symmetric key is derived lazily from the master secret on first use
// and cached for the lifetime of the vault.
type Vault struct {
	secret   *memguard.Enclave
	fallback bool
	log      *logger.Logger

	deriveOnce sync.Once
	key        []byte
	deriveErr  error
}

// New creates a vault around the given master secret. The secret is moved
// into guarded memory immediately; key derivation is deferred until the
// first encrypt or decrypt call.
func New(masterSecret string, opts Options) *Vault {
	v := &Vault{
		fallback: opts.AllowInsecureFallback,
		log:      logger.Global().WithPrefix("vault"),
	}
	if masterSecret != "" {
		v.secret = memguard.NewEnclave([]byte(masterSecret))
	}
	return v
}

// Encrypt encrypts plaintext under a fresh random IV and returns the
// iv:tag:ciphertext hex encoding. Encrypting the same plaintext twice yields
// different outputs.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrInvalidInput
	}

	gcm, err := v.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	if len(sealed) < tagSize {
		return "", fmt.Errorf("unexpected sealed length")
	}

	// gcm.Seal appends the tag to the ciphertext; the storage format keeps
	// them as separate fields.
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// Decrypt reverses Encrypt. Error messages never include the ciphertext or
// any key material.
func (v *Vault) Decrypt(secret string) (string, error) {
	parts := strings.Split(secret, ":")
	if len(parts) != 3 {
		return "", ErrMalformedSecret
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: bad iv field", ErrMalformedSecret)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", fmt.Errorf("%w: bad tag field", ErrMalformedSecret)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext field", ErrMalformedSecret)
	}

	gcm, err := v.aead()
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrTampered
	}
	return string(plaintext), nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	v.deriveOnce.Do(func() {
		v.key, v.deriveErr = v.deriveKey()
	})
	if v.deriveErr != nil {
		return nil, v.deriveErr
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, ivSize)
}

func (v *Vault) deriveKey() ([]byte, error) {
	if v.secret == nil {
		if !v.fallback {
			return nil, ErrNoMasterSecret
		}
		v.log.Warn("no master secret configured, using insecure development fallback key")
		return scrypt.Key([]byte(fallbackSecret), []byte(keySalt), scryptN, scryptR, scryptP, 32)
	}

	buf, err := v.secret.Open()
	if err != nil {
		return nil, fmt.Errorf("open master secret: %w", err)
	}
	defer buf.Destroy()

	key, err := scrypt.Key(buf.Bytes(), []byte(keySalt), scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
