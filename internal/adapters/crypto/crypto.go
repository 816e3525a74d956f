// Package crypto implements ports.Encryptor with a hybrid NaCl scheme.
//
// Each node's content is encrypted with its own random 32-byte content key
// using secretbox, with the 24-byte nonce prepended to the ciphertext. The
// content key is never stored in the clear: a cipher key is the content key
// sealed anonymously to one principal's Curve25519 public key, so several
// principals can read the same node without sharing private keys.
//
// All binary values cross the port boundary as standard base64 text.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"arbor/internal/ports"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrInvalidKey        = errors.New("invalid key")
	ErrDecryptionFailure = errors.New("decryption failed")
)

// Box is a key pair able to encrypt node content and wrap content keys.
type Box struct {
	public  *[keySize]byte
	private *[keySize]byte
}

var _ ports.Encryptor = (*Box)(nil)

// GenerateBox creates a box with a fresh key pair.
func GenerateBox() (*Box, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &Box{public: pub, private: priv}, nil
}

// LoadOrCreate reads the key pair from privatePath and publicPath, writing
// a new pair when neither file exists.
func LoadOrCreate(privatePath, publicPath string) (*Box, error) {
	priv, err := os.ReadFile(privatePath)
	if errors.Is(err, os.ErrNotExist) {
		b, err := GenerateBox()
		if err != nil {
			return nil, err
		}
		if err := b.Save(privatePath, publicPath); err != nil {
			return nil, err
		}
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	privKey, err := decodeKey(strings.TrimSpace(string(priv)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", privatePath, err)
	}
	b, err := FromPrivateKey(privKey)
	if err != nil {
		return nil, err
	}

	if pub, err := os.ReadFile(publicPath); err == nil {
		if strings.TrimSpace(string(pub)) != b.PublicKey() {
			return nil, fmt.Errorf("public key %s does not match private key: %w", publicPath, ErrInvalidKey)
		}
	}
	return b, nil
}

// FromPrivateKey derives the box of an existing private key.
func FromPrivateKey(priv *[keySize]byte) (*Box, error) {
	raw, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	var pub [keySize]byte
	copy(pub[:], raw)
	return &Box{public: &pub, private: priv}, nil
}

// Save writes the key pair; the private key file is readable by the owner
// only.
func (b *Box) Save(privatePath, publicPath string) error {
	for _, p := range []string{privatePath, publicPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("failed to create key directory: %w", err)
		}
	}
	if err := os.WriteFile(privatePath, []byte(encode(b.private[:])+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(publicPath, []byte(b.PublicKey()+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

// PublicKey returns the encoded public key.
func (b *Box) PublicKey() string {
	return encode(b.public[:])
}

// EncryptSharable encrypts plaintext under a new content key and returns
// the content key sealed to this box's own public key.
func (b *Box) EncryptSharable(plaintext string) (*ports.SymKeyPackage, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate content key: %w", err)
	}
	cipherText, err := seal(&key, plaintext)
	if err != nil {
		return nil, err
	}
	cipherKey, err := b.wrap(&key, b.public)
	if err != nil {
		return nil, err
	}
	return &ports.SymKeyPackage{CipherText: cipherText, CipherKey: cipherKey}, nil
}

func (b *Box) EncryptWithCipherKey(cipherKey, plaintext string) (string, error) {
	key, err := b.unwrap(cipherKey)
	if err != nil {
		return "", err
	}
	return seal(key, plaintext)
}

func (b *Box) DecryptWithCipherKey(cipherKey, cipherText string) (string, error) {
	key, err := b.unwrap(cipherKey)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrDecryptionFailure
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", ErrDecryptionFailure
	}
	return string(plain), nil
}

// WrapForPrincipal opens cipherKey with the private key and seals the
// content key again to publicKey.
func (b *Box) WrapForPrincipal(cipherKey, publicKey string) (string, error) {
	key, err := b.unwrap(cipherKey)
	if err != nil {
		return "", err
	}
	pub, err := decodeKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to parse principal public key: %w", err)
	}
	return b.wrap(key, pub)
}

func (b *Box) wrap(key, to *[keySize]byte) (string, error) {
	sealed, err := box.SealAnonymous(nil, key[:], to, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to wrap content key: %w", err)
	}
	return encode(sealed), nil
}

func (b *Box) unwrap(cipherKey string) (*[keySize]byte, error) {
	if cipherKey == "" {
		return nil, fmt.Errorf("empty cipher key: %w", ErrInvalidKey)
	}
	raw, err := base64.StdEncoding.DecodeString(cipherKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cipher key: %w", err)
	}
	opened, ok := box.OpenAnonymous(nil, raw, b.public, b.private)
	if !ok || len(opened) != keySize {
		return nil, fmt.Errorf("cipher key is not sealed to this key pair: %w", ErrDecryptionFailure)
	}
	var key [keySize]byte
	copy(key[:], opened)
	return &key, nil
}

func seal(key *[keySize]byte, plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return encode(out), nil
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeKey(s string) (*[keySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("key has %d bytes, want %d: %w", len(raw), keySize, ErrInvalidKey)
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}
