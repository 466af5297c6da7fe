package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/hkdf"
)

// KDF selects how the AES key and IV are derived from the process secret
type KDF string

const (
	// KDFLegacy is the XOR-fold derivation. Records written by earlier deployments can only be read with it.
	KDFLegacy KDF = "legacy"
	// KDFHKDF derives key and IV with HKDF-SHA256. Switching to it requires re-encrypting stored data.
	KDFHKDF KDF = "hkdf"
)

const (
	KeySize = 32
	IVSize  = aes.BlockSize

	hkdfInfo = "bambooslack ledger v1"
)

var (
	ErrEmptySecret = goerr.New("cipher secret is empty")
	ErrCrypto      = goerr.New("cipher operation failed")
	ErrUnknownKDF  = goerr.New("unknown key derivation")
)

// DeriveKeyAndIV XOR-folds secret into a zeroed key of keyLen bytes and copies the
// trailing min(ivLen, len(secret)) bytes of secret into the right end of a zeroed IV.
func DeriveKeyAndIV(secret []byte, keyLen, ivLen int) (key, iv []byte) {
	key = make([]byte, keyLen)
	iv = make([]byte, ivLen)

	if keyLen > 0 {
		for i, b := range secret {
			key[i%keyLen] ^= b
		}
	}

	n := min(ivLen, len(secret))
	copy(iv[ivLen-n:], secret[len(secret)-n:])

	return key, iv
}

// Cipher encrypts ledger values. It is immutable after New and safe for concurrent use.
type Cipher struct {
	block cipher.Block
	iv    []byte
	kdf   KDF
}

type options struct {
	kdf KDF
}

// Option configures Cipher
type Option func(*options)

// WithKDF sets the key derivation. The default is KDFLegacy.
func WithKDF(kdf KDF) Option {
	return func(o *options) {
		o.kdf = kdf
	}
}

// New derives the key material from secret once and returns a ready Cipher
func New(secret []byte, opts ...Option) (*Cipher, error) {
	if len(secret) == 0 {
		return nil, goerr.Wrap(ErrEmptySecret, "failed to create cipher")
	}

	o := options{kdf: KDFLegacy}
	for _, opt := range opts {
		opt(&o)
	}

	var key, iv []byte
	switch o.kdf {
	case KDFLegacy:
		key, iv = DeriveKeyAndIV(secret, KeySize, IVSize)
	case KDFHKDF:
		material := make([]byte, KeySize+IVSize)
		if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), material); err != nil {
			return nil, goerr.Wrap(err, "failed to derive key with HKDF")
		}
		key, iv = material[:KeySize], material[KeySize:]
	default:
		return nil, goerr.Wrap(ErrUnknownKDF, "failed to create cipher", goerr.V("kdf", o.kdf))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create AES block")
	}

	return &Cipher{block: block, iv: iv, kdf: o.kdf}, nil
}

// KDF returns the derivation the cipher was built with
func (c *Cipher) KDF() KDF {
	return c.kdf
}

// Encrypt returns AES-256-CFB8 ciphertext of plaintext in standard base64
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	out := make([]byte, len(plaintext))
	newCFB8(c.block, c.iv, false).XORKeyStream(out, plaintext)
	if len(out) != len(plaintext) {
		return "", goerr.Wrap(ErrCrypto, "ciphertext length mismatch",
			goerr.V("input", len(plaintext)), goerr.V("output", len(out)))
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt
func (c *Cipher) Decrypt(blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, goerr.Wrap(ErrCrypto, "invalid base64 ciphertext", goerr.V("error", err.Error()))
	}

	out := make([]byte, len(raw))
	newCFB8(c.block, c.iv, true).XORKeyStream(out, raw)
	if len(out) != len(raw) {
		return nil, goerr.Wrap(ErrCrypto, "plaintext length mismatch",
			goerr.V("input", len(raw)), goerr.V("output", len(out)))
	}
	return out, nil
}

// Encrypt is a one-shot helper using the legacy derivation
func Encrypt(plaintext, secret []byte) (string, error) {
	c, err := New(secret)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

// Decrypt is a one-shot helper using the legacy derivation
func Decrypt(blob string, secret []byte) ([]byte, error) {
	c, err := New(secret)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(blob)
}
