// Package token implements the symmetric token codec: a signed, time-boxed
// claims payload wrapped in AES-256-CBC, carried as an opaque cookie value of
// the form iv_hex:ciphertext_hex.
//
// Each token class (code, access, refresh) owns an independent key pair — one
// 32-byte encryption key and one signing key — so a compromise of one class
// never exposes another's tokens. Payloads are immutable once issued; flows
// re-issue, they never mutate.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/scorekeep/scorekeep/internal/apperr"
)

const ivSize = aes.BlockSize

// Codec issues and opens encrypted signed tokens for a single token class.
type Codec struct {
	encKey  []byte
	signKey []byte
}

// NewCodec builds a codec from a class key pair. The encryption key must be
// exactly 32 bytes (AES-256); the signing key only needs to be non-empty.
func NewCodec(encKey, signKey []byte) (*Codec, error) {
	if len(encKey) != 32 {
		return nil, fmt.Errorf("token: encryption key must be 32 bytes, got %d", len(encKey))
	}
	if len(signKey) == 0 {
		return nil, errors.New("token: signing key is empty")
	}
	return &Codec{encKey: encKey, signKey: signKey}, nil
}

// Issue signs claims with the class signing key (HS256) and encrypts the
// signed result under a fresh random IV. The claims carry their own expiry;
// constructors in claims.go stamp the timing fields.
func (c *Codec) Issue(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signKey)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("token: iv: %w", err)
	}

	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("token: cipher: %w", err)
	}

	plain := pkcs7Pad([]byte(signed), aes.BlockSize)
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Open reverses Issue: it decrypts the cookie value, verifies signature and
// expiry, and requires the token's subject to match the given purpose,
// filling claims on success.
//
// Failure modes are deliberately distinguishable: a value without a correctly
// formatted iv:cipher pair is "Invalid credentials", a tampered ciphertext,
// bad signature or wrong-purpose token is the fixed invalid-token triple, and
// an elapsed expiry is the fixed expired-token triple (callers decide whether
// to clean up silently or surface it).
func (c *Codec) Open(cookieValue, purpose string, claims jwt.Claims) error {
	return c.open(cookieValue, purpose, claims, jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	))
}

// OpenExpired verifies signature and purpose but tolerates an elapsed expiry.
// Logout and expiry-triggered cleanup trust the owner claim of an expired
// token; a tampered one still fails.
func (c *Codec) OpenExpired(cookieValue, purpose string, claims jwt.Claims) error {
	return c.open(cookieValue, purpose, claims, jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	))
}

func (c *Codec) open(cookieValue, purpose string, claims jwt.Claims, parser *jwt.Parser) error {
	signed, err := c.decrypt(cookieValue)
	if err != nil {
		return err
	}
	if _, err := parser.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return c.signKey, nil
	}); err != nil {
		return apperr.FromToken(err)
	}
	// The subject check runs after full verification, including for the
	// lenient parser above: an expired token may only act at its own step.
	sub, err := claims.GetSubject()
	if err != nil || sub != purpose {
		return apperr.FromToken(jwt.ErrTokenInvalidSubject)
	}
	return nil
}

func (c *Codec) decrypt(cookieValue string) (string, error) {
	ivHex, cipherHex, ok := strings.Cut(cookieValue, ":")
	if !ok {
		return "", apperr.InvalidCredentials("The token is invalid")
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", apperr.InvalidCredentials("The token is invalid")
	}
	ct, err := hex.DecodeString(cipherHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", apperr.InvalidCredentials("The token is invalid")
	}

	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("token: cipher: %w", err)
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		// Garbage after decryption means tamper or a wrong class key; both
		// collapse into the same invalid-token outcome a bad signature gives.
		return "", apperr.FromToken(jwt.ErrTokenMalformed)
	}
	return string(unpadded), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("token: invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("token: invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("token: invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
