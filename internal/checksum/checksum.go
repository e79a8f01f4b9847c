// Package checksum signs and verifies gateway parameter sets.
//
// A parameter set is serialized into a canonical message (names sorted
// bytewise, empty values dropped, the signature field excluded) and signed
// with HMAC-SHA-256 over "<message>&<salt>". The signature is the 64-char
// hex digest immediately followed by the salt.
package checksum

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// FieldName is the parameter carrying the signature. It is matched
	// case-insensitively and never signed.
	FieldName = "CHECKSUMHASH"

	DigestLen = 64
	saltBytes = 8
)

var (
	ErrMissingKey  = errors.New("checksum: merchant key is required")
	ErrInvalidSalt = errors.New("checksum: salt must not be empty")
)

// Params is an unordered gateway parameter set.
type Params map[string]string

// Clone returns a copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SignatureOf returns the signature field of p, whatever its casing. The
// exact FieldName wins; otherwise the bytewise-smallest matching name does.
func SignatureOf(p Params) (string, bool) {
	if v, ok := p[FieldName]; ok {
		return v, true
	}
	name, found := "", false
	for k := range p {
		if isSignatureField(k) && (!found || k < name) {
			name, found = k, true
		}
	}
	if !found {
		return "", false
	}
	return p[name], true
}

// SignatureFields counts the names in p that are a casing of FieldName.
func SignatureFields(p Params) int {
	n := 0
	for k := range p {
		if isSignatureField(k) {
			n++
		}
	}
	return n
}

func isSignatureField(name string) bool {
	return strings.EqualFold(name, FieldName)
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "null") {
		return ""
	}
	return v
}

// Canonicalize builds the message that gets signed.
func Canonicalize(p Params) string {
	names := make([]string, 0, len(p))
	for k := range p {
		if isSignatureField(k) {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)

	entries := make([]string, 0, len(names))
	for _, name := range names {
		v := normalize(p[name])
		if v == "" {
			continue
		}
		entries = append(entries, name+"="+v)
	}
	return strings.Join(entries, "&")
}

type Signer struct {
	key []byte
}

func New(key string) (*Signer, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	return &Signer{key: []byte(key)}, nil
}

// Sign returns digest||salt for p using a fresh random salt.
func (s *Signer) Sign(p Params) (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("checksum: generate salt: %w", err)
	}
	return s.SignWithSalt(p, hex.EncodeToString(buf))
}

// SignWithSalt is Sign with a caller-supplied salt.
func (s *Signer) SignWithSalt(p Params, salt string) (string, error) {
	if salt == "" {
		return "", ErrInvalidSalt
	}
	return hex.EncodeToString(s.digest(Canonicalize(p), salt)) + salt, nil
}

// Verify reports whether signature was produced over p with this key.
// Malformed signatures are rejected, never reported as errors.
func (s *Signer) Verify(p Params, signature string) bool {
	if len(signature) <= DigestLen {
		return false
	}
	received, salt := signature[:DigestLen], signature[DigestLen:]
	expected := hex.EncodeToString(s.digest(Canonicalize(p), salt))
	return hmac.Equal([]byte(received), []byte(expected))
}

func (s *Signer) digest(message, salt string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(message + "&" + salt))
	return mac.Sum(nil)
}
