package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
)

// Hash is the streaming hash primitive the signer is built on. A
// single signing operation computes several digests (body hash,
// canonical-request hash, the HMAC key-derivation chain) and may reuse
// one instance across them via Reset.
type Hash interface {
	// Update streams more content into the accumulator.
	Update(p []byte)

	// Digest returns the accumulated hash. The accumulator is left
	// unchanged; call Reset before reuse.
	Digest() []byte

	// Reset restarts accumulation with the same initial key material.
	Reset()
}

// sha256Hash implements Hash over SHA-256, keyed (HMAC) or plain.
type sha256Hash struct {
	key []byte
	h   hash.Hash
}

// NewSHA256 returns a SHA-256 based Hash. With an empty key it
// computes a plain digest; with a key it computes HMAC-SHA256. Both
// modes are needed because Signature V4 derives a chain of HMACs from
// the secret key and then hashes the canonical request unkeyed.
func NewSHA256(key []byte) Hash {
	s := &sha256Hash{key: append([]byte(nil), key...)}
	s.Reset()
	return s
}

func (s *sha256Hash) Update(p []byte) { s.h.Write(p) }

func (s *sha256Hash) Digest() []byte { return s.h.Sum(nil) }

func (s *sha256Hash) Reset() {
	if len(s.key) == 0 {
		s.h = sha256.New()
		return
	}
	s.h = hmac.New(sha256.New, s.key)
}
