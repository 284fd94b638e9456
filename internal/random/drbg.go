// Package random provides the wallet's two randomness streams: a
// cryptographic DRBG for anything that produces a key scalar, nonce, or
// initialization vector, and a cheap generator for shuffles and weighted
// sampling. Both are safe for concurrent use.
package random

import (
	"crypto/hmac"
	"crypto/sha256"
	"sync"
)

// reseedInterval is the number of output bytes after which a stream
// automatically reseeds from its upstream entropy source.
const reseedInterval = 1 << 30

// hmacDRBG is a minimal HMAC_DRBG (NIST SP 800-90A, SHA-256) instance. It is
// not a general-purpose implementation: it supports only the instantiate,
// reseed and generate operations the wallet needs.
type hmacDRBG struct {
	k []byte
	v []byte
}

func newHMACDRBG(seedMaterial []byte) *hmacDRBG {
	d := &hmacDRBG{
		k: make([]byte, sha256.Size),
		v: bytesOf(1, sha256.Size),
	}
	d.update(seedMaterial)
	return d
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func (d *hmacDRBG) update(seedMaterial []byte) {
	h := hmac.New(sha256.New, d.k)
	h.Write(d.v)
	h.Write([]byte{0x00})
	h.Write(seedMaterial)
	d.k = h.Sum(nil)

	h = hmac.New(sha256.New, d.k)
	h.Write(d.v)
	d.v = h.Sum(nil)

	if len(seedMaterial) == 0 {
		return
	}

	h = hmac.New(sha256.New, d.k)
	h.Write(d.v)
	h.Write([]byte{0x01})
	h.Write(seedMaterial)
	d.k = h.Sum(nil)

	h = hmac.New(sha256.New, d.k)
	h.Write(d.v)
	d.v = h.Sum(nil)
}

func (d *hmacDRBG) reseed(entropy []byte) {
	d.update(entropy)
}

func (d *hmacDRBG) generate(n int) []byte {
	out := make([]byte, 0, n)
	for len(out) < n {
		h := hmac.New(sha256.New, d.k)
		h.Write(d.v)
		d.v = h.Sum(nil)
		out = append(out, d.v...)
	}
	d.update(nil)
	return out[:n]
}

// EntropySource supplies fresh entropy bytes, e.g. from the OS CSPRNG.
type EntropySource interface {
	Read(n int) ([]byte, error)
}

// Stream is a thread-safe byte stream built on an HMAC_DRBG, automatically
// reseeding from its entropy source every 2^30 bytes of output, matching the
// original's `automatic_reseed` wrapper.
type Stream struct {
	mu              sync.Mutex
	drbg            *hmacDRBG
	entropy         EntropySource
	bytesSinceReseed int
	pendingEntropy  [][]byte
}

// NewStream instantiates a stream. seedMaterial is nonce‖personalization
// (plus, in deterministic mode, the user-supplied seed bytes in place of OS
// entropy). entropy is consulted on every automatic reseed; it may be nil
// for a fully deterministic stream (tests, replay mode), in which case
// automatic reseeding is a no-op that keeps running the same DRBG instance.
func NewStream(seedMaterial []byte, entropy EntropySource) *Stream {
	return &Stream{
		drbg:    newHMACDRBG(seedMaterial),
		entropy: entropy,
	}
}

// AddEntropy mixes caller-supplied bytes (e.g. from an HTTP /add_entropy
// request) into the next reseed, providing forward security the way the
// original's user_entropy side channel does.
func (s *Stream) AddEntropy(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	s.pendingEntropy = append(s.pendingEntropy, cp)
}

// Bytes returns n fresh random bytes, reseeding first if the interval has
// been exceeded or user entropy is pending.
func (s *Stream) Bytes(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bytesSinceReseed >= reseedInterval || len(s.pendingEntropy) > 0 {
		if err := s.reseedLocked(); err != nil {
			return nil, err
		}
	}

	out := s.drbg.generate(n)
	s.bytesSinceReseed += n
	return out, nil
}

func (s *Stream) reseedLocked() error {
	var material []byte
	if s.entropy != nil {
		fresh, err := s.entropy.Read(32)
		if err != nil {
			return err
		}
		material = append(material, fresh...)
	}
	for _, e := range s.pendingEntropy {
		sum := sha256.Sum256(e)
		material = append(material, sum[:]...)
	}
	s.pendingEntropy = nil
	s.drbg.reseed(material)
	s.bytesSinceReseed = 0
	return nil
}
