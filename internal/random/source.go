package random

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Source is the wallet-wide randomness interface. Every component that
// needs randomness (key generation, selection's weighted sampling, change
// construction's output permutation) takes a Source rather than reaching
// for a global.
type Source interface {
	// Range01 returns a uniform float64 in [0, 1).
	Range01() float64
	// Uint64 returns a uniform uint64 in [0, max].
	Uint64(max uint64) uint64
	// Uint32 returns a uniform uint32 in [0, max].
	Uint32(max uint32) uint32
	// Bool returns a uniform coin flip.
	Bool() bool
	// Bytes returns n fresh random bytes.
	Bytes(n int) ([]byte, error)
}

// osEntropy reads from the OS's cryptographic entropy source.
type osEntropy struct{}

func (osEntropy) Read(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("reading OS entropy: %w", err)
	}
	return b, nil
}

// fixedEntropy always returns the same bytes, used in deterministic replay
// mode (spec §4.9's `--seed`/`--ignore-user-entropy`).
type fixedEntropy struct{ seed []byte }

func (f fixedEntropy) Read(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		out[i] = f.seed[i%len(f.seed)]
	}
	return out, nil
}

// streamSource adapts a *Stream to the Source interface.
type streamSource struct{ stream *Stream }

func (s streamSource) Range01() float64 {
	b, err := s.stream.Bytes(8)
	if err != nil {
		panic(fmt.Sprintf("random: %v", err))
	}
	return float64(binary.BigEndian.Uint64(b)>>11) / (1 << 53)
}

func (s streamSource) Uint64(max uint64) uint64 {
	if max == 0 {
		return 0
	}
	// Rejection sampling against the smallest power-of-two-minus-one mask
	// covering max avoids modulo bias.
	bits := 64
	for (uint64(1)<<uint(bits-1))-1 > max && bits > 1 {
		bits--
	}
	mask := uint64(1)<<uint(bits) - 1
	for {
		b, err := s.stream.Bytes(8)
		if err != nil {
			panic(fmt.Sprintf("random: %v", err))
		}
		v := binary.BigEndian.Uint64(b) & mask
		if v <= max {
			return v
		}
	}
}

func (s streamSource) Uint32(max uint32) uint32 {
	return uint32(s.Uint64(uint64(max)))
}

func (s streamSource) Bool() bool {
	return s.Uint32(1) == 1
}

func (s streamSource) Bytes(n int) ([]byte, error) {
	return s.stream.Bytes(n)
}

// Personalization is mixed into the secure stream's seed material so that
// two processes seeded identically otherwise (same OS entropy pool quirks)
// still diverge; it plays the same role as the original's fixed
// personalization-string constant.
const Personalization = "cosmos-wallet-drbg"

// Config configures the top-level randomness setup, mirroring the
// options a running daemon reads from flags/env (spec §6 COSMOS_SEED,
// COSMOS_NONCE) and from spec §4.9 ("--seed and --ignore-user-entropy").
type Config struct {
	// Seed, if non-empty, switches to deterministic mode: all output is a
	// function of Seed and Nonce, for replay tests only.
	Seed string
	// Nonce is mixed into the DRBG seed. If empty, it is drawn at setup
	// time from the same entropy source as the seed (OS entropy, or the
	// fixed Seed in deterministic mode).
	Nonce string
	// IgnoreUserEntropy disables mixing per-request user entropy into
	// reseeds, for fully reproducible replay.
	IgnoreUserEntropy bool
}

// Randomness bundles the secure and casual streams the wallet core uses.
type Randomness struct {
	Secure Source
	Casual Source

	secureStream *Stream
}

// New sets up the secure and casual streams per cfg, following the
// original's setup(): secure is an HMAC_DRBG seeded from OS entropy (or the
// fixed seed in deterministic mode) plus a nonce and a personalization
// string; casual is reseeded from secure every 2^30 bytes.
func New(cfg Config) (*Randomness, error) {
	var strongEntropy EntropySource
	var nonce []byte

	if cfg.Seed != "" {
		strongEntropy = fixedEntropy{seed: []byte(cfg.Seed)}
	} else {
		strongEntropy = osEntropy{}
	}

	if cfg.Nonce != "" {
		nonce = []byte(cfg.Nonce)
	} else {
		n, err := strongEntropy.Read(8)
		if err != nil {
			return nil, fmt.Errorf("generating nonce: %w", err)
		}
		nonce = n
	}

	entropy, err := strongEntropy.Read(32)
	if err != nil {
		return nil, fmt.Errorf("reading seed entropy: %w", err)
	}
	seedMaterial := append(append(append([]byte{}, entropy...), nonce...), []byte(Personalization)...)

	var secureStream *Stream
	if cfg.Seed != "" {
		// Deterministic mode: no further entropy is drawn on reseed, so
		// output depends only on seed + nonce.
		secureStream = NewStream(seedMaterial, nil)
	} else {
		secureStream = NewStream(seedMaterial, osEntropy{})
	}

	secureBytes, err := secureStream.Bytes(32)
	if err != nil {
		return nil, fmt.Errorf("seeding casual stream: %w", err)
	}
	casualStream := NewStream(secureBytes, secureEntropySource{secureStream})

	return &Randomness{
		Secure:       streamSource{secureStream},
		Casual:       streamSource{casualStream},
		secureStream: secureStream,
	}, nil
}

// secureEntropySource lets the casual stream reseed itself from the secure
// stream instead of the OS, matching the original's
// `default_casual_random {*Secure, 1 << 30}`.
type secureEntropySource struct{ secure *Stream }

func (s secureEntropySource) Read(n int) ([]byte, error) {
	return s.secure.Bytes(n)
}

// AddEntropy mixes caller-supplied bytes into the secure stream's next
// reseed (the `/add_entropy` HTTP endpoint), unless deterministic replay
// mode has disabled it.
func (r *Randomness) AddEntropy(b []byte, cfg Config) {
	if cfg.IgnoreUserEntropy {
		return
	}
	r.secureStream.AddEntropy(b)
}
