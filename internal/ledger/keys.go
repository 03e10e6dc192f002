package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// PublicKeyLength is the size of an account address in bytes
const PublicKeyLength = ed25519.PublicKeySize

// PublicKey addresses an account on the ledger. Its text form is base58.
type PublicKey [PublicKeyLength]byte

// ParsePublicKey decodes a base58 account address
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b := base58.Decode(s)
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 form of the key
func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// Short returns an abbreviated form suitable for display
func (k PublicKey) Short() string {
	s := k.String()
	if len(s) <= 10 {
		return s
	}
	return s[:4] + "…" + s[len(s)-4:]
}

// IsZero reports whether the key is all zero bytes
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = PublicKey{}
		return nil
	}
	pk, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = pk
	return nil
}

// Keypair is an ed25519 signing key and its address
type Keypair struct {
	Public  PublicKey
	private ed25519.PrivateKey
}

// NewKeypair generates a random keypair
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	kp := &Keypair{private: priv}
	copy(kp.Public[:], pub)
	return kp, nil
}

// KeypairFromSeed derives a keypair from a 32 byte seed
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes", ErrInvalidKey, ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	kp := &Keypair{private: priv}
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	return kp, nil
}

// Sign signs msg with the private key
func (k *Keypair) Sign(msg []byte) Signature {
	return ed25519.Sign(k.private, msg)
}

// Signature is an ed25519 signature. Its text form is base58.
type Signature []byte

func (s Signature) String() string {
	return base58.Encode(s)
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	b := base58.Decode(string(text))
	if len(b) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed signature", ErrMissingSigner)
	}
	*s = b
	return nil
}

// Verify checks sig over msg against the key
func (k PublicKey) Verify(msg []byte, sig Signature) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(k[:]), msg, sig)
}
