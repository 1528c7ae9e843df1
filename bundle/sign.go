package bundle

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jedisct1/go-minisign"
	"golang.org/x/crypto/blake2b"

	"github.com/jrobhoward/rustbridge/errcode"
)

// minisignPKAlg is the two-byte algorithm tag minisign uses on public-key
// lines (unrelated to whether a given signature is pre-hashed).
const minisignPKAlg = "Ed"

// minisignSigAlgPrehashed marks a signature as BLAKE2b-512-prehashed,
// the modern minisign scheme that lets it sign files of any size.
const minisignSigAlgPrehashed = "ED"

// SigningKey is an Ed25519 keypair used to produce minisign-compatible
// detached signatures. No signing library exists in the example corpus
// (only github.com/jedisct1/go-minisign, which verifies); signing is
// hand-built on crypto/ed25519 and golang.org/x/crypto/blake2b following
// the same wire format that library verifies, rather than inventing a
// scheme from nothing.
type SigningKey struct {
	priv  ed25519.PrivateKey
	keyID [8]byte
}

// GenerateSigningKey creates a fresh Ed25519 keypair with a random key id.
func GenerateSigningKey() (*SigningKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errcode.Wrap(errcode.Internal, err, "generate signing key")
	}
	var keyID [8]byte
	if _, err := rand.Read(keyID[:]); err != nil {
		return nil, errcode.Wrap(errcode.Internal, err, "generate key id")
	}
	return &SigningKey{priv: priv, keyID: keyID}, nil
}

// PublicKeyString renders the minisign public-key textual form embedded
// in a manifest's public_key field.
func (k *SigningKey) PublicKeyString() string {
	pub := k.priv.Public().(ed25519.PublicKey)
	raw := append([]byte(minisignPKAlg), k.keyID[:]...)
	raw = append(raw, pub...)
	return base64.StdEncoding.EncodeToString(raw)
}

// Sign produces a minisign-compatible detached signature file for
// message: BLAKE2b-512 the content, Ed25519-sign the digest, then sign
// the signature bytes plus a trusted comment for tamper-evidence of the
// comment itself.
func (k *SigningKey) Sign(message []byte) ([]byte, error) {
	digest := blake2b.Sum512(message)
	sig := ed25519.Sign(k.priv, digest[:])

	sigBytes := append([]byte(minisignSigAlgPrehashed), k.keyID[:]...)
	sigBytes = append(sigBytes, sig...)

	trustedComment := fmt.Sprintf("timestamp:%d", time.Now().Unix())
	globalSig := ed25519.Sign(k.priv, append(append([]byte{}, sig...), []byte(trustedComment)...))

	out := fmt.Sprintf(
		"untrusted comment: signature from rustbridge bundle writer\n%s\ntrusted comment: %s\n%s\n",
		base64.StdEncoding.EncodeToString(sigBytes),
		trustedComment,
		base64.StdEncoding.EncodeToString(globalSig),
	)
	return []byte(out), nil
}

// verifyDetached checks sigFile against message using the manifest's
// public key, optionally pinned to an expected key per spec.md §4.H's
// "defense in depth" clause.
func verifyDetached(manifestPublicKey, pinnedPublicKey string, message, sigFile []byte) error {
	if pinnedPublicKey != "" && pinnedPublicKey != manifestPublicKey {
		return errcode.New(errcode.ConfigError, "manifest public_key does not match pinned key")
	}
	if manifestPublicKey == "" {
		return errcode.New(errcode.ConfigError, "manifest has no public_key to verify against")
	}
	if len(sigFile) == 0 {
		return errcode.New(errcode.ConfigError, "missing required .minisig signature")
	}

	pk, err := minisign.NewPublicKey(manifestPublicKey)
	if err != nil {
		return errcode.Wrap(errcode.ConfigError, err, "parse manifest public_key")
	}
	sig, err := minisign.DecodeSignature(string(sigFile))
	if err != nil {
		return errcode.Wrap(errcode.ConfigError, err, "parse detached signature")
	}

	ok, err := pk.Verify(message, sig)
	if err != nil {
		return errcode.Wrap(errcode.Internal, err, "verify signature")
	}
	if !ok {
		return errcode.New(errcode.ConfigError, "signature verification failed: tampered or wrong key")
	}
	return nil
}
