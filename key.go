package hiero

import (
	"bytes"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// DER prefixes for ed25519 keys. Key material itself is delegated to
// crypto/ed25519; these wrappers only handle encoding and signing.
const (
	privateKeyDerPrefix = "302e020100300506032b657004220420"
	publicKeyDerPrefix  = "302a300506032b6570032100"
)

type PrivateKey struct {
	keyData ed25519.PrivateKey
}

type PublicKey struct {
	keyData ed25519.PublicKey
}

func GeneratePrivateKey() (key PrivateKey, err error) {
	_, keyData, err2 := ed25519.GenerateKey(rand.Reader)
	if err2 != nil {
		err = errors.WithStack(err2)
		return
	}
	key = PrivateKey{keyData: keyData}
	return
}

// PrivateKeyFromString parses a raw hex or DER-prefixed hex private key.
func PrivateKeyFromString(s string) (key PrivateKey, err error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	trimmed = strings.TrimPrefix(trimmed, privateKeyDerPrefix)

	seed, err2 := hex.DecodeString(trimmed)
	if err2 != nil || len(seed) != ed25519.SeedSize {
		err = errors.Wrapf(ErrInvalidFormat, "private key must be 32 bytes of hex, optionally DER prefixed")
		return
	}

	key = PrivateKey{keyData: ed25519.NewKeyFromSeed(seed)}
	return
}

// PrivateKeyFromMnemonic derives an ed25519 private key from a BIP-39
// mnemonic using SLIP-10 derivation along m/44'/3030'/0'/0'.
func PrivateKeyFromMnemonic(mnemonic, passphrase string) (key PrivateKey, err error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		err = errors.Wrap(ErrInvalidFormat, "invalid mnemonic")
		return
	}

	seed := bip39.NewSeed(mnemonic, passphrase)

	digest := hmac.New(sha512.New, []byte("ed25519 seed"))
	digest.Write(seed)
	sum := digest.Sum(nil)
	keyBytes, chainCode := sum[:32], sum[32:]

	for _, index := range []uint32{44, 3030, 0, 0} {
		payload := make([]byte, 0, 37)
		payload = append(payload, 0)
		payload = append(payload, keyBytes...)
		payload = binary.BigEndian.AppendUint32(payload, index|0x80000000)

		digest = hmac.New(sha512.New, chainCode)
		digest.Write(payload)
		sum = digest.Sum(nil)
		keyBytes, chainCode = sum[:32], sum[32:]
	}

	key = PrivateKey{keyData: ed25519.NewKeyFromSeed(keyBytes)}
	return
}

func (k PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.keyData, message)
}

func (k PrivateKey) PublicKey() PublicKey {
	return PublicKey{keyData: k.keyData.Public().(ed25519.PublicKey)}
}

func (k PrivateKey) Bytes() []byte {
	return k.keyData.Seed()
}

func (k PrivateKey) StringRaw() string {
	return hex.EncodeToString(k.keyData.Seed())
}

func (k PrivateKey) StringDer() string {
	return privateKeyDerPrefix + k.StringRaw()
}

func (k PrivateKey) String() string {
	return k.StringDer()
}

// PublicKeyFromString parses a raw hex or DER-prefixed hex public key.
func PublicKeyFromString(s string) (key PublicKey, err error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	trimmed = strings.TrimPrefix(trimmed, publicKeyDerPrefix)

	keyBytes, err2 := hex.DecodeString(trimmed)
	if err2 != nil {
		err = errors.Wrap(ErrInvalidFormat, "public key is not valid hex")
		return
	}

	return PublicKeyFromBytes(keyBytes)
}

func PublicKeyFromBytes(b []byte) (key PublicKey, err error) {
	if len(b) != ed25519.PublicKeySize {
		err = errors.Wrapf(ErrInvalidFormat, "public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
		return
	}
	key = PublicKey{keyData: append(ed25519.PublicKey{}, b...)}
	return
}

func (k PublicKey) Verify(message, signature []byte) bool {
	return ed25519.Verify(k.keyData, message, signature)
}

func (k PublicKey) Bytes() []byte {
	return append([]byte{}, k.keyData...)
}

func (k PublicKey) StringRaw() string {
	return hex.EncodeToString(k.keyData)
}

func (k PublicKey) StringDer() string {
	return publicKeyDerPrefix + k.StringRaw()
}

func (k PublicKey) String() string {
	return k.StringDer()
}

func (k PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(k.keyData, other.keyData)
}
