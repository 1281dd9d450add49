package hiero

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// Key pair from the SDK reference test vectors.
const (
	testPrivateKeyDer = "302e020100300506032b657004220420db484b828e64b2d8f12ce3c0a0e93a0b8cce7af1bb8f39c97732394482538e10"
	testPublicKeyDer  = "302a300506032b6570032100e0c8ec2758a5879ffac226a13c0c516b799e72e35141a0dd828f94d37988a4b7"
)

func TestPrivateKey_ParseFormats(t *testing.T) {
	fromDer, err := PrivateKeyFromString(testPrivateKeyDer)
	if err != nil {
		t.Fatalf("parse der: %+v", err)
	}

	raw := strings.TrimPrefix(testPrivateKeyDer, privateKeyDerPrefix)
	fromRaw, err := PrivateKeyFromString(raw)
	if err != nil {
		t.Fatalf("parse raw: %+v", err)
	}
	fromPrefixed, err := PrivateKeyFromString("0x" + raw)
	if err != nil {
		t.Fatalf("parse 0x raw: %+v", err)
	}

	if fromDer.StringRaw() != raw || fromRaw.StringRaw() != raw || fromPrefixed.StringRaw() != raw {
		t.Fatalf("parse forms disagree")
	}
	if fromDer.StringDer() != testPrivateKeyDer {
		t.Fatalf("der round trip: %s", fromDer.StringDer())
	}
	if fromDer.PublicKey().StringDer() != testPublicKeyDer {
		t.Fatalf("derived public key mismatch: %s", fromDer.PublicKey().StringDer())
	}
}

func TestPrivateKey_ParseRejectsMalformed(t *testing.T) {
	malformed := []string{
		"",
		"zz",
		"abcd",
		strings.Repeat("ab", 33),
	}

	for _, in := range malformed {
		if _, err := PrivateKeyFromString(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("parse %q: expected format error, got %+v", in, err)
		}
	}
}

func TestPublicKey_ParseFormats(t *testing.T) {
	fromDer, err := PublicKeyFromString(testPublicKeyDer)
	if err != nil {
		t.Fatalf("parse der: %+v", err)
	}

	raw := strings.TrimPrefix(testPublicKeyDer, publicKeyDerPrefix)
	fromRaw, err := PublicKeyFromString(raw)
	if err != nil {
		t.Fatalf("parse raw: %+v", err)
	}

	if !fromDer.Equal(fromRaw) {
		t.Fatalf("der and raw forms disagree")
	}
	if fromDer.StringRaw() != raw {
		t.Fatalf("raw round trip: %s", fromDer.StringRaw())
	}

	if _, err = PublicKeyFromString("abcd"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected format error for short key, got %+v", err)
	}
}

func TestPrivateKey_SignVerify(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %+v", err)
	}

	message := []byte("sign me")
	signature := key.Sign(message)

	if !key.PublicKey().Verify(message, signature) {
		t.Fatalf("signature does not verify")
	}
	if key.PublicKey().Verify([]byte("not the message"), signature) {
		t.Fatalf("signature verified the wrong message")
	}

	other, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %+v", err)
	}
	if other.PublicKey().Verify(message, signature) {
		t.Fatalf("signature verified under the wrong key")
	}
}

func TestPrivateKey_FromMnemonic(t *testing.T) {
	mnemonic := strings.Repeat("abandon ", 11) + "about"

	first, err := PrivateKeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("derive: %+v", err)
	}
	second, err := PrivateKeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("derive again: %+v", err)
	}

	if first.StringRaw() != second.StringRaw() {
		t.Fatalf("derivation is not deterministic")
	}

	withPassphrase, err := PrivateKeyFromMnemonic(mnemonic, "secret")
	if err != nil {
		t.Fatalf("derive with passphrase: %+v", err)
	}
	if withPassphrase.StringRaw() == first.StringRaw() {
		t.Fatalf("passphrase must change the derived key")
	}

	// The derived key is a working signing key.
	message := []byte("derived")
	if !first.PublicKey().Verify(message, first.Sign(message)) {
		t.Fatalf("derived key cannot sign")
	}

	if _, err = PrivateKeyFromMnemonic("definitely not a mnemonic", ""); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected format error for a bad mnemonic, got %+v", err)
	}
}
