package hiero

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

const EvmAddressLength = 20

// EvmAddress is a 20-byte EVM account address.
type EvmAddress [EvmAddressLength]byte

func EvmAddressFromString(s string) (addr EvmAddress, err error) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(trimmed) != EvmAddressLength*2 {
		err = errors.Wrapf(ErrInvalidFormat, "evm address '%s' must be 20 bytes of hex", s)
		return
	}

	decoded, err2 := hex.DecodeString(trimmed)
	if err2 != nil {
		err = errors.Wrapf(ErrInvalidFormat, "evm address '%s' is not valid hex", s)
		return
	}

	copy(addr[:], decoded)
	return
}

func EvmAddressFromBytes(b []byte) (addr EvmAddress, err error) {
	if len(b) != EvmAddressLength {
		err = errors.Wrapf(ErrInvalidFormat, "evm address must be %d bytes, got %d", EvmAddressLength, len(b))
		return
	}
	copy(addr[:], b)
	return
}

func (a EvmAddress) Bytes() []byte {
	out := make([]byte, EvmAddressLength)
	copy(out, a[:])
	return out
}

func (a EvmAddress) String() string {
	return "0x" + hex.EncodeToString(a[:])
}
