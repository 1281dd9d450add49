package hiero

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var entityIDRegex = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-([a-z]{5}))?$`)
var entityAliasRegex = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.((?:[0-9a-fA-F]{2})+)$`)

// AccountID identifies an account on the network.
//
// The numeric form is `shard.realm.num`. The account component may instead be
// an alias: either a public key or a 20-byte EVM address. Alias forms carry
// Num == 0 until resolved through the mirror node, and exactly one of the
// three identities is ever active.
//
// Equality covers (shard, realm, num, alias key, evm address). The checksum
// is advisory, validated against a network, and never part of equality.
type AccountID struct {
	Shard uint64
	Realm uint64
	Num   uint64

	AliasKey   *PublicKey
	EvmAddress *EvmAddress

	checksum string
}

// AccountIDFromString parses an account id from any of its string forms:
// `shard.realm.num`, `shard.realm.num-checksum`, `shard.realm.<hex-alias>`,
// or a raw/0x-prefixed 20-byte EVM address.
func AccountIDFromString(s string) (id AccountID, err error) {
	if isEvmAddressString(s) {
		// EVM addresses carry no shard or realm information; both default
		// to 0 and the numeric id can be resolved later via the mirror node.
		return AccountIDFromEvmAddress(s, 0, 0)
	}

	if match := entityIDRegex.FindStringSubmatch(s); match != nil {
		id.Shard, _ = strconv.ParseUint(match[1], 10, 64)
		id.Realm, _ = strconv.ParseUint(match[2], 10, 64)
		id.Num, _ = strconv.ParseUint(match[3], 10, 64)
		id.checksum = match[4]
		return
	}

	if match := entityAliasRegex.FindStringSubmatch(s); match != nil {
		id.Shard, _ = strconv.ParseUint(match[1], 10, 64)
		id.Realm, _ = strconv.ParseUint(match[2], 10, 64)

		aliasBytes, _ := hex.DecodeString(match[3])

		// 20 bytes is an EVM address, anything else is treated as a raw
		// public key. Num stays 0 until populated from the mirror node.
		if len(aliasBytes) == EvmAddressLength {
			addr, _ := EvmAddressFromBytes(aliasBytes)
			id.EvmAddress = &addr
			return
		}

		key, err2 := PublicKeyFromBytes(aliasBytes)
		if err2 != nil {
			err = errors.Wrapf(ErrInvalidFormat, "account id '%s' alias is not a valid public key", s)
			return
		}
		id.AliasKey = &key
		return
	}

	err = errors.Wrapf(
		ErrInvalidFormat,
		"invalid account id string '%s', supported formats: 'shard.realm.num', "+
			"'shard.realm.num-checksum', 'shard.realm.<hex-alias>', or a 20-byte evm address",
		s,
	)
	return
}

// AccountIDFromEvmAddress builds an alias account id from an EVM address.
// Shard and realm should be 0 when unknown.
func AccountIDFromEvmAddress(address string, shard, realm uint64) (id AccountID, err error) {
	addr, err := EvmAddressFromString(address)
	if err != nil {
		return
	}

	id = AccountID{Shard: shard, Realm: realm, EvmAddress: &addr}
	return
}

// AccountIDFromBytes deserializes an account id from its protobuf form.
func AccountIDFromBytes(data []byte) (id AccountID, err error) {
	return parseAccountID(data)
}

// ToBytes serializes the account id to its protobuf form. The checksum is
// advisory and never included.
func (id AccountID) ToBytes() []byte {
	return appendAccountID(nil, id)
}

func (id AccountID) String() string {
	if id.AliasKey != nil {
		return fmt.Sprintf("%d.%d.%s", id.Shard, id.Realm, id.AliasKey.StringRaw())
	}
	if id.EvmAddress != nil {
		return fmt.Sprintf("%d.%d.%s", id.Shard, id.Realm, id.EvmAddress)
	}
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

// Checksum returns the checksum parsed from the original string, if any.
func (id AccountID) Checksum() string {
	return id.checksum
}

// ToStringWithChecksum renders `shard.realm.num-checksum` for the client's
// network. Alias and EVM forms have no checksum.
func (id AccountID) ToStringWithChecksum(client *Client) (out string, err error) {
	if id.AliasKey != nil || id.EvmAddress != nil {
		err = errors.Wrap(ErrInvalidFormat, "cannot calculate checksum for an account id with an alias key or evm address")
		return
	}

	plain := fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
	out = plain + "-" + entityChecksum(plain, client.params.LedgerID)
	return
}

// ValidateChecksum verifies the parsed checksum against the client's network.
// Account ids without a checksum pass.
func (id AccountID) ValidateChecksum(client *Client) (err error) {
	if id.AliasKey != nil || id.EvmAddress != nil {
		return errors.Wrap(ErrInvalidFormat, "cannot validate checksum for an account id with an alias key or evm address")
	}

	if id.checksum == "" {
		return
	}

	plain := fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
	expected := entityChecksum(plain, client.params.LedgerID)
	if id.checksum != expected {
		err = errors.Wrapf(ErrInvalidFormat, "checksum '%s' for account id %s does not match expected '%s' on %s",
			id.checksum, plain, expected, client.params.Name)
	}
	return
}

// Equal compares the full identity: shard, realm, num, alias key and evm
// address. Checksums are ignored.
func (id AccountID) Equal(other AccountID) bool {
	if id.Shard != other.Shard || id.Realm != other.Realm || id.Num != other.Num {
		return false
	}
	if (id.AliasKey == nil) != (other.AliasKey == nil) {
		return false
	}
	if id.AliasKey != nil && !id.AliasKey.Equal(*other.AliasKey) {
		return false
	}
	if (id.EvmAddress == nil) != (other.EvmAddress == nil) {
		return false
	}
	if id.EvmAddress != nil && *id.EvmAddress != *other.EvmAddress {
		return false
	}
	return true
}

// mapKey buckets by (shard, realm, num) only. Alias and EVM variants of an
// unresolved account sharing a bucket is accepted.
func (id AccountID) mapKey() string {
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

// ToEvmAddress returns the EVM-compatible address: the alias address when
// present, otherwise the long-zero encoding of (shard, realm, num).
func (id AccountID) ToEvmAddress() string {
	if id.EvmAddress != nil {
		return id.EvmAddress.String()
	}

	out := make([]byte, EvmAddressLength)
	out[0] = byte(id.Shard >> 24)
	out[1] = byte(id.Shard >> 16)
	out[2] = byte(id.Shard >> 8)
	out[3] = byte(id.Shard)
	for i := 0; i < 8; i++ {
		out[4+i] = byte(id.Realm >> (56 - 8*i))
		out[12+i] = byte(id.Num >> (56 - 8*i))
	}
	return "0x" + hex.EncodeToString(out)
}

// PopulateAccountNum resolves the numeric account id for an EVM-address alias
// through the mirror node, returning a new populated instance.
func (id AccountID) PopulateAccountNum(client *Client) (populated AccountID, err error) {
	if id.EvmAddress == nil {
		err = errors.Wrap(ErrInvalidFormat, "account evm address is required before populating num")
		return
	}

	account, err := client.mirrorAccountField(strings.TrimPrefix(id.EvmAddress.String(), "0x"), "account")
	if err != nil {
		return
	}

	parts := strings.Split(account, ".")
	num, err2 := strconv.ParseUint(parts[len(parts)-1], 10, 64)
	if err2 != nil {
		err = errors.Wrapf(ErrMirrorLookup, "invalid account format received: %s", account)
		return
	}

	populated = AccountID{Shard: id.Shard, Realm: id.Realm, Num: num, EvmAddress: id.EvmAddress}
	return
}

// PopulateEvmAddress resolves the EVM address for a numeric account id
// through the mirror node, returning a new populated instance.
func (id AccountID) PopulateEvmAddress(client *Client) (populated AccountID, err error) {
	if id.Num == 0 {
		err = errors.Wrap(ErrInvalidFormat, "account num is required before populating evm address")
		return
	}

	field, err := client.mirrorAccountField(strconv.FormatUint(id.Num, 10), "evm_address")
	if err != nil {
		return
	}

	addr, err := EvmAddressFromString(field)
	if err != nil {
		return
	}

	populated = AccountID{Shard: id.Shard, Realm: id.Realm, Num: id.Num, EvmAddress: &addr}
	return
}

func isEvmAddressString(s string) bool {
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed) != EvmAddressLength*2 {
		return false
	}
	_, err := hex.DecodeString(trimmed)
	return err == nil
}
