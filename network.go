package hiero

import (
	"strings"

	"github.com/pkg/errors"
)

func init() {
	MainNetParams.Name = NetworkMainNet
	MainNetParams.LedgerID = []byte{0x00}
	MainNetParams.MirrorBaseURL = "https://mainnet-public.mirrornode.hedera.com/api/v1"
	MainNetParams.Nodes = []NodeAddress{
		{AccountID: AccountID{Num: 3}, Address: "35.237.200.180:50211"},
		{AccountID: AccountID{Num: 4}, Address: "35.186.191.247:50211"},
		{AccountID: AccountID{Num: 5}, Address: "35.192.2.25:50211"},
		{AccountID: AccountID{Num: 6}, Address: "35.199.161.108:50211"},
	}

	TestNetParams.Name = NetworkTestNet
	TestNetParams.LedgerID = []byte{0x01}
	TestNetParams.MirrorBaseURL = "https://testnet.mirrornode.hedera.com/api/v1"
	TestNetParams.Nodes = []NodeAddress{
		{AccountID: AccountID{Num: 3}, Address: "0.testnet.hedera.com:50211"},
		{AccountID: AccountID{Num: 4}, Address: "1.testnet.hedera.com:50211"},
		{AccountID: AccountID{Num: 5}, Address: "2.testnet.hedera.com:50211"},
		{AccountID: AccountID{Num: 6}, Address: "3.testnet.hedera.com:50211"},
	}

	PreviewNetParams.Name = NetworkPreviewNet
	PreviewNetParams.LedgerID = []byte{0x02}
	PreviewNetParams.MirrorBaseURL = "https://previewnet.mirrornode.hedera.com/api/v1"
	PreviewNetParams.Nodes = []NodeAddress{
		{AccountID: AccountID{Num: 3}, Address: "0.previewnet.hedera.com:50211"},
		{AccountID: AccountID{Num: 4}, Address: "1.previewnet.hedera.com:50211"},
	}

	LocalNetParams.Name = NetworkLocalNet
	LocalNetParams.LedgerID = []byte{0x03}
	LocalNetParams.MirrorBaseURL = "http://localhost:5551/api/v1"
	LocalNetParams.Nodes = []NodeAddress{
		{AccountID: AccountID{Num: 3}, Address: "localhost:50211"},
	}
}

type NetworkParams struct {
	Name          Network
	LedgerID      []byte
	MirrorBaseURL string
	Nodes         []NodeAddress
}

var MainNetParams = NetworkParams{}
var TestNetParams = NetworkParams{}
var PreviewNetParams = NetworkParams{}
var LocalNetParams = NetworkParams{}

const (
	NetworkMainNet    Network = "mainnet"
	NetworkTestNet    Network = "testnet"
	NetworkPreviewNet Network = "previewnet"
	NetworkLocalNet   Network = "localnet"
)

type Network string

func (n Network) Valid() bool {
	return n == NetworkMainNet || n == NetworkTestNet || n == NetworkPreviewNet || n == NetworkLocalNet
}

func (n Network) Params() (params *NetworkParams, err error) {
	switch n {
	case NetworkMainNet:
		params = &MainNetParams
	case NetworkTestNet:
		params = &TestNetParams
	case NetworkPreviewNet:
		params = &PreviewNetParams
	case NetworkLocalNet:
		params = &LocalNetParams
	default:
		err = errors.Wrapf(ErrInvalidFormat, "unknown network '%s'", n)
	}
	return
}

// entityChecksum computes the base-26 checksum for a dotted entity id string,
// salted with the network ledger id. The checksum is advisory: it is never
// embedded in the wire form and never part of equality.
func entityChecksum(id string, ledgerID []byte) string {
	const (
		p3 = 26 * 26 * 26
		p5 = 26 * 26 * 26 * 26 * 26
		w  = 31
		m  = 1_000_003
	)

	h := make([]int64, 0, len(ledgerID)+6)
	for _, b := range ledgerID {
		h = append(h, int64(b))
	}
	for i := 0; i < 6; i++ {
		h = append(h, 0)
	}

	d := make([]int64, len(id))
	for i, c := range id {
		if c == '.' {
			d[i] = 10
		} else {
			d[i] = int64(c - '0')
		}
	}

	var sd0, sd1, sd, sh int64
	for i, digit := range d {
		sd = (w*sd + digit) % p3
		if i%2 == 0 {
			sd0 = (sd0 + digit) % 11
		} else {
			sd1 = (sd1 + digit) % 11
		}
	}
	for _, b := range h {
		sh = (w*sh + b) % p5
	}

	c := ((((int64(len(id)%5)*11+sd0)*11+sd1)*p3 + sd + sh) % p5) * m % p5

	var sb strings.Builder
	out := make([]byte, 5)
	for i := 4; i >= 0; i-- {
		out[i] = byte('a' + c%26)
		c /= 26
	}
	sb.Write(out)

	return sb.String()
}
