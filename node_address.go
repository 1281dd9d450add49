package hiero

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	portNodePlain   = 50211
	portNodeTLS     = 50212
	portMirrorPlain = 5600
	portMirrorTLS   = 443
)

// NodeAddress is a single address-book entry: the node's account id, its
// network address, and the expected SHA-384 hash of its TLS certificate.
// CertHash may be UTF-8 hex text (optionally 0x-prefixed) or raw digest
// bytes; both normalize to the same lowercase hex comparison key.
type NodeAddress struct {
	AccountID AccountID
	Address   string
	CertHash  []byte
}

// normalizedCertHash returns the lowercase hex comparison key for the
// expected certificate hash, or "" when the entry has none.
func (a NodeAddress) normalizedCertHash() string {
	if len(a.CertHash) == 0 {
		return ""
	}
	if utf8.Valid(a.CertHash) && isHexString(strings.TrimSpace(string(a.CertHash))) {
		decoded := strings.ToLower(strings.TrimSpace(string(a.CertHash)))
		return strings.TrimPrefix(decoded, "0x")
	}
	return hex.EncodeToString(a.CertHash)
}

func isHexString(s string) bool {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if s == "" {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// managedNodeAddress is a host:port pair that knows whether its port implies
// transport security and how to switch between the secure and plain ports.
type managedNodeAddress struct {
	host string
	port int
}

func managedNodeAddressFromString(s string) (addr managedNodeAddress, err error) {
	host, portString, err2 := net.SplitHostPort(s)
	if err2 != nil {
		err = errors.Wrapf(ErrInvalidFormat, "node address '%s' must be host:port", s)
		return
	}

	port, err2 := strconv.Atoi(portString)
	if err2 != nil {
		err = errors.Wrapf(ErrInvalidFormat, "node address '%s' has a non-numeric port", s)
		return
	}

	addr = managedNodeAddress{host: host, port: port}
	return
}

func (a managedNodeAddress) isTransportSecurity() bool {
	return a.port == portNodeTLS || a.port == portMirrorTLS
}

func (a managedNodeAddress) toSecure() managedNodeAddress {
	switch a.port {
	case portNodePlain:
		a.port = portNodeTLS
	case portMirrorPlain:
		a.port = portMirrorTLS
	}
	return a
}

func (a managedNodeAddress) toInsecure() managedNodeAddress {
	switch a.port {
	case portNodeTLS:
		a.port = portNodePlain
	case portMirrorTLS:
		a.port = portMirrorPlain
	}
	return a
}

func (a managedNodeAddress) String() string {
	return fmt.Sprintf("%s:%d", a.host, a.port)
}
