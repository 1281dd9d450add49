package hiero

import (
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

// Timeout for the handshake used to harvest a server certificate before a
// secure channel is built.
const certFetchTimeout = time.Second * 10

// trustManager validates server certificates by comparing the SHA-384 hash
// of the PEM-encoded certificate against the expected hash from the address
// book. Hostname verification plays no part: nodes are addressed by IP and
// their certificates are not issued for those IPs, so trust rests entirely
// on this pinning.
type trustManager struct {
	certHash string // lowercase hex, empty means accept any certificate
}

func newTrustManager(certHash []byte, verifyCertificate bool) (manager trustManager, err error) {
	if len(certHash) == 0 {
		if verifyCertificate {
			err = errors.Wrap(
				ErrCertificateTrust,
				"transport security and certificate verification are enabled, but no applicable address book entry was found",
			)
			return
		}
		return
	}

	manager.certHash = NodeAddress{CertHash: certHash}.normalizedCertHash()
	return
}

// trustDigest is the comparison key for a PEM certificate: lowercase hex of
// its SHA-384 digest.
func trustDigest(pemCert []byte) string {
	digest := sha512.Sum384(pemCert)
	return hex.EncodeToString(digest[:])
}

func (t trustManager) checkServerTrusted(pemCert []byte) (err error) {
	if t.certHash == "" {
		return
	}

	actual := trustDigest(pemCert)

	if actual != t.certHash {
		err = errors.Wrapf(
			ErrCertificateTrust,
			"failed to confirm the server's certificate from a known address book, expected hash: %s, received hash: %s",
			t.certHash, actual,
		)
	}
	return
}

// Node is a single consensus node: its account id, network address and
// address-book entry, with a lazily created, cached channel. Channel creation
// is race-safe; the first caller wins and later callers observe the cache.
// Any trust-affecting mutation closes the cached channel so the next use
// re-establishes it under the new policy.
type Node struct {
	accountID   AccountID
	address     managedNodeAddress
	addressBook NodeAddress

	mu                 sync.Mutex
	channel            *Channel
	verifyCertificates bool
	rootCertificates   []byte
	pemCert            []byte

	// extra dial options, used by tests to inject in-process transports
	dialOptions []grpc.DialOption
}

func NewNode(accountID AccountID, address string, addressBook NodeAddress) (node *Node, err error) {
	managed, err := managedNodeAddressFromString(address)
	if err != nil {
		return
	}

	node = &Node{
		accountID:          accountID,
		address:            managed,
		addressBook:        addressBook,
		verifyCertificates: true,
	}
	return
}

func (n *Node) AccountID() AccountID {
	return n.accountID
}

func (n *Node) Address() string {
	return n.address.String()
}

// Close drops the cached channel. The next GetChannel call re-establishes it.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closeLocked()
}

func (n *Node) closeLocked() {
	if n.channel != nil {
		n.channel.Close()
		n.channel = nil
	}
}

// GetChannel returns the node's channel, creating and caching it on first
// use. Secure addresses require a certificate: either configured root
// certificates or one harvested from the server, hash-validated against the
// address book when verification is enabled.
func (n *Node) GetChannel() (channel *Channel, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		return n.channel, nil
	}

	if !n.address.isTransportSecurity() {
		channel, err = newPlainChannel(n.address.String(), n.dialOptions...)
		if err != nil {
			return
		}
		n.channel = channel
		return
	}

	if n.rootCertificates != nil {
		n.pemCert = n.rootCertificates
	} else {
		n.pemCert, err = n.fetchServerCertificatePEM()
		if err != nil {
			return
		}
	}

	if len(n.pemCert) == 0 {
		err = errors.Wrapf(ErrNoCertificate, "cannot build a secure channel to node %s without a certificate", n.accountID)
		return
	}

	if n.verifyCertificates {
		if err = n.validateCertificate(); err != nil {
			return
		}
	}

	channel, err = newSecureChannel(n.address.String(), n.pemCert, n.dialOptions...)
	if err != nil {
		return
	}
	n.channel = channel
	return
}

// SetTransportSecurity switches the node between the secure and plain ports,
// closing any cached channel when the mode actually changes.
func (n *Node) SetTransportSecurity(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if enabled == n.address.isTransportSecurity() {
		return
	}

	n.closeLocked()

	if enabled {
		n.address = n.address.toSecure()
	} else {
		n.address = n.address.toInsecure()
	}
}

// SetRootCertificates assigns custom root certificate PEM bytes, replacing
// the harvested server certificate for future channels.
func (n *Node) SetRootCertificates(pemCert []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.rootCertificates = pemCert
	if n.channel != nil && n.address.isTransportSecurity() {
		n.closeLocked()
	}
}

// SetVerifyCertificates toggles address-book hash verification. Enabling it
// over a live secure channel forces re-validation on next use.
func (n *Node) SetVerifyCertificates(verify bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.verifyCertificates == verify {
		return
	}

	n.verifyCertificates = verify

	if verify && n.channel != nil && n.address.isTransportSecurity() {
		n.closeLocked()
	}
}

func (n *Node) validateCertificate() (err error) {
	expected := n.addressBook.normalizedCertHash()

	// No hash in the address book means validation is skipped, not failed.
	// This keeps verification usable against networks that publish partial
	// address books, at the cost of accepting any certificate from those
	// nodes. Flag it loudly.
	if expected == "" {
		log.Warn().Msgf(
			"certificate verification enabled for node %s but no certificate hash in address book, skipping validation",
			n.accountID,
		)
		return
	}

	manager, err := newTrustManager(n.addressBook.CertHash, n.verifyCertificates)
	if err != nil {
		return
	}

	return manager.checkServerTrusted(n.pemCert)
}

// fetchServerCertificatePEM performs a TLS handshake solely to harvest the
// peer certificate. Any certificate is accepted at this stage; trust is
// established afterwards by hash pinning, not during the fetch.
func (n *Node) fetchServerCertificatePEM() (pemCert []byte, err error) {
	dialer := &net.Dialer{Timeout: certFetchTimeout}

	conn, err2 := tls.DialWithDialer(dialer, "tcp", n.address.String(), &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // trust is established by hash pinning
		MinVersion:         tls.VersionTLS12,
	})
	if err2 != nil {
		err = errors.Wrapf(ErrConnectivity, "failed to fetch certificate from node %s at %s: %v", n.accountID, n.address, err2)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	peerCertificates := conn.ConnectionState().PeerCertificates
	if len(peerCertificates) == 0 {
		err = errors.Wrapf(ErrNoCertificate, "node %s presented no certificate", n.accountID)
		return
	}

	pemCert = encodeCertificatePEM(peerCertificates[0])
	return
}

func encodeCertificatePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}
