package hiero

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// The TLS authority is overridden to a fixed loopback identity: nodes are
// addressed by IP from the address book and their certificates are not
// issued for those IPs, so standard hostname verification would fail even
// for legitimate nodes. Trust rests on certificate hash pinning instead.
const tlsAuthorityOverride = "127.0.0.1"

var channelKeepalive = keepalive.ClientParameters{
	Time:                time.Second * 100,
	Timeout:             time.Second * 10,
	PermitWithoutStream: true,
}

// Service methods the SDK invokes. Messages are pre-serialized by the wire
// codec, so calls go through a passthrough byte codec rather than generated
// stubs.
const (
	methodCryptoTransfer = "/proto.CryptoService/cryptoTransfer"
	methodSubmitMessage  = "/proto.ConsensusService/submitMessage"
	methodGetReceipt     = "/proto.CryptoService/getTransactionReceipts"
	methodGetRecord      = "/proto.CryptoService/getTxRecordByTxID"
)

type rawCodec struct{}

func (rawCodec) Marshal(v any) (out []byte, err error) {
	out, ok := v.([]byte)
	if !ok {
		err = errors.Errorf("raw codec can only marshal []byte, got %T", v)
	}
	return
}

func (rawCodec) Unmarshal(data []byte, v any) (err error) {
	target, ok := v.(*[]byte)
	if !ok {
		return errors.Errorf("raw codec can only unmarshal into *[]byte, got %T", v)
	}
	*target = data
	return
}

func (rawCodec) Name() string {
	return "proto"
}

// Channel wraps a single node connection.
type Channel struct {
	conn *grpc.ClientConn
}

func newPlainChannel(target string, extra ...grpc.DialOption) (channel *Channel, err error) {
	options := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(channelKeepalive),
	}, extra...)

	return dialChannel(target, options)
}

// newSecureChannel builds a TLS channel trusting exactly the given PEM
// certificate. Chain and hostname verification are replaced by pinning the
// handshake certificate to the fetched/verified one.
func newSecureChannel(target string, pemCert []byte, extra ...grpc.DialOption) (channel *Channel, err error) {
	pinned := trustManager{certHash: trustDigest(pemCert)}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // replaced by certificate pinning below
		ServerName:         tlsAuthorityOverride,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return errors.Wrap(ErrCertificateTrust, "server presented no certificate")
			}
			cert, err2 := x509.ParseCertificate(rawCerts[0])
			if err2 != nil {
				return errors.Wrap(ErrCertificateTrust, "server certificate could not be parsed")
			}
			return pinned.checkServerTrusted(encodeCertificatePEM(cert))
		},
	}

	options := append([]grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)),
		grpc.WithAuthority(tlsAuthorityOverride),
		grpc.WithKeepaliveParams(channelKeepalive),
	}, extra...)

	return dialChannel(target, options)
}

func dialChannel(target string, options []grpc.DialOption) (channel *Channel, err error) {
	conn, err2 := grpc.NewClient(target, options...)
	if err2 != nil {
		err = errors.Wrapf(ErrConnectivity, "failed to open channel to %s: %v", target, err2)
		return
	}

	channel = &Channel{conn: conn}
	return
}

func (c *Channel) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// invoke performs a unary call with pre-serialized request bytes, returning
// the raw response bytes.
func (c *Channel) invoke(ctx context.Context, method string, request []byte) (response []byte, err error) {
	err = c.conn.Invoke(ctx, method, request, &response, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		err = errors.Wrapf(ErrConnectivity, "%s failed: %v", method, err)
	}
	return
}
