package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

// QUICTransport listens for the legacy client over QUIC and serves the
// first bidirectional stream of each connection as the byte stream.
// Useful when the client side is itself a remote bridge.
type QUICTransport struct {
	listener *quic.Listener
	udpConn  *net.UDPConn
	closed   atomic.Bool
}

// NewQUIC creates a listening QUIC transport. When tlsConfig is nil a
// self-signed certificate is generated.
func NewQUIC(addr string, tlsConfig *tls.Config) (*QUICTransport, error) {
	if tlsConfig == nil {
		var err error
		tlsConfig, err = generateTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to generate TLS config: %w", err)
		}
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", addr, err)
	}

	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	listener, err := quic.Listen(udpConn, tlsConfig, nil)
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("failed to create QUIC listener: %w", err)
	}

	return &QUICTransport{listener: listener, udpConn: udpConn}, nil
}

// Open accepts the next connection and its first bidirectional stream
func (t *QUICTransport) Open(ctx context.Context) (Stream, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	conn, err := t.listener.Accept(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if t.closed.Load() {
			return nil, ErrTransportClosed
		}
		return nil, fmt.Errorf("accept failed: %w", err)
	}

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "no stream")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to accept stream: %w", err)
	}

	return &quicStream{conn: conn, stream: stream}, nil
}

// Close stops listening
func (t *QUICTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := t.listener.Close()
	t.udpConn.Close()
	return err
}

// Kind returns the transport name
func (t *QUICTransport) Kind() string {
	return "quic"
}

// quicStream ties a stream's lifetime to its connection
type quicStream struct {
	conn   *quic.Conn
	stream *quic.Stream
}

func (s *quicStream) Read(p []byte) (int, error)  { return s.stream.Read(p) }
func (s *quicStream) Write(p []byte) (int, error) { return s.stream.Write(p) }

func (s *quicStream) Close() error {
	s.stream.Close()
	return s.conn.CloseWithError(0, "session closed")
}

// generateTLSConfig generates a self-signed certificate for QUIC
func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{tlsCert},
		NextProtos:         []string{"tnc-quic"},
		InsecureSkipVerify: true, // For self-signed certs
	}, nil
}
