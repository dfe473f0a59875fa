package control

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

// pairOver connects a listening and a connecting Link using the
// given Config (without Role or Address).
func pairOver(t *testing.T, cfg Config) (*Link, *Link) {
	ln, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server := cfg
	server.Role = RoleListen
	client := cfg
	client.Role = RoleConnect
	client.Address = ln.Addr().String()

	accepted := make(chan Transport, 1)
	go func() {
		tr, err := Accept(ctx, ln, &server)
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- tr
	}()

	ct, err := Dial(ctx, &client)
	require.NoError(t, err)
	st := <-accepted
	require.NotNil(t, st)

	a, b := NewLink(quietLogger()), NewLink(quietLogger())
	require.NoError(t, a.Attach(st))
	require.NoError(t, b.Attach(ct))

	t.Cleanup(func() {
		a.Close()
		b.Close()
	})

	return a, b
}

func exercise(t *testing.T, a, b *Link) {
	ctx := context.Background()
	require.True(t, a.WaitReady(ctx, 5*time.Second))
	require.True(t, b.WaitReady(ctx, 5*time.Second))

	require.NoError(t, b.Sync([]interface{}{"42"}))
	vals, ok := a.WaitSync(ctx, 5*time.Second)
	require.True(t, ok)
	assert.Equal(t, []interface{}{"42"}, vals)

	require.NoError(t, a.Disconnect())
	require.NoError(t, b.Disconnect())
	assert.True(t, a.WaitInactive(ctx, 5*time.Second))
	assert.True(t, b.WaitInactive(ctx, 5*time.Second))
}

func TestDialTCP(t *testing.T) {
	a, b := pairOver(t, Config{})
	exercise(t, a, b)
}

func TestDialWebSocket(t *testing.T) {
	a, b := pairOver(t, Config{Transport: TransportWebSocket})
	exercise(t, a, b)
}

func TestDialTLS(t *testing.T) {
	tc := writeSelfSigned(t)
	a, b := pairOver(t, Config{TLS: tc})
	exercise(t, a, b)
}

func TestDialWebSocketTLS(t *testing.T) {
	tc := writeSelfSigned(t)
	a, b := pairOver(t, Config{Transport: TransportWebSocket, TLS: tc})
	exercise(t, a, b)
}

func TestAcceptOutlivesStrangers(t *testing.T) {
	tc := writeSelfSigned(t)
	ln, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accepted := make(chan Transport, 1)
	go func() {
		tr, err := Accept(ctx, ln, &Config{Role: RoleListen, TLS: tc})
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- tr
	}()

	// Something that doesn't speak TLS, and something that hangs up.
	for _, junk := range []string{"GET / HTTP/1.0\r\n\r\n", ""} {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		conn.Write([]byte(junk))
		conn.Close()
	}

	ct, err := Dial(ctx, &Config{Role: RoleConnect, Address: addr, TLS: tc})
	require.NoError(t, err)
	st := <-accepted
	require.NotNil(t, st)

	a, b := NewLink(quietLogger()), NewLink(quietLogger())
	require.NoError(t, a.Attach(st))
	require.NoError(t, b.Attach(ct))
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	exercise(t, a, b)
}

func TestConnectGivesUp(t *testing.T) {
	ln, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = Connect(ctx, &Config{Role: RoleConnect, Address: addr, RetryInterval: 10 * time.Millisecond})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"listen", Config{Role: RoleListen, Address: ":8000"}, true},
		{"connect ws", Config{Role: RoleConnect, Address: "h:8000", Transport: TransportWebSocket}, true},
		{"bad role", Config{Role: "both", Address: ":8000"}, false},
		{"bad transport", Config{Role: RoleListen, Address: ":8000", Transport: "udp"}, false},
		{"no address", Config{Role: RoleListen}, false},
		{"half tls", Config{Role: RoleListen, Address: ":8000", TLS: &TLSConfig{Cert: "c.pem"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// writeSelfSigned writes a certificate for 127.0.0.1 that also serves
// as its own CA.
func writeSelfSigned(t *testing.T) *TLSConfig {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "worker"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	kder, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: kder}), 0600))

	return &TLSConfig{
		Cert: certFile,
		Key:  keyFile,
		CA:   certFile,
	}
}
