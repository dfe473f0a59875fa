package control

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Config says how a worker reaches its peer.
type Config struct {
	// Role is "listen" or "connect".
	Role string `yaml:"role" json:"role"`

	// Address is host:port.
	Address string `yaml:"address" json:"address"`

	// Transport is "tcp" (newline-framed, the default) or
	// "websocket".
	Transport string `yaml:"transport,omitempty" json:"transport,omitempty"`

	// Path is the WebSocket path (default "/control").
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// TLS is optional.  When it's given, each side presents its
	// certificate, and a CA (if given) is required to have signed
	// the peer's.
	TLS *TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`

	// RetryInterval is the pause between connection attempts.
	RetryInterval time.Duration `yaml:"retryInterval,omitempty" json:"retryInterval,omitempty"`
}

const (
	RoleListen  = "listen"
	RoleConnect = "connect"

	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"

	DefaultPath          = "/control"
	DefaultRetryInterval = 500 * time.Millisecond
)

// TLSConfig names PEM files.
type TLSConfig struct {
	Cert string `yaml:"cert" json:"cert"`
	Key  string `yaml:"key" json:"key"`
	CA   string `yaml:"ca,omitempty" json:"ca,omitempty"`

	// Insecure skips verification of the peer's certificate.
	Insecure bool `yaml:"insecure,omitempty" json:"insecure,omitempty"`

	// ServerName overrides the name checked in the listener's
	// certificate.
	ServerName string `yaml:"serverName,omitempty" json:"serverName,omitempty"`
}

// Defaults fills in empty fields.
func (c *Config) Defaults() {
	if c.Transport == "" {
		c.Transport = TransportTCP
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
}

// Validate checks the enumerations and required fields.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleListen, RoleConnect:
	default:
		return fmt.Errorf(`control role "%s" isn't "%s" or "%s"`, c.Role, RoleListen, RoleConnect)
	}
	switch c.Transport {
	case "", TransportTCP, TransportWebSocket:
	default:
		return fmt.Errorf(`control transport "%s" isn't "%s" or "%s"`, c.Transport, TransportTCP, TransportWebSocket)
	}
	if c.Address == "" {
		return errors.New("control address is required")
	}
	if c.TLS != nil && (c.TLS.Cert == "" || c.TLS.Key == "") {
		return errors.New("control tls needs both cert and key")
	}
	return nil
}

// Load builds a tls.Config for one side of the link.
func (c *TLSConfig) Load(server bool) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.Cert, c.Key)
	if err != nil {
		return nil, errors.Wrap(err, "control tls key pair")
	}
	conf := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: c.Insecure,
		ServerName:         c.ServerName,
		MinVersion:         tls.VersionTLS12,
	}

	if c.CA != "" {
		pem, err := os.ReadFile(c.CA)
		if err != nil {
			return nil, errors.Wrap(err, "control tls ca")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", c.CA)
		}
		if server {
			conf.ClientCAs = pool
			conf.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			conf.RootCAs = pool
		}
	} else if server {
		conf.ClientAuth = tls.RequireAnyClientCert
	}

	return conf, nil
}

// Dial listens or connects according to the Config's Role.
func Dial(ctx context.Context, cfg *Config) (Transport, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Role == RoleListen {
		return Listen(ctx, cfg)
	}
	return Connect(ctx, cfg)
}

// Listen accepts one peer on the Config's address.
func Listen(ctx context.Context, cfg *Config) (Transport, error) {
	cfg.Defaults()
	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, err
	}
	return Accept(ctx, ln, cfg)
}

// HandshakeTimeout bounds an inbound TLS handshake.
var HandshakeTimeout = 10 * time.Second

var acceptPause = 50 * time.Millisecond

// Accept accepts one peer on the given listener, which is then
// closed.  Connections that fail the TLS handshake are dropped, and
// Accept keeps waiting until the context is done.
func Accept(ctx context.Context, ln net.Listener, cfg *Config) (Transport, error) {
	cfg.Defaults()
	defer ln.Close()

	if cfg.TLS != nil && cfg.Transport != TransportWebSocket {
		conf, err := cfg.TLS.Load(true)
		if err != nil {
			return nil, err
		}
		ln = tls.NewListener(ln, conf)
	}

	if cfg.Transport == TransportWebSocket {
		return acceptWebSocket(ctx, ln, cfg)
	}

	type accepted struct {
		conn net.Conn
		err  error
	}
	c := make(chan accepted, 1)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
					time.Sleep(acceptPause)
					continue
				}
				c <- accepted{nil, err}
				return
			}
			if tc, is := conn.(*tls.Conn); is {
				hctx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
				err = tc.HandshakeContext(hctx)
				cancel()
				if err != nil {
					// Not our peer.
					conn.Close()
					continue
				}
			}
			c <- accepted{conn, nil}
			return
		}
	}()

	select {
	case <-ctx.Done():
		ln.Close()
		return nil, ctx.Err()
	case a := <-c:
		if a.err != nil {
			if a.conn != nil {
				a.conn.Close()
			}
			return nil, a.err
		}
		return NewLineTransport(a.conn), nil
	}
}

func acceptWebSocket(ctx context.Context, ln net.Listener, cfg *Config) (Transport, error) {
	var upgrader = websocket.Upgrader{} // use default options

	conns := make(chan *websocket.Conn, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		select {
		case conns <- c:
		default:
			// Already have our peer.
			c.Close()
		}
	})

	srv := &http.Server{Handler: mux}
	errs := make(chan error, 1)
	go func() {
		if cfg.TLS != nil {
			conf, err := cfg.TLS.Load(true)
			if err != nil {
				errs <- err
				return
			}
			srv.TLSConfig = conf
			errs <- srv.ServeTLS(ln, "", "")
			return
		}
		errs <- srv.Serve(ln)
	}()

	// Hijacked connections survive srv.Close.
	defer srv.Close()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errs:
		return nil, err
	case c := <-conns:
		return NewWebSocketTransport(c), nil
	}
}

// Connect connects to the peer, retrying until the context is done.
func Connect(ctx context.Context, cfg *Config) (Transport, error) {
	cfg.Defaults()

	var conf *tls.Config
	if cfg.TLS != nil {
		var err error
		if conf, err = cfg.TLS.Load(false); err != nil {
			return nil, err
		}
	}

	for {
		t, err := connect(ctx, cfg, conf)
		if err == nil {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(err, "control connect")
		case <-time.After(cfg.RetryInterval):
		}
	}
}

func connect(ctx context.Context, cfg *Config, conf *tls.Config) (Transport, error) {
	if cfg.Transport == TransportWebSocket {
		scheme := "ws"
		if conf != nil {
			scheme = "wss"
		}
		dialer := websocket.Dialer{
			TLSClientConfig:  conf,
			HandshakeTimeout: 10 * time.Second,
		}
		c, _, err := dialer.DialContext(ctx, scheme+"://"+cfg.Address+cfg.Path, nil)
		if err != nil {
			return nil, err
		}
		return NewWebSocketTransport(c), nil
	}

	if conf != nil {
		d := &tls.Dialer{Config: conf}
		conn, err := d.DialContext(ctx, "tcp", cfg.Address)
		if err != nil {
			return nil, err
		}
		return NewLineTransport(conn), nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, err
	}
	return NewLineTransport(conn), nil
}
