// Package fetch downloads profile files from remote archives over HTTP(S)
// and anonymous FTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/observability"
	"github.com/argodesk/argodesk/internal/resilience"
)

// ErrUnsupportedScheme is returned for URLs that are not http, https or ftp.
var ErrUnsupportedScheme = fmt.Errorf("%w: unsupported url scheme", argofloat.ErrInvalidInput)

// Uploader stores and ingests a downloaded file.
type Uploader interface {
	Upload(ctx context.Context, name string, body io.Reader) (*argofloat.IngestResult, error)
}

// FTPConn is the subset of an FTP session used for downloads.
type FTPConn interface {
	Login(user, password string) error
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// DialFunc opens an FTP session to addr (host:port).
type DialFunc func(ctx context.Context, addr string, timeout time.Duration) (FTPConn, error)

// Config holds configuration for a Fetcher.
type Config struct {
	// Timeout bounds each download attempt. Default: 60 seconds
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt. Default: 3
	MaxRetries uint64
	// Registry, when set, receives the HTTP and FTP executors.
	Registry *resilience.Registry
	// DialFTP opens FTP sessions. Nil dials a real server.
	DialFTP DialFunc

	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// Fetcher downloads remote profile files.
type Fetcher struct {
	http    *resilience.HTTPClient
	ftp     *resilience.Executor
	dialFTP DialFunc
	timeout time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DialFTP == nil {
		cfg.DialFTP = dialFTP
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetricsForTesting()
	}

	httpCfg := resilience.DefaultConfig("remote-http")
	httpCfg.MaxRetries = cfg.MaxRetries
	ftpCfg := resilience.DefaultConfig("remote-ftp")
	ftpCfg.MaxRetries = cfg.MaxRetries

	f := &Fetcher{
		http:    resilience.NewHTTPClient(httpCfg, cfg.Timeout),
		ftp:     resilience.NewExecutor(ftpCfg),
		dialFTP: cfg.DialFTP,
		timeout: cfg.Timeout,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(f.http.Executor())
		cfg.Registry.Register(f.ftp)
	}
	return f
}

// Download is an open remote file. Body must be closed.
type Download struct {
	Name string
	Body io.ReadCloser
}

// Open starts downloading rawURL. The name is the last path segment.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (*Download, error) {
	u, name, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	var body io.ReadCloser
	switch u.Scheme {
	case "http", "https":
		body, err = f.openHTTP(ctx, u)
	case "ftp":
		body, err = f.openFTP(ctx, u)
	}
	if err != nil {
		f.metrics.Fetches.WithLabelValues(u.Scheme, "error").Inc()
		f.logger.Warn().Err(err).Str("url", u.Redacted()).Msg("remote fetch failed")
		return nil, fmt.Errorf("fetch %s: %w", u.Redacted(), err)
	}
	f.metrics.Fetches.WithLabelValues(u.Scheme, "success").Inc()
	return &Download{Name: name, Body: body}, nil
}

// Ingest downloads rawURL and hands it to up.
func (f *Fetcher) Ingest(ctx context.Context, rawURL string, up Uploader) (*argofloat.IngestResult, error) {
	dl, err := f.Open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer dl.Body.Close()

	return up.Upload(ctx, dl.Name, dl.Body)
}

func parseURL(rawURL string) (*url.URL, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", argofloat.ErrInvalidInput, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	switch u.Scheme {
	case "http", "https", "ftp":
	default:
		return nil, "", fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("%w: url has no host", argofloat.ErrInvalidInput)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return nil, "", fmt.Errorf("%w: url has no file name", argofloat.ErrInvalidInput)
	}
	return u, name, nil
}

func (f *Fetcher) openHTTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	resp, err := f.http.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (f *Fetcher) openFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "21")
	}
	user, password := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			password = p
		}
	}

	var body io.ReadCloser
	err := f.ftp.Do(ctx, func(ctx context.Context) error {
		conn, err := f.dialFTP(ctx, addr, f.timeout)
		if err != nil {
			return fmt.Errorf("ftp dial: %w", err)
		}
		if err := conn.Login(user, password); err != nil {
			_ = conn.Quit()
			return classifyFTP(fmt.Errorf("ftp login: %w", err))
		}
		r, err := conn.Retr(u.Path)
		if err != nil {
			_ = conn.Quit()
			return classifyFTP(fmt.Errorf("ftp retr: %w", err))
		}
		body = &ftpBody{ReadCloser: r, conn: conn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// classifyFTP marks permanent FTP replies (5xx) so they are not retried.
func classifyFTP(err error) error {
	var reply *textproto.Error
	if errors.As(err, &reply) && reply.Code >= 500 {
		return resilience.Permanent(err)
	}
	return err
}

// ftpBody ends the session once the transfer is closed.
type ftpBody struct {
	io.ReadCloser
	conn FTPConn
}

func (b *ftpBody) Close() error {
	err := b.ReadCloser.Close()
	if quitErr := b.conn.Quit(); err == nil {
		err = quitErr
	}
	return err
}

type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Retr(path string) (io.ReadCloser, error) {
	resp, err := c.ServerConn.Retr(path)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (FTPConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return serverConn{conn}, nil
}
