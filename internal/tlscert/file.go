package tlscert

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fileSource reloads the key pair when either file changes on disk, so
// rotated certificates are picked up without a restart.
type fileSource struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu      sync.Mutex
	cert    *tls.Certificate
	certMod time.Time
	keyMod  time.Time
}

func newFileSource(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("tls_cert_file and tls_key_file are required when tls_mode is file")
	}
	if err := checkReadable(cfg.CertFile); err != nil {
		return nil, fmt.Errorf("invalid certificate file: %w", err)
	}
	if err := checkReadable(cfg.KeyFile); err != nil {
		return nil, fmt.Errorf("invalid key file: %w", err)
	}
	if err := checkKeyPermissions(cfg.KeyFile); err != nil {
		return nil, err
	}

	fs := &fileSource{certFile: cfg.CertFile, keyFile: cfg.KeyFile, logger: logger}
	if _, err := fs.current(); err != nil {
		return nil, err
	}
	return &Source{
		description: fmt.Sprintf("file (cert=%s, key=%s)", cfg.CertFile, cfg.KeyFile),
		certificate: fs.current,
	}, nil
}

func (f *fileSource) current() (*tls.Certificate, error) {
	certInfo, err := os.Stat(f.certFile)
	if err != nil {
		return f.fallback(err)
	}
	keyInfo, err := os.Stat(f.keyFile)
	if err != nil {
		return f.fallback(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cert != nil && certInfo.ModTime().Equal(f.certMod) && keyInfo.ModTime().Equal(f.keyMod) {
		return f.cert, nil
	}

	cert, err := tls.LoadX509KeyPair(f.certFile, f.keyFile)
	if err != nil {
		if f.cert != nil {
			f.logger.Error("failed to reload certificate, keeping the previous one",
				slog.String("cert_file", f.certFile),
				slog.String("error", err.Error()),
			)
			return f.cert, nil
		}
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	if f.cert != nil {
		f.logger.Info("reloaded certificate", slog.String("cert_file", f.certFile))
	}
	f.cert = &cert
	f.certMod = certInfo.ModTime()
	f.keyMod = keyInfo.ModTime()
	return f.cert, nil
}

// fallback serves the last good certificate while the files are unreadable.
func (f *fileSource) fallback(err error) (*tls.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cert != nil {
		return f.cert, nil
	}
	return nil, err
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

// checkKeyPermissions rejects private keys readable by group or others.
func checkKeyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return fmt.Errorf("key file %s has insecure permissions %o (should be 0600 or 0400)", path, perm)
	}
	return nil
}
