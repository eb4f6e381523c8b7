// Package tlscert supplies certificates for the HTTPS listener, either from
// files on disk or from a self-signed certificate generated for local use.
package tlscert

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
)

// Mode selects where the server certificate comes from.
type Mode string

const (
	ModeOff  Mode = "off"
	ModeFile Mode = "file"
	// ModeAuto generates a self-signed certificate. Development only.
	ModeAuto Mode = "auto"
)

// MinTLSVersion is the minimum TLS version the server accepts.
const MinTLSVersion = tls.VersionTLS13

// Config describes the certificate source.
type Config struct {
	Mode     Mode
	CertFile string
	KeyFile  string
	// AutoCertDir holds the generated certificate and key in auto mode.
	AutoCertDir string
	// Hosts are the DNS names and IPs a generated certificate covers.
	Hosts []string
}

// Source hands out the server certificate for each handshake.
type Source struct {
	description string
	certificate func() (*tls.Certificate, error)
}

// ParseMode normalizes a configured mode. Empty means off.
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "", ModeOff:
		return ModeOff, nil
	case ModeFile, ModeAuto:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported TLS mode %q (valid modes: off, file, auto)", raw)
	}
}

// New returns the certificate source for cfg, or nil when TLS is off.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeFile:
		return newFileSource(cfg, logger)
	case ModeAuto:
		return newAutoSource(cfg, logger)
	default:
		return nil, nil
	}
}

// TLSConfig returns a server TLS config backed by the source.
func (s *Source) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: MinTLSVersion,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return s.certificate()
		},
	}
}

// String describes the certificate source for logs.
func (s *Source) String() string {
	return s.description
}
