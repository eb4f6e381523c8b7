package tlscert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const (
	autoCertName = "server.crt"
	autoKeyName  = "server.key"

	autoCertLifetime = 365 * 24 * time.Hour
	// A generated certificate this close to expiry is replaced on startup.
	autoRenewBefore = 7 * 24 * time.Hour
)

var defaultHosts = []string{"localhost", "127.0.0.1", "::1"}

func newAutoSource(cfg Config, logger *slog.Logger) (*Source, error) {
	hosts := cfg.Hosts
	if len(hosts) == 0 {
		hosts = defaultHosts
	}
	if cfg.AutoCertDir == "" {
		return nil, fmt.Errorf("tls_auto_cert_dir is required when tls_mode is auto")
	}
	if err := os.MkdirAll(cfg.AutoCertDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	certPath := filepath.Join(cfg.AutoCertDir, autoCertName)
	keyPath := filepath.Join(cfg.AutoCertDir, autoKeyName)

	cert, err := loadAutoCert(certPath, keyPath, hosts, time.Now())
	if err != nil {
		logger.Info("generating self-signed certificate",
			slog.String("cert_path", certPath),
			slog.Any("hosts", hosts),
			slog.String("reason", err.Error()),
		)
		if err := writeSelfSigned(certPath, keyPath, hosts, time.Now()); err != nil {
			return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
		}
		if cert, err = loadAutoCert(certPath, keyPath, hosts, time.Now()); err != nil {
			return nil, err
		}
		logger.Warn("self-signed certificate generated - not suitable for production",
			slog.String("cert_path", certPath))
	} else {
		logger.Info("using existing self-signed certificate", slog.String("cert_path", certPath))
	}

	return &Source{
		description: fmt.Sprintf("self-signed (cert=%s) - DEV ONLY", certPath),
		certificate: func() (*tls.Certificate, error) { return cert, nil },
	}, nil
}

// loadAutoCert returns the stored key pair when it is current and covers
// exactly the requested hosts.
func loadAutoCert(certPath, keyPath string, hosts []string, now time.Time) (*tls.Certificate, error) {
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return nil, err
	}
	if now.Before(leaf.NotBefore) || now.Add(autoRenewBefore).After(leaf.NotAfter) {
		return nil, fmt.Errorf("certificate expires %s", leaf.NotAfter.Format(time.RFC3339))
	}
	if !slices.Equal(certHosts(leaf), sortedHosts(hosts)) {
		return nil, fmt.Errorf("certificate hosts do not match %v", hosts)
	}
	pair.Leaf = leaf
	return &pair, nil
}

func writeSelfSigned(certPath, keyPath string, hosts []string, now time.Time) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"sqlmodel-graphql (self-signed)"},
			CommonName:   hosts[0],
		},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(autoCertLifetime),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}

	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	return nil
}

func certHosts(cert *x509.Certificate) []string {
	hosts := append([]string(nil), cert.DNSNames...)
	for _, ip := range cert.IPAddresses {
		hosts = append(hosts, ip.String())
	}
	slices.Sort(hosts)
	return hosts
}

func sortedHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			host = ip.String()
		}
		out = append(out, host)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
