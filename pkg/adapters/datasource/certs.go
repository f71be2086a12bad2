package datasource

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
)

// ParseCertificate decodes the first PEM block of certPEM as an X.509
// certificate.
func ParseCertificate(certPEM string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block: %w", apperrors.ErrInvalidCertificate)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w: %v", apperrors.ErrInvalidCertificate, err)
	}
	return cert, nil
}

// CreateSSLCertFile validates certPEM and writes it under dir, named by
// its content hash so repeated calls reuse the same file. An empty dir
// means the OS temp directory.
func CreateSSLCertFile(dir, certPEM string) (string, error) {
	if _, err := ParseCertificate(certPEM); err != nil {
		return "", err
	}
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("%016x.crt", xxhash.Sum64String(certPEM)))

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat certificate file: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create certificate directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(certPEM), 0o600); err != nil {
		return "", fmt.Errorf("failed to write certificate file: %w", err)
	}
	return path, nil
}
