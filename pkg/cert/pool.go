package cert

import (
	"crypto/x509"
	"fmt"
	"os"
)

// NewPool builds a certificate pool from the given certificates.
func NewPool(certs ...*x509.Certificate) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, c := range certs {
		if c != nil {
			pool.AddCert(c)
		}
	}
	return pool
}

// LoadCAPool reads one or more PEM files of CA certificates into a pool.
func LoadCAPool(paths ...string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file %s: %w", path, err)
		}
		certs, err := DecodeCertsPEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CA file %s: %w", path, err)
		}
		for _, c := range certs {
			pool.AddCert(c)
		}
	}
	return pool, nil
}
