package cert

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Verification errors.
var (
	ErrInvalidCert     = errors.New("invalid certificate")
	ErrCertExpired     = errors.New("certificate has expired")
	ErrCertNotYetValid = errors.New("certificate is not yet valid")
	ErrInvalidChain    = errors.New("invalid certificate chain")
)

// VerifyDeviceCert verifies that a device authentication certificate
// chains to one of the trusted authorities. The intermediates slice
// carries any additional certificates the device sent alongside its
// leaf.
func VerifyDeviceCert(cert *x509.Certificate, intermediates []*x509.Certificate, roots *x509.CertPool) error {
	if cert == nil {
		return ErrInvalidCert
	}
	if roots == nil {
		return fmt.Errorf("%w: trusted authority pool required", ErrInvalidChain)
	}

	now := time.Now()
	if now.Before(cert.NotBefore) {
		return ErrCertNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrCertExpired
	}

	pool := x509.NewCertPool()
	for _, ic := range intermediates {
		if ic != nil {
			pool.AddCert(ic)
		}
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: pool,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if _, err := cert.Verify(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChain, err)
	}
	return nil
}

// Equal reports whether two certificates have identical DER encodings.
func Equal(a, b *x509.Certificate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return bytes.Equal(a.Raw, b.Raw)
}

// Fingerprint returns the hex-encoded SHA-256 digest of the
// certificate's DER encoding.
func Fingerprint(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// Info extracts human-readable information from a certificate.
type Info struct {
	CommonName  string
	Issuer      string
	NotBefore   time.Time
	NotAfter    time.Time
	IsCA        bool
	Fingerprint string
}

// GetInfo extracts information from a certificate.
func GetInfo(cert *x509.Certificate) *Info {
	if cert == nil {
		return nil
	}
	return &Info{
		CommonName:  cert.Subject.CommonName,
		Issuer:      cert.Issuer.CommonName,
		NotBefore:   cert.NotBefore,
		NotAfter:    cert.NotAfter,
		IsCA:        cert.IsCA,
		Fingerprint: Fingerprint(cert),
	}
}
