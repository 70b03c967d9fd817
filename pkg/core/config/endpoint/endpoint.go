/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package endpoint

import (
	"crypto/x509"
	"encoding/pem"
	"io/ioutil"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var securedURL = regexp.MustCompile(`(?i)^[a-z]+s://`)

// IsTLSEnabled returns true for grpcs:// and https:// URLs
func IsTLSEnabled(url string) bool {
	tlsURL := strings.ToLower(url)
	return strings.HasPrefix(tlsURL, "https://") || strings.HasPrefix(tlsURL, "grpcs://")
}

// ToAddress trims the grpc(s) protocol prefix, which gRPC does not expect.
// Other URLs are returned unchanged.
func ToAddress(url string) string {
	for _, prefix := range []string{"grpc://", "grpcs://"} {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

// AttemptSecured returns true for a secured protocol, false for an unsecured
// one and !allowInsecure when the URL has no protocol
func AttemptSecured(url string, allowInsecure bool) bool {
	if securedURL.MatchString(url) {
		return true
	}
	if strings.Contains(url, "://") {
		return false
	}
	return !allowInsecure
}

// TLSConfig is a certificate given either inline (Pem) or as a file (Path).
// Pem takes precedence.
type TLSConfig struct {
	Path string
	Pem  string

	bytes []byte
}

// Bytes returns the loaded PEM bytes
func (cfg *TLSConfig) Bytes() []byte {
	return cfg.bytes
}

// LoadBytes preloads bytes from Pem or Path
func (cfg *TLSConfig) LoadBytes() error {
	switch {
	case cfg.Pem != "":
		cfg.bytes = []byte(cfg.Pem)
	case cfg.Path != "":
		b, err := ioutil.ReadFile(cfg.Path)
		if err != nil {
			return errors.Wrapf(err, "failed to load pem bytes from path %s", cfg.Path)
		}
		cfg.bytes = b
	}
	return nil
}

// TLSCert parses the loaded bytes as an x509 certificate. ok is false when
// nothing was configured.
func (cfg *TLSConfig) TLSCert() (cert *x509.Certificate, ok bool, err error) {
	block, _ := pem.Decode(cfg.bytes)
	if block == nil {
		if len(cfg.bytes) > 0 {
			return nil, false, errors.New("no PEM block found")
		}
		return nil, false, nil
	}

	cert, err = x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, false, errors.Wrap(err, "certificate parsing failed")
	}
	return cert, true, nil
}
