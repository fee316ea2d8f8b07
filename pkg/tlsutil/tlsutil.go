// Package tlsutil loads and generates TLS material for the gRPC listener.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc/credentials"
)

// ServerTLSConfig loads TLS credentials for a gRPC server from cert and key files.
func ServerTLSConfig(certFile, keyFile string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: load server key pair: %w", err)
	}
	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}), nil
}

// DevCertOptions controls GenerateDevCerts.
type DevCertOptions struct {
	Hosts        []string
	OutDir       string
	Organization string
	// Validity of the server certificate; the CA lives ten times longer.
	Validity time.Duration
}

// DevCertFiles are the paths written by GenerateDevCerts.
type DevCertFiles struct {
	CA, CAKey, Cert, Key string
}

// GenerateDevCerts writes a throwaway CA and a server certificate for
// opts.Hosts into opts.OutDir.
func GenerateDevCerts(opts DevCertOptions) (DevCertFiles, error) {
	if len(opts.Hosts) == 0 {
		return DevCertFiles{}, fmt.Errorf("tlsutil: at least one host is required")
	}
	if opts.Organization == "" {
		opts.Organization = "Bureau Dev"
	}
	if opts.Validity <= 0 {
		opts.Validity = 365 * 24 * time.Hour
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return DevCertFiles{}, fmt.Errorf("tlsutil: mkdir %s: %w", opts.OutDir, err)
	}
	files := DevCertFiles{
		CA:    filepath.Join(opts.OutDir, "ca.pem"),
		CAKey: filepath.Join(opts.OutDir, "ca-key.pem"),
		Cert:  filepath.Join(opts.OutDir, "server.pem"),
		Key:   filepath.Join(opts.OutDir, "server-key.pem"),
	}
	now := time.Now()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return files, fmt.Errorf("tlsutil: generate CA key: %w", err)
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{opts.Organization + " CA"}},
		NotBefore:             now,
		NotAfter:              now.Add(10 * opts.Validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		return files, fmt.Errorf("tlsutil: create CA cert: %w", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return files, fmt.Errorf("tlsutil: parse CA cert: %w", err)
	}

	serverKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return files, fmt.Errorf("tlsutil: generate server key: %w", err)
	}
	serverTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{Organization: []string{opts.Organization}},
		NotBefore:    now,
		NotAfter:     now.Add(opts.Validity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range opts.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			serverTemplate.IPAddresses = append(serverTemplate.IPAddresses, ip)
		} else {
			serverTemplate.DNSNames = append(serverTemplate.DNSNames, h)
		}
	}
	serverDER, err := x509.CreateCertificate(rand.Reader, serverTemplate, caCert, &serverKey.PublicKey, caKey)
	if err != nil {
		return files, fmt.Errorf("tlsutil: create server cert: %w", err)
	}

	if err := writePEM(files.CA, "CERTIFICATE", caDER); err != nil {
		return files, err
	}
	if err := writeECKey(files.CAKey, caKey); err != nil {
		return files, err
	}
	if err := writePEM(files.Cert, "CERTIFICATE", serverDER); err != nil {
		return files, err
	}
	return files, writeECKey(files.Key, serverKey)
}

func writeECKey(path string, key *ecdsa.PrivateKey) error {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("tlsutil: marshal key: %w", err)
	}
	return writePEM(path, "EC PRIVATE KEY", der)
}

func writePEM(path, blockType string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("tlsutil: write %s: %w", path, err)
	}
	defer f.Close()
	return pem.Encode(f, &pem.Block{Type: blockType, Bytes: data})
}
