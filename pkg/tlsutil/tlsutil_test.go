package tlsutil_test

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/pkg/tlsutil"
)

func TestGenerateDevCerts(t *testing.T) {
	files, err := tlsutil.GenerateDevCerts(tlsutil.DevCertOptions{
		Hosts:  []string{"localhost", "127.0.0.1"},
		OutDir: t.TempDir(),
	})
	require.NoError(t, err)

	creds, err := tlsutil.ServerTLSConfig(files.Cert, files.Key)
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)

	raw, err := os.ReadFile(files.Cert)
	require.NoError(t, err)
	block, _ := pem.Decode(raw)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())

	caRaw, err := os.ReadFile(files.CA)
	require.NoError(t, err)
	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(caRaw))
	_, err = cert.Verify(x509.VerifyOptions{Roots: pool, DNSName: "localhost"})
	assert.NoError(t, err)
}

func TestGenerateDevCerts_RequiresHost(t *testing.T) {
	_, err := tlsutil.GenerateDevCerts(tlsutil.DevCertOptions{OutDir: t.TempDir()})
	require.Error(t, err)
}

func TestServerTLSConfig_MissingFiles(t *testing.T) {
	_, err := tlsutil.ServerTLSConfig("/nonexistent/cert.pem", "/nonexistent/key.pem")
	require.Error(t, err)
}
