package wamp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/csnode/corenode/common"
	"github.com/pion/webrtc/v2"
)

// generateSelfSignedCert writes a throwaway self-signed cert/key pair to
// dir, for exercising the server's TLS listener in tests.
func generateSelfSignedCert(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatal(err)
	}

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certFile)
	if err != nil {
		t.Fatal(err)
	}
	pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der})
	certOut.Close()

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	keyOut, err := os.Create(keyFile)
	if err != nil {
		t.Fatal(err)
	}
	pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
	keyOut.Close()

	return certFile, keyFile
}

func TestWamp(t *testing.T) {
	dir, err := ioutil.TempDir("", "wamp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	certFile, keyFile := generateSelfSignedCert(t, dir)

	logger := common.NewTestLogger(t).WithField("prefix", "wamp")
	url := "localhost:28000"

	server, err := NewServer(url, "office", certFile, keyFile, logger)
	if err != nil {
		t.Fatal(err)
	}

	go server.Run()
	defer server.Shutdown()

	time.Sleep(100 * time.Millisecond)

	callee, err := NewClient(url, "office", "callee", certFile, true, 3*time.Second, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer callee.Close()

	if err := callee.Listen(); err != nil {
		t.Fatal(err)
	}

	caller, err := NewClient(url, "office", "caller", certFile, true, 3*time.Second, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer caller.Close()

	// We expect the call to reach the callee and to generate an
	// ErrProcessingOffer error because the SDP is empty. We are only trying
	// to test that the RPC call is relayed and that the handler on the
	// receiving end is invoked.
	_, err = caller.Offer("callee", webrtc.SessionDescription{})
	if err == nil || !strings.Contains(err.Error(), ErrProcessingOffer) {
		t.Fatalf("expected ErrProcessingOffer, got %v", err)
	}
}
