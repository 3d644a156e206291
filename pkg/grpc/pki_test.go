/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package grpc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// leaf describes one certificate issued by the test CA and the file pair it
// is written to.
type leaf struct {
	certFile, keyFile string
	commonName        string
	usage             x509.ExtKeyUsage
	hosts             []string
}

var pkiLeaves = []leaf{
	{certFile: "server.pem", keyFile: "server-key.pem", commonName: "wrtmon",
		usage: x509.ExtKeyUsageServerAuth, hosts: []string{"localhost", "127.0.0.1"}},
	{certFile: "client.pem", keyFile: "client-key.pem", commonName: "wrtmon-healthcheck",
		usage: x509.ExtKeyUsageClientAuth},
}

type testCA struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

// writeTestPKI fills dir with the files the mTLS provider loads: root.pem plus
// the server and healthcheck client pairs. It returns the CA so tests can
// issue more material.
func writeTestPKI(t *testing.T, dir string) *testCA {
	t.Helper()

	ca := newTestCA(t, "wrtmon test root")
	writePEM(t, filepath.Join(dir, "root.pem"), "CERTIFICATE", ca.cert.Raw)

	for i, l := range pkiLeaves {
		ca.issue(t, dir, l, int64(i+2))
	}

	return ca
}

func newTestCA(t *testing.T, name string) *testCA {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &testCA{cert: cert, key: key}
}

func (ca *testCA) issue(t *testing.T, dir string, l leaf, serial int64) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: l.commonName},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{l.usage},
	}

	for _, h := range l.hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.cert, &key.PublicKey, ca.key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	writePEM(t, filepath.Join(dir, l.certFile), "CERTIFICATE", der)
	writePEM(t, filepath.Join(dir, l.keyFile), "EC PRIVATE KEY", keyDER)
}

func writePEM(t *testing.T, path, blockType string, der []byte) {
	t.Helper()

	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))
}
