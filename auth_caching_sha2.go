package gomariadb

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
)

// cachingSha2Plugin implements caching_sha2_password's fast path: the same
// XOR-of-double-hash scheme as mysql_native_password but over SHA-256
// (spec.md §4.2). The full-auth path (cache miss, RSA-encrypted password)
// is handled separately by FullAuthResponse since it needs a round trip to
// fetch the server's public key first.
type cachingSha2Plugin struct{}

func (p *cachingSha2Plugin) Name() string { return "caching_sha2_password" }

func (p *cachingSha2Plugin) Authenticate(seed []byte, password string, sslActive bool) ([]byte, error) {
	if password == "" {
		return []byte{}, nil
	}
	stage1 := sha256.Sum256([]byte(password))
	stage2 := sha256.Sum256(stage1[:])

	h := sha256.New()
	h.Write(stage2[:])
	h.Write(seed)
	seedHash := h.Sum(nil)

	out := make([]byte, len(stage1))
	for i := range out {
		out[i] = stage1[i] ^ seedHash[i]
	}
	return out, nil
}

// fastAuthResult values sent by the server in an auth_more_data packet
// after the fast-path scramble (spec.md §4.2).
const (
	fastAuthSuccess = 0x03
	fastAuthFull    = 0x04
)

// FullAuthResponse XORs the password with the seed and encrypts it with the
// server's RSA public key using OAEP/SHA1, as caching_sha2_password's full
// authentication requires when the fast path misses the server's cache and
// the connection has no TLS to fall back to sending the password in clear
// (spec.md §4.2).
func (p *cachingSha2Plugin) FullAuthResponse(seed []byte, password string, pubKeyPEM []byte) ([]byte, error) {
	block, _ := pem.Decode(pubKeyPEM)
	if block == nil {
		return nil, myError(ErrRSAUnavailable)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, myErrorWrap(ErrRSAUnavailable, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, myError(ErrRSAUnavailable)
	}

	xored := xorPasswordWithSeed(password, seed)
	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, rsaPub, xored, nil)
	if err != nil {
		return nil, myErrorWrap(ErrAuthPlugin, err, p.Name())
	}
	return ciphertext, nil
}

// xorPasswordWithSeed cycles the seed over the NUL-terminated password, the
// scheme caching_sha2_password and sha256_password share for the
// RSA-wrapped payload.
func xorPasswordWithSeed(password string, seed []byte) []byte {
	pw := append([]byte(password), 0)
	out := make([]byte, len(pw))
	for i := range pw {
		out[i] = pw[i] ^ seed[i%len(seed)]
	}
	return out
}
