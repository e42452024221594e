package gomariadb

import (
	stded25519 "crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativePasswordScramble(t *testing.T) {
	seed := []byte("01234567890123456789")
	p := &nativePasswordPlugin{}

	out, err := p.Authenticate(seed, "secret", false)
	require.NoError(t, err)
	assert.Len(t, out, 20)

	stage1 := sha1.Sum([]byte("secret"))
	stage2 := sha1.Sum(stage1[:])
	h := sha1.New()
	h.Write(seed)
	h.Write(stage2[:])
	want := h.Sum(nil)
	for i := range want {
		want[i] ^= stage1[i]
	}
	assert.Equal(t, want, out)
}

func TestNativePasswordEmptyPassword(t *testing.T) {
	out, err := (&nativePasswordPlugin{}).Authenticate([]byte("seed"), "", false)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCachingSha2FastPathScramble(t *testing.T) {
	seed := []byte("01234567890123456789")
	p := &cachingSha2Plugin{}

	out, err := p.Authenticate(seed, "secret", false)
	require.NoError(t, err)
	assert.Len(t, out, 32)

	stage1 := sha256.Sum256([]byte("secret"))
	stage2 := sha256.Sum256(stage1[:])
	h := sha256.New()
	h.Write(stage2[:])
	h.Write(seed)
	want := h.Sum(nil)
	for i := range want {
		want[i] ^= stage1[i]
	}
	assert.Equal(t, want, out)
}

func TestCachingSha2FullAuthResponseEncryptsWithServerKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	p := &cachingSha2Plugin{}
	seed := []byte("01234567890123456789")
	ciphertext, err := p.FullAuthResponse(seed, "secret", pemBytes)
	require.NoError(t, err)

	plain, err := rsa.DecryptOAEP(sha1.New(), nil, key, ciphertext, nil)
	require.NoError(t, err)
	assert.Equal(t, xorPasswordWithSeed("secret", seed), plain)
}

func TestCachingSha2FullAuthResponseRejectsGarbagePEM(t *testing.T) {
	_, err := (&cachingSha2Plugin{}).FullAuthResponse([]byte("seed"), "secret", []byte("not pem"))
	assert.Error(t, err)
}

func TestClearPasswordRequiresSSL(t *testing.T) {
	_, err := (&clearPasswordPlugin{}).Authenticate(nil, "secret", false)
	assert.Error(t, err)
}

func TestClearPasswordOverSSL(t *testing.T) {
	out, err := (&clearPasswordPlugin{}).Authenticate(nil, "secret", true)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("secret"), 0), out)
}

// TestEd25519SignatureVerifiesWithStandardLibrary checks the hand-rolled
// signature against crypto/ed25519.Verify: the scalar/nonce derivation
// here follows RFC 8032 exactly once SHA-512(password) stands in for
// SHA-512(seed), so the resulting signature over the server's random seed
// must verify with the standard public-key API.
func TestEd25519SignatureVerifiesWithStandardLibrary(t *testing.T) {
	password := "secret"
	seed := []byte("0123456789abcdef0123456789abcdef0123456789abcdef01234567890123")

	sig, err := ed25519SignPassword(password, seed)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	h := sha512.Sum512([]byte(password))
	var aSeed [32]byte
	copy(aSeed[:], h[:32])
	a, err := edwards25519.NewScalar().SetBytesWithClamping(aSeed[:])
	require.NoError(t, err)
	pub := edwards25519.NewIdentityPoint().ScalarBaseMult(a).Bytes()

	assert.True(t, stded25519.Verify(stded25519.PublicKey(pub), seed, sig))
}

func TestAuthRegistryKnowsAllFourPlugins(t *testing.T) {
	r := newAuthRegistry()
	for _, name := range []string{
		"mysql_native_password", "caching_sha2_password", "client_ed25519", "mysql_clear_password",
	} {
		_, ok := r.get(name)
		assert.True(t, ok, name)
	}
}
