package gomariadb

import (
	"crypto/sha512"

	"filippo.io/edwards25519"
)

// ed25519Plugin implements MariaDB's client_ed25519 plugin. Unlike the
// standard library's ed25519.Sign, the private scalar here is derived
// directly from SHA-512(password) rather than from a 32-byte random seed,
// so the standard library's API (which re-hashes its seed argument
// internally) can't be reused as-is; the signature is built by hand from
// edwards25519 scalar/point primitives instead (spec.md §4.2).
type ed25519Plugin struct{}

func (p *ed25519Plugin) Name() string { return "client_ed25519" }

func (p *ed25519Plugin) Authenticate(seed []byte, password string, sslActive bool) ([]byte, error) {
	return ed25519SignPassword(password, seed)
}

func ed25519SignPassword(password string, seed []byte) ([]byte, error) {
	h := sha512.Sum512([]byte(password))

	var aSeed [32]byte
	copy(aSeed[:], h[:32])

	a, err := edwards25519.NewScalar().SetBytesWithClamping(aSeed[:])
	if err != nil {
		return nil, myErrorWrap(ErrAuthPlugin, err, "client_ed25519")
	}
	A := edwards25519.NewIdentityPoint().ScalarBaseMult(a)
	aEnc := A.Bytes()

	nonceInput := make([]byte, 0, 32+len(seed))
	nonceInput = append(nonceInput, h[32:64]...)
	nonceInput = append(nonceInput, seed...)
	rHash := sha512.Sum512(nonceInput)
	r, err := edwards25519.NewScalar().SetUniformBytes(rHash[:])
	if err != nil {
		return nil, myErrorWrap(ErrAuthPlugin, err, "client_ed25519")
	}
	R := edwards25519.NewIdentityPoint().ScalarBaseMult(r)
	rEnc := R.Bytes()

	kInput := make([]byte, 0, len(rEnc)+len(aEnc)+len(seed))
	kInput = append(kInput, rEnc...)
	kInput = append(kInput, aEnc...)
	kInput = append(kInput, seed...)
	kHash := sha512.Sum512(kInput)
	k, err := edwards25519.NewScalar().SetUniformBytes(kHash[:])
	if err != nil {
		return nil, myErrorWrap(ErrAuthPlugin, err, "client_ed25519")
	}

	s := edwards25519.NewScalar().MultiplyAdd(k, a, r)
	sEnc := s.Bytes()

	sig := make([]byte, 64)
	copy(sig[:32], rEnc)
	copy(sig[32:], sEnc)
	return sig, nil
}
