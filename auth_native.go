package gomariadb

import "crypto/sha1"

// nativePasswordPlugin implements mysql_native_password: SHA1(password) XOR
// SHA1(seed + SHA1(SHA1(password))) (spec.md §4.2).
type nativePasswordPlugin struct{}

func (p *nativePasswordPlugin) Name() string { return "mysql_native_password" }

func (p *nativePasswordPlugin) Authenticate(seed []byte, password string, sslActive bool) ([]byte, error) {
	if password == "" {
		return []byte{}, nil
	}
	stage1 := sha1.Sum([]byte(password))
	stage2 := sha1.Sum(stage1[:])

	h := sha1.New()
	h.Write(seed)
	h.Write(stage2[:])
	seedHash := h.Sum(nil)

	out := make([]byte, len(stage1))
	for i := range out {
		out[i] = stage1[i] ^ seedHash[i]
	}
	return out, nil
}
