package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// NewRefreshToken returns 64 random bytes hex-encoded. The token carries no
// expiry; its lifetime ends only by explicit revocation.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewTempPassword returns a random numeric password, always exactly eight
// digits, zero-padded.
func NewTempPassword() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint64(buf[:]) % 100000000
	return fmt.Sprintf("%08d", n), nil
}
