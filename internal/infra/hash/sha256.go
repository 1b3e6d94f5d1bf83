package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortLength is the fingerprint prefix shown in CLI output.
const shortLength = 12

type SHA256 struct{}

func (SHA256) SumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Short trims a hex fingerprint for display.
func Short(fingerprint string) string {
	if len(fingerprint) <= shortLength {
		return fingerprint
	}
	return fingerprint[:shortLength]
}
