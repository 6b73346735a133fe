package tracemark

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// GenerateSignature derives the 16-hex-character signature for a watermark
// configuration. It is a pure function: equal inputs always produce the
// same signature, and distinct identities produce distinct signatures with
// overwhelming probability. Every input string, including empty, is valid.
func GenerateSignature(identity string, method Method, strength float64) string {
	combined := strings.Join([]string{
		identity,
		string(method),
		strconv.FormatFloat(strength, 'g', -1, 64),
	}, "_")
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])[:16]
}
