package hasher

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// signatureSeparator is the literal backslash sequence the vendor concatenates, not a CRLF.
const signatureSeparator = `\r\n`

// HashPassword returns the hex md5 digest the vendor login endpoint expects in place of the password.
func HashPassword(pw string) string {
	sum := md5.Sum([]byte(pw))
	return hex.EncodeToString(sum[:])
}

// Signature signs an OpenAPI request path with the api key and a millisecond timestamp.
func Signature(path, token string, timestampMillis int64) string {
	payload := fmt.Sprintf("%s%s%s%s%d", path, signatureSeparator, token, signatureSeparator, timestampMillis)
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
