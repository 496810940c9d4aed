package verification

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

// CodeTTL bounds how long a pending verification code stays valid. A new
// signup or email change supersedes any pending code.
const CodeTTL = 15 * time.Minute

// GenerateCode draws a 6-digit code uniformly from [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
