package internal

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// tokenAlphabet deliberately excludes 'Z', which separates the random part
// from the timestamp suffix.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYabcdefghijklmnopqrstuvwxyz0123456789"

const tokenRandomLen = 55

// NewToken returns a fresh session token: 55 random alphanumeric characters,
// a literal 'Z', and the current unix millisecond timestamp in base 36.
// Total length is 64 characters.
func NewToken() (string, error) {
	buf := make([]byte, tokenRandomLen, tokenRandomLen+10)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("token generation: %w", err)
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	buf = append(buf, 'Z')
	buf = append(buf, strconv.FormatInt(time.Now().UnixMilli(), 36)...)
	return string(buf), nil
}
