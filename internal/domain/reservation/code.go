// internal/domain/reservation/code.go
package reservation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode builds a reservation code.
// Format: RES + last 8 digits of unix millis + 4 random [A-Z0-9]
func GenerateCode(now time.Time) string {
	millis := now.UnixMilli() % 100000000

	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			n = big.NewInt(now.UnixNano() % int64(len(codeAlphabet)))
		}
		suffix[i] = codeAlphabet[n.Int64()]
	}

	return fmt.Sprintf("RES%08d%s", millis, suffix)
}
