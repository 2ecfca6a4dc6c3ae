package order

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GenerateOrderNumber produces ORD-<last 6 digits of unix timestamp>-<6
// uppercase hex chars>. Uniqueness is backed by the order_number unique
// constraint; collisions within the same second are vanishingly unlikely.
func GenerateOrderNumber(now time.Time) (string, error) {
	ts := strconv.FormatInt(now.Unix(), 10)
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}

	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("order: failed to read random bytes: %w", err)
	}
	suffix := strings.ToUpper(hex.EncodeToString(buf))

	return fmt.Sprintf("ORD-%s-%s", ts, suffix), nil
}
