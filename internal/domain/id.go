package domain

import (
	"crypto/md5"
	"fmt"
	"strconv"
)

// GenerateID derives a stable ID for messages that arrive without one, so a
// re-delivered message maps onto the same row.
func GenerateID(m ChatMessage) string {
	key := string(m.Platform) + "|" + m.Channel + "|" + m.Username + "|" + m.Text + "|" +
		strconv.FormatInt(m.CreatedAt.UnixNano(), 10)
	hash := md5.Sum([]byte(key))
	return fmt.Sprintf("%x", hash)[:12]
}
