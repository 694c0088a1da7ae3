package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateTimestampWithPrefix builds an identifier that sorts roughly by
// creation time while staying unique under concurrent generation.
func GenerateTimestampWithPrefix(prefix string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), strings.ToUpper(suffix))
}
