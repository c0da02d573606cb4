package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber keeps the visible {TYPE}-{millis}-{suffix} shape but takes
// the suffix from a UUID instead of a small random integer, so concurrent
// creations in the same millisecond cannot collide in practice.
func NewOrderNumber(t OrderType, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", strings.ToUpper(string(t)), now.UnixMilli(), suffix)
}
