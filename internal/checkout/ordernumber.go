package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NumberGenerator produces candidate order numbers. The generated value is a
// probabilistic heuristic; uniqueness is enforced by the storage layer's
// UNIQUE constraint with retry-on-conflict in the service.
type NumberGenerator func(now time.Time) string

// DefaultNumberGenerator yields numbers like ORD-20260828-3F9A2C: a date
// component for human reference plus a 6-char random suffix.
func DefaultNumberGenerator(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}
