package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const referenceSuffixLen = 6

// newReference mints a human-readable order reference like
// ORD-20260830-4FA2C1. Uniqueness is enforced by the database; on the rare
// collision the checkout attempt is retried with a fresh suffix.
func newReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:referenceSuffixLen]
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
