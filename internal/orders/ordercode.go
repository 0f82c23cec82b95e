package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderCode builds a human-readable order code: ORD-YYYYMMDD-XXXXXX.
// The random suffix alone is not the uniqueness guarantee; the unique index
// on orders.code is, and order creation retries with a fresh code on
// conflict.
func NewOrderCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
