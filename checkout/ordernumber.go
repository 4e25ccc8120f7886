package checkout

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber builds the customer-facing order reference:
// VW-<UTC timestamp>-<12 hex chars>. Uniqueness is never re-checked against
// the ledger, so a collision needs the same second and the same 48 random
// bits, which is good enough for any realistic order volume.
func GenerateOrderNumber() string {
	u := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(u[:6]))
	return fmt.Sprintf("VW-%s-%s", time.Now().UTC().Format("20060102150405"), suffix)
}
