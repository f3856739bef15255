package trafficking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"adtraffic/internal/domain/qa"
)

// qaRecordKey identifies one QA log row. Re-running a ticket with unchanged
// inputs yields the same keys, so the audit log never grows duplicates.
func qaRecordKey(ticketID string, r qa.Result) string {
	return "qa:" + buildKey(ticketID, r.PayloadID, string(r.Platform), r.Geo, string(r.Check), string(r.Verdict), r.Detail)
}

func buildKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
