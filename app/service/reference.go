package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	defaultOrderIDPrefix = "LMS"
	orderIDSuffixLength  = 10
)

// newMerchantOrderID builds PREFIX-yyyymmddHHMMSS-XXXXXXXXXX. The suffix is
// the tail of a ULID, i.e. 50 bits of crypto randomness.
func newMerchantOrderID(prefix string, now time.Time) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = defaultOrderIDPrefix
	}

	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102150405"), id[len(id)-orderIDSuffixLength:])
}
