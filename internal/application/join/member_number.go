package join

import (
	"fmt"
	"time"
)

// memberNumber formats SOA-{region}-{yy}-{n}; n must be within 10000..99999.
func memberNumber(regionCode string, now time.Time, n int) string {
	return fmt.Sprintf("SOA-%s-%02d-%05d", regionCode, now.Year()%100, n)
}
