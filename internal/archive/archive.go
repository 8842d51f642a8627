// Package archive stores rendered-HTML crawl snapshots, either on the
// local filesystem or in a GCS bucket. Objects are content-addressed:
// the name carries a SHA-256 digest prefix so re-archiving identical
// HTML is idempotent.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const snapshotContentType = "text/html; charset=utf-8"

// objectPath builds the snapshot object name for a page. The digest
// prefix makes identical snapshots collide onto one object.
func objectPath(pageID string, html []byte, at time.Time) string {
	sum := sha256.Sum256(html)
	digest := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s/%s-%s.html", pageID, at.UTC().Format("20060102"), digest[:16])
}
