package etc

import (
	"time"

	"github.com/nrednav/cuid2"
)

func NewFreshID() string {
	return cuid2.Generate()
}

// Stamp formats a receipt time the way the transcript panes display it.
// It is assigned client-side and never sent to the remote peer.
func Stamp(t time.Time) string {
	return t.Format("15:04:05")
}
