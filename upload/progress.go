package upload

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// ConsoleProgress returns a Progress which draws a one line progress report
// for the named package on w. The line is redrawn whenever another percent
// has been sent and ends with a newline once the upload is complete.
func ConsoleProgress(name string, w io.Writer) Progress {
	last := -1
	return func(sent, total int64) {
		percent := 100
		if total > 0 {
			percent = int(sent * 100 / total)
		}
		if percent == last {
			return
		}
		last = percent
		fmt.Fprintf(w, "\r%s  %s / %s  (%d%%)",
			name,
			humanize.Bytes(uint64(sent)),
			humanize.Bytes(uint64(total)),
			percent)
		if sent >= total {
			fmt.Fprintln(w)
		}
	}
}
