package spider

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dbsmedya/goerd/internal/ind"
)

// WriteOutput writes one "reference=dependent" line per pair, in the given order.
func WriteOutput(w io.Writer, pairs []ind.Pair) error {
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		if _, err := fmt.Fprintln(bw, p.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
