package book

import (
	"bufio"
	"io"
	"strconv"

	"github.com/openoutcry/botrunner/internal/domain"
)

// Snapshot writes a line-oriented, human-readable dump of the book:
// offers from highest to lowest price, then bids from best down, one
// "price quantity" pair per line, terminated by an EOF sentinel line so
// tailing tools can detect a complete write. Entries whose order id
// appears in mine are annotated. This is a debugging aid, not a
// protocol.
func (b *Book) Snapshot(w io.Writer, mine map[domain.OrderID]domain.Order) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("offers\n")
	b.asks.Descend(func(e *Entry) bool {
		writeLine(bw, e, mine)
		return true
	})

	bw.WriteString("\nbids\n")
	b.bids.Ascend(func(e *Entry) bool {
		writeLine(bw, e, mine)
		return true
	})

	bw.WriteString("EOF\n")
	return bw.Flush()
}

func writeLine(bw *bufio.Writer, e *Entry, mine map[domain.OrderID]domain.Order) {
	bw.WriteString(strconv.FormatFloat(e.Price, 'g', -1, 64))
	bw.WriteByte(' ')
	bw.WriteString(strconv.FormatInt(e.Quantity, 10))
	if _, ok := mine[e.OrderID]; ok {
		bw.WriteString(" (mine)")
	}
	bw.WriteByte('\n')
}
