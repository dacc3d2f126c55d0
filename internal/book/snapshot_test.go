package book

import (
	"strings"
	"testing"

	"github.com/openoutcry/botrunner/internal/domain"
)

func TestSnapshot_Format(t *testing.T) {
	b := New(0)
	b.Insert(limit(1, domain.SideSell, 10.5, 3))
	b.Insert(limit(2, domain.SideSell, 10.25, 7))
	b.Insert(limit(3, domain.SideBuy, 10, 4))
	b.Insert(limit(4, domain.SideBuy, 9.5, 2))

	mine := map[domain.OrderID]domain.Order{
		3: {OrderID: 3},
	}

	var sb strings.Builder
	if err := b.Snapshot(&sb, mine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := strings.Join([]string{
		"offers",
		"10.5 3",
		"10.25 7",
		"",
		"bids",
		"10 4 (mine)",
		"9.5 2",
		"EOF",
		"",
	}, "\n")
	if sb.String() != want {
		t.Errorf("snapshot mismatch:\ngot:\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestSnapshot_EmptyBook(t *testing.T) {
	b := New(0)
	var sb strings.Builder
	if err := b.Snapshot(&sb, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "offers\n\nbids\nEOF\n"
	if sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}
}
