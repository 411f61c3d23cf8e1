package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2025, 7, 4, 12, 30, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("expected %+v got %+v", in, out)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %v %v", c, err)
	}
	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNormalizeAndTrim(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit || NormalizeLimit(500) != MaxLimit || NormalizeLimit(7) != 7 {
		t.Fatal("unexpected limit normalization")
	}
	rows := []int{1, 2, 3, 4}
	page, more := Trim(rows, 3)
	if len(page) != 3 || !more {
		t.Fatalf("expected 3 rows and more, got %v %v", page, more)
	}
	page, more = Trim(rows[:2], 3)
	if len(page) != 2 || more {
		t.Fatalf("expected 2 rows and no more, got %v %v", page, more)
	}
}
