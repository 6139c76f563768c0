package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestPluralizePoints(t *testing.T) {
	cases := map[int64]string{
		0:   "очков",
		1:   "очко",
		2:   "очка",
		4:   "очка",
		5:   "очков",
		11:  "очков",
		12:  "очков",
		21:  "очко",
		22:  "очка",
		111: "очков",
		-3:  "очка",
	}
	for n, want := range cases {
		if got := PluralizePoints(n); got != want {
			t.Fatalf("PluralizePoints(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1 000",
		2350:     "2 350",
		1000005:  "1 000 005",
		-1234567: "-1 234 567",
	}
	for n, want := range cases {
		if got := FormatNumber(n); got != want {
			t.Fatalf("FormatNumber(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatPointsAmount(t *testing.T) {
	if got := FormatPointsAmount(1); got != "+1 очко" {
		t.Fatalf("got %q", got)
	}
	if got := FormatPointsAmount(-50); got != "-50 очков" {
		t.Fatalf("got %q", got)
	}
}

func TestStorageWrapsOnce(t *testing.T) {
	cause := errors.New("conn reset")
	err := Storage(cause)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("wrapped error lost its chain: %v", err)
	}
	again := Storage(fmt.Errorf("repo: %w", err))
	if again.Error() != "repo: "+err.Error() {
		t.Fatalf("double wrap: %v", again)
	}
	if Storage(nil) != nil {
		t.Fatalf("Storage(nil) must be nil")
	}
}

func TestNewIDIsMonotonic(t *testing.T) {
	a := NewID()
	b := NewID()
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("unexpected ulid length: %q %q", a, b)
	}
	if !(a < b) {
		t.Fatalf("ids not monotonic: %s >= %s", a, b)
	}
}
