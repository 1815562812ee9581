package bits_test

import (
	"path/filepath"
	"testing"

	"github.com/mycophonic/amanita/bitstream"
	"github.com/mycophonic/amanita/internal/bits"
)

func TestUnaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unary.bin")
	w, err := bitstream.OpenWrite(path)
	if err != nil {
		t.Fatalf("error opening writer: %v", err)
	}
	const n = 1000
	for want := uint64(0); want < n; want++ {
		if err := bits.WriteUnary(w, want); err != nil {
			t.Fatalf("error writing unary %d: %v", want, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("error closing writer: %v", err)
	}

	r, err := bitstream.OpenRead(path)
	if err != nil {
		t.Fatalf("error opening reader: %v", err)
	}
	defer r.Close()
	for want := uint64(0); want < n; want++ {
		got, err := bits.ReadUnary(r)
		if err != nil {
			t.Fatalf("error reading unary: %v", err)
		}
		if got != want {
			t.Fatalf("unary round-trip mismatch: got %d, want %d", got, want)
		}
	}
}
