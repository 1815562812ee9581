package bitstream_test

import (
	"io"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycophonic/amanita/bitstream"
)

func TestWriteBitsReadBitsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bits.bin")

	w, err := bitstream.OpenWrite(path)
	require.NoError(t, err)

	type record struct {
		n uint
		v uint64
	}
	rng := rand.New(rand.NewSource(1))
	var records []record
	for n := uint(1); n <= 64; n++ {
		v := uint64(rng.Int63()) & ((1 << n) - 1)
		if n == 64 {
			v = rng.Uint64()
		}
		records = append(records, record{n: n, v: v})
		require.NoError(t, w.WriteBits(v, n))
	}
	require.NoError(t, w.Close())

	r, err := bitstream.OpenRead(path)
	require.NoError(t, err)
	defer r.Close()

	for _, rec := range records {
		got, err := r.ReadBits(rec.n)
		require.NoError(t, err)
		require.Equal(t, rec.v, got, "n=%d", rec.n)
	}
}

func TestBitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single-bits.bin")

	rng := rand.New(rand.NewSource(2))
	var bits []uint64
	for i := 0; i < 5000; i++ {
		bits = append(bits, uint64(rng.Intn(2)))
	}

	w, err := bitstream.OpenWrite(path)
	require.NoError(t, err)
	for _, b := range bits {
		require.NoError(t, w.WriteBit(b))
	}
	require.NoError(t, w.Close())

	r, err := bitstream.OpenRead(path)
	require.NoError(t, err)
	defer r.Close()

	for _, want := range bits {
		got, err := r.ReadBit()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestReadPastEndSetsEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")

	w, err := bitstream.OpenWrite(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBits(0b101, 3))
	require.NoError(t, w.Close())

	r, err := bitstream.OpenRead(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadBits(3)
	require.NoError(t, err)
	require.Equal(t, uint64(0b101), got)

	// Close padded the byte with 5 zero bits; they read back as zeros.
	pad, err := r.ReadBits(5)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pad)

	_, err = r.ReadBits(1)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.True(t, r.EOF())
}

func TestInvalidBitWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.bin")
	w, err := bitstream.OpenWrite(path)
	require.NoError(t, err)
	defer w.Close()

	require.ErrorIs(t, w.WriteBits(0, 0), bitstream.ErrInvalidBitWidth)
	require.ErrorIs(t, w.WriteBits(0, 65), bitstream.ErrInvalidBitWidth)
}

func TestWrongMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mode.bin")
	w, err := bitstream.OpenWrite(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBits(1, 1))
	require.NoError(t, w.Close())

	r, err := bitstream.OpenRead(path)
	require.NoError(t, err)
	defer r.Close()

	require.ErrorIs(t, r.WriteBits(1, 1), bitstream.ErrWrongMode)
}

func TestBitSequenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.bin")
	rng := rand.New(rand.NewSource(3))
	n := 200000
	seq := make([]uint64, n)
	for i := range seq {
		seq[i] = uint64(rng.Intn(2))
	}

	w, err := bitstream.OpenWrite(path)
	require.NoError(t, err)
	for _, b := range seq {
		require.NoError(t, w.WriteBit(b))
	}
	require.NoError(t, w.Close())

	r, err := bitstream.OpenRead(path)
	require.NoError(t, err)
	defer r.Close()

	for i, want := range seq {
		got, err := r.ReadBit()
		require.NoError(t, err, "bit %d", i)
		require.Equal(t, want, got, "bit %d", i)
	}
}
