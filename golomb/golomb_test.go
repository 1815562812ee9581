package golomb_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycophonic/amanita/bitstream"
	"github.com/mycophonic/amanita/golomb"
)

func roundTrip(t *testing.T, m uint64, mode golomb.SignMode, values []int64) []int64 {
	t.Helper()
	coder, err := golomb.NewCoder(m, mode)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "golomb.bin")
	w, err := bitstream.OpenWrite(path)
	require.NoError(t, err)
	for _, v := range values {
		_, err := coder.Encode(w, v)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := bitstream.OpenRead(path)
	require.NoError(t, err)
	defer r.Close()

	got := make([]int64, len(values))
	for i := range values {
		v, err := coder.Decode(r)
		require.NoError(t, err)
		got[i] = v
	}
	return got
}

func TestGolombRoundTripInterleave(t *testing.T) {
	values := []int64{0, 1, -1, 2, -2, 5, -5}
	got := roundTrip(t, 5, golomb.Interleave, values)
	require.Equal(t, values, got)
}

func TestGolombRoundTripSignMagnitude(t *testing.T) {
	values := []int64{0, 1, -1, 2, -2, 5, -5, 100, -100}
	got := roundTrip(t, 7, golomb.SignMagnitude, values)
	require.Equal(t, values, got)
}

func TestGolombRoundTripSweep(t *testing.T) {
	ms := []uint64{2, 3, 4, 5, 8, 16, 17, 64, 100, 1000, 4096}
	modes := []golomb.SignMode{golomb.Interleave, golomb.SignMagnitude}
	for _, m := range ms {
		for _, mode := range modes {
			var values []int64
			for v := int64(-300); v <= 300; v += 7 {
				values = append(values, v)
			}
			got := roundTrip(t, m, mode, values)
			require.Equal(t, values, got, "m=%d mode=%v", m, mode)
		}
	}
}

func TestGolombRoundTripFullInt16Range(t *testing.T) {
	if testing.Short() {
		t.Skip("full 16-bit sweep skipped in -short mode")
	}
	var values []int64
	for v := int64(-1 << 15); v < 1<<15; v++ {
		values = append(values, v)
	}
	for _, m := range []uint64{2, 5, 17} {
		for _, mode := range []golomb.SignMode{golomb.Interleave, golomb.SignMagnitude} {
			got := roundTrip(t, m, mode, values)
			require.Equal(t, values, got, "m=%d mode=%v", m, mode)
		}
	}
}

func TestGolombInvalidParameter(t *testing.T) {
	_, err := golomb.NewCoder(1, golomb.Interleave)
	require.ErrorIs(t, err, golomb.ErrInvalidParameter)
	_, err = golomb.NewCoder(0, golomb.Interleave)
	require.ErrorIs(t, err, golomb.ErrInvalidParameter)
}

func TestChooseM(t *testing.T) {
	require.Equal(t, uint64(2), golomb.ChooseM(0))
	require.GreaterOrEqual(t, golomb.ChooseM(1000), uint64(2))
}
