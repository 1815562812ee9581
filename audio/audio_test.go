package audio_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycophonic/amanita/audio"
)

func makeHeader(channels uint8, sampleRate uint32, frameSize uint16, totalSamples uint32) audio.FileHeader {
	return audio.FileHeader{
		Channels:      channels,
		SampleRate:    sampleRate,
		FrameSize:     frameSize,
		TotalSamples:  totalSamples,
		UseInterleave: true,
	}
}

func TestLosslessRoundTripSawtooth(t *testing.T) {
	for _, channels := range []uint8{1, 2, 3, 8} {
		for _, rate := range []uint32{8000, 16000, 44100, 48000} {
			samplesPerChannel := 500
			total := samplesPerChannel * int(channels)
			samples := make([]int32, total)
			for i := 0; i < samplesPerChannel; i++ {
				for c := 0; c < int(channels); c++ {
					v := int32(((i*37+c*11)%2000)-1000) + int32(c)
					samples[i*int(channels)+c] = v
				}
			}

			header := makeHeader(channels, rate, 256, uint32(total))
			path := filepath.Join(t.TempDir(), "test.g7a")

			enc, err := audio.NewEncoder(path, header, audio.Lossless, audio.AutoDegree, 0)
			require.NoError(t, err)
			require.NoError(t, enc.EncodeAll(samples))
			require.NoError(t, enc.Close())

			dec, err := audio.NewDecoder(path)
			require.NoError(t, err)
			defer dec.Close()

			got, err := dec.DecodeAll(int(header.FrameSize))
			require.NoError(t, err)
			require.Equal(t, samples, got, "channels=%d rate=%d", channels, rate)
		}
	}
}

func TestLosslessRoundTripPolynomial(t *testing.T) {
	// samples = x^2, degree 2: the predictor reconstructs every sample after
	// the first few exactly, so residuals beyond the warm-up are all zero.
	n := 100
	samples := make([]int32, n)
	for i := 0; i < n; i++ {
		samples[i] = int32(i * i)
	}

	header := makeHeader(1, 8000, uint16(n), uint32(n))
	path := filepath.Join(t.TempDir(), "poly.g7a")

	enc, err := audio.NewEncoder(path, header, audio.Lossless, 2, 0)
	require.NoError(t, err)
	require.NoError(t, enc.EncodeAll(samples))
	require.NoError(t, enc.Close())

	dec, err := audio.NewDecoder(path)
	require.NoError(t, err)
	defer dec.Close()

	got, err := dec.DecodeAll(int(header.FrameSize))
	require.NoError(t, err)
	require.Equal(t, samples, got)
}

func TestLossyRoundTripBoundedError(t *testing.T) {
	samplesPerChannel := 2000
	channels := 2
	total := samplesPerChannel * channels
	samples := make([]int32, total)
	for i := 0; i < total; i++ {
		samples[i] = int32(((i * 131) % 6000) - 3000)
	}

	header := makeHeader(uint8(channels), 44100, 512, uint32(total))
	path := filepath.Join(t.TempDir(), "lossy.g7a")

	enc, err := audio.NewEncoder(path, header, audio.Lossy, audio.AutoDegree, 64)
	require.NoError(t, err)
	require.NoError(t, enc.EncodeAll(samples))
	require.NoError(t, enc.Close())

	dec, err := audio.NewDecoder(path)
	require.NoError(t, err)
	defer dec.Close()

	got, err := dec.DecodeAll(int(header.FrameSize))
	require.NoError(t, err)
	require.Len(t, got, total)

	// q_bits never exceeds audio.QBitsMax, so per spec.md §8's lossy bound
	// |sample-reconstructed| < 2^q_bits, the worst case across all frames is
	// bounded by 2^QBitsMax.
	bound := int32(1) << uint(audio.QBitsMax)
	for i := range samples {
		diff := samples[i] - got[i]
		if diff < 0 {
			diff = -diff
		}
		require.Less(t, diff, bound, "index %d", i)
	}
}

func TestDecodeTruncatedStreamYieldsPartialOutput(t *testing.T) {
	channels := uint8(1)
	total := 300
	samples := make([]int32, total)
	for i := range samples {
		samples[i] = int32(i % 100)
	}

	header := makeHeader(channels, 8000, 100, uint32(total))
	path := filepath.Join(t.TempDir(), "truncated.g7a")

	enc, err := audio.NewEncoder(path, header, audio.Lossless, 1, 0)
	require.NoError(t, err)
	require.NoError(t, enc.EncodeAll(samples))
	require.NoError(t, enc.Close())

	dec, err := audio.NewDecoder(path)
	require.NoError(t, err)
	defer dec.Close()

	_, err = dec.DecodeFrame(100)
	require.NoError(t, err)
	_, err = dec.DecodeFrame(100)
	require.NoError(t, err)
	_, err = dec.DecodeFrame(100)
	require.NoError(t, err)

	_, err = dec.DecodeFrame(100)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
