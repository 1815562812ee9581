package audio

import (
	"math"

	"github.com/mewkiz/pkg/errutil"

	"github.com/mycophonic/amanita/bitstream"
	"github.com/mycophonic/amanita/golomb"
)

// Mode selects lossless or lossy coding, per spec.md §4.3.
type Mode int

const (
	// Lossless forces q_bits=0 for every frame: reconstruction is bit-exact.
	Lossless Mode = iota
	// Lossy runs the closed-loop rate controller to pick q_bits per frame.
	Lossy
)

// AutoDegree tells the encoder to search predictor degrees 0..MaxDegree per
// frame and keep the cheapest, instead of using a single fixed degree.
const AutoDegree = -1

// Encoder writes a .g7a stream: one FileHeader followed by a sequence of
// frames, each a frameHeader plus channels*frame_size Golomb-coded residuals
// in interleaved sample order.
type Encoder struct {
	bw     *bitstream.Stream
	header FileHeader
	mode   Mode
	degree int
	rate   *rateController

	// reconstructed holds every sample reconstructed so far, interleaved,
	// across the whole stream: the predictor in this and future frames
	// always looks back into this buffer, never into the unquantized
	// original, per spec.md §9.
	reconstructed []int32
}

// NewEncoder creates path and writes the .g7a file header. degree selects a
// fixed predictor degree (0..MaxDegree) or AutoDegree to search per frame.
// targetKbps is ignored in Lossless mode.
func NewEncoder(path string, header FileHeader, mode Mode, degree int, targetKbps float64) (*Encoder, error) {
	bw, err := bitstream.OpenWrite(path)
	if err != nil {
		return nil, err
	}
	if err := writeFileHeader(bw, header); err != nil {
		bw.Close()
		return nil, err
	}
	initialQBits := 0
	if mode == Lossy {
		initialQBits = 4
	}
	return &Encoder{
		bw:     bw,
		header: header,
		mode:   mode,
		degree: degree,
		rate:   newRateController(targetKbps, initialQBits),
	}, nil
}

// Close flushes the underlying stream.
func (e *Encoder) Close() error {
	return e.bw.Close()
}

// EncodeAll chunks samples into frames of header.FrameSize samples per
// channel (the final frame may be shorter) and encodes each in turn.
func (e *Encoder) EncodeAll(samples []int32) error {
	channels := int(e.header.Channels)
	step := int(e.header.FrameSize) * channels
	if step <= 0 {
		step = channels
	}
	for start := 0; start < len(samples); start += step {
		end := start + step
		if end > len(samples) {
			end = len(samples)
		}
		if err := e.EncodeFrame(samples[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// frameResult is the outcome of trying one predictor degree over one frame:
// the quantized residuals in interleaved order and the reconstructed samples
// they imply, plus the Shannon entropy of the residual histogram used to
// pick the cheapest degree, per spec.md §4.3's predictor-degree search.
type frameResult struct {
	degree        int
	residuals     []int64
	reconstructed []int32
	m             uint64
	entropy       float64
}

// EncodeFrame encodes one frame of interleaved samples (length must be a
// multiple of header.Channels; the final frame of a stream may be shorter).
// Samples are full-range int32 holding the original 16-bit PCM values.
func (e *Encoder) EncodeFrame(samples []int32) error {
	channels := int(e.header.Channels)
	if channels <= 0 {
		return errutil.Newf("audio: invalid channel count %d", channels)
	}

	qBits := 0
	if e.mode == Lossy {
		qBits = e.rate.QBits()
	}

	var best *frameResult
	degrees := []int{e.degree}
	if e.degree == AutoDegree {
		degrees = make([]int, MaxDegree+1)
		for d := 0; d <= MaxDegree; d++ {
			degrees[d] = d
		}
	}

	for _, d := range degrees {
		res := e.tryDegree(d, qBits, samples, channels)
		if best == nil || res.entropy < best.entropy {
			best = res
		}
	}

	fh := frameHeader{
		m:               best.m,
		qBits:           uint8(qBits),
		predictorDegree: uint8(best.degree),
	}
	if err := writeFrameHeader(e.bw, fh); err != nil {
		return err
	}

	coder, err := golomb.NewCoder(best.m, e.header.signMode())
	if err != nil {
		return err
	}

	bitsWritten := 0
	for _, r := range best.residuals {
		n, err := coder.Encode(e.bw, r)
		if err != nil {
			return err
		}
		bitsWritten += n
	}
	// account for the frame header itself (16+4+3 bits) in the rate estimate.
	bitsWritten += 23

	e.reconstructed = append(e.reconstructed, best.reconstructed...)

	if e.mode == Lossy {
		e.rate.Update(bitsWritten, len(samples), int(e.header.SampleRate), channels)
	}
	return nil
}

// tryDegree predicts, quantizes and residual-codes samples using predictor
// degree d against the reconstructed history so far, without mutating
// e.reconstructed. It mirrors the teacher's "encode into a scratch buffer per
// candidate, then compare" fixed-predictor search.
func (e *Encoder) tryDegree(d, qBits int, samples []int32, channels int) *frameResult {
	history := append([]int32(nil), e.reconstructed...)
	residuals := make([]int64, len(samples))
	reconstructed := make([]int32, len(samples))

	var sumAbs float64
	for i, sample := range samples {
		channel := i % channels
		predicted := Predict(d, channels, history, channel)
		residual := int64(sample) - int64(predicted)

		qResidual := quantize(residual, qBits)
		recon := clampInt16(int64(predicted) + (qResidual << uint(qBits)))

		residuals[i] = qResidual
		reconstructed[i] = recon
		history = append(history, recon)

		abs := qResidual
		if abs < 0 {
			abs = -abs
		}
		sumAbs += float64(abs)
	}

	meanAbs := 0.0
	if len(residuals) > 0 {
		meanAbs = sumAbs / float64(len(residuals))
	}
	m := golomb.ChooseM(meanAbs)

	return &frameResult{
		degree:        d,
		residuals:     residuals,
		reconstructed: reconstructed,
		m:             m,
		entropy:       residualEntropy(residuals),
	}
}

// residualEntropy computes the Shannon entropy (bits/symbol) of a frame's
// residual histogram, used to pick the predictor degree that packs the
// frame tightest, per spec.md §4.3's predictor-degree search.
func residualEntropy(residuals []int64) float64 {
	if len(residuals) == 0 {
		return 0
	}
	counts := make(map[int64]int, len(residuals))
	for _, r := range residuals {
		counts[r]++
	}
	n := float64(len(residuals))
	var h float64
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// quantize right-shifts a residual by qBits, arithmetic (toward -infinity),
// per spec.md §4.3 step 3. Go's >> on a signed integer is already arithmetic,
// so this is the shift itself.
func quantize(residual int64, qBits int) int64 {
	if qBits == 0 {
		return residual
	}
	return residual >> uint(qBits)
}
