package audio

import (
	"errors"
	"io"

	"github.com/mycophonic/amanita/bitstream"
	"github.com/mycophonic/amanita/golomb"
)

// Decoder reads a .g7a stream written by Encoder.
type Decoder struct {
	br     *bitstream.Stream
	Header FileHeader

	reconstructed []int32
	samplesRead   uint32
}

// NewDecoder opens path and reads the .g7a file header.
func NewDecoder(path string) (*Decoder, error) {
	br, err := bitstream.OpenRead(path)
	if err != nil {
		return nil, err
	}
	header, err := readFileHeader(br)
	if err != nil {
		br.Close()
		return nil, err
	}
	return &Decoder{br: br, Header: header}, nil
}

// Close closes the underlying stream.
func (d *Decoder) Close() error {
	return d.br.Close()
}

// DecodeFrame reads and reconstructs one frame. n is the number of
// interleaved samples expected in this frame (channels*frame_size, or
// fewer for a final partial frame). If the stream ends unexpectedly mid
// frame, DecodeFrame returns the samples successfully reconstructed so far
// alongside io.ErrUnexpectedEOF, per spec.md §7's partial-output rule.
func (d *Decoder) DecodeFrame(n int) ([]int32, error) {
	channels := int(d.Header.Channels)
	if channels <= 0 {
		return nil, errors.New("audio: invalid channel count in file header")
	}

	fh, err := readFrameHeader(d.br)
	if err != nil {
		return nil, err
	}

	coder, err := golomb.NewCoder(fh.m, d.Header.signMode())
	if err != nil {
		return nil, err
	}

	degree := int(fh.predictorDegree)
	qBits := int(fh.qBits)

	out := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		channel := i % channels
		predicted := Predict(degree, channels, d.reconstructed, channel)

		qResidual, err := coder.Decode(d.br)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return out, io.ErrUnexpectedEOF
			}
			return out, err
		}

		recon := clampInt16(int64(predicted) + (qResidual << uint(qBits)))
		d.reconstructed = append(d.reconstructed, recon)
		out = append(out, recon)
	}
	d.samplesRead += uint32(len(out))
	return out, nil
}

// DecodeAll reads every frame up to Header.TotalSamples interleaved samples,
// using frameSize (samples per channel per frame) to size all but the last
// frame.
func (d *Decoder) DecodeAll(frameSize int) ([]int32, error) {
	channels := int(d.Header.Channels)
	total := int(d.Header.TotalSamples)
	step := frameSize * channels
	if step <= 0 {
		step = channels
	}

	out := make([]int32, 0, total)
	for len(out) < total {
		n := step
		if remaining := total - len(out); remaining < n {
			n = remaining
		}
		frame, err := d.DecodeFrame(n)
		out = append(out, frame...)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return out, io.ErrUnexpectedEOF
			}
			return out, err
		}
	}
	return out, nil
}
