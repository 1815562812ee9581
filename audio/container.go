package audio

import (
	"github.com/mewkiz/pkg/errutil"

	"github.com/mycophonic/amanita/bitstream"
	"github.com/mycophonic/amanita/golomb"
)

// FileHeader is the .g7a file-level header, spec.md §4.3.
type FileHeader struct {
	Channels       uint8
	SampleRate     uint32
	FrameSize      uint16
	TotalSamples   uint32
	UseInterleave  bool
}

func (h FileHeader) signMode() golomb.SignMode {
	if h.UseInterleave {
		return golomb.Interleave
	}
	return golomb.SignMagnitude
}

func writeFileHeader(bw *bitstream.Stream, h FileHeader) error {
	if err := bw.WriteBits(uint64(h.Channels), 4); err != nil {
		return errutil.Err(err)
	}
	if err := bw.WriteBits(uint64(h.SampleRate), 16); err != nil {
		return errutil.Err(err)
	}
	if err := bw.WriteBits(uint64(h.FrameSize), 16); err != nil {
		return errutil.Err(err)
	}
	if err := bw.WriteBits(uint64(h.TotalSamples), 32); err != nil {
		return errutil.Err(err)
	}
	interleave := uint64(0)
	if h.UseInterleave {
		interleave = 1
	}
	if err := bw.WriteBits(interleave, 1); err != nil {
		return errutil.Err(err)
	}
	return nil
}

func readFileHeader(br *bitstream.Stream) (FileHeader, error) {
	var h FileHeader
	channels, err := br.ReadBits(4)
	if err != nil {
		return h, err
	}
	sampleRate, err := br.ReadBits(16)
	if err != nil {
		return h, err
	}
	frameSize, err := br.ReadBits(16)
	if err != nil {
		return h, err
	}
	totalSamples, err := br.ReadBits(32)
	if err != nil {
		return h, err
	}
	interleave, err := br.ReadBits(1)
	if err != nil {
		return h, err
	}
	h.Channels = uint8(channels)
	h.SampleRate = uint32(sampleRate)
	h.FrameSize = uint16(frameSize)
	h.TotalSamples = uint32(totalSamples)
	h.UseInterleave = interleave == 1
	return h, nil
}

// frameHeader is the per-frame header, spec.md §4.3.
type frameHeader struct {
	m                uint64
	qBits            uint8
	predictorDegree  uint8
}

func writeFrameHeader(bw *bitstream.Stream, h frameHeader) error {
	if err := bw.WriteBits(h.m, 16); err != nil {
		return errutil.Err(err)
	}
	if err := bw.WriteBits(uint64(h.qBits), 4); err != nil {
		return errutil.Err(err)
	}
	if err := bw.WriteBits(uint64(h.predictorDegree), 3); err != nil {
		return errutil.Err(err)
	}
	return nil
}

func readFrameHeader(br *bitstream.Stream) (frameHeader, error) {
	var h frameHeader
	m, err := br.ReadBits(16)
	if err != nil {
		return h, err
	}
	qBits, err := br.ReadBits(4)
	if err != nil {
		return h, err
	}
	degree, err := br.ReadBits(3)
	if err != nil {
		return h, err
	}
	h.m = m
	h.qBits = uint8(qBits)
	h.predictorDegree = uint8(degree)
	return h, nil
}
