package video

import (
	"encoding/binary"
	"os"

	"github.com/mewkiz/pkg/errutil"

	"github.com/mycophonic/amanita/bitstream"
)

// FileHeader is the .g7v file-level header, spec.md §4.4. The Y4M source
// header is carried verbatim so the decoder never has to reparse it.
type FileHeader struct {
	Y4MHeader            []byte
	Width, Height        uint16
	UVWidth, UVHeight     uint16
	QShift                uint16
	FrameCount            uint32
	BlockSize, SearchRange uint8
}

func writeFileHeader(bw *bitstream.Stream, h FileHeader) error {
	if err := bw.WriteBits(uint64(len(h.Y4MHeader)*8), 32); err != nil {
		return errutil.Err(err)
	}
	for _, b := range h.Y4MHeader {
		if err := bw.WriteBits(uint64(b), 8); err != nil {
			return errutil.Err(err)
		}
	}
	fields := []struct {
		v uint64
		n uint
	}{
		{uint64(h.Width), 16},
		{uint64(h.Height), 16},
		{uint64(h.UVWidth), 16},
		{uint64(h.UVHeight), 16},
		{uint64(h.QShift), 16},
		{uint64(h.FrameCount), 32},
		{uint64(h.BlockSize), 8},
		{uint64(h.SearchRange), 8},
	}
	for _, f := range fields {
		if err := bw.WriteBits(f.v, f.n); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

func readFileHeader(br *bitstream.Stream) (FileHeader, error) {
	var h FileHeader
	bitLen, err := br.ReadBits(32)
	if err != nil {
		return h, err
	}
	n := bitLen / 8
	h.Y4MHeader = make([]byte, n)
	for i := range h.Y4MHeader {
		b, err := br.ReadBits(8)
		if err != nil {
			return h, err
		}
		h.Y4MHeader[i] = byte(b)
	}

	width, err := br.ReadBits(16)
	if err != nil {
		return h, err
	}
	height, err := br.ReadBits(16)
	if err != nil {
		return h, err
	}
	uvWidth, err := br.ReadBits(16)
	if err != nil {
		return h, err
	}
	uvHeight, err := br.ReadBits(16)
	if err != nil {
		return h, err
	}
	qShift, err := br.ReadBits(16)
	if err != nil {
		return h, err
	}
	frameCount, err := br.ReadBits(32)
	if err != nil {
		return h, err
	}
	blockSize, err := br.ReadBits(8)
	if err != nil {
		return h, err
	}
	searchRange, err := br.ReadBits(8)
	if err != nil {
		return h, err
	}

	h.Width = uint16(width)
	h.Height = uint16(height)
	h.UVWidth = uint16(uvWidth)
	h.UVHeight = uint16(uvHeight)
	h.QShift = uint16(qShift)
	h.FrameCount = uint32(frameCount)
	h.BlockSize = uint8(blockSize)
	h.SearchRange = uint8(searchRange)
	return h, nil
}

// frameCountByteOffset returns the byte offset of the frame_count field
// within the file, given the length of the Y4M header that precedes it. All
// fields up to and including frame_count are byte-aligned (spec.md §4.4
// lists only 8-, 16- and 32-bit fields before it), so the placeholder can be
// patched with a plain seek + byte write after encoding completes, the same
// way the teacher's Encoder.Close seeks back to patch StreamInfo fields
// after the FLAC signature and metadata blocks.
func frameCountByteOffset(y4mHeaderLen int) int64 {
	// 4 bytes (y4m_header_bit_length) + y4m header bytes + 4*2 bytes
	// (width,height,uv_width,uv_height) + 2 bytes (q_shift).
	return int64(4 + y4mHeaderLen + 4*2 + 2)
}

// patchFrameCount overwrites the placeholder frame_count field in an already
// closed .g7v file with its true value.
func patchFrameCount(path string, y4mHeaderLen int, frameCount uint32) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return errutil.Err(err)
	}
	defer f.Close()

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], frameCount)
	if _, err := f.WriteAt(buf[:], frameCountByteOffset(y4mHeaderLen)); err != nil {
		return errutil.Err(err)
	}
	return nil
}
