package video

import (
	"github.com/mycophonic/amanita/bitstream"
	"github.com/mycophonic/amanita/golomb"
)

// motionVectorM is the fixed Golomb divisor used to code dx/dy components.
// spec.md §4.4 leaves the divisor for motion vectors unspecified ("dx, dy |
// var (Golomb)"); motion vectors are small integers clustered around zero
// (bounded by search_range, typically single digits), so a small fixed m
// avoids the overhead of deriving and transmitting a second adaptive
// parameter per block purely for a handful of bits. Recorded as an Open
// Question resolution.
const motionVectorM = 4

func newResidualCoder(m uint8) (*golomb.Coder, error) {
	return golomb.NewCoder(uint64(m), golomb.Interleave)
}

func newMotionCoder() (*golomb.Coder, error) {
	return golomb.NewCoder(motionVectorM, golomb.Interleave)
}

func writeFrameTypeBit(bw *bitstream.Stream, isInter bool) error {
	v := uint64(0)
	if isInter {
		v = 1
	}
	return bw.WriteBit(v)
}

func readFrameTypeBit(br *bitstream.Stream) (bool, error) {
	v, err := br.ReadBit()
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

func writePlaneM(bw *bitstream.Stream, m uint8) error {
	return bw.WriteBits(uint64(m), 8)
}

func readPlaneM(br *bitstream.Stream) (uint8, error) {
	v, err := br.ReadBits(8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func writeBlockHeader(bw *bitstream.Stream, useInter bool, m uint8) error {
	v := uint64(0)
	if useInter {
		v = 1
	}
	if err := bw.WriteBit(v); err != nil {
		return err
	}
	return writePlaneM(bw, m)
}

func readBlockHeader(br *bitstream.Stream) (useInter bool, m uint8, err error) {
	bit, err := br.ReadBit()
	if err != nil {
		return false, 0, err
	}
	m, err = readPlaneM(br)
	if err != nil {
		return false, 0, err
	}
	return bit == 1, m, nil
}

// chooseM picks a Golomb divisor from the mean absolute residual of a block
// or plane, clamped to [2,64], per spec.md §4.4.
func chooseM(meanAbs float64) uint8 {
	m := golomb.ChooseM(meanAbs)
	if m > 64 {
		m = 64
	}
	if m < 2 {
		m = 2
	}
	return uint8(m)
}
