package video

import (
	"github.com/mewkiz/pkg/errutil"

	"github.com/mycophonic/amanita/bitstream"
)

// GOPInterAlways tells Encoder every frame after the first is inter-coded,
// per spec.md §4.4's gop_period = -1 rule.
const GOPInterAlways = -1

// Encoder writes a .g7v stream.
type Encoder struct {
	path  string
	bw    *bitstream.Stream
	header FileHeader
	shift  uint8

	gopPeriod  int
	frameIndex uint32
	reference  *Frame
}

// NewEncoder creates path and writes the .g7v file header. y4mHeader is the
// source's raw YUV4MPEG2 header line, carried through verbatim.
func NewEncoder(path string, y4mHeader []byte, width, height, uvWidth, uvHeight int, qShift uint16, blockSize, searchRange uint8, gopPeriod int) (*Encoder, error) {
	header := FileHeader{
		Y4MHeader:   y4mHeader,
		Width:       uint16(width),
		Height:      uint16(height),
		UVWidth:     uint16(uvWidth),
		UVHeight:    uint16(uvHeight),
		QShift:      qShift,
		FrameCount:  0,
		BlockSize:   blockSize,
		SearchRange: searchRange,
	}

	bw, err := bitstream.OpenWrite(path)
	if err != nil {
		return nil, err
	}
	if err := writeFileHeader(bw, header); err != nil {
		bw.Close()
		return nil, err
	}

	return &Encoder{
		path:      path,
		bw:        bw,
		header:    header,
		shift:     uint8(qShift),
		gopPeriod: gopPeriod,
	}, nil
}

// isIntraFrame applies spec.md §4.4's frame-type decision.
func (e *Encoder) isIntraFrame() bool {
	if e.frameIndex == 0 || e.gopPeriod == 0 {
		return true
	}
	if e.gopPeriod == GOPInterAlways {
		return false
	}
	return int(e.frameIndex)%e.gopPeriod == 0
}

// EncodeFrame encodes one source frame.
func (e *Encoder) EncodeFrame(frame Frame) error {
	isInter := !e.isIntraFrame()

	if err := writeFrameTypeBit(e.bw, isInter); err != nil {
		return err
	}

	var recon Frame
	var err error
	if isInter {
		recon.Y, err = e.encodeInterPlane(frame.Y, e.reference.Y)
		if err != nil {
			return err
		}
		recon.U, err = e.encodeInterPlane(frame.U, e.reference.U)
		if err != nil {
			return err
		}
		recon.V, err = e.encodeInterPlane(frame.V, e.reference.V)
		if err != nil {
			return err
		}
	} else {
		recon.Y, err = e.encodeIntraPlane(frame.Y)
		if err != nil {
			return err
		}
		recon.U, err = e.encodeIntraPlane(frame.U)
		if err != nil {
			return err
		}
		recon.V, err = e.encodeIntraPlane(frame.V)
		if err != nil {
			return err
		}
	}

	e.reference = &recon
	e.frameIndex++
	return nil
}

// encodeIntraPlane codes every pixel of cur via LOCO-I, feeding reconstructed
// samples back as the causal neighbours of later pixels, per spec.md §9.
func (e *Encoder) encodeIntraPlane(cur Plane) (Plane, error) {
	recon := newPlane(cur.Width, cur.Height)
	residuals := make([]int, cur.Width*cur.Height)

	var sumAbs float64
	idx := 0
	for y := 0; y < cur.Height; y++ {
		for x := 0; x < cur.Width; x++ {
			a := recon.at(x-1, y)
			b := recon.at(x, y-1)
			c := recon.at(x-1, y-1)
			predicted := locoPredict(a, b, c)

			orig := int(cur.Data[idx])
			residual := orig - predicted
			qr := quantize(residual, e.shift)
			recon.Data[idx] = clampByte(predicted + dequantize(qr, e.shift))

			residuals[idx] = qr
			abs := qr
			if abs < 0 {
				abs = -abs
			}
			sumAbs += float64(abs)
			idx++
		}
	}

	meanAbs := 0.0
	if len(residuals) > 0 {
		meanAbs = sumAbs / float64(len(residuals))
	}
	m := chooseM(meanAbs)

	if err := writePlaneM(e.bw, m); err != nil {
		return recon, err
	}
	coder, err := newResidualCoder(m)
	if err != nil {
		return recon, err
	}
	for _, r := range residuals {
		if _, err := coder.Encode(e.bw, int64(r)); err != nil {
			return recon, err
		}
	}
	return recon, nil
}

// interCandidate holds one mode's trial outcome for a block.
type interCandidate struct {
	residuals     []int
	reconstructed []byte
	meanAbs       float64
	mv            MotionVector
}

// encodeInterPlane codes cur block by block, choosing per block between
// motion-compensated (inter) and LOCO-I (intra) prediction, per spec.md
// §4.4.
func (e *Encoder) encodeInterPlane(cur, ref Plane) (Plane, error) {
	recon := newPlane(cur.Width, cur.Height)
	blocks := iterBlocks(cur.Width, cur.Height, int(e.header.BlockSize))

	for _, blk := range blocks {
		inter := e.tryInter(cur, ref, blk)
		intra := e.tryIntra(cur, recon, blk)

		useInter := inter.meanAbs <= intra.meanAbs
		chosen := intra
		if useInter {
			chosen = inter
		}

		m := chooseM(chosen.meanAbs)
		if err := writeBlockHeader(e.bw, useInter, m); err != nil {
			return recon, err
		}
		if useInter {
			mvCoder, err := newMotionCoder()
			if err != nil {
				return recon, err
			}
			if _, err := mvCoder.Encode(e.bw, int64(chosen.mv.DX)); err != nil {
				return recon, err
			}
			if _, err := mvCoder.Encode(e.bw, int64(chosen.mv.DY)); err != nil {
				return recon, err
			}
		}

		coder, err := newResidualCoder(m)
		if err != nil {
			return recon, err
		}
		for _, r := range chosen.residuals {
			if _, err := coder.Encode(e.bw, int64(r)); err != nil {
				return recon, err
			}
		}

		for y := 0; y < blk.H; y++ {
			copy(recon.Data[(blk.Y+y)*recon.Width+blk.X:(blk.Y+y)*recon.Width+blk.X+blk.W],
				chosen.reconstructed[y*blk.W:(y+1)*blk.W])
		}
	}
	return recon, nil
}

func (e *Encoder) tryInter(cur, ref Plane, blk block) interCandidate {
	mv, _ := searchMotion(cur, ref, blk.X, blk.Y, blk.W, blk.H, int(e.header.SearchRange))

	n := blk.W * blk.H
	residuals := make([]int, n)
	reconstructed := make([]byte, n)
	var sumAbs float64
	idx := 0
	for y := 0; y < blk.H; y++ {
		for x := 0; x < blk.W; x++ {
			orig := int(cur.Data[(blk.Y+y)*cur.Width+(blk.X+x)])
			predicted := ref.at(blk.X+x+mv.DX, blk.Y+y+mv.DY)
			residual := orig - predicted
			qr := quantize(residual, e.shift)
			reconstructed[idx] = clampByte(predicted + dequantize(qr, e.shift))
			residuals[idx] = qr
			abs := qr
			if abs < 0 {
				abs = -abs
			}
			sumAbs += float64(abs)
			idx++
		}
	}
	return interCandidate{
		residuals:     residuals,
		reconstructed: reconstructed,
		meanAbs:       sumAbs / float64(n),
		mv:            mv,
	}
}

func (e *Encoder) tryIntra(cur, recon Plane, blk block) interCandidate {
	n := blk.W * blk.H
	residuals := make([]int, n)
	reconstructed := make([]byte, n)
	var sumAbs float64
	idx := 0
	for y := 0; y < blk.H; y++ {
		for x := 0; x < blk.W; x++ {
			gx, gy := blk.X+x, blk.Y+y

			// LOCO-I neighbours come from already-reconstructed pixels:
			// either an earlier block in this frame (recon), or, within
			// this block's own interior, the pixels this loop has already
			// produced (held in the reconstructed scratch slice).
			a := lookupReconstructed(recon, reconstructed, blk, gx-1, gy)
			b := lookupReconstructed(recon, reconstructed, blk, gx, gy-1)
			c := lookupReconstructed(recon, reconstructed, blk, gx-1, gy-1)
			predicted := locoPredict(a, b, c)

			orig := int(cur.Data[gy*cur.Width+gx])
			residual := orig - predicted
			qr := quantize(residual, e.shift)
			val := clampByte(predicted + dequantize(qr, e.shift))
			reconstructed[idx] = val
			residuals[idx] = qr
			abs := qr
			if abs < 0 {
				abs = -abs
			}
			sumAbs += float64(abs)
			idx++
		}
	}
	return interCandidate{
		residuals:     residuals,
		reconstructed: reconstructed,
		meanAbs:       sumAbs / float64(n),
	}
}

// lookupReconstructed reads a causal neighbour at global plane coordinates
// (gx,gy): from the block-in-progress scratch buffer if the neighbour falls
// inside the current block, otherwise from the frame's running reconstructed
// plane (earlier blocks), or 0 off the plane edge.
func lookupReconstructed(recon Plane, scratch []byte, blk block, gx, gy int) int {
	if gx < 0 || gy < 0 || gx >= recon.Width || gy >= recon.Height {
		return 0
	}
	if gx >= blk.X && gx < blk.X+blk.W && gy >= blk.Y && gy < blk.Y+blk.H {
		return int(scratch[(gy-blk.Y)*blk.W+(gx-blk.X)])
	}
	return recon.at(gx, gy)
}

// Close flushes the stream and patches the frame_count placeholder with the
// true number of frames encoded, the video analogue of the teacher's
// Encoder.Close seeking back to patch StreamInfo after encoding completes.
func (e *Encoder) Close() error {
	if err := e.bw.Close(); err != nil {
		return err
	}
	if err := patchFrameCount(e.path, len(e.header.Y4MHeader), e.frameIndex); err != nil {
		return errutil.Err(err)
	}
	return nil
}
