package video

import (
	"errors"
	"io"

	"github.com/mycophonic/amanita/bitstream"
)

// Decoder reads a .g7v stream written by Encoder.
type Decoder struct {
	br     *bitstream.Stream
	Header FileHeader
	shift  uint8

	reference  *Frame
	frameIndex uint32
}

// NewDecoder opens path and reads the .g7v file header.
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
	return &Decoder{br: br, Header: header, shift: uint8(header.QShift)}, nil
}

// Close closes the underlying stream.
func (d *Decoder) Close() error {
	return d.br.Close()
}

// DecodeFrame reads and reconstructs one frame.
func (d *Decoder) DecodeFrame() (Frame, error) {
	isInter, err := readFrameTypeBit(d.br)
	if err != nil {
		return Frame{}, err
	}

	w, h := int(d.Header.Width), int(d.Header.Height)
	uvw, uvh := int(d.Header.UVWidth), int(d.Header.UVHeight)

	var frame Frame
	if isInter {
		frame.Y, err = d.decodeInterPlane(w, h, d.reference.Y)
		if err != nil {
			return frame, err
		}
		frame.U, err = d.decodeInterPlane(uvw, uvh, d.reference.U)
		if err != nil {
			return frame, err
		}
		frame.V, err = d.decodeInterPlane(uvw, uvh, d.reference.V)
		if err != nil {
			return frame, err
		}
	} else {
		frame.Y, err = d.decodeIntraPlane(w, h)
		if err != nil {
			return frame, err
		}
		frame.U, err = d.decodeIntraPlane(uvw, uvh)
		if err != nil {
			return frame, err
		}
		frame.V, err = d.decodeIntraPlane(uvw, uvh)
		if err != nil {
			return frame, err
		}
	}

	d.reference = &frame
	d.frameIndex++
	return frame, nil
}

func (d *Decoder) decodeIntraPlane(w, h int) (Plane, error) {
	recon := newPlane(w, h)
	m, err := readPlaneM(d.br)
	if err != nil {
		return recon, err
	}
	coder, err := newResidualCoder(m)
	if err != nil {
		return recon, err
	}

	idx := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := recon.at(x-1, y)
			b := recon.at(x, y-1)
			c := recon.at(x-1, y-1)
			predicted := locoPredict(a, b, c)

			qr, err := coder.Decode(d.br)
			if err != nil {
				if errors.Is(err, io.ErrUnexpectedEOF) {
					return recon, io.ErrUnexpectedEOF
				}
				return recon, err
			}
			recon.Data[idx] = clampByte(predicted + dequantize(int(qr), d.shift))
			idx++
		}
	}
	return recon, nil
}

func (d *Decoder) decodeInterPlane(w, h int, ref Plane) (Plane, error) {
	recon := newPlane(w, h)
	blocks := iterBlocks(w, h, int(d.Header.BlockSize))

	for _, blk := range blocks {
		useInter, m, err := readBlockHeader(d.br)
		if err != nil {
			return recon, err
		}

		var mv MotionVector
		if useInter {
			mvCoder, err := newMotionCoder()
			if err != nil {
				return recon, err
			}
			dx, err := mvCoder.Decode(d.br)
			if err != nil {
				return recon, err
			}
			dy, err := mvCoder.Decode(d.br)
			if err != nil {
				return recon, err
			}
			mv = MotionVector{DX: int(dx), DY: int(dy)}
		}

		coder, err := newResidualCoder(m)
		if err != nil {
			return recon, err
		}

		n := blk.W * blk.H
		scratch := make([]byte, n)
		idx := 0
		for y := 0; y < blk.H; y++ {
			for x := 0; x < blk.W; x++ {
				gx, gy := blk.X+x, blk.Y+y

				var predicted int
				if useInter {
					predicted = ref.at(gx+mv.DX, gy+mv.DY)
				} else {
					a := lookupReconstructed(recon, scratch, blk, gx-1, gy)
					b := lookupReconstructed(recon, scratch, blk, gx, gy-1)
					c := lookupReconstructed(recon, scratch, blk, gx-1, gy-1)
					predicted = locoPredict(a, b, c)
				}

				qr, err := coder.Decode(d.br)
				if err != nil {
					if errors.Is(err, io.ErrUnexpectedEOF) {
						return recon, io.ErrUnexpectedEOF
					}
					return recon, err
				}
				scratch[idx] = clampByte(predicted + dequantize(int(qr), d.shift))
				idx++
			}
		}

		for y := 0; y < blk.H; y++ {
			copy(recon.Data[(blk.Y+y)*recon.Width+blk.X:(blk.Y+y)*recon.Width+blk.X+blk.W],
				scratch[y*blk.W:(y+1)*blk.W])
		}
	}
	return recon, nil
}

// DecodeAll reads every frame named in the file header.
func (d *Decoder) DecodeAll() ([]Frame, error) {
	frames := make([]Frame, 0, d.Header.FrameCount)
	for i := uint32(0); i < d.Header.FrameCount; i++ {
		frame, err := d.DecodeFrame()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return frames, io.ErrUnexpectedEOF
			}
			return frames, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
