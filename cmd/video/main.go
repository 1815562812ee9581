// Command video compresses and decompresses Y4M files using a JPEG-LS-style
// intra predictor, full-search block motion estimation, and Golomb-Rice
// residual coding.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/mewkiz/pkg/osutil"
	"github.com/pkg/errors"

	"github.com/mycophonic/amanita/video"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("video", flag.ContinueOnError)
	encode := fs.Bool("encode", false, "encode a Y4M file to .g7v")
	decode := fs.Bool("decode", false, "decode a .g7v file to Y4M")
	search := fs.Int("s", 8, "motion search range")
	block := fs.Int("b", 8, "block size")
	gop := fs.Int("f", 12, "GOP period (0=all intra, -1=all inter)")
	qShift := fs.Int("l", 0, "quantization shift (0=lossless)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	switch {
	case *encode:
		if len(rest) != 2 {
			return usageError()
		}
		return runEncode(rest[0], rest[1], *search, *block, *gop, *qShift)
	case *decode:
		if len(rest) != 2 {
			return usageError()
		}
		return runDecode(rest[0], rest[1])
	default:
		return usageError()
	}
}

func usageError() error {
	return errors.Errorf("usage:\n" +
		"  video -encode <in.y4m> <out.g7v> [-s search] [-b block] [-f gop_period] [-l q_shift]\n" +
		"  video -decode <in.g7v> <out.y4m>")
}

func runEncode(inPath, outPath string, search, block, gop, qShift int) error {
	if osutil.Exists(outPath) {
		return errors.Errorf(".g7v file %q already present; remove it to re-encode", outPath)
	}

	y4m, f, err := openY4MReader(inPath)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := video.NewEncoder(outPath, y4m.header, y4m.width, y4m.height, y4m.uvWidth, y4m.uvHeight,
		uint16(qShift), uint8(block), uint8(search), gop)
	if err != nil {
		return err
	}
	defer enc.Close()

	for frameNum := 0; ; frameNum++ {
		frame, err := y4m.ReadFrame()
		if err != nil {
			if err == io.EOF {
				break
			}
			return errors.WithStack(err)
		}
		log.Printf("video frame %d", frameNum)
		if err := enc.EncodeFrame(frame); err != nil {
			return err
		}
	}
	return nil
}

func runDecode(inPath, outPath string) error {
	if osutil.Exists(outPath) {
		return errors.Errorf("Y4M file %q already present; remove it to re-decode", outPath)
	}

	dec, err := video.NewDecoder(inPath)
	if err != nil {
		return err
	}
	defer dec.Close()

	w, err := os.Create(outPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer w.Close()

	y4mOut, err := newY4MWriter(w, dec.Header.Y4MHeader)
	if err != nil {
		return err
	}

	for i := uint32(0); i < dec.Header.FrameCount; i++ {
		frame, err := dec.DecodeFrame()
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				log.Printf("video: truncated stream after %d frames", i)
				break
			}
			return err
		}
		log.Printf("video frame %d", i)
		if err := y4mOut.WriteFrame(frame); err != nil {
			return err
		}
	}
	return nil
}
