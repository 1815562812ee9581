package main

import (
	"bufio"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mycophonic/amanita/video"
)

// y4mReader is a minimal YUV4MPEG2 reader: it parses just enough of the
// header to size planes, and hands back raw planar buffers per frame. It is
// deliberately kept out of the video package's import graph, mirroring how
// WAV parsing lives under cmd/audio rather than inside the audio package --
// both are the "external collaborator" spec.md §1 scopes out of the codec
// core.
type y4mReader struct {
	r          *bufio.Reader
	header     []byte // raw header line, including trailing '\n'
	width      int
	height     int
	uvWidth    int
	uvHeight   int
}

func openY4MReader(path string) (*y4mReader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	br := bufio.NewReader(f)
	line, err := br.ReadString('\n')
	if err != nil {
		f.Close()
		return nil, nil, errors.WithStack(err)
	}
	if !strings.HasPrefix(line, "YUV4MPEG2") {
		f.Close()
		return nil, nil, errors.Errorf("not a YUV4MPEG2 file: %q", path)
	}

	width, height, chroma := parseY4MHeader(line)
	uvWidth, uvHeight := chromaDims(width, height, chroma)

	return &y4mReader{
		r:        br,
		header:   []byte(line),
		width:    width,
		height:   height,
		uvWidth:  uvWidth,
		uvHeight: uvHeight,
	}, f, nil
}

func parseY4MHeader(line string) (width, height int, chroma string) {
	chroma = "420"
	fields := strings.Fields(strings.TrimSpace(line))
	for _, field := range fields[1:] {
		if field == "" {
			continue
		}
		switch field[0] {
		case 'W':
			width, _ = strconv.Atoi(field[1:])
		case 'H':
			height, _ = strconv.Atoi(field[1:])
		case 'C':
			chroma = field[1:]
		}
	}
	return width, height, chroma
}

// chromaDims maps a Y4M chroma tag to UV plane dimensions, per spec.md §6's
// supported set. Unknown tags default to 4:2:0 with a warning.
func chromaDims(w, h int, chroma string) (uvW, uvH int) {
	switch {
	case strings.HasPrefix(chroma, "420"):
		return (w + 1) / 2, (h + 1) / 2
	case chroma == "422":
		return (w + 1) / 2, h
	case chroma == "444":
		return w, h
	case chroma == "440":
		return w, (h + 1) / 2
	case chroma == "411":
		return (w + 3) / 4, h
	case chroma == "mono":
		return 0, 0
	default:
		log.Printf("y4m: unrecognized chroma subsampling %q, defaulting to 4:2:0", chroma)
		return (w + 1) / 2, (h + 1) / 2
	}
}

// ReadFrame reads one "FRAME ...\n" marker and its raw planar payload.
func (y *y4mReader) ReadFrame() (video.Frame, error) {
	line, err := y.r.ReadString('\n')
	if err != nil {
		return video.Frame{}, err
	}
	if !strings.HasPrefix(line, "FRAME") {
		return video.Frame{}, errors.Errorf("expected FRAME marker, got %q", line)
	}

	yPlane, err := y.readPlane(y.width, y.height)
	if err != nil {
		return video.Frame{}, err
	}
	uPlane, err := y.readPlane(y.uvWidth, y.uvHeight)
	if err != nil {
		return video.Frame{}, err
	}
	vPlane, err := y.readPlane(y.uvWidth, y.uvHeight)
	if err != nil {
		return video.Frame{}, err
	}
	return video.Frame{Y: yPlane, U: uPlane, V: vPlane}, nil
}

func (y *y4mReader) readPlane(w, h int) (video.Plane, error) {
	data := make([]byte, w*h)
	if len(data) > 0 {
		if _, err := io.ReadFull(y.r, data); err != nil {
			return video.Plane{}, err
		}
	}
	return video.Plane{Width: w, Height: h, Data: data}, nil
}

// y4mWriter writes frames back out in YUV4MPEG2 form, reusing the source's
// verbatim header bytes per spec.md §4.4.
type y4mWriter struct {
	w io.Writer
}

func newY4MWriter(w io.Writer, header []byte) (*y4mWriter, error) {
	if _, err := w.Write(header); err != nil {
		return nil, errors.WithStack(err)
	}
	return &y4mWriter{w: w}, nil
}

func (y *y4mWriter) WriteFrame(frame video.Frame) error {
	if _, err := y.w.Write([]byte("FRAME\n")); err != nil {
		return errors.WithStack(err)
	}
	for _, plane := range []video.Plane{frame.Y, frame.U, frame.V} {
		if len(plane.Data) == 0 {
			continue
		}
		if _, err := y.w.Write(plane.Data); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
