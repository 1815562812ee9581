// Package bitstream provides byte-backed, MSB-first bit-level file I/O.
//
// A Stream owns an underlying *os.File exclusively: it is opened on
// construction and must be closed by the caller, flushing any pending
// partial byte on the way out. Bit-level reads and writes are delegated to
// github.com/icza/bitio, which already implements MSB-first buffering on top
// of a byte stream; Stream adds the open/close/EOF contract and the
// mode-exclusivity spec.md requires.
package bitstream

import (
	"errors"
	"io"
	"os"

	"github.com/icza/bitio"
	"github.com/mewkiz/pkg/errutil"
)

// Mode specifies whether a Stream was opened for reading or writing.
type Mode int

const (
	// ModeRead opens a Stream for read-only bit access.
	ModeRead Mode = iota
	// ModeWrite opens a Stream for write-only bit access.
	ModeWrite
)

// Sentinel errors, matching spec.md's error kinds.
var (
	// ErrInvalidBitWidth is returned when a requested bit width falls outside [1,64].
	ErrInvalidBitWidth = errors.New("bitstream: bit width out of range [1,64]")
	// ErrWrongMode is returned when a read operation is attempted on a writer
	// or vice versa.
	ErrWrongMode = errors.New("bitstream: operation not valid for stream mode")
)

// Stream is a bit-granular file handle, MSB-first.
type Stream struct {
	f    *os.File
	mode Mode
	r    *bitio.Reader
	w    *bitio.Writer
	eof  bool
}

// OpenWrite opens path for binary writing and returns a Stream ready to
// accept bit writes.
func OpenWrite(path string) (*Stream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errutil.Err(err)
	}
	return &Stream{
		f:    f,
		mode: ModeWrite,
		w:    bitio.NewWriter(f),
	}, nil
}

// OpenRead opens path for binary reading and returns a Stream ready to
// produce bit reads.
func OpenRead(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errutil.Err(err)
	}
	return &Stream{
		f:    f,
		mode: ModeRead,
		r:    bitio.NewReader(f),
	}, nil
}

// File returns the underlying *os.File, for a caller that needs to reach the
// byte stream directly. Bit-level callers should never use this. (The video
// encoder's frame_count patch-back does not use it: it reopens the closed
// file by path.)
func (s *Stream) File() *os.File {
	return s.f
}

// WriteBit writes a single bit (0 or 1).
func (s *Stream) WriteBit(b uint64) error {
	return s.WriteBits(b, 1)
}

// WriteBits writes the low n bits of value, MSB first, with n in [1,64].
func (s *Stream) WriteBits(value uint64, n uint) error {
	if s.mode != ModeWrite {
		return ErrWrongMode
	}
	if n < 1 || n > 64 {
		return ErrInvalidBitWidth
	}
	if err := s.w.WriteBits(value, uint8(n)); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// ReadBit reads a single bit. At EOF with no buffered bits, it returns 0,
// sets the stream's EOF flag and returns io.ErrUnexpectedEOF.
func (s *Stream) ReadBit() (uint64, error) {
	return s.ReadBits(1)
}

// ReadBits reads n sequential bits, MSB first, n in [1,64].
func (s *Stream) ReadBits(n uint) (uint64, error) {
	if s.mode != ModeRead {
		return 0, ErrWrongMode
	}
	if n < 1 || n > 64 {
		return 0, ErrInvalidBitWidth
	}
	v, err := s.r.ReadBits(uint8(n))
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.eof = true
			return 0, io.ErrUnexpectedEOF
		}
		return 0, errutil.Err(err)
	}
	return v, nil
}

// EOF reports whether the stream has been read past its end.
func (s *Stream) EOF() bool {
	return s.eof
}

// Close flushes any pending partial byte (left-justified, zero-padded low
// bits) on a writer, and closes the underlying file in either mode.
func (s *Stream) Close() error {
	if s.mode == ModeWrite {
		// bitio.Writer.Close aligns to a byte boundary and flushes bitio's
		// internal buffer; it does not close the file.
		if err := s.w.Close(); err != nil {
			_ = s.f.Close()
			return errutil.Err(err)
		}
	}
	if err := s.f.Close(); err != nil {
		return errutil.Err(err)
	}
	return nil
}
