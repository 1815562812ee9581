package main

import (
	"log"
	"os"
	"strconv"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"

	"github.com/mycophonic/amanita/audio"
)

// runEncode implements `audio <path> encode lossless <degree>` and
// `audio <path> encode lossy <target_kbps> <degree>`.
func runEncode(wavPath string, args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	kind := args[0]

	var mode audio.Mode
	var degreeArg string
	var targetKbps float64
	switch kind {
	case "lossless":
		mode = audio.Lossless
		degreeArg = args[1]
	case "lossy":
		if len(args) < 3 {
			return usageError()
		}
		mode = audio.Lossy
		var err error
		targetKbps, err = strconv.ParseFloat(args[1], 64)
		if err != nil {
			return errors.WithStack(err)
		}
		degreeArg = args[2]
	default:
		return usageError()
	}

	degree, err := strconv.Atoi(degreeArg)
	if err != nil {
		return errors.WithStack(err)
	}
	if degree != audio.AutoDegree && (degree < 0 || degree > audio.MaxDegree) {
		return errors.Errorf("degree must be -1 (auto) or in [0,%d]", audio.MaxDegree)
	}

	r, err := os.Open(wavPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer r.Close()

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return errors.Errorf("invalid WAV file %q", wavPath)
	}
	if err := dec.FwdToPCM(); err != nil {
		return errors.WithStack(err)
	}

	sampleRate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)

	outPath := pathutil.TrimExt(wavPath) + ".g7a"
	if osutil.Exists(outPath) {
		return errors.Errorf(".g7a file %q already present; remove it to re-encode", outPath)
	}

	samples, err := readAllPCM(dec, channels, bitDepth)
	if err != nil {
		return err
	}

	frameSize := 4096
	header := audio.FileHeader{
		Channels:      uint8(channels),
		SampleRate:    uint32(sampleRate),
		FrameSize:     uint16(frameSize),
		TotalSamples:  uint32(len(samples)),
		UseInterleave: true,
	}

	enc, err := audio.NewEncoder(outPath, header, mode, degree, targetKbps)
	if err != nil {
		return err
	}
	defer enc.Close()

	step := frameSize * channels
	for start := 0; start < len(samples); start += step {
		end := start + step
		if end > len(samples) {
			end = len(samples)
		}
		log.Printf("frame %d..%d", start, end)
		if err := enc.EncodeFrame(samples[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// readAllPCM reads the whole decoder's PCM stream into one interleaved
// int32 buffer, converting to 16-bit depth when the source isn't already.
func readAllPCM(dec *wav.Decoder, channels, bitDepth int) ([]int32, error) {
	const chunkFrames = 4096
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
		Data:           make([]int, chunkFrames*channels),
		SourceBitDepth: bitDepth,
	}

	var out []int32
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			out = append(out, int32(rescaleTo16(s, bitDepth)))
		}
		if dec.EOF() {
			break
		}
	}
	return out, nil
}

// rescaleTo16 scales a sample of the given source bit depth to the signed
// 16-bit domain this codec requires, per spec.md §1 ("raw 16-bit PCM").
func rescaleTo16(sample, bitDepth int) int {
	if bitDepth == 16 {
		return sample
	}
	shift := bitDepth - 16
	if shift > 0 {
		return sample >> uint(shift)
	}
	return sample << uint(-shift)
}
