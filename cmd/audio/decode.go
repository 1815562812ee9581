package main

import (
	"log"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"

	"github.com/mycophonic/amanita/audio"
)

// runDecode implements `audio <path> decode`, reconstructing a .g7a stream
// back into a WAV file.
func runDecode(g7aPath string) error {
	outPath := pathutil.TrimExt(g7aPath) + ".wav"
	if osutil.Exists(outPath) {
		return errors.Errorf("WAV file %q already present; remove it to re-decode", outPath)
	}

	dec, err := audio.NewDecoder(g7aPath)
	if err != nil {
		return err
	}
	defer dec.Close()

	w, err := os.Create(outPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer w.Close()

	channels := int(dec.Header.Channels)
	enc := wav.NewEncoder(w, int(dec.Header.SampleRate), 16, channels, 1)
	defer enc.Close()

	frameSize := int(dec.Header.FrameSize)
	if frameSize <= 0 {
		frameSize = 4096
	}

	samples, err := dec.DecodeAll(frameSize)
	log.Printf("decoded %d samples (partial=%v)", len(samples), err != nil)
	if err != nil && len(samples) == 0 {
		return err
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(dec.Header.SampleRate)},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
