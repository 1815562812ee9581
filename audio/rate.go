package audio

// QBitsMax is the largest quantization shift the rate controller will apply.
const QBitsMax = 12

// rateMarginKbps is the hysteresis band around the target bitrate inside
// which q_bits is left unchanged, per spec.md §4.3.
const rateMarginKbps = 5.0

// rateController tracks the lossy-mode quantization shift across frames,
// nudging it up or down by one step per frame based on the achieved
// bitrate of the frame just encoded. Mirrors the closed-loop, one-frame-
// lookback adjustment the teacher's encoder applies per subframe, but
// driven by a bitrate target rather than a prediction-method choice.
type rateController struct {
	targetKbps float64
	qBits      int
}

func newRateController(targetKbps float64, initialQBits int) *rateController {
	return &rateController{targetKbps: targetKbps, qBits: initialQBits}
}

// QBits returns the quantization shift to use for the next frame.
func (rc *rateController) QBits() int {
	return rc.qBits
}

// Update adjusts q_bits given the number of bits written for a frame
// spanning frameSamples interleaved samples at the given sample rate and
// channel count, per spec.md §4.3:
//
//	bitrate_kbps = bits_written / ((frame_samples / (sample_rate * channels)) * 1000)
func (rc *rateController) Update(bitsWritten int, frameSamples, sampleRate, channels int) float64 {
	seconds := float64(frameSamples) / float64(sampleRate*channels)
	if seconds <= 0 {
		return 0
	}
	kbps := float64(bitsWritten) / (seconds * 1000)

	switch {
	case kbps > rc.targetKbps+rateMarginKbps && rc.qBits < QBitsMax:
		rc.qBits++
	case kbps < rc.targetKbps-rateMarginKbps && rc.qBits > 0:
		rc.qBits--
	}
	return kbps
}
