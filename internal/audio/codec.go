package audio

import (
	"fmt"
)

// Audio format constants for the two boundaries of the pipeline. The
// telephony leg carries 8-bit mu-law at 8kHz; the speech services consume
// and produce 16-bit linear PCM at 16kHz.
const (
	TelephonySampleRate = 8000
	SpeechSampleRate    = 16000

	// muLawBias is the standard G.711 bias constant used when
	// reconstructing a linear sample from the sign/exponent/mantissa
	// fields of a mu-law code.
	muLawBias = 0x84

	// DefaultSilenceThreshold is the amplitude below which PCM samples
	// are zeroed before mu-law encoding. Telephony lines carry constant
	// low-level noise that would otherwise encode as audible hiss.
	DefaultSilenceThreshold = 500
)

// DecodeMuLaw expands 8-bit mu-law codes into 16-bit little-endian linear
// PCM. Every input byte produces exactly one 16-bit sample, so the output
// is twice the input length. The conversion is a pure table algorithm and
// is safe to call concurrently.
func DecodeMuLaw(mulaw []byte) []byte {
	pcm := make([]byte, len(mulaw)*2)

	for i, code := range mulaw {
		// Mu-law codes are stored inverted on the wire.
		c := ^code
		sign := c & 0x80
		exponent := (c >> 4) & 0x07
		mantissa := c & 0x0F

		sample := (int(mantissa)<<3 + muLawBias) << exponent
		if sign != 0 {
			sample = -sample
		}

		pcm[i*2] = byte(sample)
		pcm[i*2+1] = byte(sample >> 8)
	}

	return pcm
}

// EncodeMuLaw compresses 16-bit little-endian linear PCM into 8-bit mu-law
// codes. Samples with absolute magnitude below silenceThreshold are zeroed
// before encoding so that line noise companding does not produce audible
// artifacts; pass 0 to disable the gate. The compression is lossy: decoding
// and re-encoding an arbitrary PCM signal is only exact for sample values
// that lie on the mu-law quantization grid.
//
// The input length must be even (whole 16-bit samples).
func EncodeMuLaw(pcm []byte, silenceThreshold int) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm data length must be even (got %d bytes)", len(pcm))
	}

	mulaw := make([]byte, len(pcm)/2)

	for i := 0; i < len(mulaw); i++ {
		sample := int(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)

		if sample < silenceThreshold && sample > -silenceThreshold {
			sample = 0
		}

		var sign byte
		if sample < 0 {
			sign = 0x80
			sample = -sample
		}

		// Find the exponent bucket by right-shifting until the
		// magnitude fits in the 8-bit mantissa range, clamped to 7.
		exponent := 0
		for sample>>(uint(exponent)+8) > 0 && exponent < 7 {
			exponent++
		}

		mantissa := byte(sample>>(uint(exponent)+3)) & 0x0F

		mulaw[i] = ^(sign | byte(exponent)<<4 | mantissa)
	}

	return mulaw, nil
}

// Upsample8kTo16k doubles the sample rate of 16-bit little-endian PCM by
// linear interpolation: each input sample is emitted followed by the
// truncated integer average of it and its successor. The final input sample
// is duplicated so the output holds exactly twice as many samples as the
// input. The input length must be even.
func Upsample8kTo16k(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm data length must be even (got %d bytes)", len(pcm))
	}

	n := len(pcm) / 2
	if n == 0 {
		return []byte{}, nil
	}

	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}

	out := make([]byte, n*4)
	writeSample := func(idx int, s int16) {
		out[idx*2] = byte(s)
		out[idx*2+1] = byte(s >> 8)
	}

	for i := 0; i < n-1; i++ {
		writeSample(i*2, samples[i])
		writeSample(i*2+1, int16((int(samples[i])+int(samples[i+1]))/2))
	}
	writeSample((n-1)*2, samples[n-1])
	writeSample((n-1)*2+1, samples[n-1])

	return out, nil
}

// Downsample16kTo8k halves the sample rate of 16-bit little-endian PCM by
// naive decimation, keeping every even-indexed sample and dropping the odd
// ones. The input length must be even.
func Downsample16kTo8k(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm data length must be even (got %d bytes)", len(pcm))
	}

	n := len(pcm) / 2
	outSamples := (n + 1) / 2

	out := make([]byte, outSamples*2)
	for i := 0; i < outSamples; i++ {
		out[i*2] = pcm[i*4]
		out[i*2+1] = pcm[i*4+1]
	}

	return out, nil
}
