package audio

import (
	"testing"
)

func TestDecodeMuLawLength(t *testing.T) {
	mulaw := make([]byte, 160)

	pcm := DecodeMuLaw(mulaw)

	if len(pcm) != 320 {
		t.Errorf("Expected 320 bytes of PCM, got %d", len(pcm))
	}
}

func TestDecodeMuLawEmpty(t *testing.T) {
	pcm := DecodeMuLaw([]byte{})

	if len(pcm) != 0 {
		t.Errorf("Expected empty output, got %d bytes", len(pcm))
	}
}

func TestDecodeMuLawAllZeroCodes(t *testing.T) {
	// The 0x00 code inverts to 0xFF: negative sign, maximum exponent and
	// mantissa. It must decode to the largest negative grid value.
	pcm := DecodeMuLaw([]byte{0x00})

	sample := int16(pcm[0]) | int16(pcm[1])<<8
	if sample != -32256 {
		t.Errorf("Expected sample -32256, got %d", sample)
	}
}

func TestDecodeMuLawBias(t *testing.T) {
	// The 0xFF code inverts to 0x00: positive, zero exponent and mantissa.
	// Decoding must yield the bare bias value.
	pcm := DecodeMuLaw([]byte{0xFF})

	sample := int16(pcm[0]) | int16(pcm[1])<<8
	if sample != 132 {
		t.Errorf("Expected sample 132, got %d", sample)
	}
}

func TestEncodeMuLawOddLength(t *testing.T) {
	_, err := EncodeMuLaw(make([]byte, 321), 0)

	if err == nil {
		t.Error("Expected error for odd-length PCM input")
	}
}

func TestEncodeMuLawSilence(t *testing.T) {
	// All-zero PCM encodes to all 0xFF codes (positive zero on the grid).
	pcm := make([]byte, 320)

	mulaw, err := EncodeMuLaw(pcm, 0)
	if err != nil {
		t.Fatalf("EncodeMuLaw failed: %v", err)
	}

	if len(mulaw) != 160 {
		t.Fatalf("Expected 160 mu-law bytes, got %d", len(mulaw))
	}

	for i, code := range mulaw {
		if code != 0xFF {
			t.Fatalf("Expected code 0xFF at index %d, got 0x%02X", i, code)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// Every mu-law code decodes onto the quantization grid, so re-encoding
	// the decoded sample must reproduce the original code exactly.
	for c := 0; c < 256; c++ {
		pcm := DecodeMuLaw([]byte{byte(c)})

		mulaw, err := EncodeMuLaw(pcm, 0)
		if err != nil {
			t.Fatalf("EncodeMuLaw failed for code 0x%02X: %v", c, err)
		}

		if mulaw[0] != byte(c) {
			sample := int16(pcm[0]) | int16(pcm[1])<<8
			t.Errorf("Code 0x%02X decoded to %d but re-encoded to 0x%02X", c, sample, mulaw[0])
		}
	}
}

func TestEncodeMuLawSilenceGate(t *testing.T) {
	// A low-amplitude sample below the gate must encode as digital zero.
	pcm := []byte{0x90, 0x01} // sample 400

	gated, err := EncodeMuLaw(pcm, DefaultSilenceThreshold)
	if err != nil {
		t.Fatalf("EncodeMuLaw failed: %v", err)
	}

	if gated[0] != 0xFF {
		t.Errorf("Expected gated sample to encode as 0xFF, got 0x%02X", gated[0])
	}

	ungated, err := EncodeMuLaw(pcm, 0)
	if err != nil {
		t.Fatalf("EncodeMuLaw failed: %v", err)
	}

	if ungated[0] == 0xFF {
		t.Error("Expected ungated sample to encode as non-silence")
	}
}

func TestUpsampleInterpolation(t *testing.T) {
	// Samples 0 and 100 must interpolate to 0, 50, 100, 100.
	pcm := []byte{0, 0, 100, 0}

	out, err := Upsample8kTo16k(pcm)
	if err != nil {
		t.Fatalf("Upsample8kTo16k failed: %v", err)
	}

	if len(out) != 8 {
		t.Fatalf("Expected 8 output bytes, got %d", len(out))
	}

	expected := []int16{0, 50, 100, 100}
	for i, want := range expected {
		got := int16(out[i*2]) | int16(out[i*2+1])<<8
		if got != want {
			t.Errorf("Sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestUpsampleOddLength(t *testing.T) {
	if _, err := Upsample8kTo16k(make([]byte, 3)); err == nil {
		t.Error("Expected error for odd-length PCM input")
	}
}

func TestUpsampleEmpty(t *testing.T) {
	out, err := Upsample8kTo16k([]byte{})
	if err != nil {
		t.Fatalf("Upsample8kTo16k failed: %v", err)
	}

	if len(out) != 0 {
		t.Errorf("Expected empty output, got %d bytes", len(out))
	}
}

func TestDownsampleKeepsEvenSamples(t *testing.T) {
	// Samples 1..5 at 16kHz must decimate to 1, 3, 5.
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0}

	out, err := Downsample16kTo8k(pcm)
	if err != nil {
		t.Fatalf("Downsample16kTo8k failed: %v", err)
	}

	expected := []int16{1, 3, 5}
	if len(out) != len(expected)*2 {
		t.Fatalf("Expected %d output bytes, got %d", len(expected)*2, len(out))
	}

	for i, want := range expected {
		got := int16(out[i*2]) | int16(out[i*2+1])<<8
		if got != want {
			t.Errorf("Sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestDownsampleOddLength(t *testing.T) {
	if _, err := Downsample16kTo8k(make([]byte, 5)); err == nil {
		t.Error("Expected error for odd-length PCM input")
	}
}

func TestResampleRoundTrip(t *testing.T) {
	// Downsampling an upsampled signal must reproduce it exactly, since
	// the original samples land on even output indices.
	samples := []int16{0, 1000, -1000, 32000, -32000, 7, 132, -132}

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}

	up, err := Upsample8kTo16k(pcm)
	if err != nil {
		t.Fatalf("Upsample8kTo16k failed: %v", err)
	}

	if len(up) != len(pcm)*2 {
		t.Fatalf("Expected %d upsampled bytes, got %d", len(pcm)*2, len(up))
	}

	down, err := Downsample16kTo8k(up)
	if err != nil {
		t.Fatalf("Downsample16kTo8k failed: %v", err)
	}

	if len(down) != len(pcm) {
		t.Fatalf("Expected %d downsampled bytes, got %d", len(pcm), len(down))
	}

	for i := range pcm {
		if down[i] != pcm[i] {
			t.Fatalf("Round trip mismatch at byte %d: expected %d, got %d", i, pcm[i], down[i])
		}
	}
}
