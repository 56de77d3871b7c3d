package dialog

import (
	"testing"
)

func TestParseVariant(t *testing.T) {
	tests := []struct {
		input    string
		expected Variant
		wantErr  bool
	}{
		{"quickrupee", VariantQuickRupee, false},
		{"home_renovation", VariantHomeRenovation, false},
		{"", VariantQuickRupee, false},
		{"  QuickRupee  ", VariantQuickRupee, false},
		{"mortgage", "", true},
	}

	for _, tt := range tests {
		variant, err := ParseVariant(tt.input)

		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseVariant(%q): expected error, got %q", tt.input, variant)
			}
			continue
		}

		if err != nil {
			t.Errorf("ParseVariant(%q) failed: %v", tt.input, err)
			continue
		}

		if variant != tt.expected {
			t.Errorf("ParseVariant(%q): expected %q, got %q", tt.input, tt.expected, variant)
		}
	}
}

func TestScriptFor(t *testing.T) {
	quick := ScriptFor(VariantQuickRupee)
	if quick.Variant != VariantQuickRupee {
		t.Errorf("Expected quickrupee script, got %q", quick.Variant)
	}

	if len(quick.Questions) != 3 {
		t.Errorf("Expected 3 questions, got %d", len(quick.Questions))
	}

	reno := ScriptFor(VariantHomeRenovation)
	if reno.Variant != VariantHomeRenovation {
		t.Errorf("Expected home_renovation script, got %q", reno.Variant)
	}

	if reno.Questions[0].Text != "Do you own your home?" {
		t.Errorf("Unexpected first question: %q", reno.Questions[0].Text)
	}

	// Unknown variants fall back to quickrupee.
	fallback := ScriptFor(Variant("bogus"))
	if fallback.Variant != VariantQuickRupee {
		t.Errorf("Expected fallback to quickrupee, got %q", fallback.Variant)
	}
}

func TestScriptQuestionChains(t *testing.T) {
	for _, variant := range []Variant{VariantQuickRupee, VariantHomeRenovation} {
		script := ScriptFor(variant)

		expectedStates := []State{StateQ1, StateQ2, StateQ3}
		expectedNext := []State{StateQ2, StateQ3, StateResult}

		for i, q := range script.Questions {
			if q.State != expectedStates[i] {
				t.Errorf("%s question %d: expected state %v, got %v", variant, i, expectedStates[i], q.State)
			}
			if q.NextState != expectedNext[i] {
				t.Errorf("%s question %d: expected next state %v, got %v", variant, i, expectedNext[i], q.NextState)
			}
		}
	}
}

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		input  string
		answer bool
		ok     bool
	}{
		{"yes", true, true},
		{"Yes it is", true, true},
		{"YEAH", true, true},
		{"okay", true, true},
		{"that's correct", true, true},
		{"no", false, true},
		{"no way", false, true},
		{"Nope.", false, true},
		{"definitely not false", false, true},
		{"maybe", false, false},
		{"", false, false},
		{"hmm", false, false},
		// "not" contains the "no" substring, so it classifies negative.
		{"I am not certain", false, true},
	}

	for _, tt := range tests {
		answer, ok := ParseYesNo(tt.input)

		if ok != tt.ok {
			t.Errorf("ParseYesNo(%q): expected ok=%v, got %v", tt.input, tt.ok, ok)
			continue
		}

		if ok && answer != tt.answer {
			t.Errorf("ParseYesNo(%q): expected answer=%v, got %v", tt.input, tt.answer, answer)
		}
	}
}

func TestParseYesNoAffirmativePrecedence(t *testing.T) {
	// Text containing both kinds of keyword classifies as affirmative.
	answer, ok := ParseYesNo("yes but no")

	if !ok {
		t.Fatal("Expected classification to succeed")
	}

	if !answer {
		t.Error("Expected affirmative precedence over negative")
	}
}
