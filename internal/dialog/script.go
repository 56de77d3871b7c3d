package dialog

import (
	"fmt"
	"strings"
)

// Variant identifies which interview script a session runs. Selected at
// session creation and immutable thereafter.
type Variant string

const (
	// VariantQuickRupee is the loan-qualification script.
	VariantQuickRupee Variant = "quickrupee"

	// VariantHomeRenovation is the renovation-lead script.
	VariantHomeRenovation Variant = "home_renovation"
)

// ParseVariant converts a client-supplied bot type string into a Variant.
// An empty string selects VariantQuickRupee.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(VariantQuickRupee):
		return VariantQuickRupee, nil
	case string(VariantHomeRenovation):
		return VariantHomeRenovation, nil
	default:
		return "", fmt.Errorf("unknown bot type %q", s)
	}
}

// Question is one scripted question: the state in which it is asked and the
// state the interview advances to once it is answered.
type Question struct {
	ID        string
	Text      string
	State     State
	NextState State
}

// Script is the immutable, process-wide data for one interview variant:
// greeting, ordered questions, and the terminal verdict texts. The
// eligibility evaluation itself (logical AND of all answers) is shared
// across variants and lives on the Machine.
type Script struct {
	Variant        Variant
	Greeting       string
	Questions      []Question
	EligibleText   string
	IneligibleText string
}

// RepromptText is spoken when an utterance cannot be classified as yes or
// no. It is shared by all script variants.
const RepromptText = "I didn't quite understand. Could you please say yes or no?"

var quickRupeeScript = Script{
	Variant:  VariantQuickRupee,
	Greeting: "Hello! Welcome to QuickRupee Loan Qualification. I'll ask you three quick questions to check your eligibility. Let's get started.",
	Questions: []Question{
		{ID: "q1", Text: "Are you a salaried employee?", State: StateQ1, NextState: StateQ2},
		{ID: "q2", Text: "Is your monthly salary above 25000 rupees?", State: StateQ2, NextState: StateQ3},
		{ID: "q3", Text: "Do you live in a metro city?", State: StateQ3, NextState: StateResult},
	},
	EligibleText:   "Congratulations! You are eligible for the QuickRupee loan. Our agent will call you within 10 minutes.",
	IneligibleText: "Thank you for your interest. Unfortunately, you do not meet the current eligibility criteria for QuickRupee loan.",
}

var homeRenovationScript = Script{
	Variant:  VariantHomeRenovation,
	Greeting: "Hello! Welcome to Home Renovation Lead Qualification. I'll ask you three questions about your project. Let's begin.",
	Questions: []Question{
		{ID: "q1", Text: "Do you own your home?", State: StateQ1, NextState: StateQ2},
		{ID: "q2", Text: "Is your renovation budget over 10000 dollars?", State: StateQ2, NextState: StateQ3},
		{ID: "q3", Text: "Can you start the renovation within 3 months?", State: StateQ3, NextState: StateResult},
	},
	EligibleText:   "Excellent! You are a hot lead. We will transfer you to our renovation specialist now.",
	IneligibleText: "Thank you for reaching out. We appreciate your interest in our services.",
}

// ScriptFor returns the script data for a variant. Unknown variants fall
// back to the QuickRupee script, matching the behavior for unset bot types.
func ScriptFor(v Variant) Script {
	if v == VariantHomeRenovation {
		return homeRenovationScript
	}
	return quickRupeeScript
}

// Ordered keyword lists for utterance classification. Affirmative keywords
// are scanned before negative ones, so text containing both classifies as
// affirmative ("yes, not really" -> yes). The precedence is part of the
// protocol with existing clients and must not change.
var (
	affirmativeKeywords = []string{"yes", "yep", "yeah", "true", "sure", "okay", "ok", "correct"}
	negativeKeywords    = []string{"no", "nope", "nah", "false", "negative"}
)

// ParseYesNo classifies an utterance as affirmative or negative by substring
// matching against the fixed keyword lists. The second return value is false
// when the text contains neither kind of keyword.
func ParseYesNo(text string) (answer bool, ok bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))

	for _, word := range affirmativeKeywords {
		if strings.Contains(lowered, word) {
			return true, true
		}
	}

	for _, word := range negativeKeywords {
		if strings.Contains(lowered, word) {
			return false, true
		}
	}

	return false, false
}
