package dialog

import (
	"fmt"
	"sync"
)

// State is the current position in the interview. The progression is
// strictly linear and forward-only:
//
//	Greeting -> Q1 -> Q2 -> Q3 -> Result -> End
//
// Result and End are terminal for the interview logic.
type State int

const (
	StateGreeting State = iota
	StateQ1
	StateQ2
	StateQ3
	StateResult
	StateEnd
)

// String returns the wire representation of a state, which doubles as the
// question id while a question is pending.
func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateQ1:
		return "q1"
	case StateQ2:
		return "q2"
	case StateQ3:
		return "q3"
	case StateResult:
		return "result"
	case StateEnd:
		return "end"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the interview logic is finished in this state.
func (s State) Terminal() bool {
	return s == StateResult || s == StateEnd
}

// OutcomeKind discriminates the result of feeding an utterance to the
// machine.
type OutcomeKind int

const (
	// OutcomeUnrecognized: the utterance was neither affirmative nor
	// negative. State is unchanged and no answer is recorded.
	OutcomeUnrecognized OutcomeKind = iota

	// OutcomeAdvance: the answer was recorded and the interview moved to
	// the next question.
	OutcomeAdvance

	// OutcomeComplete: the final question was answered; the eligibility
	// verdict is ready and the machine has reached StateEnd.
	OutcomeComplete
)

// Outcome is the machine's reaction to one utterance. Prompt carries the
// text to speak next: the reprompt, the next question, or the verdict.
type Outcome struct {
	Kind       OutcomeKind
	Prompt     string
	QuestionID string          // Set for OutcomeAdvance: id of the question now pending
	Eligible   bool            // Set for OutcomeComplete
	Answers    map[string]bool // Set for OutcomeComplete: copy of all recorded answers
}

// Machine drives one session's scripted interview. It is not safe for
// concurrent use by itself; the per-session sequential processing guarantee
// of the orchestration loop is what keeps it consistent.
type Machine struct {
	script  Script
	state   State
	answers map[string]bool

	mu sync.RWMutex
}

// NewMachine creates an interview machine for the given script variant.
func NewMachine(variant Variant) *Machine {
	return &Machine{
		script:  ScriptFor(variant),
		state:   StateGreeting,
		answers: make(map[string]bool, 3),
	}
}

// Start returns the greeting text and arms the first question. The machine
// is then "awaiting the answer to Q1".
func (m *Machine) Start() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateQ1
	return m.script.Greeting
}

// OnUtterance feeds a transcribed utterance to the machine and returns the
// outcome. Answers are only ever recorded for the currently pending
// question, so the answer map grows monotonically and never beyond the
// script's question count.
func (m *Machine) OnUtterance(text string) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	answer, ok := ParseYesNo(text)
	if !ok {
		return Outcome{Kind: OutcomeUnrecognized, Prompt: RepromptText}
	}

	current := m.currentQuestion()
	if current == nil {
		// Terminal or greeting state: nothing to record. Treat as
		// unclassifiable so callers simply reprompt.
		return Outcome{Kind: OutcomeUnrecognized, Prompt: RepromptText}
	}

	m.answers[current.ID] = answer

	if current.NextState == StateResult {
		eligible := m.evaluateEligibility()

		prompt := m.script.IneligibleText
		if eligible {
			prompt = m.script.EligibleText
		}

		m.state = StateEnd

		return Outcome{
			Kind:     OutcomeComplete,
			Prompt:   prompt,
			Eligible: eligible,
			Answers:  m.copyAnswers(),
		}
	}

	m.state = current.NextState
	next := m.currentQuestion()

	return Outcome{
		Kind:       OutcomeAdvance,
		Prompt:     next.Text,
		QuestionID: next.ID,
	}
}

// State returns the current interview state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Answers returns a copy of the recorded answers keyed by question id.
func (m *Machine) Answers() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyAnswers()
}

// Script returns the script data this machine runs.
func (m *Machine) Script() Script {
	return m.script
}

// currentQuestion returns the question pending in the current state, or nil
// when no question is pending. Callers hold m.mu.
func (m *Machine) currentQuestion() *Question {
	for i := range m.script.Questions {
		if m.script.Questions[i].State == m.state {
			return &m.script.Questions[i]
		}
	}
	return nil
}

// evaluateEligibility applies the shared rule: eligible if and only if every
// scripted question was answered affirmatively. Callers hold m.mu.
func (m *Machine) evaluateEligibility() bool {
	for _, q := range m.script.Questions {
		if !m.answers[q.ID] {
			return false
		}
	}
	return true
}

func (m *Machine) copyAnswers() map[string]bool {
	answers := make(map[string]bool, len(m.answers))
	for id, v := range m.answers {
		answers[id] = v
	}
	return answers
}
