// Package orchestrator drives the per-turn interview pipeline: transcribe
// the caller's utterance, advance the dialog machine, and synthesize the
// reply. It also provides the telephony codec adapters that translate
// between the 8 kHz mu-law wire format and the 16 kHz PCM the speech
// gateways work in.
//
// All methods are invoked inline from a session's connection handler, which
// processes events strictly sequentially; the orchestrator itself spawns no
// goroutines and holds no per-session state.
package orchestrator
