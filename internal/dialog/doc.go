// Package dialog implements the scripted qualification interview: the
// per-variant script data, the yes/no utterance classifier, and the
// forward-only state machine that records answers and computes eligibility.
package dialog
