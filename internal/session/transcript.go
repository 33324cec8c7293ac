package session

// Transcript is the ordered, append-only conversation replayed to the provider
type Transcript []Turn

// Append returns the transcript with turns added at the end.
// Existing turns are never modified.
func (t Transcript) Append(turns ...Turn) Transcript {
	out := make(Transcript, 0, len(t)+len(turns))
	out = append(out, t...)
	return append(out, turns...)
}

// Clone returns a copy that shares no backing array with t
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Count returns the number of turns authored by role
func (t Transcript) Count(role Role) int {
	n := 0
	for _, turn := range t {
		if turn.Role == role {
			n++
		}
	}
	return n
}

// Last returns the final turn, or false when empty
func (t Transcript) Last() (Turn, bool) {
	if len(t) == 0 {
		return Turn{}, false
	}
	return t[len(t)-1], true
}
