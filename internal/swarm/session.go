package swarm

import (
	"github.com/google/uuid"
)

// Session scopes one investigation: the evolving claim, the classification,
// and the evidence gathered so far. Created at request start, gone when the
// stream closes. No cross-request state.
type Session struct {
	ID             string
	Claim          string
	Classification Classification
	AutoClaim      string
	Evidence       []Evidence
	VideoContext   string
}

func newSession(req Request) *Session {
	return &Session{
		ID:             uuid.NewString(),
		Claim:          req.ClaimText,
		Classification: Classify(req),
		AutoClaim:      req.ClaimText,
	}
}

func (s *Session) addEvidence(e Evidence) {
	s.Evidence = append(s.Evidence, e)
}

// evidenceBySource returns the first evidence item from the given step.
func (s *Session) evidenceBySource(source EvidenceSource) (Evidence, bool) {
	for _, e := range s.Evidence {
		if e.Source == source {
			return e, true
		}
	}
	return Evidence{}, false
}
