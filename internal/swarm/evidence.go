package swarm

// EvidenceSource tags which step produced an evidence item.
type EvidenceSource string

const (
	SourceSearch EvidenceSource = "SEARCH"
	SourceVision EvidenceSource = "VISION"
	SourceVideo  EvidenceSource = "VIDEO"
)

// EvidenceStatus records whether the producing step succeeded.
type EvidenceStatus string

const (
	StatusOK          EvidenceStatus = "OK"
	StatusUnavailable EvidenceStatus = "UNAVAILABLE"
	StatusFailed      EvidenceStatus = "FAILED"
)

// Evidence is one step's finding. Immutable once produced; the judge only
// reads it.
type Evidence struct {
	Source  EvidenceSource
	Status  EvidenceStatus
	Payload string
}
