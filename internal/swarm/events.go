// Package swarm contains the investigation engine: the agent steps, the
// orchestrator that sequences them, and the stream bridge that relays
// progress to the transport.
package swarm

import (
	"encoding/json"

	"veritas/internal/verdict"
)

// EventKind discriminates progress events.
type EventKind int

const (
	// KindLog is an agent progress line.
	KindLog EventKind = iota
	// KindPing is a keep-alive with no semantic payload.
	KindPing
	// KindResult carries the terminal verdict. Always the last event.
	KindResult
	// kindEnd is the internal end-of-stream sentinel. Never forwarded.
	kindEnd
)

// Agent labels progress events with the step that produced them.
type Agent string

const (
	AgentSearch Agent = "SEARCH"
	AgentVision Agent = "VISION"
	AgentVideo  Agent = "VIDEO_OPS"
	AgentJudge  Agent = "JUDGE"
	AgentSystem Agent = "SYSTEM"
)

// StepLog is one entry of the swarm_logs array in the terminal event.
type StepLog struct {
	Data string `json:"data"`
}

// FinalResult is the payload of the terminal event.
type FinalResult struct {
	Verdict   verdict.Verdict `json:"final_verdict"`
	SwarmLogs []StepLog       `json:"swarm_logs"`
	IsVideo   bool            `json:"is_video"`
	AutoClaim string          `json:"auto_claim"`
}

// Event is one unit of the output stream. Immutable once created.
type Event struct {
	Kind    EventKind
	Agent   Agent
	Message string
	Result  *FinalResult
}

// LogEvent creates a progress log event.
func LogEvent(agent Agent, message string) Event {
	return Event{Kind: KindLog, Agent: agent, Message: message}
}

// PingEvent creates a keep-alive event.
func PingEvent() Event {
	return Event{Kind: KindPing}
}

// ResultEvent creates the terminal event.
func ResultEvent(result FinalResult) Event {
	if result.SwarmLogs == nil {
		result.SwarmLogs = []StepLog{}
	}
	return Event{Kind: KindResult, Result: &result}
}

// MarshalJSON encodes the event in the NDJSON wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindLog:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Agent   string `json:"agent"`
			Message string `json:"message"`
		}{Type: "log", Agent: string(e.Agent), Message: e.Message})
	case KindResult:
		return json.Marshal(struct {
			Type string `json:"type"`
			*FinalResult
		}{Type: "result", FinalResult: e.Result})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{Type: "ping"})
	}
}
