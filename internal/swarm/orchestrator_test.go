package swarm

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/search"
	"veritas/internal/verdict"
	"veritas/internal/video"
)

const judgeJSON = `{"verdict": "FAKE", "confidence_score": 85, "summary": "Contradicted by evidence.", "sources": [{"name": "Reuters", "url": "https://reuters.com/a"}]}`

type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	results []search.Result
	err     error
	panics  bool
}

func (f *fakeSearch) Search(ctx context.Context, claim string) ([]search.Result, error) {
	if f.panics {
		panic("search blew up")
	}
	f.mu.Lock()
	f.queries = append(f.queries, claim)
	f.mu.Unlock()
	return f.results, f.err
}

func (f *fakeSearch) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type fakeVideo struct {
	meta video.Metadata
	urls []string
}

func (f *fakeVideo) Extract(ctx context.Context, rawURL string) video.Metadata {
	f.urls = append(f.urls, rawURL)
	return f.meta
}

type fakeInference struct {
	mu           sync.Mutex
	judgePrompts []string
	judgeReply   string
	judgeErr     error
	claimReply   string
	claimErr     error
	visionReply  string
}

func (f *fakeInference) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasPrefix(prompt, "Act as Veritas Protocol Judge"):
		f.judgePrompts = append(f.judgePrompts, prompt)
		if f.judgeErr != nil {
			return "", f.judgeErr
		}
		if f.judgeReply == "" {
			return judgeJSON, nil
		}
		return f.judgeReply, nil
	case strings.HasPrefix(prompt, "Write exactly one short factual sentence"):
		if f.claimErr != nil {
			return "", f.claimErr
		}
		return f.claimReply, nil
	default:
		if f.visionReply == "" {
			return "Plausible on its face.", nil
		}
		return f.visionReply, nil
	}
}

func (f *fakeInference) CompleteWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return "The image shows a crowded stadium.", nil
}

func (f *fakeInference) lastJudgePrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.judgePrompts) == 0 {
		return ""
	}
	return f.judgePrompts[len(f.judgePrompts)-1]
}

type fakeImages struct {
	data []byte
	mime string
	err  error
}

func (f *fakeImages) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	return f.data, f.mime, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	claims  []string
	results []FinalResult
}

func (f *fakeRecorder) Record(sessionID, claim string, result FinalResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = append(f.claims, claim)
	f.results = append(f.results, result)
}

func testOrchestrator(p Providers, rec Recorder) *Orchestrator {
	return NewOrchestrator(p, rec, Config{
		HeartbeatInterval: time.Second,
		EventBuffer:       32,
	})
}

// drain consumes the stream to completion and returns all events.
func drain(t *testing.T, st *Stream) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("stream did not terminate")
		default:
		}
		e, ok := st.Next()
		if !ok {
			return events
		}
		events = append(events, e)
	}
}

func resultOf(t *testing.T, events []Event) FinalResult {
	t.Helper()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, KindResult, last.Kind, "last event must be the result")
	for _, e := range events[:len(events)-1] {
		require.NotEqual(t, KindResult, e.Kind, "only one result event allowed")
	}
	require.NotNil(t, last.Result)
	return *last.Result
}

func TestOrchestrator_PlainTextClaim(t *testing.T) {
	searcher := &fakeSearch{results: []search.Result{
		{Title: "Moon composition", Snippet: "The moon is rock.", URL: "https://nasa.gov/moon"},
	}}
	llm := &fakeInference{}
	o := testOrchestrator(Providers{
		Search:    searcher,
		Video:     &fakeVideo{},
		Inference: llm,
		Images:    &fakeImages{},
	}, nil)

	st := o.Run(context.Background(), Request{ClaimText: "The moon is made of cheese"})
	events := drain(t, st)
	result := resultOf(t, events)

	assert.Equal(t, []string{"The moon is made of cheese"}, searcher.recorded())
	assert.Equal(t, verdict.OutcomeFake, result.Verdict.Verdict)
	assert.False(t, result.IsVideo)

	// The judge saw the search evidence.
	assert.Contains(t, llm.lastJudgePrompt(), "nasa.gov/moon")
	assert.Contains(t, llm.lastJudgePrompt(), `"The moon is made of cheese"`)

	// swarm_logs carry the search payload and the visuals marker.
	require.Len(t, result.SwarmLogs, 2)
	assert.Contains(t, result.SwarmLogs[0].Data, "nasa.gov/moon")
	assert.Equal(t, "Visuals Processed", result.SwarmLogs[1].Data)
}

func TestOrchestrator_SearchUnavailable(t *testing.T) {
	searcher := &fakeSearch{err: search.ErrUnavailable}
	o := testOrchestrator(Providers{
		Search:    searcher,
		Video:     &fakeVideo{},
		Inference: &fakeInference{},
		Images:    &fakeImages{},
	}, nil)

	st := o.Run(context.Background(), Request{ClaimText: "anything"})
	events := drain(t, st)
	result := resultOf(t, events)

	var sawUnavailable bool
	for _, e := range events {
		if e.Kind == KindLog && e.Agent == AgentSearch && e.Message == "Search unavailable." {
			sawUnavailable = true
		}
	}
	assert.True(t, sawUnavailable)
	assert.Equal(t, "SEARCH_UNAVAILABLE", result.SwarmLogs[0].Data)
}

func TestOrchestrator_VideoBranchAutoClaim(t *testing.T) {
	searcher := &fakeSearch{}
	llm := &fakeInference{claimReply: "The mayor resigned this week."}
	vid := &fakeVideo{meta: video.Metadata{
		Title:       "Mayor resigns",
		Description: "Author: City News",
		Transcript:  "the mayor announced his resignation",
	}}
	o := testOrchestrator(Providers{
		Search:    searcher,
		Video:     vid,
		Inference: llm,
		Images:    &fakeImages{},
	}, nil)

	st := o.Run(context.Background(), Request{
		MediaKind: MediaURL,
		MediaURL:  "https://www.youtube.com/watch?v=abc",
	})
	events := drain(t, st)
	result := resultOf(t, events)

	assert.True(t, result.IsVideo)
	assert.Equal(t, "The mayor resigned this week.", result.AutoClaim)
	assert.Equal(t, []string{"The mayor resigned this week."}, searcher.recorded())

	var sawClaimLog bool
	for _, e := range events {
		if e.Kind == KindLog && e.Agent == AgentSystem && strings.HasPrefix(e.Message, "Claim Found:") {
			sawClaimLog = true
		}
	}
	assert.True(t, sawClaimLog)
}

func TestOrchestrator_VideoBranchTitleFallback(t *testing.T) {
	llm := &fakeInference{claimErr: context.DeadlineExceeded}
	vid := &fakeVideo{meta: video.Metadata{Title: "Mayor resigns"}}
	o := testOrchestrator(Providers{
		Search:    &fakeSearch{},
		Video:     vid,
		Inference: llm,
		Images:    &fakeImages{},
	}, nil)

	st := o.Run(context.Background(), Request{
		MediaKind: MediaURL,
		MediaURL:  "https://youtu.be/abc",
	})
	result := resultOf(t, drain(t, st))
	assert.Equal(t, "Check video claim: Mayor resigns", result.AutoClaim)
}

func TestOrchestrator_VideoBranchURLFallback(t *testing.T) {
	o := testOrchestrator(Providers{
		Search:    &fakeSearch{},
		Video:     &fakeVideo{},
		Inference: &fakeInference{},
		Images:    &fakeImages{},
	}, nil)

	st := o.Run(context.Background(), Request{
		MediaKind: MediaURL,
		MediaURL:  "https://www.tiktok.com/@user/video/1",
	})
	events := drain(t, st)
	result := resultOf(t, events)
	assert.Equal(t, "Fact check this video: https://www.tiktok.com/@user/video/1", result.AutoClaim)

	var sawURLLog bool
	for _, e := range events {
		if e.Kind == KindLog && e.Message == "Using Video URL as Claim" {
			sawURLLog = true
		}
	}
	assert.True(t, sawURLLog)
}

func TestOrchestrator_ImageBranchRunsVisionAndSearch(t *testing.T) {
	searcher := &fakeSearch{results: []search.Result{{Title: "hit", URL: "https://example.com"}}}
	o := testOrchestrator(Providers{
		Search:    searcher,
		Video:     &fakeVideo{},
		Inference: &fakeInference{},
		Images:    &fakeImages{data: []byte{0xff, 0xd8}, mime: "image/jpeg"},
	}, nil)

	st := o.Run(context.Background(), Request{
		ClaimText: "stadium was full",
		MediaKind: MediaURL,
		MediaURL:  "https://example.com/photo.jpg",
	})
	events := drain(t, st)
	result := resultOf(t, events)

	var sawVision, sawSearch bool
	for _, e := range events {
		if e.Kind != KindLog {
			continue
		}
		if e.Agent == AgentVision {
			sawVision = true
		}
		if e.Agent == AgentSearch {
			sawSearch = true
		}
	}
	assert.True(t, sawVision)
	assert.True(t, sawSearch)
	assert.False(t, result.IsVideo)
	assert.Equal(t, []string{"stadium was full"}, searcher.recorded())
}

func TestOrchestrator_PanicStillTerminates(t *testing.T) {
	o := testOrchestrator(Providers{
		Search:    &fakeSearch{panics: true},
		Video:     &fakeVideo{},
		Inference: &fakeInference{},
		Images:    &fakeImages{},
	}, nil)

	st := o.Run(context.Background(), Request{ClaimText: "anything"})
	events := drain(t, st)
	result := resultOf(t, events)

	var sawSystemError bool
	for _, e := range events {
		if e.Kind == KindLog && e.Agent == AgentSystem && strings.Contains(e.Message, "search blew up") {
			sawSystemError = true
		}
	}
	assert.True(t, sawSystemError, "panic must surface as a SYSTEM log")
	assert.Equal(t, verdict.OutcomeError, result.Verdict.Verdict)
}

func TestOrchestrator_JudgeFailureYieldsDefault(t *testing.T) {
	o := testOrchestrator(Providers{
		Search:    &fakeSearch{},
		Video:     &fakeVideo{},
		Inference: &fakeInference{judgeErr: context.DeadlineExceeded},
		Images:    &fakeImages{},
	}, nil)

	st := o.Run(context.Background(), Request{ClaimText: "anything"})
	result := resultOf(t, drain(t, st))
	assert.Equal(t, verdict.Default(), result.Verdict)
}

func TestOrchestrator_CancelledBeforeSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := testOrchestrator(Providers{
		Search:    &fakeSearch{},
		Video:     &fakeVideo{},
		Inference: &fakeInference{},
		Images:    &fakeImages{},
	}, nil)

	st := o.Run(ctx, Request{ClaimText: "anything"})
	events := drain(t, st)
	result := resultOf(t, events)
	assert.Equal(t, "Investigation cancelled.", result.Verdict.Summary)
}

func TestOrchestrator_RecorderSeesTerminalVerdict(t *testing.T) {
	rec := &fakeRecorder{}
	o := testOrchestrator(Providers{
		Search:    &fakeSearch{},
		Video:     &fakeVideo{},
		Inference: &fakeInference{},
		Images:    &fakeImages{},
	}, rec)

	st := o.Run(context.Background(), Request{ClaimText: "recorded claim"})
	drain(t, st)

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.results) == 1
	}, time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "recorded claim", rec.claims[0])
	assert.Equal(t, verdict.OutcomeFake, rec.results[0].Verdict.Verdict)
}

func TestJudgeStep_DoesNotMutateEvidence(t *testing.T) {
	o := testOrchestrator(Providers{
		Search:    &fakeSearch{},
		Video:     &fakeVideo{},
		Inference: &fakeInference{},
		Images:    &fakeImages{},
	}, nil)

	sess := newSession(Request{ClaimText: "claim"})
	sess.addEvidence(Evidence{Source: SourceSearch, Status: StatusOK, Payload: `[{"title":"t"}]`})
	sess.addEvidence(Evidence{Source: SourceVision, Status: StatusOK, Payload: "a photo"})
	before := append([]Evidence(nil), sess.Evidence...)

	st := newStream(8, time.Second)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for {
			if _, ok := st.Next(); !ok {
				return
			}
		}
	}()

	v1 := o.judgeStep(context.Background(), sess, st)
	v2 := o.judgeStep(context.Background(), sess, st)
	st.end()
	<-consumerDone

	assert.Equal(t, v1, v2)
	if diff := cmp.Diff(before, sess.Evidence); diff != "" {
		t.Errorf("evidence mutated by judge (-before +after):\n%s", diff)
	}
}
