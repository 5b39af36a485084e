package swarm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"veritas/internal/logging"
	"veritas/internal/verdict"
)

// Recorder persists a terminal verdict after the stream has delivered it.
// Optional; a nil recorder disables history.
type Recorder interface {
	Record(sessionID, claim string, result FinalResult)
}

// Config tunes orchestration behavior.
type Config struct {
	HeartbeatInterval time.Duration
	EventBuffer       int
}

// Orchestrator drives investigations. One instance serves all sessions;
// it holds no per-session state.
type Orchestrator struct {
	providers Providers
	recorder  Recorder
	heartbeat time.Duration
	buffer    int
}

// NewOrchestrator creates an orchestrator over the given providers.
func NewOrchestrator(providers Providers, recorder Recorder, cfg Config) *Orchestrator {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 2 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 32
	}
	return &Orchestrator{
		providers: providers,
		recorder:  recorder,
		heartbeat: cfg.HeartbeatInterval,
		buffer:    cfg.EventBuffer,
	}
}

// Run starts one investigation in a background goroutine and returns the
// stream the caller consumes. The stream always terminates with exactly
// one result event, whatever happens inside the session.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Stream {
	st := newStream(o.buffer, o.heartbeat)
	go o.investigate(ctx, req, st)
	return st
}

func (o *Orchestrator) investigate(ctx context.Context, req Request, st *Stream) {
	log := logging.Get(logging.CategorySwarm)
	sess := newSession(req)
	log.Infow("session started", "session", sess.ID, "classification", sess.Classification.String())

	final := FinalResult{
		Verdict: verdict.Verdict{
			Verdict:    verdict.OutcomeError,
			Confidence: 0,
			Summary:    "System error.",
			Sources:    []verdict.Source{},
		},
		SwarmLogs: []StepLog{},
		AutoClaim: req.ClaimText,
	}

	// The step body may fail any way it likes; the terminal result event
	// is still emitted exactly once below.
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("session fault", "session", sess.ID, "panic", r)
				st.emit(LogEvent(AgentSystem, fmt.Sprintf("Error: %v", r)))
			}
		}()
		o.runSteps(ctx, req, sess, st, &final)
	}()

	st.emit(ResultEvent(final))
	st.end()
	log.Infow("session finished", "session", sess.ID, "verdict", string(final.Verdict.Verdict))

	if o.recorder != nil {
		o.recorder.Record(sess.ID, sess.Claim, final)
	}
}

func (o *Orchestrator) runSteps(ctx context.Context, req Request, sess *Session, st *Stream, final *FinalResult) {
	final.IsVideo = sess.Classification == ClassVideoOrSocial

	switch sess.Classification {
	case ClassVideoOrSocial:
		ev, meta := o.videoStep(ctx, req, st)
		sess.addEvidence(ev)
		sess.VideoContext = ev.Payload

		if strings.TrimSpace(sess.Claim) == "" {
			sess.Claim = o.synthesizeClaim(ctx, req, meta, st)
			sess.AutoClaim = sess.Claim
			final.AutoClaim = sess.AutoClaim
		}

		if o.cancelled(ctx, st, final) {
			return
		}
		sess.addEvidence(o.searchStep(ctx, sess.Claim, st))

	case ClassImage:
		// Vision and search have no data dependency here; run them
		// concurrently. Their log events may interleave.
		var visionEv, searchEv Evidence
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			visionEv = o.visionStep(gctx, req, sess.Claim, st)
			return nil
		})
		g.Go(func() error {
			searchEv = o.searchStep(gctx, sess.Claim, st)
			return nil
		})
		_ = g.Wait()
		sess.addEvidence(visionEv)
		sess.addEvidence(searchEv)
		sess.VideoContext = visionEv.Payload

	default:
		if o.cancelled(ctx, st, final) {
			return
		}
		sess.addEvidence(o.searchStep(ctx, sess.Claim, st))
	}

	if o.cancelled(ctx, st, final) {
		return
	}

	final.Verdict = o.judgeStep(ctx, sess, st)

	searchPayload := "SEARCH_FAILED"
	if ev, ok := sess.evidenceBySource(SourceSearch); ok {
		searchPayload = ev.Payload
	}
	final.SwarmLogs = []StepLog{
		{Data: searchPayload},
		{Data: "Visuals Processed"},
	}
}

// cancelled checks for consumer disconnect between steps. The session
// still terminates with a well-formed result.
func (o *Orchestrator) cancelled(ctx context.Context, st *Stream, final *FinalResult) bool {
	if ctx.Err() == nil {
		return false
	}
	logging.Get(logging.CategorySwarm).Infow("session cancelled", "err", ctx.Err())
	st.emit(LogEvent(AgentSystem, "Investigation cancelled."))
	v := verdict.Default()
	v.Summary = "Investigation cancelled."
	final.Verdict = v
	return true
}
