package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"veritas/internal/logging"
	"veritas/internal/search"
	"veritas/internal/verdict"
	"veritas/internal/video"
)

// SearchProvider gathers web evidence for a claim.
type SearchProvider interface {
	Search(ctx context.Context, claim string) ([]search.Result, error)
}

// VideoProvider gathers metadata and transcripts for a video URL.
type VideoProvider interface {
	Extract(ctx context.Context, rawURL string) video.Metadata
}

// InferenceProvider is the completion surface the steps call.
type InferenceProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// ImageFetcher downloads image bytes referenced by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (data []byte, mimeType string, err error)
}

// Providers bundles the external capabilities one session needs. All
// fields must be safe for concurrent use; sessions share them statelessly.
type Providers struct {
	Search    SearchProvider
	Video     VideoProvider
	Inference InferenceProvider
	Images    ImageFetcher
}

// searchStep queries the web for the current claim. Emits a scanning log
// before the call and one of three summary variants after.
func (o *Orchestrator) searchStep(ctx context.Context, claim string, st *Stream) Evidence {
	st.emit(LogEvent(AgentSearch, "Scanning: "+claim+"..."))

	results, err := o.providers.Search.Search(ctx, claim)
	switch {
	case errors.Is(err, search.ErrUnavailable):
		st.emit(LogEvent(AgentSearch, "Search unavailable."))
		return Evidence{Source: SourceSearch, Status: StatusUnavailable, Payload: "SEARCH_UNAVAILABLE"}
	case err != nil:
		logging.Get(logging.CategorySwarm).Warnw("search step failed", "err", err)
		st.emit(LogEvent(AgentSearch, "Search unavailable."))
		return Evidence{Source: SourceSearch, Status: StatusFailed, Payload: "SEARCH_FAILED"}
	case len(results) == 0:
		st.emit(LogEvent(AgentSearch, "No direct results found."))
		return Evidence{Source: SourceSearch, Status: StatusOK, Payload: "[]"}
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return Evidence{Source: SourceSearch, Status: StatusFailed, Payload: "SEARCH_FAILED"}
	}
	st.emit(LogEvent(AgentSearch, "Intel Retrieved."))
	return Evidence{Source: SourceSearch, Status: StatusOK, Payload: string(payload)}
}

// visionStep analyzes image media, or falls back to a pure-text
// plausibility check when no image bytes can be had.
func (o *Orchestrator) visionStep(ctx context.Context, req Request, claim string, st *Stream) Evidence {
	st.emit(LogEvent(AgentVision, "Analyzing Visuals..."))

	var img []byte
	mimeType := "image/jpeg"
	switch req.MediaKind {
	case MediaUploadedFile:
		img = req.FileData
	case MediaURL:
		data, mime, err := o.providers.Images.Fetch(ctx, req.MediaURL)
		if err != nil {
			logging.Get(logging.CategorySwarm).Debugw("image fetch failed", "url", req.MediaURL, "err", err)
		} else {
			img = data
			if mime != "" {
				mimeType = mime
			}
		}
	}

	var text string
	var err error
	if len(img) == 0 {
		text, err = o.providers.Inference.Complete(ctx, plausibilityPrompt(claim))
	} else {
		text, err = o.providers.Inference.CompleteWithImage(ctx, visionPrompt(), img, mimeType)
	}
	if err != nil {
		logging.Get(logging.CategorySwarm).Warnw("vision step failed", "err", err)
		return Evidence{Source: SourceVision, Status: StatusFailed, Payload: "Vision Analysis Failed"}
	}
	return Evidence{Source: SourceVision, Status: StatusOK, Payload: text}
}

// videoStep retrieves video metadata and transcript for the session's URL.
func (o *Orchestrator) videoStep(ctx context.Context, req Request, st *Stream) (Evidence, video.Metadata) {
	st.emit(LogEvent(AgentVideo, "Checking Video Metadata..."))

	meta := o.providers.Video.Extract(ctx, req.MediaURL)
	payload := "Title: " + meta.Title + "\nDesc: " + meta.Description + "\nTranscript: " + meta.Transcript

	status := StatusOK
	if meta.Title == "" && meta.Description == "" && meta.Transcript == "" {
		status = StatusUnavailable
	}
	return Evidence{Source: SourceVideo, Status: status, Payload: payload}, meta
}

// synthesizeClaim produces a claim when the session started without one in
// the video branch. Prefers a one-sentence claim inferred from the video
// material; degrades to the raw title, then to the URL itself.
func (o *Orchestrator) synthesizeClaim(ctx context.Context, req Request, meta video.Metadata, st *Stream) string {
	if meta.Transcript != "" || meta.Description != "" || meta.Title != "" {
		text, err := o.providers.Inference.Complete(ctx,
			claimSynthesisPrompt(meta.Title, meta.Description, meta.Transcript))
		if err != nil {
			logging.Get(logging.CategorySwarm).Warnw("claim synthesis failed", "err", err)
		} else if claim := strings.TrimSpace(text); claim != "" {
			st.emit(LogEvent(AgentSystem, "Claim Found: "+claim))
			return claim
		}
	}

	if meta.Title != "" {
		st.emit(LogEvent(AgentSystem, "Claim Found: "+meta.Title))
		return "Check video claim: " + meta.Title
	}
	st.emit(LogEvent(AgentSystem, "Using Video URL as Claim"))
	return "Fact check this video: " + req.MediaURL
}

// judgeStep produces the terminal verdict from the gathered evidence.
func (o *Orchestrator) judgeStep(ctx context.Context, sess *Session, st *Stream) verdict.Verdict {
	st.emit(LogEvent(AgentJudge, "Final Verdict..."))

	searchEvidence := ""
	if ev, ok := sess.evidenceBySource(SourceSearch); ok {
		searchEvidence = ev.Payload
	}

	raw, err := o.providers.Inference.Complete(ctx,
		judgePrompt(sess.Claim, searchEvidence, sess.VideoContext))
	if err != nil {
		logging.Get(logging.CategorySwarm).Warnw("judge step failed", "session", sess.ID, "err", err)
		return verdict.Default()
	}
	return verdict.Parse(raw)
}
