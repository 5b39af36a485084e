package swarm

import (
	"errors"

	"veritas/internal/video"
)

// MediaKind says how the request's media reference should be read.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaURL
	MediaUploadedFile
)

// Request is one investigation input. Exactly one of ClaimText/media may
// be absent, not both.
type Request struct {
	ClaimText string
	MediaURL  string    // set when MediaKind is MediaURL
	FileData  []byte    // set when MediaKind is MediaUploadedFile
	MediaKind MediaKind
}

// ErrEmptyRequest is returned when a request carries neither a claim nor
// any media.
var ErrEmptyRequest = errors.New("request has neither claim text nor media")

// Validate rejects requests with nothing to investigate.
func (r Request) Validate() error {
	if r.ClaimText == "" && r.MediaKind == MediaNone {
		return ErrEmptyRequest
	}
	if r.MediaKind == MediaURL && r.MediaURL == "" {
		return ErrEmptyRequest
	}
	if r.MediaKind == MediaUploadedFile && len(r.FileData) == 0 {
		return ErrEmptyRequest
	}
	return nil
}

// Classification is the derived input category that selects the step graph.
type Classification int

const (
	ClassPlainText Classification = iota
	ClassImage
	ClassVideoOrSocial
)

func (c Classification) String() string {
	switch c {
	case ClassImage:
		return "IMAGE"
	case ClassVideoOrSocial:
		return "VIDEO_OR_SOCIAL"
	default:
		return "PLAIN_TEXT"
	}
}

// Classify derives the input category. A media URL on a known video or
// social host selects the video branch; any other media selects the image
// branch; no media means plain text.
func Classify(r Request) Classification {
	switch r.MediaKind {
	case MediaURL:
		if video.IsVideoOrSocial(r.MediaURL) {
			return ClassVideoOrSocial
		}
		return ClassImage
	case MediaUploadedFile:
		return ClassImage
	default:
		return ClassPlainText
	}
}
