package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"veritas/internal/logging"
	"veritas/internal/swarm"
)

var errTooLarge = errors.New("uploaded file exceeds the size limit")

type investigateBody struct {
	ClaimText string `json:"claim_text"`
	ImageURL  string `json:"image_url"`
}

// handleInvestigate accepts a claim as JSON or multipart form data and
// streams the investigation as newline-delimited JSON. Validation failures
// are rejected before any session is started.
func (s *Server) handleInvestigate(c *gin.Context) {
	req, err := s.parseRequest(c)
	if err != nil {
		msg := "No input"
		if errors.Is(err, errTooLarge) {
			msg = "File too large"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	st := s.orch.Run(c.Request.Context(), req)

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	c.Stream(func(w io.Writer) bool {
		ev, ok := st.Next()
		if !ok {
			return false
		}
		data, err := json.Marshal(ev)
		if err != nil {
			logging.Get(logging.CategoryServer).Errorw("event encode failed", "err", err)
			return false
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return false
		}
		return true
	})
}

func (s *Server) parseRequest(c *gin.Context) (swarm.Request, error) {
	var req swarm.Request

	ct := c.GetHeader("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		req.ClaimText = strings.TrimSpace(c.PostForm("claim_text"))
		req.MediaURL = strings.TrimSpace(c.PostForm("image_url"))
		if fh, err := c.FormFile("file"); err == nil && fh != nil {
			if fh.Size > int64(s.cfg.MaxUploadMB)<<20 {
				return req, errTooLarge
			}
			f, err := fh.Open()
			if err != nil {
				return req, err
			}
			defer f.Close()
			data, err := io.ReadAll(io.LimitReader(f, int64(s.cfg.MaxUploadMB)<<20))
			if err != nil {
				return req, err
			}
			req.FileData = data
			req.MediaKind = swarm.MediaUploadedFile
		} else if req.MediaURL != "" {
			req.MediaKind = swarm.MediaURL
		}
	} else {
		var body investigateBody
		if err := c.ShouldBindJSON(&body); err != nil && err != io.EOF {
			return req, err
		}
		req.ClaimText = strings.TrimSpace(body.ClaimText)
		req.MediaURL = strings.TrimSpace(body.ImageURL)
		if req.MediaURL != "" {
			req.MediaKind = swarm.MediaURL
		}
	}

	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}
