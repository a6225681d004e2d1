package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/script"
)

const audioChunkSize = 32 << 10

func (s *Server) handlePodcast(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "Topic is required", "request body must include a non-empty \"topic\"")
		return
	}

	res, err := s.gen.Run(r.Context(), req)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	utterances, err := script.DecodeUtterances(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid script", err.Error())
		return
	}
	if len(utterances) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid script", "script has no utterances")
		return
	}
	if s.audio == nil {
		details := "no synthesis provider configured"
		if s.audioErr != nil {
			details = s.audioErr.Error()
		}
		writeError(w, http.StatusInternalServerError, "Audio synthesis is not configured", details)
		return
	}

	stream := s.audio.StreamAsync(r.Context(), utterances)
	defer stream.Close()

	// Headers are committed only once audio arrives, so a failure on the
	// first segment can still be reported as JSON.
	buf := make([]byte, audioChunkSize)
	n, err := io.ReadAtLeast(stream, buf, 1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("synthesis produced no audio")
		}
		s.logger.ErrorContext(r.Context(), "Audio synthesis failed", "error", err)
		writeError(w, http.StatusBadGateway, "Audio synthesis failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for {
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				// The status line is already sent; the client sees a
				// truncated body.
				s.logger.WarnContext(r.Context(), "Audio stream interrupted", "error", err)
			}
			return
		}
		n, err = stream.Read(buf)
	}
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Interest is required", "query parameter \"q\" must not be empty")
		return
	}
	if s.topics == nil {
		writeError(w, http.StatusInternalServerError, "Topic suggestions are not configured", "")
		return
	}
	list, err := s.topics.Suggest(r.Context(), q)
	if err != nil {
		writeTopicsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": list})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
