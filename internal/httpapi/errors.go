package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apresai/researchcast/internal/llm"
	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/topics"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

func statusForKind(k pipeline.ErrorKind) int {
	switch k {
	case pipeline.KindInvalidInput:
		return http.StatusBadRequest
	case pipeline.KindConfiguration, pipeline.KindParse:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writePipelineError(w http.ResponseWriter, err error) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		writeError(w, http.StatusInternalServerError, "Script generation failed", err.Error())
		return
	}
	details := pe.Details
	if details == "" && pe.Err != nil {
		details = pe.Err.Error()
	}
	writeJSON(w, statusForKind(pe.Kind), errorBody{
		Error:   pe.Message,
		Details: details,
		Stage:   string(pe.Stage),
		Raw:     pe.Raw,
	})
}

func writeTopicsError(w http.ResponseWriter, err error) {
	var parseErr *topics.ParseError
	switch {
	case errors.Is(err, topics.ErrEmptyInterest):
		writeError(w, http.StatusBadRequest, "Interest is required", err.Error())
	case errors.As(err, &parseErr):
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Failed to parse topic suggestions",
			Details: err.Error(),
			Raw:     parseErr.Raw,
		})
	case errors.Is(err, llm.ErrMissingCredential):
		writeError(w, http.StatusInternalServerError, "Generation provider is not configured", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "Failed to generate topics", err.Error())
	}
}
