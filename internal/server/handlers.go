package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hyperjump/docqa/internal/errs"
	"go.uber.org/zap"
)

type initializeRequest struct {
	DocumentPath *string `json:"document_path,omitempty"`
	ModelPath    string  `json:"model_path,omitempty"`
}

type answerRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var body initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := s.defaults
	if body.DocumentPath != nil {
		req.DocumentPath = *body.DocumentPath
	}
	if body.ModelPath != "" {
		req.ModelPath = body.ModelPath
	}
	if req.ModelPath == "" {
		s.respondError(w, http.StatusBadRequest, "model_path is required")
		return
	}

	s.logger.Debug("initialize request",
		zap.String("document", req.DocumentPath),
		zap.String("model", req.ModelPath),
	)
	// Initialization outlives the request.
	done, err := s.session.StartInitialize(context.Background(), req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	go func() {
		if err := <-done; err != nil {
			s.logger.Warn("initialize failed", zap.String("code", string(errs.Classify(err))), zap.Error(err))
		}
	}()
	s.respondJSON(w, http.StatusAccepted, s.session.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := s.session.Answer(r.Context(), body.Question)
	if err != nil {
		s.logger.Debug("answer failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps an error code onto an HTTP status.
func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeInvalidInput:
		return http.StatusBadRequest
	case errs.CodeDocument:
		return http.StatusUnprocessableEntity
	case errs.CodeModelNotFound:
		return http.StatusNotFound
	case errs.CodeNotReady, errs.CodeAlreadyInitializing:
		return http.StatusConflict
	case errs.CodeBusy:
		return http.StatusTooManyRequests
	case errs.CodeCancel:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	code := errs.Classify(err)
	body := map[string]string{"error": err.Error(), "code": string(code)}
	if hint := errs.Hint(err); hint != "" {
		body["hint"] = hint
	}
	s.respondJSON(w, statusFor(code), body)
}
