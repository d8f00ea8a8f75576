package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/pathfinder/internal/conversation"
	"github.com/MikeSquared-Agency/pathfinder/internal/interview"
	"github.com/MikeSquared-Agency/pathfinder/internal/store"
)

type MessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type SessionResponse struct {
	SessionID string                 `json:"session_id"`
	Messages  []conversation.Message `json:"messages"`
}

type TurnResponse struct {
	SessionID string `json:"session_id"`
	conversation.Turn
}

type TranscriptResponse struct {
	SessionID string                 `json:"session_id"`
	Messages  []conversation.Message `json:"messages"`
	Interview *InterviewStatus       `json:"interview,omitempty"`
}

type InterviewStatus struct {
	QuestionIndex int `json:"question_index"`
	Answered      int `json:"answered"`
}

// createSession handles POST /api/v1/sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	msgs := s.ctrl.Open(id)
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id, Messages: msgs})
}

// sendMessage handles POST /api/v1/sessions/{id}/messages
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	turn, err := s.ctrl.HandleTurn(r.Context(), id, req.Text)
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrUnknownSession):
		writeError(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, conversation.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is empty")
		return
	case errors.Is(err, conversation.ErrSessionReset):
		writeError(w, http.StatusConflict, "session was reset")
		return
	case errors.Is(err, interview.ErrInvalidState):
		s.logger.Error("interview state violation", "session_id", id, "error", err)
		writeError(w, http.StatusConflict, "interview state conflict")
		return
	default:
		s.logger.Error("turn failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}

	writeJSON(w, http.StatusOK, TurnResponse{SessionID: id, Turn: turn})
}

// transcript handles GET /api/v1/sessions/{id}/messages
func (s *Server) transcript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msgs, err := s.ctrl.Transcript(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	resp := TranscriptResponse{SessionID: id, Messages: msgs}
	if state, active, err := s.ctrl.InterviewState(id); err == nil && active {
		resp.Interview = &InterviewStatus{QuestionIndex: state.Index, Answered: len(state.History)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// resetSession handles DELETE /api/v1/sessions/{id}
func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ctrl.Reset(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// score handles GET /api/v1/sessions/{id}/score
func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.scores.Get(r.Context(), id)
	if err != nil {
		switch store.KindOf(err) {
		case store.KindNotFound:
			writeError(w, http.StatusNotFound, "no score recorded")
		case store.KindUnavailable:
			s.logger.Error("score store unavailable", "session_id", id, "error", err)
			writeError(w, http.StatusServiceUnavailable, "score store unavailable")
		default:
			s.logger.Error("score lookup failed", "session_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "score lookup failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
