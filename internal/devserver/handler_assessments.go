package devserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/hackloud/internal/validate"
	"github.com/me/hackloud/pkg/model"
)

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	list := make([]model.Assessment, len(s.assessments))
	// Newest first.
	for i, a := range s.assessments {
		list[len(list)-1-i] = a
	}
	s.mu.RUnlock()
	respondOK(w, RequestIDFromContext(r.Context()), list)
}

func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	acc := accountFromContext(r.Context())
	var in model.NewAssessment
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if errs := validate.Struct(in); len(errs) > 0 {
		respondInvalid(w, reqID, "invalid assessment", errs)
		return
	}

	a := model.Assessment{
		ID:        uuid.NewString(),
		UserID:    acc.user.ID,
		Username:  acc.user.Username,
		Vote:      in.Vote,
		Comment:   in.Comment,
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.assessments = append(s.assessments, a)
	s.mu.Unlock()
	respondCreated(w, reqID, model.IDResponse{ID: a.ID})
}

func (s *Server) handleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.assessments {
		if a.ID == id {
			s.assessments = append(s.assessments[:i], s.assessments[i+1:]...)
			respondOK(w, reqID, nil)
			return
		}
	}
	respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("Assessment", id))
}
