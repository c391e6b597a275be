package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"impactboard/internal/domain"
	"impactboard/internal/ports"
	settingssvc "impactboard/internal/services/settings"
)

// Server exposes the engine over HTTP. Authentication is external; the
// caller's identity arrives in the X-Actor-ID header and authorization is
// the services' concern.
type Server struct {
	analytics  ports.Analytics
	compliance ports.Compliance
	overrides  ports.Overrides
	settings   *settingssvc.Service
	log        *logrus.Logger
}

func New(analytics ports.Analytics, compliance ports.Compliance, overrides ports.Overrides, settings *settingssvc.Service, log *logrus.Logger) *Server {
	return &Server{analytics: analytics, compliance: compliance, overrides: overrides, settings: settings, log: log}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.getHealthz)
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Get("/analytics/channels", s.getChannelScores)
		r.Get("/analytics/objectives", s.getObjectiveHealth)
		r.Get("/analytics/flags", s.getFlags)
		r.Post("/compliance/checks", s.postRunCheck)
		r.Get("/compliance/latest", s.getLatestCheck)
		r.Patch("/issues/{issueID}", s.patchIssueStatus)
		r.Post("/overrides", s.postOverride)
		r.Get("/overrides", s.getOverrides)
		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.putSettings)
	})
	return r
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getChannelScores(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.analytics.ChannelScores(r.Context(), chi.URLParam(r, "projectID"), r.URL.Query().Get("domain"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, analytics)
}

func (s *Server) getObjectiveHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.analytics.ObjectiveHealth(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"objectives": health})
}

func (s *Server) getFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := s.analytics.Flags(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"flags": flags})
}

func (s *Server) postRunCheck(w http.ResponseWriter, r *http.Request) {
	check, diff, err := s.compliance.RunCheck(r.Context(), chi.URLParam(r, "projectID"), actor(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]any{"check": check, "diff": diff})
}

func (s *Server) getLatestCheck(w http.ResponseWriter, r *http.Request) {
	check, diff, stale, found, err := s.compliance.Latest(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !found {
		s.respond(w, http.StatusNotFound, map[string]string{"error": "no compliance check has run yet"})
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"check": check, "diff": diff, "is_stale": stale})
}

func (s *Server) patchIssueStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status    string `json:"status"`
		Rationale string `json:"rationale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}
	err := s.compliance.UpdateIssueStatus(r.Context(), chi.URLParam(r, "projectID"),
		chi.URLParam(r, "issueID"), body.Status, actor(r), body.Rationale)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": body.Status})
}

func (s *Server) postOverride(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FlagCode   string `json:"flag_code"`
		EntityType string `json:"entity_type"`
		EntityID   string `json:"entity_id"`
		Status     string `json:"status"`
		Rationale  string `json:"rationale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}
	ov := domain.FlagOverride{
		ProjectID:  chi.URLParam(r, "projectID"),
		FlagCode:   body.FlagCode,
		EntityType: body.EntityType,
		EntityRef:  body.EntityID,
		Status:     body.Status,
		Rationale:  body.Rationale,
	}
	saved, err := s.overrides.Record(r.Context(), ov, actor(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusCreated, saved)
}

func (s *Server) getOverrides(w http.ResponseWriter, r *http.Request) {
	current, err := s.overrides.Current(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"overrides": current})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.settings.Resolved(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, resolved)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}
	if err := s.settings.Save(r.Context(), chi.URLParam(r, "projectID"), actor(r), raw); err != nil {
		s.fail(w, err)
		return
	}
	// Accepted, not persisted yet: the write lands after the debounce quiet
	// period.
	s.respond(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func actor(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}

// fail maps domain sentinels onto status codes: permission problems are never
// conflated with not-found or validation.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		s.respond(w, http.StatusForbidden, map[string]string{"error": "permission denied"})
	case errors.Is(err, domain.ErrNotFound):
		s.respond(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrValidation):
		s.respond(w, http.StatusUnprocessableEntity, map[string]string{"error": "validation failed"})
	default:
		s.log.Errorf("request failed: %v", err)
		s.respond(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (s *Server) respond(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warnf("response encode failed: %v", err)
	}
}
