package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/pkg/httputil"
	"github.com/ignite/graphmail/internal/service/notification"
	"github.com/ignite/graphmail/internal/service/profile"
)

// ProfileService is the profile administration used by the handlers.
type ProfileService interface {
	List(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, name string) (*profile.Description, error)
	Update(ctx context.Context, name string, changes map[string]string) (bool, error)
}

// NotificationService runs and tracks notification jobs.
type NotificationService interface {
	Enqueue(ctx context.Context, job domain.NotificationJob) (*domain.JobRecord, error)
	SendNow(ctx context.Context, job domain.NotificationJob) (*domain.JobRecord, error)
	Get(ctx context.Context, id string) (*domain.JobRecord, error)
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	profiles      ProfileService
	notifications NotificationService
}

func NewHandlers(profiles ProfileService, notifications NotificationService) *Handlers {
	return &Handlers{profiles: profiles, notifications: notifications}
}

// =============================================================================
// PROFILES
// =============================================================================

// ListProfiles handles GET /api/profiles.
func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	names, err := h.profiles.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	httputil.OK(w, map[string]any{"profiles": names})
}

// GetProfile handles GET /api/profiles/{name}. The client secret is masked.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	d, err := h.profiles.Describe(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, d)
}

type updateProfileRequest struct {
	Settings map[string]string `json:"settings"`
}

// UpdateProfile handles PUT /api/profiles/{name}.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req updateProfileRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Settings) == 0 {
		httputil.BadRequest(w, "settings are required")
		return
	}

	changed, err := h.profiles.Update(r.Context(), name, req.Settings)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := h.profiles.Describe(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"changed": changed, "profile": d})
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

type sendRequest struct {
	ID          string                 `json:"id,omitempty"`
	Profile     string                 `json:"profile,omitempty"`
	SenderEmail string                 `json:"sender_email,omitempty"`
	SenderName  string                 `json:"sender_name,omitempty"`
	Template    domain.MessageTemplate `json:"template"`
	Recipients  []domain.JobRecipient  `json:"recipients"`
}

func (req sendRequest) job() domain.NotificationJob {
	return domain.NotificationJob{
		ID:      req.ID,
		Profile: req.Profile,
		Message: domain.MessageJob{
			Template:    req.Template,
			SenderEmail: req.SenderEmail,
			SenderName:  req.SenderName,
		},
		Recipients: req.Recipients,
	}
}

// EnqueueNotification handles POST /api/notifications.
func (h *Handlers) EnqueueNotification(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	rec, err := h.notifications.Enqueue(r.Context(), req.job())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.Accepted(w, rec)
}

// SendNotification handles POST /api/notifications/send and blocks until
// every recipient has been attempted.
func (h *Handlers) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	rec, err := h.notifications.SendNow(r.Context(), req.job())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, rec)
}

// GetNotification handles GET /api/notifications/{id}.
func (h *Handlers) GetNotification(w http.ResponseWriter, r *http.Request) {
	rec, err := h.notifications.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, rec)
}

// writeError maps service errors onto HTTP responses.
func writeError(w http.ResponseWriter, err error) {
	if cfgErr, ok := domain.AsConfigurationError(err); ok {
		httputil.ConfigurationError(w, cfgErr)
		return
	}
	switch {
	case errors.Is(err, profile.ErrNotFound):
		httputil.NotFound(w, "profile not found")
	case errors.Is(err, domain.ErrJobNotFound):
		httputil.NotFound(w, "notification not found")
	case errors.Is(err, notification.ErrNoRecipients), errors.Is(err, notification.ErrDuplicateRecipient):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, notification.ErrQueueUnavailable):
		httputil.Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, notification.ErrJobLocked):
		httputil.Conflict(w, "job_locked", err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
