package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/service/notification"
	"github.com/ignite/graphmail/internal/service/profile"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeProfiles struct {
	settings map[string]map[string]string
	updates  []map[string]string
}

func (f *fakeProfiles) List(context.Context) ([]string, error) {
	var names []string
	for n := range f.settings {
		names = append(names, n)
	}
	return names, nil
}

func (f *fakeProfiles) Describe(_ context.Context, name string) (*profile.Description, error) {
	s, ok := f.settings[name]
	if !ok {
		return nil, profile.ErrNotFound
	}
	d := &profile.Description{Name: name, Settings: domain.RedactSettings(s), Valid: true}
	if _, err := domain.ParseProfile(name, s); err != nil {
		cfgErr, _ := domain.AsConfigurationError(err)
		d.Valid, d.Problem, d.Key = false, err.Error(), cfgErr.Key
	}
	return d, nil
}

func (f *fakeProfiles) Update(_ context.Context, name string, changes map[string]string) (bool, error) {
	for k, v := range changes {
		if err := domain.ValidateSetting(k, v); err != nil {
			return false, err
		}
	}
	f.updates = append(f.updates, changes)
	if f.settings[name] == nil {
		f.settings[name] = domain.DefaultProfileSettings()
	}
	for k, v := range changes {
		f.settings[name][k] = v
	}
	return true, nil
}

type fakeNotifications struct {
	jobs    []domain.NotificationJob
	records map[string]*domain.JobRecord
	err     error
}

func (f *fakeNotifications) Enqueue(_ context.Context, job domain.NotificationJob) (*domain.JobRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.jobs = append(f.jobs, job)
	return &domain.JobRecord{ID: "job-1", Status: domain.JobQueued, Recipients: len(job.Recipients)}, nil
}

func (f *fakeNotifications) SendNow(_ context.Context, job domain.NotificationJob) (*domain.JobRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.jobs = append(f.jobs, job)
	res := domain.NewBatchResult()
	for range job.Recipients {
		res.Record(domain.SendOutcome{Kind: domain.OutcomeSuccess})
	}
	return &domain.JobRecord{ID: "job-2", Status: domain.JobCompleted, Result: res, Recipients: len(job.Recipients)}, nil
}

func (f *fakeNotifications) Get(_ context.Context, id string) (*domain.JobRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return rec, nil
}

func setupTestServer(t *testing.T) (*httptest.Server, *fakeProfiles, *fakeNotifications) {
	t.Helper()
	profiles := &fakeProfiles{settings: map[string]map[string]string{
		"Office365": {
			domain.KeyDefaultSenderEmail: "noreply@contoso.com",
			domain.KeyTenantID:           "tenant",
			domain.KeyClientID:           "client",
			domain.KeyClientSecret:       "super-secret",
		},
	}}
	notifications := &fakeNotifications{records: map[string]*domain.JobRecord{
		"job-9": {ID: "job-9", Status: domain.JobCompleted, Result: domain.NewBatchResult()},
	}}
	srv := NewServer(NewHandlers(profiles, notifications), NewHealthChecker(nil, nil), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, profiles, notifications
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// =============================================================================
// PROFILES
// =============================================================================

func TestGetProfile_MasksSecret(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/profiles/Office365", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := body["settings"].(map[string]any)
	assert.Equal(t, "[REDACTED]", settings[domain.KeyClientSecret])
	assert.Equal(t, true, body["valid"])
}

func TestGetProfile_NotFound(t *testing.T) {
	ts, _, _ := setupTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/profiles/Nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListProfiles(t *testing.T) {
	ts, _, _ := setupTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/profiles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Office365"}, body["profiles"])
}

func TestUpdateProfile(t *testing.T) {
	ts, profiles, _ := setupTestServer(t)

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/profiles/Office365", map[string]any{
		"settings": map[string]string{domain.KeyBatchSize: "25"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, "25", profiles.settings["Office365"][domain.KeyBatchSize])
}

func TestUpdateProfile_ConfigurationError(t *testing.T) {
	ts, profiles, _ := setupTestServer(t)

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/profiles/Office365", map[string]any{
		"settings": map[string]string{domain.KeyBatchSize: "0"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "configuration_error", body["code"])
	assert.Equal(t, domain.KeyBatchSize, body["details"].(map[string]any)["key"])
	assert.Empty(t, profiles.updates)
}

func TestUpdateProfile_EmptyBody(t *testing.T) {
	ts, _, _ := setupTestServer(t)
	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/profiles/Office365", map[string]any{"settings": map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func sampleRequest() map[string]any {
	return map[string]any{
		"sender_email": "alerts@contoso.com",
		"template":     map[string]string{"subject": "Published", "body_html": "<p>live</p>"},
		"recipients":   []map[string]string{{"email": "a@x.com", "subscriber_id": "s1"}, {"email": "b@x.com"}},
	}
}

func TestEnqueueNotification(t *testing.T) {
	ts, _, notifications := setupTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/notifications", sampleRequest())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "queued", body["status"])

	require.Len(t, notifications.jobs, 1)
	job := notifications.jobs[0]
	assert.Equal(t, "alerts@contoso.com", job.Message.SenderEmail)
	assert.Equal(t, "Published", job.Message.Template.Subject)
	assert.Equal(t, "s1", job.Recipients[0].SubscriberID)
}

func TestSendNotification(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/notifications/send", sampleRequest())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := body["result"].(map[string]any)
	assert.Equal(t, "success", result["kind"])
	assert.Equal(t, float64(2), result["attempted"])
}

func TestNotificationErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"configuration", &domain.ConfigurationError{Key: domain.KeyTenantID, Reason: "value is required"}, http.StatusUnprocessableEntity},
		{"no recipients", notification.ErrNoRecipients, http.StatusBadRequest},
		{"duplicate recipient", fmt.Errorf("recipient 1: %w", notification.ErrDuplicateRecipient), http.StatusBadRequest},
		{"no queue", notification.ErrQueueUnavailable, http.StatusServiceUnavailable},
		{"unknown profile", profile.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _, notifications := setupTestServer(t)
			notifications.err = tt.err
			resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/notifications", sampleRequest())
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestGetNotification(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/notifications/job-9", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/notifications/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// HEALTH / METRICS
// =============================================================================

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hc := NewHealthChecker(db, rdb)
	rec := httptest.NewRecorder()
	hc.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "up", status.Checks["database"].Status)
	assert.Equal(t, "up", status.Checks["redis"].Status)
}

func TestReadiness_NoDatabase(t *testing.T) {
	ts, _, _ := setupTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, false, body["ready"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _ := setupTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
