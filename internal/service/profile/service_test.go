package profile

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/ignite/graphmail/internal/domain"
)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu      sync.RWMutex
	store   map[string]map[string]string
	saves   int
	creates int
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]map[string]string)}
}

func (m *mockRepo) Settings(_ context.Context, name string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	settings, ok := m.store[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out, nil
}

func (m *mockRepo) SaveSettings(_ context.Context, name string, settings map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.store[name] == nil {
		m.store[name] = make(map[string]string)
	}
	for k, v := range settings {
		m.store[name][k] = v
	}
	return nil
}

func (m *mockRepo) CreateIfAbsent(_ context.Context, name string, settings map[string]string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[name]; ok {
		return false, nil
	}
	m.creates++
	m.store[name] = settings
	return true, nil
}

func (m *mockRepo) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for n := range m.store {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

type mockLock struct {
	held     bool
	released bool
}

func (l *mockLock) Acquire(context.Context) (bool, error) { return !l.held, nil }
func (l *mockLock) Release(context.Context) error         { l.released = true; return nil }

func completeSettings() map[string]string {
	return map[string]string{
		domain.KeyDefaultSenderEmail: "noreply@contoso.com",
		domain.KeyTenantID:           "tenant",
		domain.KeyClientID:           "client",
		domain.KeyClientSecret:       "secret",
	}
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

func TestEnsureDefault_CreatesOnce(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}
	if !created {
		t.Fatal("expected profile to be created on first call")
	}

	created, err = svc.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("EnsureDefault (second): %v", err)
	}
	if created {
		t.Error("second call must not recreate the profile")
	}
	if repo.creates != 1 {
		t.Errorf("creates = %d, want 1", repo.creates)
	}

	settings := repo.store[domain.DefaultProfileName]
	if settings[domain.KeySenderType] != "office365" {
		t.Errorf("senderType = %q, want office365", settings[domain.KeySenderType])
	}
	if settings[domain.KeyBatchSize] != "100" {
		t.Errorf("batchSize = %q, want 100", settings[domain.KeyBatchSize])
	}
	if settings[domain.KeyBatchPauseInterval] != "0" {
		t.Errorf("batchPauseInterval = %q, want 0", settings[domain.KeyBatchPauseInterval])
	}
}

func TestEnsureDefault_IncompleteProfileFailsLoad(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.EnsureDefault(ctx); err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}

	_, err := svc.Load(ctx, domain.DefaultProfileName)
	cfgErr, ok := domain.AsConfigurationError(err)
	if !ok {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Key != domain.KeyDefaultSenderEmail {
		t.Errorf("key = %q, want %q", cfgErr.Key, domain.KeyDefaultSenderEmail)
	}
}

func TestEnsureDefault_AppliesSeeds(t *testing.T) {
	repo := newMockRepo()
	seeds := map[string]map[string]string{domain.DefaultProfileName: completeSettings()}
	seeds[domain.DefaultProfileName][domain.KeyScopes] = " a, b "
	seeds[domain.DefaultProfileName]["legacyHost"] = "ignored"
	svc := NewService(repo, WithSeeds(seeds))

	if _, err := svc.EnsureDefault(context.Background()); err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}

	p, err := svc.Load(context.Background(), domain.DefaultProfileName)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Scopes) != 2 || p.Scopes[0] != "a" || p.Scopes[1] != "b" {
		t.Errorf("scopes = %v, want [a b]", p.Scopes)
	}
	if _, ok := repo.store[domain.DefaultProfileName]["legacyHost"]; ok {
		t.Error("unknown seed keys must not be stored")
	}
}

func TestEnsure_LockHeldElsewhere(t *testing.T) {
	repo := newMockRepo()
	lock := &mockLock{held: true}
	svc := NewService(repo, WithLocks(func(string) Locker { return lock }))

	_, err := svc.EnsureDefault(context.Background())
	if !errors.Is(err, ErrBootstrapLocked) {
		t.Fatalf("err = %v, want ErrBootstrapLocked", err)
	}
	if repo.creates != 0 {
		t.Error("profile must not be created without the lock")
	}
}

func TestEnsure_ReleasesLock(t *testing.T) {
	lock := &mockLock{}
	var gotKey string
	svc := NewService(newMockRepo(), WithLocks(func(key string) Locker {
		gotKey = key
		return lock
	}))

	if _, err := svc.EnsureDefault(context.Background()); err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}
	if !lock.released {
		t.Error("lock was not released")
	}
	if gotKey != "profile-bootstrap:Office365" {
		t.Errorf("lock key = %q", gotKey)
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_ChangeTracking(t *testing.T) {
	repo := newMockRepo()
	repo.store["Office365"] = completeSettings()
	repo.store["Office365"][domain.KeyScopes] = "a,b"
	svc := NewService(repo)
	ctx := context.Background()

	changed, err := svc.Update(ctx, "Office365", map[string]string{
		domain.KeyTenantID: "tenant",
		domain.KeyScopes:   " a , b ",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if changed {
		t.Error("identical values after normalisation must not count as a change")
	}
	if repo.saves != 0 {
		t.Errorf("saves = %d, want 0", repo.saves)
	}

	changed, err = svc.Update(ctx, "Office365", map[string]string{domain.KeyBatchSize: "25"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !changed {
		t.Error("expected change")
	}

	p, err := svc.Load(ctx, "Office365")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", p.BatchSize)
	}
}

func TestUpdate_RejectsMalformedValue(t *testing.T) {
	repo := newMockRepo()
	repo.store["Office365"] = completeSettings()
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), "Office365", map[string]string{domain.KeyBatchPauseInterval: "-3"})
	cfgErr, ok := domain.AsConfigurationError(err)
	if !ok {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Key != domain.KeyBatchPauseInterval {
		t.Errorf("key = %q", cfgErr.Key)
	}
	if repo.saves != 0 {
		t.Error("nothing should be saved on validation failure")
	}
}

func TestUpdate_PartialConfigurationAllowed(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	changed, err := svc.Update(ctx, "Marketing", map[string]string{domain.KeyTenantID: "t-1"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !changed {
		t.Error("creating a profile is a change")
	}
	if repo.store["Marketing"][domain.KeyBatchSize] != "100" {
		t.Error("new profile should start from defaults")
	}

	if _, err := svc.Load(ctx, "Marketing"); err == nil {
		t.Error("profile without credentials must not load")
	}
}

// =============================================================================
// DESCRIBE
// =============================================================================

func TestDescribe_RedactsSecret(t *testing.T) {
	repo := newMockRepo()
	repo.store["Office365"] = completeSettings()
	svc := NewService(repo)

	d, err := svc.Describe(context.Background(), "Office365")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if !d.Valid {
		t.Errorf("expected valid profile, problem: %s", d.Problem)
	}
	if d.Settings[domain.KeyClientSecret] != "[REDACTED]" {
		t.Errorf("clientSecret = %q, want [REDACTED]", d.Settings[domain.KeyClientSecret])
	}
	if repo.store["Office365"][domain.KeyClientSecret] != "secret" {
		t.Error("Describe must not modify stored settings")
	}
}

func TestDescribe_ReportsProblemKey(t *testing.T) {
	repo := newMockRepo()
	repo.store["Office365"] = domain.DefaultProfileSettings()
	svc := NewService(repo)

	d, err := svc.Describe(context.Background(), "Office365")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if d.Valid {
		t.Error("profile without credentials must be invalid")
	}
	if d.Key != domain.KeyDefaultSenderEmail {
		t.Errorf("Key = %q", d.Key)
	}
}

func TestLoad_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Load(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
