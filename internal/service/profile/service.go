package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/pkg/logger"
)

// Service implements profile business logic. It is safe for concurrent use.
type Service struct {
	repo  Repository
	locks LockFactory
	seeds map[string]map[string]string
}

// Option configures a Service.
type Option func(*Service)

// WithLocks guards bootstrap with a distributed lock.
func WithLocks(f LockFactory) Option {
	return func(s *Service) { s.locks = f }
}

// WithSeeds provides settings applied when a profile is first created,
// keyed by profile name.
func WithSeeds(seeds map[string]map[string]string) Option {
	return func(s *Service) { s.seeds = seeds }
}

// NewService creates a profile service backed by repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads and validates a profile. Missing or malformed settings are
// reported as *domain.ConfigurationError.
func (s *Service) Load(ctx context.Context, name string) (*domain.SenderProfile, error) {
	settings, err := s.repo.Settings(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}
	return domain.ParseProfile(name, settings)
}

// List returns every profile name.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}

// Update validates and applies changes to a profile, creating it from the
// defaults if it does not exist. Only keys whose normalised value differs
// from the stored one are written; changed reports whether anything was.
func (s *Service) Update(ctx context.Context, name string, changes map[string]string) (changed bool, err error) {
	for key, value := range changes {
		if err := domain.ValidateSetting(key, value); err != nil {
			return false, err
		}
	}

	current, err := s.repo.Settings(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		current = s.initialSettings(name)
		changed = true
	case err != nil:
		return false, fmt.Errorf("load profile %q: %w", name, err)
	}

	diff := make(map[string]string)
	for key, value := range changes {
		v := domain.NormalizeSetting(key, value)
		if current[key] != v {
			diff[key] = v
		}
	}
	if changed {
		for k, v := range current {
			if _, ok := diff[k]; !ok {
				diff[k] = v
			}
		}
	}
	if len(diff) == 0 {
		return false, nil
	}

	if err := s.repo.SaveSettings(ctx, name, diff); err != nil {
		return false, fmt.Errorf("save profile %q: %w", name, err)
	}
	logger.Info("sender profile updated", "profile", name, "keys", len(diff))
	return true, nil
}

// EnsureDefault creates the Office365 profile if it does not exist yet.
func (s *Service) EnsureDefault(ctx context.Context) (bool, error) {
	return s.Ensure(ctx, domain.DefaultProfileName)
}

// Ensure creates profile name with default and seed settings unless it
// already exists. When a lock factory is configured, only one process runs
// the bootstrap at a time; the others get ErrBootstrapLocked.
func (s *Service) Ensure(ctx context.Context, name string) (bool, error) {
	if s.locks != nil {
		lock := s.locks("profile-bootstrap:" + name)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return false, fmt.Errorf("acquire bootstrap lock: %w", err)
		}
		if !ok {
			return false, ErrBootstrapLocked
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release bootstrap lock failed", "profile", name, "error", err)
			}
		}()
	}

	created, err := s.repo.CreateIfAbsent(ctx, name, s.initialSettings(name))
	if err != nil {
		return false, fmt.Errorf("bootstrap profile %q: %w", name, err)
	}
	if created {
		logger.Info("sender profile bootstrapped", "profile", name)
	}
	return created, nil
}

func (s *Service) initialSettings(name string) map[string]string {
	settings := domain.DefaultProfileSettings()
	for k, v := range s.seeds[name] {
		if v == "" || !domain.IsProfileKey(k) {
			continue
		}
		settings[k] = domain.NormalizeSetting(k, v)
	}
	return settings
}

// Description is the diagnostic view of a profile. Secrets are masked.
type Description struct {
	Name     string            `json:"name"`
	Settings map[string]string `json:"settings"`
	Valid    bool              `json:"valid"`
	Problem  string            `json:"problem,omitempty"`
	Key      string            `json:"key,omitempty"`
}

// Describe returns the redacted settings of a profile and whether they form
// a usable profile.
func (s *Service) Describe(ctx context.Context, name string) (*Description, error) {
	settings, err := s.repo.Settings(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}

	d := &Description{Name: name, Settings: domain.RedactSettings(settings), Valid: true}
	if _, err := domain.ParseProfile(name, settings); err != nil {
		d.Valid = false
		d.Problem = err.Error()
		if cfgErr, ok := domain.AsConfigurationError(err); ok {
			d.Key = cfgErr.Key
		}
	}
	return d, nil
}
