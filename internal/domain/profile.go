package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Profile setting keys as stored in the profile store.
const (
	KeySchemaVersion      = "schemaVersion"
	KeyDefaultSenderEmail = "defaultSenderEmailAddress"
	KeyDefaultSenderName  = "defaultSenderName"
	KeyTenantID           = "tenantId"
	KeyClientID           = "clientId"
	KeyClientSecret       = "clientSecret"
	KeyScopes             = "scopes"
	KeySenderType         = "senderType"
	KeyBatchSize          = "batchSize"
	KeyBatchPauseInterval = "batchPauseInterval"
)

const (
	// CurrentSchemaVersion is the newest profile layout this build understands.
	CurrentSchemaVersion = 1

	DefaultProfileName = "Office365"
	DefaultScope       = "https://graph.microsoft.com/.default"
	DefaultBatchSize   = 100
)

// Sender types select the transport bound to a profile.
const (
	SenderTypeOffice365 = "office365"
	SenderTypeGraph     = "graph"
	SenderTypeSES       = "ses"
	SenderTypeNoop      = "noop"
)

type profileKey struct {
	name      string
	required  bool
	sensitive bool
	fallback  string
}

// profileKeys is the single declarative schema for a sender profile.
var profileKeys = []profileKey{
	{name: KeySchemaVersion, fallback: strconv.Itoa(CurrentSchemaVersion)},
	{name: KeyDefaultSenderEmail, required: true},
	{name: KeyDefaultSenderName},
	{name: KeyTenantID, required: true},
	{name: KeyClientID, required: true},
	{name: KeyClientSecret, required: true, sensitive: true},
	{name: KeyScopes, fallback: DefaultScope},
	{name: KeySenderType, fallback: SenderTypeOffice365},
	{name: KeyBatchSize, fallback: strconv.Itoa(DefaultBatchSize)},
	{name: KeyBatchPauseInterval, fallback: "0"},
}

// ProfileKeys returns every recognised setting key in schema order.
func ProfileKeys() []string {
	keys := make([]string, len(profileKeys))
	for i, k := range profileKeys {
		keys[i] = k.name
	}
	return keys
}

// IsProfileKey reports whether key belongs to the profile schema.
func IsProfileKey(key string) bool {
	for _, k := range profileKeys {
		if k.name == key {
			return true
		}
	}
	return false
}

// DefaultProfileSettings returns the settings a freshly bootstrapped profile
// starts with. Required credentials are left for an administrator to fill in.
func DefaultProfileSettings() map[string]string {
	settings := make(map[string]string)
	for _, k := range profileKeys {
		if k.fallback != "" {
			settings[k.name] = k.fallback
		}
	}
	return settings
}

// SenderProfile is an immutable snapshot of the configuration used for one
// send. Build it with ParseProfile; it is safe to share across goroutines.
type SenderProfile struct {
	Name               string        `json:"name"`
	SchemaVersion      int           `json:"schema_version"`
	DefaultSenderEmail string        `json:"default_sender_email"`
	DefaultSenderName  string        `json:"default_sender_name,omitempty"`
	TenantID           string        `json:"tenant_id"`
	ClientID           string        `json:"client_id"`
	ClientSecret       Secret        `json:"client_secret"`
	Scopes             []string      `json:"scopes"`
	SenderType         string        `json:"sender_type"`
	BatchSize          int           `json:"batch_size"`
	BatchPause         time.Duration `json:"batch_pause"`
}

// ParseProfile builds a SenderProfile from raw key/value settings. Absent and
// blank values are treated the same. The first offending key is reported as a
// *ConfigurationError.
func ParseProfile(name string, settings map[string]string) (*SenderProfile, error) {
	get := func(key string) string { return strings.TrimSpace(settings[key]) }

	for _, k := range profileKeys {
		if k.required && get(k.name) == "" {
			return nil, missing(k.name)
		}
	}

	p := &SenderProfile{
		Name:               name,
		SchemaVersion:      CurrentSchemaVersion,
		DefaultSenderEmail: get(KeyDefaultSenderEmail),
		DefaultSenderName:  get(KeyDefaultSenderName),
		TenantID:           get(KeyTenantID),
		ClientID:           get(KeyClientID),
		ClientSecret:       Secret(get(KeyClientSecret)),
		Scopes:             []string{DefaultScope},
		SenderType:         SenderTypeOffice365,
		BatchSize:          DefaultBatchSize,
	}

	if raw := get(KeySchemaVersion); raw != "" {
		v, err := parseSchemaVersion(raw)
		if err != nil {
			return nil, err
		}
		p.SchemaVersion = v
	}
	if raw := get(KeyScopes); raw != "" {
		scopes, err := parseScopes(raw)
		if err != nil {
			return nil, err
		}
		p.Scopes = scopes
	}
	if raw := get(KeySenderType); raw != "" {
		st, err := parseSenderType(raw)
		if err != nil {
			return nil, err
		}
		p.SenderType = st
	}
	if raw := get(KeyBatchSize); raw != "" {
		n, err := parseBatchSize(raw)
		if err != nil {
			return nil, err
		}
		p.BatchSize = n
	}
	if raw := get(KeyBatchPauseInterval); raw != "" {
		d, err := parseBatchPause(raw)
		if err != nil {
			return nil, err
		}
		p.BatchPause = d
	}

	return p, nil
}

// ValidateSetting checks a single key/value pair against the schema. A
// blank value is accepted for optional keys, which then take their default.
func ValidateSetting(key, value string) error {
	var spec *profileKey
	for i := range profileKeys {
		if profileKeys[i].name == key {
			spec = &profileKeys[i]
		}
	}
	if spec == nil {
		return malformed(key, "unknown setting")
	}

	raw := strings.TrimSpace(value)
	if raw == "" {
		if spec.required {
			return missing(key)
		}
		return nil
	}

	var err error
	switch key {
	case KeySchemaVersion:
		_, err = parseSchemaVersion(raw)
	case KeyScopes:
		_, err = parseScopes(raw)
	case KeySenderType:
		_, err = parseSenderType(raw)
	case KeyBatchSize:
		_, err = parseBatchSize(raw)
	case KeyBatchPauseInterval:
		_, err = parseBatchPause(raw)
	}
	return err
}

func parseSchemaVersion(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, malformed(KeySchemaVersion, fmt.Sprintf("invalid version %q", raw))
	}
	if v > CurrentSchemaVersion {
		return 0, malformed(KeySchemaVersion, fmt.Sprintf("version %d is newer than supported version %d", v, CurrentSchemaVersion))
	}
	return v, nil
}

func parseScopes(raw string) ([]string, error) {
	scopes := ParseScopes(raw)
	if len(scopes) == 0 {
		return nil, malformed(KeyScopes, "no scopes after parsing")
	}
	return scopes, nil
}

func parseSenderType(raw string) (string, error) {
	st := strings.ToLower(raw)
	if !IsKnownSenderType(st) {
		return "", malformed(KeySenderType, fmt.Sprintf("unknown sender type %q", raw))
	}
	return st, nil
}

func parseBatchSize(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, malformed(KeyBatchSize, fmt.Sprintf("must be an integer >= 1, got %q", raw))
	}
	return n, nil
}

func parseBatchPause(raw string) (time.Duration, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, malformed(KeyBatchPauseInterval, fmt.Sprintf("must be a whole number of seconds >= 0, got %q", raw))
	}
	return time.Duration(n) * time.Second, nil
}

// ParseScopes strips all whitespace from raw, splits it on commas and drops
// empty and duplicate entries, keeping first occurrences in order.
func ParseScopes(raw string) []string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	seen := make(map[string]bool)
	var scopes []string
	for _, s := range strings.Split(compact, ",") {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		scopes = append(scopes, s)
	}
	return scopes
}

// NormalizeSetting returns the canonical stored form of a single setting.
func NormalizeSetting(key, value string) string {
	value = strings.TrimSpace(value)
	switch key {
	case KeyScopes:
		if value == "" {
			return ""
		}
		return strings.Join(ParseScopes(value), ",")
	case KeySenderType:
		return strings.ToLower(value)
	}
	return value
}

// IsKnownSenderType reports whether a transport exists for senderType.
func IsKnownSenderType(senderType string) bool {
	switch senderType {
	case SenderTypeOffice365, SenderTypeGraph, SenderTypeSES, SenderTypeNoop:
		return true
	}
	return false
}

// Validate checks a profile that was assembled by hand rather than parsed.
func (p *SenderProfile) Validate() error {
	switch {
	case p == nil:
		return missing(KeyDefaultSenderEmail)
	case strings.TrimSpace(p.DefaultSenderEmail) == "":
		return missing(KeyDefaultSenderEmail)
	case p.TenantID == "":
		return missing(KeyTenantID)
	case p.ClientID == "":
		return missing(KeyClientID)
	case p.ClientSecret.IsZero():
		return missing(KeyClientSecret)
	case len(p.Scopes) == 0:
		return missing(KeyScopes)
	case p.BatchSize < 1:
		return malformed(KeyBatchSize, "must be >= 1")
	case p.BatchPause < 0:
		return malformed(KeyBatchPauseInterval, "must be >= 0")
	}
	return nil
}

// Settings renders the profile back into its stored key/value form. The
// client secret is included in clear text; use Redacted for anything that
// leaves the process.
func (p *SenderProfile) Settings() map[string]string {
	return map[string]string{
		KeySchemaVersion:      strconv.Itoa(p.SchemaVersion),
		KeyDefaultSenderEmail: p.DefaultSenderEmail,
		KeyDefaultSenderName:  p.DefaultSenderName,
		KeyTenantID:           p.TenantID,
		KeyClientID:           p.ClientID,
		KeyClientSecret:       p.ClientSecret.Reveal(),
		KeyScopes:             strings.Join(p.Scopes, ","),
		KeySenderType:         p.SenderType,
		KeyBatchSize:          strconv.Itoa(p.BatchSize),
		KeyBatchPauseInterval: strconv.Itoa(int(p.BatchPause / time.Second)),
	}
}

// RedactSettings copies settings with every sensitive value masked.
func RedactSettings(settings map[string]string) map[string]string {
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	for _, k := range profileKeys {
		if k.sensitive {
			if _, ok := out[k.name]; ok && out[k.name] != "" {
				out[k.name] = redactedValue
			}
		}
	}
	return out
}

// Redacted is Settings with the client secret masked.
func (p *SenderProfile) Redacted() map[string]string {
	return RedactSettings(p.Settings())
}
