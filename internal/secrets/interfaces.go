// Package secrets resolves provider credentials and the at-rest encryption
// key from environment-backed storage, with redaction for logging.
package secrets

import "context"

// Secret is a single resolved credential value plus its provenance.
type Secret struct {
	Key      string
	Value    string
	Provider string
}

// SecretOptions customizes a single resolution call.
type SecretOptions struct {
	Required bool
}

// HealthStatus reports whether a provider's backing store is reachable.
type HealthStatus struct {
	Healthy bool
	Message string
}

// Provider resolves named secrets from a backing store.
type Provider interface {
	Name() string
	GetSecret(ctx context.Context, key string, opts SecretOptions) (Secret, error)
	GetSecrets(ctx context.Context, keys []string) (map[string]Secret, error)
	ListSecrets(ctx context.Context) ([]string, error)
	Health(ctx context.Context) HealthStatus
}

// Manager resolves through a primary provider, falling back to a
// secondary when the primary does not have the key.
type Manager struct {
	primary  Provider
	fallback Provider
}

// NewManager constructs a Manager. fallback may be nil.
func NewManager(primary, fallback Provider) *Manager {
	return &Manager{primary: primary, fallback: fallback}
}

func (m *Manager) GetSecret(ctx context.Context, key string, opts SecretOptions) (Secret, error) {
	sec, err := m.primary.GetSecret(ctx, key, opts)
	if err == nil {
		return sec, nil
	}
	if m.fallback == nil {
		return Secret{}, err
	}
	return m.fallback.GetSecret(ctx, key, opts)
}

// MustEncryptionKey resolves BRAIN_KEY and hard-fails the caller if absent,
// per the "encryption-at-rest key" design note: the system refuses to
// start without it.
func (m *Manager) MustEncryptionKey(ctx context.Context) (string, error) {
	sec, err := m.GetSecret(ctx, "BRAIN_KEY", SecretOptions{Required: true})
	if err != nil {
		return "", err
	}
	return sec.Value, nil
}
