package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider resolves secrets from process environment variables,
// optionally namespaced by a prefix (e.g. "INGEST_").
type EnvProvider struct {
	prefix            string
	redactionPatterns []string
}

// NewEnvProvider builds an EnvProvider reading PREFIX_KEY for a secret
// named KEY.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{
		prefix:            prefix,
		redactionPatterns: defaultRedactionPatterns,
	}
}

func (p *EnvProvider) Name() string { return "env" }

// WithRedactionPatterns overrides the set of key-name substrings treated
// as sensitive when logging resolved environment state.
func (p *EnvProvider) WithRedactionPatterns(patterns []string) *EnvProvider {
	p.redactionPatterns = patterns
	return p
}

func (p *EnvProvider) envName(key string) string {
	if p.prefix == "" {
		return key
	}
	return p.prefix + key
}

func (p *EnvProvider) GetSecret(_ context.Context, key string, opts SecretOptions) (Secret, error) {
	name := p.envName(key)
	val, ok := os.LookupEnv(name)
	if !ok || val == "" {
		if opts.Required {
			return Secret{}, fmt.Errorf("secrets: required environment variable %s is not set", name)
		}
		return Secret{}, fmt.Errorf("secrets: environment variable %s is not set", name)
	}
	return Secret{Key: key, Value: val, Provider: p.Name()}, nil
}

func (p *EnvProvider) GetSecrets(ctx context.Context, keys []string) (map[string]Secret, error) {
	out := make(map[string]Secret, len(keys))
	for _, k := range keys {
		sec, err := p.GetSecret(ctx, k, SecretOptions{})
		if err != nil {
			continue
		}
		out[k] = sec
	}
	return out, nil
}

func (p *EnvProvider) ListSecrets(_ context.Context) ([]string, error) {
	var keys []string
	for _, kv := range os.Environ() {
		name := strings.SplitN(kv, "=", 2)[0]
		if p.prefix == "" || strings.HasPrefix(name, p.prefix) {
			keys = append(keys, strings.TrimPrefix(name, p.prefix))
		}
	}
	return keys, nil
}

func (p *EnvProvider) Health(_ context.Context) HealthStatus {
	return HealthStatus{Healthy: true, Message: "environment always reachable"}
}

// GetRedactedEnvVars returns the process environment with sensitive
// values masked, safe to include in diagnostic logs.
func (p *EnvProvider) GetRedactedEnvVars() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name, val := parts[0], parts[1]
		if p.prefix != "" && !strings.HasPrefix(name, p.prefix) {
			continue
		}
		out[name] = Redact(name, val, p.redactionPatterns)
	}
	return out
}
