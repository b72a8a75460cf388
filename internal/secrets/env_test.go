package secrets

import (
	"context"
	"testing"
)

func TestEnvProvider_GetSecret_ResolvesPrefixedVariable(t *testing.T) {
	t.Setenv("TEST_API_KEY", "abc123")
	p := NewEnvProvider("TEST_")

	sec, err := p.GetSecret(context.Background(), "API_KEY", SecretOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sec.Value != "abc123" || sec.Provider != "env" {
		t.Errorf("unexpected secret: %+v", sec)
	}
}

func TestEnvProvider_GetSecret_RequiredMissingReturnsError(t *testing.T) {
	p := NewEnvProvider("TEST_")
	if _, err := p.GetSecret(context.Background(), "DOES_NOT_EXIST", SecretOptions{Required: true}); err == nil {
		t.Error("expected an error for a required, unset variable")
	}
}

func TestEnvProvider_GetSecret_OptionalMissingStillReturnsError(t *testing.T) {
	p := NewEnvProvider("TEST_")
	if _, err := p.GetSecret(context.Background(), "DOES_NOT_EXIST", SecretOptions{}); err == nil {
		t.Error("expected an error even for an optional, unset variable")
	}
}

func TestEnvProvider_GetSecrets_SkipsUnresolvedKeys(t *testing.T) {
	t.Setenv("TEST_ONE", "v1")
	p := NewEnvProvider("TEST_")

	got, err := p.GetSecrets(context.Background(), []string{"ONE", "MISSING"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got["ONE"].Value != "v1" {
		t.Errorf("expected only the resolvable key, got %+v", got)
	}
}

func TestEnvProvider_ListSecrets_FiltersByPrefixAndStripsIt(t *testing.T) {
	t.Setenv("TEST_FOO", "bar")
	p := NewEnvProvider("TEST_")

	keys, err := p.ListSecrets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, k := range keys {
		if k == "FOO" {
			found = true
		}
		if k == "TEST_FOO" {
			t.Error("expected the prefix to be stripped from listed keys")
		}
	}
	if !found {
		t.Error("expected FOO to be listed")
	}
}

func TestEnvProvider_Health_AlwaysHealthy(t *testing.T) {
	p := NewEnvProvider("TEST_")
	if !p.Health(context.Background()).Healthy {
		t.Error("expected the env provider to always report healthy")
	}
}

func TestEnvProvider_GetRedactedEnvVars_MasksSensitiveNames(t *testing.T) {
	t.Setenv("TEST_API_SECRET", "supersecretvalue")
	t.Setenv("TEST_PLAIN_VALUE", "notsensitive")
	p := NewEnvProvider("TEST_")

	redacted := p.GetRedactedEnvVars()
	if redacted["TEST_API_SECRET"] == "supersecretvalue" {
		t.Error("expected the secret-like variable to be redacted")
	}
	if redacted["TEST_PLAIN_VALUE"] != "notsensitive" {
		t.Errorf("expected the non-sensitive variable to pass through unchanged, got %q", redacted["TEST_PLAIN_VALUE"])
	}
}

func TestManager_GetSecret_FallsBackWhenPrimaryMisses(t *testing.T) {
	t.Setenv("FALLBACK_ONLY", "fallback-value")
	primary := NewEnvProvider("PRIMARY_")
	fallback := NewEnvProvider("FALLBACK_")
	m := NewManager(primary, fallback)

	sec, err := m.GetSecret(context.Background(), "ONLY", SecretOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sec.Value != "fallback-value" {
		t.Errorf("expected the fallback provider's value, got %q", sec.Value)
	}
}

func TestManager_GetSecret_NoFallbackPropagatesPrimaryError(t *testing.T) {
	primary := NewEnvProvider("PRIMARY_")
	m := NewManager(primary, nil)

	if _, err := m.GetSecret(context.Background(), "MISSING", SecretOptions{}); err == nil {
		t.Error("expected the primary's error to propagate when there is no fallback")
	}
}

func TestManager_MustEncryptionKey_FailsWhenBrainKeyUnset(t *testing.T) {
	m := NewManager(NewEnvProvider("UNSET_PREFIX_"), nil)
	if _, err := m.MustEncryptionKey(context.Background()); err == nil {
		t.Error("expected MustEncryptionKey to hard-fail when BRAIN_KEY is not set")
	}
}

func TestEnvProvider_WithRedactionPatterns_OverridesDefaults(t *testing.T) {
	t.Setenv("TEST_CUSTOM_FIELD", "longenoughvalue")
	p := NewEnvProvider("TEST_").WithRedactionPatterns([]string{"CUSTOM"})

	redacted := p.GetRedactedEnvVars()
	if redacted["TEST_CUSTOM_FIELD"] == "longenoughvalue" {
		t.Error("expected the overridden pattern to trigger redaction")
	}
}

func TestManager_MustEncryptionKey_ResolvesWhenSet(t *testing.T) {
	t.Setenv("BRAIN_KEY", "0123456789abcdef0123456789abcdef")
	m := NewManager(NewEnvProvider(""), nil)

	key, err := m.MustEncryptionKey(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "0123456789abcdef0123456789abcdef" {
		t.Errorf("unexpected key: %q", key)
	}
}
