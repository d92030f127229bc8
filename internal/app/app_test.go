package app

import (
	"context"
	"errors"
	"testing"

	"github.com/fpang/veo3-storyboard/internal/auth"
	"github.com/fpang/veo3-storyboard/internal/config"
)

func testConfig(t *testing.T, editor string) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VEO3_EDITOR", editor)
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestNewRequiresGeminiKey(t *testing.T) {
	cfg := testConfig(t, config.EditorGemini)
	t.Setenv(auth.GeminiKey.EnvVar, "")

	_, err := New(context.Background(), cfg)
	var ve *auth.ValidationError
	if !errors.As(err, &ve) || ve.Type != auth.ErrTypeNoKey {
		t.Errorf("New() error = %v, want no_key", err)
	}
}

func TestNewReplicateEditorNeedsToken(t *testing.T) {
	cfg := testConfig(t, config.EditorReplicate)
	t.Setenv(auth.GeminiKey.EnvVar, "test-key")
	t.Setenv(auth.ReplicateToken.EnvVar, "")

	_, err := New(context.Background(), cfg)
	var ve *auth.ValidationError
	if !errors.As(err, &ve) || ve.Type != auth.ErrTypeNoKey {
		t.Errorf("New() error = %v, want no_key", err)
	}
}

func TestNewWiring(t *testing.T) {
	tests := []struct {
		name          string
		editor        string
		token         string
		wantGenerator bool
	}{
		{"gemini editor without token", config.EditorGemini, "", false},
		{"gemini editor with token", config.EditorGemini, "r8_test", true},
		{"replicate editor", config.EditorReplicate, "r8_test", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.editor)
			t.Setenv(auth.GeminiKey.EnvVar, "test-key")
			t.Setenv(auth.ReplicateToken.EnvVar, tt.token)

			a, err := New(context.Background(), cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if a.Orchestrator.HasGenerator() != tt.wantGenerator {
				t.Errorf("HasGenerator() = %v, want %v", a.Orchestrator.HasGenerator(), tt.wantGenerator)
			}
			if a.Sessions == nil || a.Sessions.TTL() != cfg.SessionTTL {
				t.Error("session store not configured")
			}
		})
	}
}
