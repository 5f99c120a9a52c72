package logger

import (
	"strings"
	"testing"
)

func TestScrubRedactsAndHashes(t *testing.T) {
	out := scrub([]interface{}{
		"api_key", "sk-live-123",
		"owner_user_id", "3f0c9d6e-0000-4000-8000-000000000001",
		"stage_id", "persona",
		"transcript", strings.Repeat("x", 500),
		"dangling",
	})
	if len(out) != 9 {
		t.Fatalf("scrub len: want=9 got=%d", len(out))
	}
	if out[1] != redacted {
		t.Fatalf("api_key: want=%q got=%v", redacted, out[1])
	}
	if s, _ := out[3].(string); !strings.HasPrefix(s, "hash:") {
		t.Fatalf("owner_user_id: want hash prefix got=%v", out[3])
	}
	if out[5] != "persona" {
		t.Fatalf("stage_id: want=persona got=%v", out[5])
	}
	if s, _ := out[7].(string); len(s) != maxLoggedText+3 {
		t.Fatalf("transcript: want truncated len=%d got=%d", maxLoggedText+3, len(s))
	}
	if out[8] != "dangling" {
		t.Fatalf("dangling key should pass through, got=%v", out[8])
	}
}

func TestNewTestModeIsSilent(t *testing.T) {
	l, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hello", "stage_id", "challenge")
	l.Named("x").With("k", "v").Warn("still silent")
}
