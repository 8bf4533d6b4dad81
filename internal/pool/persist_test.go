package pool

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRecencyMetadataRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recency.json")

	p := New(Config{RecencyPath: path, Logger: zerolog.Nop()})
	p.Register("ocr", "hot", "x", "gpu0", 2, 10*mb)
	p.Register("ocr", "cold", "y", "gpu0", 1, 5*mb)
	setLastAccess(t, p, "ocr", "cold", time.Now().Add(-time.Hour))
	p.SaveRecencyMetadata()

	restarted := New(Config{RecencyPath: path, Logger: zerolog.Nop()})
	keys := restarted.RecentKeys()
	if len(keys) != 2 {
		t.Fatalf("expected two persisted keys, got %v", keys)
	}
	if keys[0] != "ocr/hot" {
		t.Fatalf("expected most recently used key first, got %v", keys)
	}
}

func TestRecencyMetadataMissingFileIsCold(t *testing.T) {
	p := New(Config{RecencyPath: filepath.Join(t.TempDir(), "absent.json"), Logger: zerolog.Nop()})
	if keys := p.RecentKeys(); keys != nil {
		t.Fatalf("expected cold start with no persisted file, got %v", keys)
	}
}
