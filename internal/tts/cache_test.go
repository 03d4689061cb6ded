package tts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/config"
)

type countingEngine struct {
	calls int
	next  TextToAudio
}

func (e *countingEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	e.calls++
	return e.next.Synthesize(ctx, text)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("edge/en-US-AriaNeural", "hello")
	if a != CacheKey("edge/en-US-AriaNeural", "hello") {
		t.Error("key should be deterministic")
	}
	if a == CacheKey("edge/en-US-GuyNeural", "hello") {
		t.Error("different voices should not share a key")
	}
	if a == CacheKey("edge/en-US-AriaNeural", "hello!") {
		t.Error("different texts should not share a key")
	}
}

func TestCachedEngine_HitsCache(t *testing.T) {
	format := config.AudioConfig{SampleRate: 8000, Channels: 1, BitDepth: 16}
	inner := &countingEngine{next: NewSilenceEngine(500*time.Millisecond, format)}
	cache, err := NewCache(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	engine := NewCachedEngine(inner, cache, "silence/test")

	for i := 0; i < 3; i++ {
		clip, err := engine.Synthesize(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Synthesize failed: %v", err)
		}
		if clip.Duration() != 500*time.Millisecond {
			t.Errorf("call %d: expected 500ms, got %v", i, clip.Duration())
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 engine call, got %d", inner.calls)
	}

	if _, err := engine.Synthesize(context.Background(), "goodbye"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 engine calls, got %d", inner.calls)
	}
	if n := len(cache.List()); n != 2 {
		t.Errorf("expected 2 cache entries, got %d", n)
	}
}

func TestCache_PersistsIndex(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, 1)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	key := CacheKey("v", "text")
	if err := cache.Store(key, CacheEntry{Voice: "v", Text: "text"}, audio.Silent(100*time.Millisecond, 8000, 1, 16)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	reopened, err := NewCache(dir, 1)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	clip, ok := reopened.Lookup(key)
	if !ok {
		t.Fatal("expected cache hit after reopen")
	}
	if clip.Duration() != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", clip.Duration())
	}
}

func TestCache_DropsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, 1)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	key := CacheKey("v", "text")
	if err := cache.Store(key, CacheEntry{}, audio.Silent(100*time.Millisecond, 8000, 1, 16)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, key+".wav")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reopened, err := NewCache(dir, 1)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if n := len(reopened.List()); n != 0 {
		t.Errorf("expected stale entry to be dropped, got %d entries", n)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewCache(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	// Each clip is ~576 KB, so only one fits in 1 MB.
	big := audio.Silent(6*time.Second, 48000, 1, 16)
	first := CacheKey("v", "first")
	second := CacheKey("v", "second")

	if err := cache.Store(first, CacheEntry{Text: "first"}, big); err != nil {
		t.Fatalf("Store first: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := cache.Store(second, CacheEntry{Text: "second"}, big); err != nil {
		t.Fatalf("Store second: %v", err)
	}

	if _, ok := cache.Lookup(first); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := cache.Lookup(second); !ok {
		t.Error("newest entry should remain")
	}
}

func TestNewCache_RejectsZeroSize(t *testing.T) {
	if _, err := NewCache(t.TempDir(), 0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestNew_WrapsWithCache(t *testing.T) {
	cfg := config.Default()
	cfg.TTS.Cache.Dir = t.TempDir()
	cfg.TTS.Cache.MaxSizeMB = 1

	engine, err := New(cfg.TTS, cfg.Audio)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := engine.(*CachedEngine); !ok {
		t.Fatalf("expected *CachedEngine, got %T", engine)
	}
}

func TestVoiceIdentity_DiffersByVoice(t *testing.T) {
	cfg := config.Default()
	cfg.TTS.Engine = "edge"
	a := VoiceIdentity(cfg.TTS, cfg.Audio)
	cfg.TTS.Edge.Voice = "en-GB-SoniaNeural"
	if a == VoiceIdentity(cfg.TTS, cfg.Audio) {
		t.Error("changing the voice should change the identity")
	}
}
