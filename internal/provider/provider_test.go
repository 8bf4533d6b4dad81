package provider

import (
	"context"
	"testing"

	"ocrd/pkg/types"
)

func TestNoopEngineRecognize(t *testing.T) {
	eng, err := NewNoopEngine()
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	res, err := eng.Recognize(context.Background(), types.Artifact{ID: "doc-1"}, types.ModeText, nil)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if res.ArtifactID != "doc-1" || res.PlainText != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestNoopEngineHonorsCancellation(t *testing.T) {
	eng, _ := NewNoopEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.Recognize(ctx, types.Artifact{}, types.ModeText, nil); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestLanguageAnnotatorSkipsShortText(t *testing.T) {
	a := NewLanguageAnnotator()
	if got := a.Detect("hi"); got != "" {
		t.Fatalf("short text must stay unannotated, got %q", got)
	}
	if got := a.Detect("   "); got != "" {
		t.Fatalf("blank text must stay unannotated, got %q", got)
	}
}

func TestLanguageAnnotatorDetectsEnglish(t *testing.T) {
	a := NewLanguageAnnotator()
	text := "The quick brown fox jumps over the lazy dog near the riverbank."
	if got := a.Detect(text); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
}

func TestLanguageAnnotatorDetectsGerman(t *testing.T) {
	a := NewLanguageAnnotator()
	text := "Der schnelle braune Fuchs springt über den faulen Hund am Flussufer."
	if got := a.Detect(text); got != "de" {
		t.Fatalf("expected de, got %q", got)
	}
}
