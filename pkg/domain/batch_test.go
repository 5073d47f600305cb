package domain

import (
	"testing"
)

func TestPromptSpec_NeedsStyle(t *testing.T) {
	t.Run("差し込み位置がある場合はtrueを返すのだ", func(t *testing.T) {
		p := PromptSpec{ID: "pose-1", Instruction: "A portrait, " + StylePlaceholder + ", looking left"}
		if !p.NeedsStyle() {
			t.Error("expected NeedsStyle to be true")
		}
	})

	t.Run("差し込み位置がない場合はfalseを返すのだ", func(t *testing.T) {
		p := PromptSpec{ID: "pose-2", Instruction: "A simple portrait"}
		if p.NeedsStyle() {
			t.Error("expected NeedsStyle to be false")
		}
	})
}

func TestResolveInstruction(t *testing.T) {
	got := ResolveInstruction("Portrait in "+StylePlaceholder+" style", "soft watercolor")
	want := "Portrait in soft watercolor style"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// 差し込み位置がないテキストはそのまま返る
	plain := "Plain portrait"
	if got := ResolveInstruction(plain, "anything"); got != plain {
		t.Errorf("got %q, want %q", got, plain)
	}
}
