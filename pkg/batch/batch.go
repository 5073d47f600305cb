package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/photoshoot-kit/pkg/domain"
)

// Batch は開始済みのバッチ1件です。項目はプロンプト列と添字で整列しており、
// バッチの生存期間中その対応は変わりません。
//
// 項目の状態更新は内部ロックで保護されるため、単一項目の再生成は
// メインループと時間的に重なっても安全です。ただし同一項目への
// 同時再生成の抑止は呼び出し側の責務です。
type Batch struct {
	mu sync.Mutex

	gen      Generator
	logger   *slog.Logger
	attempts int

	prompts   []domain.PromptSpec
	reference domain.ImageArtifact
	items     []domain.GenerationItem
}

// Run は項目を添字順に1件ずつ処理します。同時実行はしません。
// 項目の失敗はその項目の Failed として記録され、ループは次へ進みます。
// 完了後はすべての項目が Success または Failed になっています。
func (b *Batch) Run(ctx context.Context) {
	for i := range b.prompts {
		b.runItem(ctx, i)
	}
	b.logger.InfoContext(ctx, "バッチ処理が完了しました",
		"total", len(b.items), "progress", b.Progress())
}

// Regenerate は項目 i だけを独立して再実行します。他の項目には触れません。
// 範囲外の添字のみがエラーです。生成の成否は項目の状態として記録されます。
func (b *Batch) Regenerate(ctx context.Context, i int) error {
	if i < 0 || i >= len(b.items) {
		return fmt.Errorf("項目が存在しません: index %d (total %d)", i, len(b.items))
	}

	b.mu.Lock()
	b.items[i].Status = domain.StatusPending
	b.items[i].Artifact = nil
	b.items[i].Err = nil
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "項目を再生成します", "index", i, "id", b.prompts[i].ID)
	b.runItem(ctx, i)
	return nil
}

func (b *Batch) runItem(ctx context.Context, i int) {
	payload := domain.GenerationPayload{
		Instruction: b.prompts[i].Instruction,
		Reference:   b.reference,
	}

	artifact, err := b.gen.Generate(ctx, payload, b.attempts)

	b.mu.Lock()
	if err != nil {
		b.items[i].Status = domain.StatusFailed
		b.items[i].Artifact = nil
		b.items[i].Err = err
	} else {
		b.items[i].Status = domain.StatusSuccess
		b.items[i].Artifact = artifact
		b.items[i].Err = nil
	}
	status := b.items[i].Status
	b.mu.Unlock()

	if err != nil {
		b.logger.WarnContext(ctx, "項目の生成に失敗しました", "index", i, "id", b.prompts[i].ID, "error", err)
		return
	}
	b.logger.InfoContext(ctx, "項目の生成が完了しました", "index", i, "id", b.prompts[i].ID, "status", status)
}

// Progress は完了率を 0.0〜1.0 で返します。完了とは Pending でないことです。
func (b *Batch) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	completed := 0
	for _, item := range b.items {
		if item.Status != domain.StatusPending {
			completed++
		}
	}
	return float64(completed) / float64(len(b.items))
}

// Items は項目の現在状態のコピーを返します。
func (b *Batch) Items() []domain.GenerationItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.GenerationItem, len(b.items))
	copy(out, b.items)
	return out
}

// Len は項目数を返します。
func (b *Batch) Len() int {
	return len(b.items)
}
