package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/photoshoot-kit/pkg/domain"
)

// Generator は項目ごとの画像生成とスタイル記述子の事前生成を抽象化します。
type Generator interface {
	Generate(ctx context.Context, payload domain.GenerationPayload, attempts int) (*domain.ImageArtifact, error)
	GenerateText(ctx context.Context, instruction string, attempts int) (string, error)
}

// SourceFetcher は参照画像の取得を抽象化します。assets.Loader が実装します。
type SourceFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ValidationError はバッチを開始できない前提条件違反です。
// 項目の失敗としてではなく、呼び出し元へそのまま報告されます。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "バッチを開始できません: " + e.Reason
}

// Request はバッチ開始の入力です。プロンプト列は開始後に不変として扱われ、
// 参照画像のバイト列は全項目で読み取り専用で共有されます。
type Request struct {
	Prompts   []domain.PromptSpec
	Reference domain.ImageArtifact

	// StyleInstruction が空でない場合、どの項目よりも先にスタイル記述子を
	// 1回だけ生成し、各指示テキストの差し込み位置へ展開します。
	StyleInstruction string
}

func (r Request) validate() error {
	if len(r.Reference.Data) == 0 {
		return &ValidationError{Reason: "参照画像がありません"}
	}
	if len(r.Prompts) == 0 {
		return &ValidationError{Reason: "プロンプトが1件もありません"}
	}

	seen := make(map[string]struct{}, len(r.Prompts))
	for i, p := range r.Prompts {
		if strings.TrimSpace(p.ID) == "" {
			return &ValidationError{Reason: fmt.Sprintf("プロンプト %d 件目に ID がありません", i+1)}
		}
		if _, dup := seen[p.ID]; dup {
			return &ValidationError{Reason: fmt.Sprintf("プロンプト ID %q が重複しています", p.ID)}
		}
		seen[p.ID] = struct{}{}
		if strings.TrimSpace(p.Instruction) == "" {
			return &ValidationError{Reason: fmt.Sprintf("プロンプト %q に指示テキストがありません", p.ID)}
		}
		if p.NeedsStyle() && r.StyleInstruction == "" {
			return &ValidationError{Reason: fmt.Sprintf("プロンプト %q はスタイル指定を要求していますが、スタイル指示がありません", p.ID)}
		}
	}
	return nil
}

// Options は Orchestrator の構成です。
type Options struct {
	// Attempts は項目 1 件あたりの生成試行回数です。0 以下なら生成側の既定値に従います。
	Attempts int
	Logger   *slog.Logger
}

// Orchestrator はバッチの開始前検証とスタイル事前生成を担当し、
// 実行可能な Batch を構築します。
type Orchestrator struct {
	gen      Generator
	attempts int
	logger   *slog.Logger
}

// NewOrchestrator は依存関係を注入して Orchestrator を初期化します。
func NewOrchestrator(gen Generator, opts Options) (*Orchestrator, error) {
	if gen == nil {
		return nil, fmt.Errorf("gen (Generator) is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Orchestrator{
		gen:      gen,
		attempts: opts.Attempts,
		logger:   logger,
	}, nil
}

// Start は前提条件を検証し、必要ならスタイル記述子を事前生成してから
// 全項目を Pending で初期化した Batch を返します。
// 事前生成の失敗はバッチ全体の失敗であり、項目は1件も実行されません。
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Batch, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// 再生成が常に同じプロンプトへ向かうよう、解決済みの列をここで確定する
	prompts := make([]domain.PromptSpec, len(req.Prompts))
	copy(prompts, req.Prompts)

	if req.StyleInstruction != "" {
		o.logger.InfoContext(ctx, "スタイル記述子を事前生成します")
		style, err := o.gen.GenerateText(ctx, req.StyleInstruction, o.attempts)
		if err != nil {
			return nil, fmt.Errorf("スタイル記述子の事前生成に失敗しました: %w", err)
		}
		for i := range prompts {
			prompts[i].Instruction = domain.ResolveInstruction(prompts[i].Instruction, style)
		}
	}

	items := make([]domain.GenerationItem, len(prompts))
	for i, p := range prompts {
		items[i] = domain.GenerationItem{ID: p.ID, Status: domain.StatusPending}
	}

	return &Batch{
		gen:       o.gen,
		logger:    o.logger,
		attempts:  o.attempts,
		prompts:   prompts,
		reference: req.Reference,
		items:     items,
	}, nil
}

// StartFromSource は参照画像を fetcher で取得してからバッチを開始する補助です。
// URI は data: URL、gs://、http(s) のいずれにも対応します（assets.Loader 参照）。
func (o *Orchestrator) StartFromSource(ctx context.Context, fetcher SourceFetcher, uri string, prompts []domain.PromptSpec, styleInstruction string) (*Batch, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher (SourceFetcher) is required")
	}

	data, err := fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("参照画像の取得に失敗しました: %w", err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, &ValidationError{Reason: fmt.Sprintf("参照データが画像ではありません (%s)", mimeType)}
	}

	return o.Start(ctx, Request{
		Prompts:          prompts,
		Reference:        domain.ImageArtifact{Data: data, MimeType: mimeType},
		StyleInstruction: styleInstruction,
	})
}
