package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/photoshoot-kit/pkg/domain"
	"github.com/shouni/photoshoot-kit/pkg/transport"
)

const (
	UseImageCompression     = true
	ImageCompressionQuality = 75

	// DefaultAttempts は Generate の既定試行回数です。
	DefaultAttempts = 3

	// retryBaseDelay は試行間待機の初期値です。attempt ごとに倍になります。
	retryBaseDelay = 2500 * time.Millisecond

	// 転送層に渡す再試行予算です。
	transportMaxRetries     = 3
	transportInitialBackoff = time.Second

	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-image:generateContent"
)

var (
	errNoImage = errors.New("応答に画像データが含まれていません")
	errNoText  = errors.New("応答にテキストが含まれていません")
)

// ExhaustedError は全試行を使い切っても成果物が得られなかったことを示します。
// 最後に発生したエラーを保持します。
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("画像生成が%d回の試行すべてで失敗しました: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Transport は再試行付きのリクエスト送信を抽象化します。
type Transport interface {
	Send(ctx context.Context, url string, opts transport.RequestOptions, maxRetries int, initialBackoff time.Duration) (json.RawMessage, error)
}

// Options は Client の構成です。
type Options struct {
	Endpoint string // 空なら既定の生成エンドポイント
	APIKey   string
	Logger   *slog.Logger
}

// Client はリモート応答を画像成果物へ正規化する生成クライアントです。
// 「応答は正常だが画像が含まれない」種類の失敗に対して固定回数の
// 再試行ループを持ちます。転送層のエラーも同じ予算を消費します
// （認証失敗であっても特別扱いはしません）。
type Client struct {
	transport Transport
	endpoint  string
	apiKey    string
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// New は依存関係を注入して Client を初期化します。
func New(t Transport, opts Options) (*Client, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		transport: t,
		endpoint:  endpoint,
		apiKey:    opts.APIKey,
		logger:    logger,
		sleep:     sleepContext,
	}, nil
}

// Generate はペイロードを送信し、デコード可能な画像成果物を返します。
// attempts が 0 以下の場合は DefaultAttempts を使います。
func (c *Client) Generate(ctx context.Context, payload domain.GenerationPayload, attempts int) (*domain.ImageArtifact, error) {
	body, err := json.Marshal(buildImageRequest(payload))
	if err != nil {
		return nil, fmt.Errorf("要求本体の生成に失敗しました: %w", err)
	}

	var artifact *domain.ImageArtifact
	err = c.attemptLoop(ctx, attempts, func(raw json.RawMessage) error {
		var resp generateContentResponse
		if uerr := json.Unmarshal(raw, &resp); uerr != nil {
			return fmt.Errorf("応答の解析に失敗しました: %w", uerr)
		}
		out, perr := extractInlineImage(resp)
		if perr != nil {
			return perr
		}
		artifact = out
		return nil
	}, body)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// GenerateText は指示テキストのみの生成を行い、最初のテキスト出力を返します。
// バッチ一貫性テーマのスタイル記述子の事前生成に使われます。
func (c *Client) GenerateText(ctx context.Context, instruction string, attempts int) (string, error) {
	body, err := json.Marshal(buildTextRequest(instruction))
	if err != nil {
		return "", fmt.Errorf("要求本体の生成に失敗しました: %w", err)
	}

	var text string
	err = c.attemptLoop(ctx, attempts, func(raw json.RawMessage) error {
		var resp generateContentResponse
		if uerr := json.Unmarshal(raw, &resp); uerr != nil {
			return fmt.Errorf("応答の解析に失敗しました: %w", uerr)
		}
		out, perr := extractText(resp)
		if perr != nil {
			return perr
		}
		text = out
		return nil
	}, body)
	if err != nil {
		return "", err
	}
	return text, nil
}

// attemptLoop は固定回数の試行を実行します。各試行で転送層を呼び、
// parse が nil を返したら即座に成功します。最終試行以外の失敗後は
// retryBaseDelay * 2^(attempt-1) だけ待機します。
func (c *Client) attemptLoop(ctx context.Context, attempts int, parse func(json.RawMessage) error, body []byte) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	header := http.Header{}
	header.Set("content-type", "application/json")
	if c.apiKey != "" {
		header.Set("x-goog-api-key", c.apiKey)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := c.transport.Send(ctx, c.endpoint, transport.RequestOptions{
			Method: http.MethodPost,
			Header: header,
			Body:   body,
		}, transportMaxRetries, transportInitialBackoff)

		if err == nil {
			err = parse(raw)
			if err == nil {
				return nil
			}
		}
		lastErr = err

		if attempt < attempts {
			delay := retryBaseDelay * (1 << (attempt - 1))
			c.logger.WarnContext(ctx, "生成に失敗したため再試行します",
				"attempt", attempt, "attempts", attempts, "delay", delay, "error", lastErr)
			if serr := c.sleep(ctx, delay); serr != nil {
				return &ExhaustedError{Attempts: attempt, Err: serr}
			}
		}
	}

	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
