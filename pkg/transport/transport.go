package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RequestOptions は Send が組み立てる HTTP リクエストの内容です。
// Body は再試行のたびに同じ内容で送信されます。
type RequestOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

// Options は Client の構成です。ゼロ値のフィールドには既定値が適用されます。
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client はレート制限とネットワーク失敗に対して指数バックオフ付きで
// 再試行する HTTP クライアントです。致命的な失敗は分類して即時に返します。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// New は Client を初期化します。
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// Send はリクエストを送信し、成功時に JSON 本文をそのまま返します。
//
//   - 429: 再試行予算が残っていれば backoff 待機後に再送し、backoff を倍にする。
//     予算が尽きたら KindRateLimited で確定する。
//   - 401: 即時に KindUnauthorized で確定する。再試行しない。
//   - その他の非成功ステータス: 即時に KindRequestFailed で確定する。
//     サーバー提供のエラーメッセージがあれば保持する。
//   - 応答が得られないネットワーク失敗: 429 と同じ予算と backoff で再送し、
//     予算が尽きたら元のエラーを KindTransportFailure に包んで返す。
func (c *Client) Send(ctx context.Context, url string, opts RequestOptions, maxRetries int, initialBackoff time.Duration) (json.RawMessage, error) {
	remaining := maxRetries
	backoff := initialBackoff

	for {
		body, status, err := c.do(ctx, url, opts)

		if err != nil {
			if remaining > 0 {
				c.logger.WarnContext(ctx, "通信エラーのため再試行します",
					"url", url, "remaining", remaining, "backoff", backoff, "error", err)
				if serr := c.sleep(ctx, backoff); serr != nil {
					return nil, &Error{Kind: KindTransportFailure, Message: "待機が中断されました", Err: serr}
				}
				backoff *= 2
				remaining--
				continue
			}
			return nil, &Error{Kind: KindTransportFailure, Message: "リクエストを送信できませんでした", Err: err}
		}

		switch {
		case status == http.StatusTooManyRequests:
			if remaining > 0 {
				c.logger.WarnContext(ctx, "レート制限を検知したため再試行します",
					"url", url, "remaining", remaining, "backoff", backoff)
				if serr := c.sleep(ctx, backoff); serr != nil {
					return nil, &Error{Kind: KindTransportFailure, Message: "待機が中断されました", Err: serr}
				}
				backoff *= 2
				remaining--
				continue
			}
			return nil, &Error{Kind: KindRateLimited, Status: status, Message: messageOr(body, "レート制限により失敗しました")}

		case status == http.StatusUnauthorized:
			return nil, &Error{Kind: KindUnauthorized, Status: status, Message: messageOr(body, "認証に失敗しました")}

		case status < 200 || status >= 300:
			return nil, &Error{Kind: KindRequestFailed, Status: status, Message: messageOr(body, "リクエストが失敗しました")}
		}

		return json.RawMessage(body), nil
	}
}

func (c *Client) do(ctx context.Context, url string, opts RequestOptions) ([]byte, int, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(opts.Body))
	if err != nil {
		return nil, 0, err
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// messageOr は本文からサーバー提供のエラーメッセージを取り出します。
// 取り出せない場合は fallback を返します。
func messageOr(body []byte, fallback string) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return fallback
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
