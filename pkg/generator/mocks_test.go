package generator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shouni/photoshoot-kit/pkg/transport"
)

// --- Mocks ---

type sentRequest struct {
	URL  string
	Opts transport.RequestOptions
}

type mockTransport struct {
	requests []sentRequest
	sendFunc func(call int) (json.RawMessage, error)
}

func (m *mockTransport) Send(ctx context.Context, url string, opts transport.RequestOptions, maxRetries int, initialBackoff time.Duration) (json.RawMessage, error) {
	call := len(m.requests)
	m.requests = append(m.requests, sentRequest{URL: url, Opts: opts})
	if m.sendFunc != nil {
		return m.sendFunc(call)
	}
	return json.RawMessage(`{}`), nil
}

// sleepRecorder は待機せずに要求された待機時間だけを記録します。
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

// inlineImageBody は base64 エンコード済みのインライン画像を含む応答本文です。
// "fake-png-bytes" → ZmFrZS1wbmctYnl0ZXM=
const inlineImageBody = `{"candidates":[{"content":{"parts":[{"text":"done"},{"inlineData":{"mimeType":"image/png","data":"ZmFrZS1wbmctYnl0ZXM="}}]}}]}`

// textOnlyBody は画像を含まない正常応答の本文です。
const textOnlyBody = `{"candidates":[{"content":{"parts":[{"text":"just text"}]}}]}`
