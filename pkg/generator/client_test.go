package generator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/photoshoot-kit/pkg/domain"
	"github.com/shouni/photoshoot-kit/pkg/transport"
)

func newTestClient(t *testing.T, mock *mockTransport) (*Client, *sleepRecorder) {
	t.Helper()
	client, err := New(mock, Options{APIKey: "test-key"})
	require.NoError(t, err)
	rec := &sleepRecorder{}
	client.sleep = rec.sleep
	return client, rec
}

func testPayload() domain.GenerationPayload {
	return domain.GenerationPayload{
		Instruction: "走るずんだもんの写真",
		Reference:   domain.ImageArtifact{Data: []byte("fake-reference"), MimeType: "image/png"},
	}
}

func TestClient_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("成功: インライン画像がPNG成果物として返るのだ", func(t *testing.T) {
		mock := &mockTransport{sendFunc: func(call int) (json.RawMessage, error) {
			return json.RawMessage(inlineImageBody), nil
		}}
		client, rec := newTestClient(t, mock)

		artifact, err := client.Generate(ctx, testPayload(), 3)

		require.NoError(t, err)
		assert.Equal(t, []byte("fake-png-bytes"), artifact.Data)
		assert.Equal(t, domain.MimeTypePNG, artifact.MimeType)
		assert.Len(t, mock.requests, 1)
		assert.Empty(t, rec.delays)
	})

	t.Run("画像なし応答: ちょうど3回試行し、2500ms/5000msの待機を挟んで失敗するのだ", func(t *testing.T) {
		mock := &mockTransport{sendFunc: func(call int) (json.RawMessage, error) {
			return json.RawMessage(textOnlyBody), nil
		}}
		client, rec := newTestClient(t, mock)

		_, err := client.Generate(ctx, testPayload(), 3)

		require.Error(t, err)
		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 3, exhausted.Attempts)
		assert.ErrorIs(t, exhausted.Err, errNoImage)
		assert.Len(t, mock.requests, 3)
		assert.Equal(t, []time.Duration{
			2500 * time.Millisecond,
			5000 * time.Millisecond,
		}, rec.delays)
	})

	t.Run("2回目で成功した場合は残りの試行を行わないのだ", func(t *testing.T) {
		mock := &mockTransport{sendFunc: func(call int) (json.RawMessage, error) {
			if call == 0 {
				return json.RawMessage(textOnlyBody), nil
			}
			return json.RawMessage(inlineImageBody), nil
		}}
		client, rec := newTestClient(t, mock)

		artifact, err := client.Generate(ctx, testPayload(), 3)

		require.NoError(t, err)
		assert.NotNil(t, artifact)
		assert.Len(t, mock.requests, 2)
		assert.Equal(t, []time.Duration{2500 * time.Millisecond}, rec.delays)
	})

	t.Run("認証失敗も特別扱いせず試行回数と待機を消費するのだ", func(t *testing.T) {
		authErr := &transport.Error{Kind: transport.KindUnauthorized, Status: 401, Message: "認証に失敗しました"}
		mock := &mockTransport{sendFunc: func(call int) (json.RawMessage, error) {
			return nil, authErr
		}}
		client, rec := newTestClient(t, mock)

		_, err := client.Generate(ctx, testPayload(), 3)

		require.Error(t, err)
		assert.Len(t, mock.requests, 3)
		assert.Len(t, rec.delays, 2)
		// 最後の失敗原因は分類付きで辿れる
		assert.True(t, transport.IsUnauthorized(err))
	})

	t.Run("attemptsが0以下なら既定の試行回数を使うのだ", func(t *testing.T) {
		mock := &mockTransport{sendFunc: func(call int) (json.RawMessage, error) {
			return nil, errors.New("network down")
		}}
		client, _ := newTestClient(t, mock)

		_, err := client.Generate(ctx, testPayload(), 0)

		require.Error(t, err)
		assert.Len(t, mock.requests, DefaultAttempts)
	})
}

func TestClient_Generate_RequestShape(t *testing.T) {
	mock := &mockTransport{sendFunc: func(call int) (json.RawMessage, error) {
		return json.RawMessage(inlineImageBody), nil
	}}
	client, _ := newTestClient(t, mock)

	_, err := client.Generate(context.Background(), testPayload(), 1)
	require.NoError(t, err)

	require.Len(t, mock.requests, 1)
	sent := mock.requests[0]
	assert.Equal(t, "test-key", sent.Opts.Header.Get("x-goog-api-key"))
	assert.Equal(t, "application/json", sent.Opts.Header.Get("content-type"))

	var req generateContentRequest
	require.NoError(t, json.Unmarshal(sent.Opts.Body, &req))
	require.Len(t, req.Contents, 1)
	require.Len(t, req.Contents[0].Parts, 2)
	assert.Equal(t, "走るずんだもんの写真", req.Contents[0].Parts[0].Text)
	require.NotNil(t, req.Contents[0].Parts[1].InlineData)
	assert.NotEmpty(t, req.Contents[0].Parts[1].InlineData.Data)
	assert.Contains(t, req.GenerationConfig.ResponseModalities, "IMAGE")
}

func TestClient_GenerateText(t *testing.T) {
	ctx := context.Background()

	t.Run("成功: 最初のテキストパーツが返るのだ", func(t *testing.T) {
		mock := &mockTransport{sendFunc: func(call int) (json.RawMessage, error) {
			return json.RawMessage(textOnlyBody), nil
		}}
		client, _ := newTestClient(t, mock)

		text, err := client.GenerateText(ctx, "スタイルを一文で記述して", 3)

		require.NoError(t, err)
		assert.Equal(t, "just text", text)
	})

	t.Run("テキストなし応答は試行を使い切って失敗するのだ", func(t *testing.T) {
		mock := &mockTransport{sendFunc: func(call int) (json.RawMessage, error) {
			return json.RawMessage(`{"candidates":[{"content":{"parts":[]}}]}`), nil
		}}
		client, _ := newTestClient(t, mock)

		_, err := client.GenerateText(ctx, "スタイル", 2)

		require.Error(t, err)
		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.ErrorIs(t, exhausted.Err, errNoText)
		assert.Len(t, mock.requests, 2)
	})
}

func TestNew(t *testing.T) {
	t.Run("nilチェック: 転送層がない場合はエラーを返すのだ", func(t *testing.T) {
		_, err := New(nil, Options{})
		if err == nil {
			t.Error("expected error for nil transport")
		}
	})
}
