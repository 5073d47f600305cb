package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

const cacheKeyReference = "reference_image:"

// ImageCacher は、取得済みの画像バイト列をキャッシュするためのインターフェースです。
// github.com/patrickmn/go-cache の *cache.Cache がそのまま実装を満たします。
type ImageCacher interface {
	// Get は、指定されたキーに紐づくアイテムを取得します。
	Get(key string) (any, bool)
	// Set は、指定されたキーと値、有効期限でアイテムを保存します。
	Set(key string, value any, d time.Duration)
}

// Loader は参照画像の取得を担当します。data: URL、gs://、http(s) に対応し、
// リモート取得の結果は有効期限付きでキャッシュされます。
type Loader struct {
	reader     remoteio.InputReader
	httpClient httpkit.ClientInterface
	cache      ImageCacher
	expiration time.Duration
	logger     *slog.Logger
}

// NewLoader は依存関係を注入して Loader を初期化します。
func NewLoader(reader remoteio.InputReader, httpClient httpkit.ClientInterface, cache ImageCacher, cacheTTL time.Duration, logger *slog.Logger) (*Loader, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	// cache は nil を許容（キャッシュなし動作）

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Loader{
		reader:     reader,
		httpClient: httpClient,
		cache:      cache,
		expiration: cacheTTL,
		logger:     logger,
	}, nil
}

// NewDefaultLoader は patrickmn/go-cache によるインメモリTTLキャッシュを
// 組み込んだ Loader を返します。掃除間隔は有効期限の2倍です。
func NewDefaultLoader(reader remoteio.InputReader, httpClient httpkit.ClientInterface, cacheTTL time.Duration, logger *slog.Logger) (*Loader, error) {
	return NewLoader(reader, httpClient, gocache.New(cacheTTL, cacheTTL*2), cacheTTL, logger)
}

// Fetch は URI から参照画像のバイト列を取得します。
func (l *Loader) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURL(uri)
	}

	cacheKey := cacheKeyReference + uri
	if l.cache != nil {
		if val, ok := l.cache.Get(cacheKey); ok {
			if data, ok := val.([]byte); ok {
				return data, nil
			}
			l.logger.WarnContext(ctx, "キャッシュデータが不正な型です", "uri", uri)
		}
	}

	data, err := l.fetchRemote(ctx, uri)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.cache.Set(cacheKey, data, l.expiration)
	}
	return data, nil
}

func (l *Loader) fetchRemote(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "gs://") {
		rc, err := l.reader.Open(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("ストレージからの読み込みに失敗しました: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	if safe, err := IsSafeURL(uri); err != nil || !safe {
		return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
	}
	return l.httpClient.FetchBytes(ctx, uri)
}

// decodeDataURL は data: URL の base64 部分をデコードします。
// MIME タイプの宣言は外部協調者の責務のため、ここでは本文だけを取り出します。
func decodeDataURL(uri string) ([]byte, error) {
	idx := strings.IndexByte(uri, ',')
	if idx < 0 {
		return nil, fmt.Errorf("data URLに本文がありません")
	}
	payload := uri[idx+1:]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// パディングなしの本文も受け付ける
		if raw, rerr := base64.RawStdEncoding.DecodeString(payload); rerr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("data URLのデコードに失敗しました: %w", err)
	}
	return data, nil
}
