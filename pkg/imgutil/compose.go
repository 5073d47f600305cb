package imgutil

import (
	"context"

	"github.com/shouni/photoshoot-kit/pkg/domain"
)

// Compose は CompositionSpec に従って成果物を書き出します。
// IsAlbum ならアルバムシート、そうでなければ最初の成功項目の枠入り画像です。
// どちらの形でも、成功項目が1件もなければ ErrEmptyAlbum を返します。
func Compose(ctx context.Context, spec domain.CompositionSpec, items []domain.GenerationItem, title string, addCaptions bool) ([]byte, error) {
	if spec.IsAlbum {
		return ComposeAlbum(ctx, items, spec.AspectRatio, title, addCaptions)
	}

	for _, item := range items {
		if item.Status == domain.StatusSuccess && item.Artifact != nil {
			return Frame(item.Artifact.Data, spec.AspectRatio, spec.Label)
		}
	}
	return nil, ErrEmptyAlbum
}
