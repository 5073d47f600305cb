package generator

import (
	"encoding/base64"
	"fmt"

	"github.com/shouni/photoshoot-kit/pkg/domain"
	"github.com/shouni/photoshoot-kit/pkg/imgutil"
)

// リモート生成エンドポイントの generateContent ワイヤ形式です。

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

// buildImageRequest は指示テキストと参照画像から要求本体を組み立てます。
// 参照画像は転送量削減のため JPEG に圧縮してから埋め込みます。
// 圧縮できないデータは元のバイト列のまま送ります。
func buildImageRequest(payload domain.GenerationPayload) generateContentRequest {
	data := payload.Reference.Data
	mimeType := payload.Reference.MimeType
	if UseImageCompression {
		if compressed, err := imgutil.CompressToJPEG(data, ImageCompressionQuality); err == nil {
			data = compressed
			mimeType = "image/jpeg"
		}
	}

	return generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: payload.Instruction},
				{InlineData: &blob{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
}

// buildTextRequest はスタイル記述子などテキストのみの生成要求を組み立てます。
func buildTextRequest(instruction string) generateContentRequest {
	return generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: instruction}},
		}},
	}
}

// extractInlineImage は最初の候補のパーツからインライン画像データを取り出し、
// 表示可能な成果物（MIME タイプは PNG 固定）として返します。
func extractInlineImage(resp generateContentResponse) (*domain.ImageArtifact, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("応答に候補が含まれていません")
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("インライン画像のデコードに失敗しました: %w", err)
		}
		return &domain.ImageArtifact{Data: data, MimeType: domain.MimeTypePNG}, nil
	}
	return nil, errNoImage
}

// extractText は最初の候補のパーツから最初のテキストを取り出します。
func extractText(resp generateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("応答に候補が含まれていません")
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text, nil
		}
	}
	return "", errNoText
}
