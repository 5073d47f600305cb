package imgutil

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// 埋め込みフォントを使うため、書き出しにフォントファイルの配置は不要です。
// 飾り文字（ラベル・キャプション・タイトル）はイタリック体、
// クレジット行はサンセリフ体で描画します。
var (
	scriptFont = mustParseFont(goitalic.TTF)
	sansFont   = mustParseFont(goregular.TTF)
)

func mustParseFont(ttf []byte) *sfnt.Font {
	f, err := sfnt.Parse(ttf)
	if err != nil {
		panic("imgutil: 埋め込みフォントの解析に失敗しました: " + err.Error())
	}
	return f
}

func newFace(f *sfnt.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
