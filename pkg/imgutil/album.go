package imgutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/photoshoot-kit/pkg/domain"
)

// ErrEmptyAlbum は、合成対象となる成功項目が1件もないことを示します。
var ErrEmptyAlbum = errors.New("アルバムに使用できる画像がありません")

const (
	captionPadRatio    = 0.14
	captionSizeRatio   = 0.06
	captionMinSize     = 20.0
	cellPadRatio       = 0.05
	outerPadRatio      = 0.05
	albumTitleRatio    = 0.07
	albumTitleMinSize  = 48.0
	albumBrandRatio    = 0.025
	albumBrandMinSize  = 14.0
	albumCreditRatio   = 0.022
	albumCreditMinSize = 12.0
)

// gridLayout はグリッドの列数と行数を決めます。4枚を超えると3列、それ以下は2列です。
func gridLayout(n int) (cols, rows int) {
	cols = 2
	if n > 4 {
		cols = 3
	}
	rows = (n + cols - 1) / cols
	return cols, rows
}

// ComposeAlbum は成功項目をグリッドに並べ、タイトル帯とクレジット帯を持つ
// 1枚のアルバムシートとして PNG で返します。
//
// クロップ（とキャプション描画）は項目間に順序依存がないため並列に行い、
// 全項目の寸法が揃ってから面を確定します。部分的なアルバムは出力しません。
func ComposeAlbum(ctx context.Context, items []domain.GenerationItem, ratio, title string, addCaptions bool) ([]byte, error) {
	var selected []domain.GenerationItem
	for _, item := range items {
		if item.Status == domain.StatusSuccess && item.Artifact != nil {
			selected = append(selected, item)
		}
	}
	if len(selected) == 0 {
		return nil, ErrEmptyAlbum
	}

	cropped := make([]image.Image, len(selected))
	g, ctx := errgroup.WithContext(ctx)
	for i := range selected {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			img, _, err := image.Decode(bytes.NewReader(selected[i].Artifact.Data))
			if err != nil {
				return &DecodeError{Err: err}
			}

			c, err := CropImageToAspect(img, ratio)
			if err != nil {
				return err
			}

			if addCaptions {
				c, err = captionImage(c, selected[i].ID)
				if err != nil {
					return err
				}
			}

			cropped[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	grid, err := stitchGrid(cropped)
	if err != nil {
		return nil, err
	}

	return wrapPanel(grid, title)
}

// captionImage は画像の下に項目 ID を焼き込んだキャプション帯を追加します。
// 帯の高さは画像幅の比率で決まります。
func captionImage(img image.Image, id string) (image.Image, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	pad := int(math.Round(float64(w) * captionPadRatio))

	dc := gg.NewContext(w, h+pad)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	size := math.Max(float64(w)*captionSizeRatio, captionMinSize)
	face, err := newFace(scriptFont, size)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)
	dc.SetRGBA(0, 0, 0, 0.60)
	dc.DrawStringAnchored(id, float64(w)/2, float64(h)+float64(pad)/2, 0.5, 0.5)

	return dc.Image(), nil
}

// stitchGrid は白地のグリッド面に各画像を入力順（row-major）で敷き詰めます。
// セル寸法は最大の画像に合わせ、各画像は比率を保ったままセルに収まる
// 倍率で拡大縮小され、セル中央に配置されます。
func stitchGrid(images []image.Image) (image.Image, error) {
	cols, rows := gridLayout(len(images))

	cellW, cellH := 0, 0
	for _, img := range images {
		if w := img.Bounds().Dx(); w > cellW {
			cellW = w
		}
		if h := img.Bounds().Dy(); h > cellH {
			cellH = h
		}
	}

	pad := int(math.Round(float64(cellW) * cellPadRatio))
	gridW := cols*cellW + (cols+1)*pad
	gridH := rows*cellH + (rows+1)*pad

	dc := gg.NewContext(gridW, gridH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, img := range images {
		row := i / cols
		col := i % cols
		x := float64(pad + col*(cellW+pad))
		y := float64(pad + row*(cellH+pad))

		s := math.Min(
			float64(cellW)/float64(img.Bounds().Dx()),
			float64(cellH)/float64(img.Bounds().Dy()),
		)
		dw := float64(img.Bounds().Dx()) * s
		dh := float64(img.Bounds().Dy()) * s

		dc.Push()
		dc.Translate(x+(float64(cellW)-dw)/2, y+(float64(cellH)-dh)/2)
		dc.Scale(s, s)
		dc.DrawImage(img, 0, 0)
		dc.Pop()
	}

	return dc.Image(), nil
}

// wrapPanel はグリッド面を外側のパネルで包み、上にタイトル帯、
// 下にクレジット帯を描画します。
func wrapPanel(grid image.Image, title string) ([]byte, error) {
	gw := float64(grid.Bounds().Dx())

	outerPad := int(math.Round(gw * outerPadRatio))
	titleSize := math.Max(gw*albumTitleRatio, albumTitleMinSize)
	brandSize := math.Max(gw*albumBrandRatio, albumBrandMinSize)
	creditSize := math.Max(gw*albumCreditRatio, albumCreditMinSize)

	titleBand := int(math.Round(titleSize * 2.0))
	footerBand := int(math.Round((brandSize + creditSize) * 2.0))

	width := grid.Bounds().Dx() + outerPad*2
	height := outerPad + titleBand + grid.Bounds().Dy() + footerBand + outerPad

	dc := gg.NewContext(width, height)
	dc.SetRGB255(panelColor[0], panelColor[1], panelColor[2])
	dc.Clear()

	centerX := float64(width) / 2

	if title != "" {
		face, err := newFace(scriptFont, titleSize)
		if err != nil {
			return nil, err
		}
		dc.SetFontFace(face)
		dc.SetRGBA(1, 1, 1, 0.90)
		dc.DrawStringAnchored(title, centerX, float64(outerPad)+float64(titleBand)/2, 0.5, 0.5)
	}

	dc.DrawImage(grid, outerPad, outerPad+titleBand)

	footerTop := float64(outerPad + titleBand + grid.Bounds().Dy())
	brandFace, err := newFace(sansFont, brandSize)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(brandFace)
	dc.SetRGBA(1, 1, 1, 0.55)
	dc.DrawStringAnchored(watermarkBrand, centerX, footerTop+float64(footerBand)*0.35, 0.5, 0.5)

	creditFace, err := newFace(sansFont, creditSize)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(creditFace)
	dc.SetRGBA(1, 1, 1, 0.45)
	dc.DrawStringAnchored(watermarkCredit, centerX, footerTop+float64(footerBand)*0.70, 0.5, 0.5)

	buf := new(bytes.Buffer)
	if err := dc.EncodePNG(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
