package imgutil

import (
	"bytes"
	"image"
	"math"

	"github.com/fogleman/gg"
)

// 固定ウォーターマーク。書き出される全画像に焼き込まれます。
const (
	watermarkBrand  = "AI Photo Studio"
	watermarkCredit = "Powered by Gemini"
)

// パネル背景の固定色です。
var panelColor = [3]int{34, 31, 38}

const (
	frameSidePadRatio     = 0.04
	frameTopPadRatio      = 0.04
	frameBottomPadRatio   = 0.18
	frameLabelBottomRatio = 0.24 // ラベルありの場合はキャプション帯を広げる
	frameLabelSizeRatio   = 0.09
	frameLabelMinSize     = 28.0
	creditBrandSizeRatio  = 0.025
	creditBrandMinSize    = 13.0
	creditLineSizeRatio   = 0.022
	creditLineMinSize     = 11.0
)

// Frame は画像を指定のアスペクト比で中央クロップし、ラベルと
// ウォーターマーク付きの枠入り成果物として PNG で返します。
// 余白はクロップ後の幅に対する比率で、キャプション帯を確保するため
// 下辺だけ非対称に広く取ります。
func Frame(data []byte, ratio string, label string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	cropped, err := CropImageToAspect(img, ratio)
	if err != nil {
		return nil, err
	}

	cw := cropped.Bounds().Dx()
	ch := cropped.Bounds().Dy()
	fw := float64(cw)

	side := int(math.Round(fw * frameSidePadRatio))
	top := int(math.Round(fw * frameTopPadRatio))
	bottomRatio := frameBottomPadRatio
	if label != "" {
		bottomRatio = frameLabelBottomRatio
	}
	bottom := int(math.Round(fw * bottomRatio))

	width := cw + side*2
	height := ch + top + bottom

	dc := gg.NewContext(width, height)
	dc.SetRGB255(panelColor[0], panelColor[1], panelColor[2])
	dc.Clear()
	dc.DrawImage(cropped, side, top)

	centerX := float64(width) / 2

	if label != "" {
		labelSize := math.Max(fw*frameLabelSizeRatio, frameLabelMinSize)
		face, err := newFace(scriptFont, labelSize)
		if err != nil {
			return nil, err
		}
		dc.SetFontFace(face)
		dc.SetRGBA(1, 1, 1, 0.85)
		// キャプション帯の上寄りに配置し、下端のクレジット行と分離する
		labelY := float64(ch+top) + float64(bottom)*0.40
		dc.DrawStringAnchored(label, centerX, labelY, 0.5, 0.5)
	}

	if err := drawCredits(dc, fw, float64(width), float64(height)); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := dc.EncodePNG(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawCredits は2本の固定クレジット行を下端付近に中央揃えで描画します。
// 文字サイズは幅に比例し、小さい元画像でも判読できるよう下限を持ちます。
func drawCredits(dc *gg.Context, baseWidth, canvasWidth, canvasHeight float64) error {
	brandSize := math.Max(baseWidth*creditBrandSizeRatio, creditBrandMinSize)
	lineSize := math.Max(baseWidth*creditLineSizeRatio, creditLineMinSize)

	centerX := canvasWidth / 2
	lineY := canvasHeight - lineSize*1.2
	brandY := lineY - brandSize*1.4

	brandFace, err := newFace(sansFont, brandSize)
	if err != nil {
		return err
	}
	dc.SetFontFace(brandFace)
	dc.SetRGBA(1, 1, 1, 0.55)
	dc.DrawStringAnchored(watermarkBrand, centerX, brandY, 0.5, 0.5)

	lineFace, err := newFace(sansFont, lineSize)
	if err != nil {
		return err
	}
	dc.SetFontFace(lineFace)
	dc.SetRGBA(1, 1, 1, 0.45)
	dc.DrawStringAnchored(watermarkCredit, centerX, lineY, 0.5, 0.5)
	return nil
}
