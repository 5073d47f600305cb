package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"strconv"
	"strings"
)

// DecodeError はデコードできない画像データが渡されたことを示します。
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("画像をデコードできませんでした: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// parseAspect は "W:H" 形式のアスペクト比を比率 (W/H) に変換します。
func parseAspect(ratio string) (float64, error) {
	parts := strings.Split(ratio, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("不正なアスペクト比: %q", ratio)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || w <= 0 {
		return 0, fmt.Errorf("不正なアスペクト比: %q", ratio)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || h <= 0 {
		return 0, fmt.Errorf("不正なアスペクト比: %q", ratio)
	}
	return w / h, nil
}

// cropRect は中央クロップの切り出し範囲を計算します。
// 元画像が目標より横長なら高さを保って幅を詰め、そうでなければ幅を保って高さを詰めます。
func cropRect(w, h int, target float64) image.Rectangle {
	original := float64(w) / float64(h)
	if original > target {
		cw := int(math.Round(float64(h) * target))
		x := (w - cw) / 2
		return image.Rect(x, 0, x+cw, h)
	}
	ch := int(math.Round(float64(w) / target))
	y := (h - ch) / 2
	return image.Rect(0, y, w, y+ch)
}

// CropImageToAspect はデコード済み画像を指定のアスペクト比で中央クロップします。
// 出力キャンバスの寸法は切り出し範囲と一致します。
func CropImageToAspect(img image.Image, ratio string) (image.Image, error) {
	target, err := parseAspect(ratio)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	r := cropRect(b.Dx(), b.Dy(), target).Add(b.Min)

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

// CropToAspect はエンコード済みの画像データを中央クロップし、PNG で返します。
func CropToAspect(data []byte, ratio string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	cropped, err := CropImageToAspect(img, ratio)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, cropped); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
