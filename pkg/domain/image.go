package domain

// MimeTypePNG は生成成果物に固定で付与する MIME タイプです。
const MimeTypePNG = "image/png"

// ImageArtifact はデコード可能な画像データとそのメタデータです。
type ImageArtifact struct {
	Data     []byte
	MimeType string
}

// GenerationPayload はリモートエンドポイントへ送信する解決済みの要求本体です。
// 指示テキストと参照画像のペアで、項目ごとに新しく構築されます。
type GenerationPayload struct {
	Instruction string
	Reference   ImageArtifact
}

// CompositionSpec は合成処理への純粋な入力値です。永続的な識別子は持ちません。
type CompositionSpec struct {
	AspectRatio string // "W:H" 形式
	Label       string
	IsAlbum     bool
}
