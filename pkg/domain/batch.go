package domain

import "strings"

// ItemStatus は1件の生成作業の進行状態です。
type ItemStatus string

const (
	StatusPending ItemStatus = "pending" // 未処理または再生成待ち
	StatusSuccess ItemStatus = "success" // 成果物あり
	StatusFailed  ItemStatus = "failed"  // 全試行が失敗
)

// StylePlaceholder は指示テキストに埋め込むスタイル記述子の差し込み位置です。
// バッチ一貫性テーマでは、事前生成された記述子がこの位置に展開されます。
const StylePlaceholder = "{{style}}"

// PromptSpec は解決済みのプロンプト1件です。バッチ開始後は不変として扱います。
type PromptSpec struct {
	ID          string
	Instruction string
}

// NeedsStyle は指示テキストがスタイル記述子の差し込みを要求するかを返します。
func (p PromptSpec) NeedsStyle() bool {
	return strings.Contains(p.Instruction, StylePlaceholder)
}

// ResolveInstruction はスタイル記述子を差し込み位置へ展開した指示テキストを返します。
func ResolveInstruction(instruction, style string) string {
	return strings.ReplaceAll(instruction, StylePlaceholder, style)
}

// GenerationItem はバッチ内の1単位の生成作業です。
// バッチ開始時に Pending で作成され、1回の試行ごとに Success または Failed へ
// ちょうど1度だけ遷移します。再生成で Pending に戻すことができます。
type GenerationItem struct {
	ID       string
	Status   ItemStatus
	Artifact *ImageArtifact
	Err      error
}
