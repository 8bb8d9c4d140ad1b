package excel

import (
	"strconv"
	"strings"
	"time"
)

// CellKind セル値の種別。スプレッドシートのセルは型なしで届くため、
// 取り込み時に小さなタグ付きバリアントへ分類してから各フィールドの
// 変換規則を適用する。
type CellKind int

const (
	CellBlank CellKind = iota
	CellText
	CellNumber
	CellDate
)

// CellValue 1セル分のタグ付き値
type CellValue struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
}

// 厳密に受け付ける日付書式（試行順序は正規化仕様に一致させる）
var strictDateLayouts = []string{
	"2006-01-02", // YYYY-MM-DD
	"2006/01/02", // YYYY/MM/DD
	"01/02/2006", // MM/DD/YYYY
	"02/01/2006", // DD/MM/YYYY
}

// 寛容モードで追加する書式（桁ゆれ・和暦風表記・時刻付き）
var lenientDateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"2006年1月2日",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseCell 生のセル文字列をタグ付き値に分類する
func ParseCell(raw string) CellValue {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CellValue{Kind: CellBlank}
	}
	for _, layout := range strictDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CellValue{Kind: CellDate, Text: s, Date: t}
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return CellValue{Kind: CellNumber, Text: s, Number: n}
	}
	return CellValue{Kind: CellText, Text: s}
}

// IsBlank 空セルかどうか
func (c CellValue) IsBlank() bool {
	return c.Kind == CellBlank
}

// AsString 前後空白を除いたテキスト表現を返す
func (c CellValue) AsString() string {
	switch c.Kind {
	case CellBlank:
		return ""
	default:
		return strings.TrimSpace(c.Text)
	}
}

// AsFloat 数値への変換。カンマ・円記号付きテキストも受け付ける。
func (c CellValue) AsFloat() (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Number, true
	case CellText:
		s := strings.TrimSpace(c.Text)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimPrefix(s, "¥")
		s = strings.TrimPrefix(s, "￥")
		s = strings.TrimSuffix(s, "円")
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// AsInt 整数への変換（四捨五入）
func (c CellValue) AsInt() (int, bool) {
	n, ok := c.AsFloat()
	if !ok {
		return 0, false
	}
	if n >= 0 {
		return int(n + 0.5), true
	}
	return int(n - 0.5), true
}

// AsDate 日付への変換。変換順序:
// (a) 分類時点で日付と判定済みの値はそのまま採用
// (b) テキストを4つの暦書式で順に解析
// (c) 寛容モード（桁ゆれ・時刻付き・Excelシリアル値）
// 出力は常に YYYY-MM-DD。
func (c CellValue) AsDate() (string, bool) {
	switch c.Kind {
	case CellDate:
		return c.Date.Format("2006-01-02"), true
	case CellNumber:
		if t, ok := fromExcelSerial(c.Number); ok {
			return t.Format("2006-01-02"), true
		}
		return "", false
	case CellText:
		s := strings.TrimSpace(c.Text)
		for _, layout := range strictDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
		for _, layout := range lenientDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
		return "", false
	default:
		return "", false
	}
}

// fromExcelSerial Excelのシリアル値（1899-12-30起点の経過日数）を日付に変換する。
// 1900年閏年バグ領域と遠未来は日付とみなさない。
func fromExcelSerial(n float64) (time.Time, bool) {
	if n < 61 || n > 200000 {
		return time.Time{}, false
	}
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return epoch.AddDate(0, 0, int(n)), true
}
