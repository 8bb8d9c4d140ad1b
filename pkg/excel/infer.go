package excel

import (
	"fmt"
	"regexp"
	"strings"

	"codot-dashboard-api/pkg/models"
)

// ヘッダー推定ヒューリスティックの重み。
// スコアの調整を走査ロジックから切り離すため名前付き定数として公開する。
const (
	// HeaderScanLimit ヘッダー候補として走査する先頭行数
	HeaderScanLimit = 16
	// NamedColumnWeight 空でない実名列1つあたりの加点
	NamedColumnWeight = 20.0
	// DataCellWeight ヘッダー下の非空データセル1つあたりの加点
	DataCellWeight = 1.0
	// FillRatioWeight データ部の非空セル率（0〜1）に掛ける係数
	FillRatioWeight = 100.0
	// PlaceholderPenalty 空ヘッダーセルから自動生成した列名1つあたりの減点
	PlaceholderPenalty = 10.0

	sampleLimit = 3
)

// InferenceResult スキーマ推定の結果一式
type InferenceResult struct {
	HeaderRow int
	Columns   []string
	Mapping   models.ColumnMapping
	Quality   *models.QualityReport
	DataRows  [][]CellValue
}

type fieldPattern struct {
	re          *regexp.Regexp
	specificity int
}

func compilePatterns(exprs ...string) []fieldPattern {
	patterns := make([]fieldPattern, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, fieldPattern{
			re:          regexp.MustCompile("^(?:" + expr + ")$"),
			specificity: patternSpecificity(expr),
		})
	}
	return patterns
}

// patternSpecificity パターンのリテラル長からワイルドカード数を引いた値。
// 長い曖昧パターンが短い完全一致を上回り得る挙動は既存システム互換として保持。
func patternSpecificity(expr string) int {
	literal := 0
	wildcards := 0
	for _, r := range expr {
		switch r {
		case '.', '*', '+':
			wildcards++
		case '?', '(', ')', '[', ']', '|', '^', '$', '\\', ':':
		default:
			literal++
		}
	}
	return literal - wildcards
}

// 正規化フィールドごとの列名パターン。日本語の業務語彙と英語シノニムの双方を
// カバーする。照合は小文字化・空白/アンダースコア除去後の列名に対して行う。
var fieldPatterns = map[models.CanonicalField][]fieldPattern{
	models.FieldDate: compilePatterns(
		`売上日`, `営業日`, `日付`, `.*日付`, `salesdate`, `businessdate`, `date`,
	),
	models.FieldStore: compilePatterns(
		`店舗名`, `店舗`, `店名`, `storename`, `storeid`, `store`, `shop`, `branch`,
	),
	models.FieldCustomerCount: compilePatterns(
		`顧客数`, `来客数`, `客数`, `来店.*数`, `customercount`, `visitorcount`, `headcount`, `customers?`, `visitors?`,
	),
	models.FieldAverageSpend: compilePatterns(
		`平均客単価`, `客単価`, `客単`, `単価`, `averagespend`, `avgspend`, `spendpercustomer`, `unitprice`, `spend`,
	),
	models.FieldSalesAmount: compilePatterns(
		`売上合計`, `合計売上`, `売上高`, `総売上`, `売上`, `salesamount`, `totalsales`, `sales`, `revenue`,
	),
	models.FieldWorkHours: compilePatterns(
		`労働時間`, `勤務時間`, `実働時間`, `出勤時間`, `勤怠`, `workhours`, `workinghours`, `hours`, `attendance`,
	),
}

var headerNameReplacer = strings.NewReplacer(" ", "", "　", "", "\t", "", "_", "")

func normalizeHeaderName(name string) string {
	return headerNameReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// Infer ヘッダー行の位置が不明なシートから、最も妥当なヘッダー行と
// 正規化フィールドへの列マッピングを推定する。決定的で、panicしない。
// 全く解析できないシートは空のテーブルと全フィールド未マッピングを返す。
func Infer(sheet RawSheet) InferenceResult {
	limit := HeaderScanLimit
	if len(sheet.Rows) < limit {
		limit = len(sheet.Rows)
	}

	bestRow := -1
	bestScore := 0.0
	for idx := 0; idx < limit; idx++ {
		score, valid := scoreCandidate(sheet.Rows, idx)
		if !valid {
			continue
		}
		// 同点は浅い方のヘッダーを優先（昇順走査で「より大きい」時のみ更新）
		if bestRow == -1 || score > bestScore {
			bestRow = idx
			bestScore = score
		}
	}

	headerRow := bestRow
	if headerRow == -1 {
		// 有効な候補なし: 先頭行をそのままヘッダーとして扱う
		headerRow = 0
	}

	var columns []string
	var dataRows [][]CellValue
	if headerRow < len(sheet.Rows) {
		columns, _ = columnNames(sheet.Rows[headerRow])
		dataRows = sheet.Rows[headerRow+1:]
	}

	mapping := mapColumns(columns)
	quality := buildQualityReport(headerRow, columns, dataRows, mapping)

	return InferenceResult{
		HeaderRow: headerRow,
		Columns:   columns,
		Mapping:   mapping,
		Quality:   quality,
		DataRows:  dataRows,
	}
}

// scoreCandidate 指定行をヘッダーとみなした場合のスコアを返す。
// 列が1つ以上かつデータ行が1行以上ある候補のみ有効。
func scoreCandidate(rows [][]CellValue, headerIdx int) (float64, bool) {
	header := rows[headerIdx]
	data := rows[headerIdx+1:]
	columns, placeholders := columnNames(header)
	if len(columns) == 0 || len(data) == 0 {
		return 0, false
	}

	named := len(columns) - placeholders
	dataCells := 0
	totalCells := 0
	for _, row := range data {
		width := len(columns)
		if len(row) < width {
			width = len(row)
		}
		for j := 0; j < width; j++ {
			if !row[j].IsBlank() {
				dataCells++
			}
		}
		totalCells += len(columns)
	}

	ratio := 0.0
	if totalCells > 0 {
		ratio = float64(dataCells) / float64(totalCells)
	}

	score := NamedColumnWeight*float64(named) +
		DataCellWeight*float64(dataCells) +
		FillRatioWeight*ratio -
		PlaceholderPenalty*float64(placeholders)
	return score, true
}

// columnNames ヘッダー行から列名リストを作る。空セルにはプレースホルダー名を
// 自動生成し、その個数も返す。
func columnNames(header []CellValue) ([]string, int) {
	names := make([]string, len(header))
	placeholders := 0
	for i, cell := range header {
		name := cell.AsString()
		if name == "" {
			name = fmt.Sprintf("col_%d", i)
			placeholders++
		}
		names[i] = name
	}
	return names, placeholders
}

// mapColumns 列名を正規化フィールドへマッピングする。
// フィールドごとに全列をパターン照合し、一致パターンの特異度が最も高い列を採用。
// 特異度同点は先に現れた列が勝ち、同名の重複列は最後に現れた列に集約される。
func mapColumns(columns []string) models.ColumnMapping {
	lastIndex := make(map[string]int)
	var seenOrder []string
	for i, name := range columns {
		norm := normalizeHeaderName(name)
		if norm == "" {
			continue
		}
		if _, seen := lastIndex[norm]; !seen {
			seenOrder = append(seenOrder, norm)
		}
		lastIndex[norm] = i
	}

	mapping := models.ColumnMapping{}
	for _, field := range models.CanonicalFields {
		bestCol := -1
		bestSpec := 0
		for _, norm := range seenOrder {
			spec, ok := matchSpecificity(field, norm)
			if !ok {
				continue
			}
			if bestCol == -1 || spec > bestSpec {
				bestCol = lastIndex[norm]
				bestSpec = spec
			}
		}
		if bestCol >= 0 {
			mapping[field] = bestCol
		}
	}
	return mapping
}

// matchSpecificity 列名がフィールドのパターン集合に一致するか調べ、
// 一致した中で最大の特異度を返す
func matchSpecificity(field models.CanonicalField, normName string) (int, bool) {
	best := 0
	found := false
	for _, p := range fieldPatterns[field] {
		if !p.re.MatchString(normName) {
			continue
		}
		if !found || p.specificity > best {
			best = p.specificity
			found = true
		}
	}
	return best, found
}

func buildQualityReport(headerRow int, columns []string, dataRows [][]CellValue, mapping models.ColumnMapping) *models.QualityReport {
	report := &models.QualityReport{
		HeaderRow:   headerRow,
		RowCount:    len(dataRows),
		ColumnCount: len(columns),
		Fields:      make(map[models.CanonicalField]*models.FieldQuality),
	}

	for _, row := range dataRows {
		if IsRowEmpty(row) {
			report.EmptyRowCount++
		}
	}

	for _, field := range models.CanonicalFields {
		col, ok := mapping[field]
		if !ok {
			report.UnmappedFields = append(report.UnmappedFields, field)
			continue
		}
		fq := &models.FieldQuality{Column: col}
		nulls := 0
		for _, row := range dataRows {
			if col >= len(row) || row[col].IsBlank() {
				nulls++
				continue
			}
			if len(fq.Samples) < sampleLimit {
				fq.Samples = append(fq.Samples, row[col].AsString())
			}
		}
		if len(dataRows) > 0 {
			fq.NullRatio = float64(nulls) / float64(len(dataRows))
		}
		report.Fields[field] = fq
	}
	return report
}
