package models

// CanonicalField ファクトレコードを構成する正規化済みフィールド名
type CanonicalField string

const (
	FieldDate          CanonicalField = "date"
	FieldStore         CanonicalField = "store"
	FieldCustomerCount CanonicalField = "customer_count"
	FieldAverageSpend  CanonicalField = "average_spend"
	FieldSalesAmount   CanonicalField = "sales_amount"
	FieldWorkHours     CanonicalField = "work_hours"
)

// CanonicalFields 全正規化フィールドの一覧（評価順を固定するためスライスで保持）
var CanonicalFields = []CanonicalField{
	FieldDate,
	FieldStore,
	FieldCustomerCount,
	FieldAverageSpend,
	FieldSalesAmount,
	FieldWorkHours,
}

// FactRecord (date, store_id) をキーとする日次ファクトの正規形
type FactRecord struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	StoreID       string  `json:"store_id"`
	CustomerCount int     `json:"customer_count"`
	AverageSpend  float64 `json:"average_spend"`
	SalesAmount   float64 `json:"sales_amount"`
	WorkHours     float64 `json:"work_hours"`
}

// ColumnMapping 正規化フィールド名 → 元シートの列インデックス。
// マッピングされなかったフィールドはエントリ自体が存在しない。
type ColumnMapping map[CanonicalField]int

// Has フィールドがマッピング済みかどうかを返す
func (m ColumnMapping) Has(field CanonicalField) bool {
	_, ok := m[field]
	return ok
}

// FieldQuality マッピング済みフィールド1つ分の品質情報
type FieldQuality struct {
	Column    int      `json:"column"`
	NullRatio float64  `json:"null_ratio"`
	Samples   []string `json:"samples,omitempty"`
}

// QualityReport シート1枚分の診断情報。オペレーター向け表示専用で永続化しない。
type QualityReport struct {
	HeaderRow      int                              `json:"header_row"`
	RowCount       int                              `json:"row_count"`
	ColumnCount    int                              `json:"column_count"`
	EmptyRowCount  int                              `json:"empty_row_count"`
	Fields         map[CanonicalField]*FieldQuality `json:"fields"`
	UnmappedFields []CanonicalField                 `json:"unmapped_fields,omitempty"`
}

// RowError 行単位の解析失敗。正規化処理からは例外として伝播せず診断として収集する。
type RowError struct {
	Source string `json:"source"`
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// UpsertResult 1テーブル分のアップサート結果
type UpsertResult struct {
	InsertedRows int `json:"inserted_rows"`
	UpdatedRows  int `json:"updated_rows"`
}

// Add 別のアップサート結果を加算する
func (r *UpsertResult) Add(other UpsertResult) {
	r.InsertedRows += other.InsertedRows
	r.UpdatedRows += other.UpdatedRows
}

// FileStatus ファイル単位の処理結果
type FileStatus string

const (
	FileStatusOK      FileStatus = "ok"
	FileStatusWarning FileStatus = "warning"
	FileStatusFailed  FileStatus = "failed"
)

// SheetDiagnostic シート1枚分の取り込み診断
type SheetDiagnostic struct {
	SheetName   string         `json:"sheet_name"`
	Table       string         `json:"table,omitempty"`
	Records     int            `json:"records"`
	Quality     *QualityReport `json:"quality,omitempty"`
	RowErrors   []RowError     `json:"row_errors,omitempty"`
	Warning     string         `json:"warning,omitempty"`
	UpsertError string         `json:"upsert_error,omitempty"`
}

// FileDiagnostic ファイル1つ分の取り込み診断
type FileDiagnostic struct {
	FileName string            `json:"file_name"`
	Status   FileStatus        `json:"status"`
	Error    string            `json:"error,omitempty"`
	Sheets   []SheetDiagnostic `json:"sheets,omitempty"`
}

// IngestSummary 取り込み全体のサマリー。テーブル名 → 挿入/更新件数。
// 全ファイルが失敗しても必ず返される（ゼロ件 + 失敗診断）。
type IngestSummary struct {
	Tables map[string]*UpsertResult `json:"tables"`
	Files  []FileDiagnostic         `json:"files"`
}

// NewIngestSummary 空のサマリーを生成する
func NewIngestSummary() *IngestSummary {
	return &IngestSummary{Tables: make(map[string]*UpsertResult)}
}

// AddTableResult テーブル別の件数を加算する
func (s *IngestSummary) AddTableResult(table string, result UpsertResult) {
	if s.Tables[table] == nil {
		s.Tables[table] = &UpsertResult{}
	}
	s.Tables[table].Add(result)
}

// KPIWindow 1期間分のKPI集計値
type KPIWindow struct {
	Customers    float64 `json:"customers"`
	AverageSpend float64 `json:"average_spend"`
	Productivity float64 `json:"productivity"` // 売上合計 / 労働時間合計（円/時）
}

// KPIAggregates 当期・前月・前年同期のKPI集計
type KPIAggregates struct {
	StoreID   string    `json:"store_id"`
	Months    int       `json:"months"`
	Current   KPIWindow `json:"current"`
	PrevMonth KPIWindow `json:"prev_month"`
	PrevYear  KPIWindow `json:"prev_year"`
}

// TrendPoint 月次トレンドの1点
type TrendPoint struct {
	Month string  `json:"month"` // YYYY-MM
	Value float64 `json:"value"`
}

// MonthlyTrend 今年と前年同期の月次推移
type MonthlyTrend struct {
	StoreID  string       `json:"store_id"`
	Metric   string       `json:"metric"`
	Current  []TrendPoint `json:"current"`
	PrevYear []TrendPoint `json:"prev_year"`
}

// SeriesPoint 予測入力となる日付付き数値
type SeriesPoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// ForecastPoint 予測結果の1点。Lower/Upperは信頼区間。
type ForecastPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}
