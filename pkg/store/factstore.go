package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"codot-dashboard-api/pkg/models"
)

// ファクトストアを構成する4つの日次テーブル。
// いずれも (sales_date, store_id) を主キーとし、メトリック列を1つだけ持つ。
const (
	TableSales     = "sales_daily"
	TableCustomers = "customers_daily"
	TableSpend     = "spend_daily"
	TableLabor     = "labor_daily"
)

// Tables 全テーブルの一覧（処理順を固定）
var Tables = []string{TableSales, TableCustomers, TableSpend, TableLabor}

// metricColumns テーブル → メトリック列名とSQL型
var metricColumns = map[string]struct {
	name    string
	sqlType string
}{
	TableSales:     {"sales_amount", "REAL"},
	TableCustomers: {"customer_count", "INTEGER"},
	TableSpend:     {"average_spend", "REAL"},
	TableLabor:     {"work_hours", "REAL"},
}

// FactStore SQLiteに永続化されるファクトストアのハンドル。
// グローバルなDBパスは持たず、各コンポーネントへ明示的に渡す。
type FactStore struct {
	db *sql.DB
}

// Open 指定パスのSQLiteデータベースを開き、スキーマを初期化する。
// パスに ":memory:" を渡せばテスト用のインメモリストアになる。
func Open(path string) (*FactStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("データベースのオープンに失敗: %w", err)
	}
	// modernc.org/sqlite はコネクション毎に独立したインメモリDBを作るため、
	// ストアの一貫性を保つよう接続は1本に固定する
	db.SetMaxOpenConns(1)

	s := &FactStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close データベース接続を閉じる
func (s *FactStore) Close() error {
	return s.db.Close()
}

func (s *FactStore) createSchema() error {
	for _, table := range Tables {
		metric := metricColumns[table]
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			sales_date TEXT NOT NULL,
			store_id   TEXT NOT NULL,
			%s %s NOT NULL DEFAULT 0,
			PRIMARY KEY (sales_date, store_id)
		)`, table, metric.name, metric.sqlType)
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("テーブル %s の作成に失敗: %w", table, err)
		}
	}
	return nil
}

// metricValue テーブルに射影するメトリック値を取り出す
func metricValue(table string, r models.FactRecord) interface{} {
	switch table {
	case TableSales:
		return r.SalesAmount
	case TableCustomers:
		return r.CustomerCount
	case TableSpend:
		return r.AverageSpend
	case TableLabor:
		return r.WorkHours
	}
	return nil
}

// Upsert レコード群を1テーブルへアップサートする。
// (sales_date, store_id) の衝突時はそのテーブルの全フィールドを置き換える
// （last-write-wins、フィールド単位のマージではない）。書き込みは1トランザクション。
// 同一バッチの再適用は冪等で、2回目は挿入0件を報告する。
func (s *FactStore) Upsert(table string, records []models.FactRecord) (models.UpsertResult, error) {
	var result models.UpsertResult
	if len(records) == 0 {
		return result, nil
	}
	if _, ok := metricColumns[table]; !ok {
		return result, fmt.Errorf("不明なテーブル: %s", table)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	result, err = upsertInTx(tx, table, records)
	if err != nil {
		return models.UpsertResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.UpsertResult{}, fmt.Errorf("コミットに失敗: %w", err)
	}
	return result, nil
}

// UpsertRecords 1バッチを4テーブル全てへ単一トランザクションで書き込む。
// どれか1テーブルで失敗した場合は全テーブルがロールバックされ、
// 部分書き込みによる不整合は発生しない。
func (s *FactStore) UpsertRecords(records []models.FactRecord) (map[string]models.UpsertResult, error) {
	results := make(map[string]models.UpsertResult, len(Tables))
	if len(records) == 0 {
		return results, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	for _, table := range Tables {
		result, err := upsertInTx(tx, table, records)
		if err != nil {
			return nil, err
		}
		results[table] = result
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return results, nil
}

func upsertInTx(tx *sql.Tx, table string, records []models.FactRecord) (models.UpsertResult, error) {
	var result models.UpsertResult

	keys, err := existingKeysTx(tx, table)
	if err != nil {
		return result, err
	}

	metric := metricColumns[table]
	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %s (sales_date, store_id, %s) VALUES (?, ?, ?)
		 ON CONFLICT(sales_date, store_id) DO UPDATE SET %s = excluded.%s`,
		table, metric.name, metric.name, metric.name))
	if err != nil {
		return result, fmt.Errorf("テーブル %s のステートメント準備に失敗: %w", table, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Date, r.StoreID, metricValue(table, r)); err != nil {
			return models.UpsertResult{}, fmt.Errorf("テーブル %s への書き込みに失敗: %w", table, err)
		}
		key := [2]string{r.Date, r.StoreID}
		if keys[key] {
			result.UpdatedRows++
		} else {
			result.InsertedRows++
			// バッチ内で同一キーが再登場した場合、2件目以降は更新として数える
			keys[key] = true
		}
	}
	return result, nil
}

func existingKeysTx(tx *sql.Tx, table string) (map[[2]string]bool, error) {
	rows, err := tx.Query(fmt.Sprintf("SELECT sales_date, store_id FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("テーブル %s の既存キー取得に失敗: %w", table, err)
	}
	defer rows.Close()

	keys := make(map[[2]string]bool)
	for rows.Next() {
		var date, storeID string
		if err := rows.Scan(&date, &storeID); err != nil {
			return nil, err
		}
		keys[[2]string{date, storeID}] = true
	}
	return keys, rows.Err()
}
