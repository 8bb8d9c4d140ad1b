package store

import (
	"database/sql"
	"fmt"

	"codot-dashboard-api/pkg/models"
)

// KPI系メトリック名。トレンド・予測APIの入力で使う。
const (
	MetricCustomers    = "customers"
	MetricSpend        = "spend"
	MetricProductivity = "productivity"
)

// StoreIDs 4テーブルを横断した店舗ID一覧を返す
func (s *FactStore) StoreIDs() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT store_id FROM (
			SELECT store_id FROM sales_daily
			UNION SELECT store_id FROM customers_daily
			UNION SELECT store_id FROM spend_daily
			UNION SELECT store_id FROM labor_daily
		) WHERE store_id IS NOT NULL AND store_id != ''
		ORDER BY store_id`)
	if err != nil {
		return nil, fmt.Errorf("店舗一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	var stores []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		stores = append(stores, id)
	}
	return stores, rows.Err()
}

// AggregateWindow 指定期間のKPI集計を返す。
// 顧客数は合計、客単価は平均、生産性は 売上合計÷労働時間合計。
func (s *FactStore) AggregateWindow(storeID, start, end string) (models.KPIWindow, error) {
	var window models.KPIWindow
	row := s.db.QueryRow(`
		SELECT
			COALESCE(SUM(c.customer_count), 0),
			COALESCE(AVG(sp.average_spend), 0),
			COALESCE(SUM(sl.sales_amount), 0),
			COALESCE(SUM(l.work_hours), 0)
		FROM customers_daily c
		LEFT JOIN spend_daily sp ON c.sales_date = sp.sales_date AND c.store_id = sp.store_id
		LEFT JOIN sales_daily sl ON c.sales_date = sl.sales_date AND c.store_id = sl.store_id
		LEFT JOIN labor_daily l  ON c.sales_date = l.sales_date AND c.store_id = l.store_id
		WHERE c.store_id = ? AND c.sales_date >= ? AND c.sales_date <= ?`,
		storeID, start, end)

	var totalSales, totalHours float64
	if err := row.Scan(&window.Customers, &window.AverageSpend, &totalSales, &totalHours); err != nil {
		return window, fmt.Errorf("KPI集計の取得に失敗: %w", err)
	}
	if totalHours > 0 {
		window.Productivity = totalSales / totalHours
	}
	return window, nil
}

// MonthlySeries 指定メトリックの月次系列を返す（月はYYYY-MM、昇順）。
// 顧客数は月合計、客単価は月平均、生産性は日次の 売上÷労働時間 の月平均。
func (s *FactStore) MonthlySeries(metric, storeID, start, end string) ([]models.TrendPoint, error) {
	var query string
	switch metric {
	case MetricCustomers:
		query = `SELECT substr(sales_date, 1, 7) AS month, SUM(customer_count)
			FROM customers_daily
			WHERE store_id = ? AND sales_date >= ? AND sales_date <= ?
			GROUP BY month ORDER BY month`
	case MetricSpend:
		query = `SELECT substr(sales_date, 1, 7) AS month, AVG(average_spend)
			FROM spend_daily
			WHERE store_id = ? AND sales_date >= ? AND sales_date <= ?
			GROUP BY month ORDER BY month`
	case MetricProductivity:
		query = `SELECT substr(s.sales_date, 1, 7) AS month, AVG(s.sales_amount / l.work_hours)
			FROM sales_daily s
			JOIN labor_daily l ON s.sales_date = l.sales_date AND s.store_id = l.store_id
			WHERE s.store_id = ? AND s.sales_date >= ? AND s.sales_date <= ? AND l.work_hours > 0
			GROUP BY month ORDER BY month`
	default:
		return nil, fmt.Errorf("不明なメトリック: %s", metric)
	}

	rows, err := s.db.Query(query, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("月次系列の取得に失敗: %w", err)
	}
	defer rows.Close()
	return scanTrendPoints(rows)
}

func scanTrendPoints(rows *sql.Rows) ([]models.TrendPoint, error) {
	var points []models.TrendPoint
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.Month, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// DailySeries 予測入力用の日次系列を返す。対応メトリックは顧客数と客単価。
func (s *FactStore) DailySeries(metric, storeID, start string) ([]models.SeriesPoint, error) {
	var query string
	switch metric {
	case MetricCustomers:
		query = `SELECT sales_date, customer_count FROM customers_daily
			WHERE store_id = ? AND sales_date >= ? ORDER BY sales_date`
	case MetricSpend:
		query = `SELECT sales_date, average_spend FROM spend_daily
			WHERE store_id = ? AND sales_date >= ? ORDER BY sales_date`
	default:
		return nil, fmt.Errorf("不明なメトリック: %s", metric)
	}

	rows, err := s.db.Query(query, storeID, start)
	if err != nil {
		return nil, fmt.Errorf("日次系列の取得に失敗: %w", err)
	}
	defer rows.Close()

	var points []models.SeriesPoint
	for rows.Next() {
		var p models.SeriesPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
