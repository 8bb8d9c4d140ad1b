package services

import (
	"fmt"
	"time"

	"codot-dashboard-api/pkg/models"
	"codot-dashboard-api/pkg/store"
)

// 集計ウィンドウの定義（月は30日換算、前年は365日シフト）
const (
	daysPerMonth      = 30
	daysPerYear       = 365
	forecastInputDays = 730 // 予測入力は直近2年分
)

// KPIService ファクトストアに対する読み取り専用のKPI集計サービス。
// 取り込み中の書き込みとは並行実行しない前提（部分書き込みを観測し得るため）。
type KPIService struct {
	store *store.FactStore
	now   func() time.Time
}

// NewKPIService 新しいKPIサービスを生成する
func NewKPIService(factStore *store.FactStore) *KPIService {
	return &KPIService{store: factStore, now: time.Now}
}

// StoreList 登録済み店舗のID一覧を返す
func (s *KPIService) StoreList() ([]string, error) {
	return s.store.StoreIDs()
}

// Aggregates 当期・前月・前年同期のKPI集計を返す
func (s *KPIService) Aggregates(storeID string, months int) (*models.KPIAggregates, error) {
	if months <= 0 {
		months = 3
	}
	end := s.now()
	start := end.AddDate(0, 0, -months*daysPerMonth)
	prevMonthStart := start.AddDate(0, 0, -daysPerMonth)
	prevYearStart := start.AddDate(0, 0, -daysPerYear)
	prevYearEnd := end.AddDate(0, 0, -daysPerYear)

	current, err := s.store.AggregateWindow(storeID, dateStr(start), dateStr(end))
	if err != nil {
		return nil, fmt.Errorf("当期KPIの集計に失敗: %w", err)
	}
	prevMonth, err := s.store.AggregateWindow(storeID, dateStr(prevMonthStart), dateStr(start))
	if err != nil {
		return nil, fmt.Errorf("前月KPIの集計に失敗: %w", err)
	}
	prevYear, err := s.store.AggregateWindow(storeID, dateStr(prevYearStart), dateStr(prevYearEnd))
	if err != nil {
		return nil, fmt.Errorf("前年同期KPIの集計に失敗: %w", err)
	}

	return &models.KPIAggregates{
		StoreID:   storeID,
		Months:    months,
		Current:   current,
		PrevMonth: prevMonth,
		PrevYear:  prevYear,
	}, nil
}

// MonthlyTrend 今年の月次推移と、1年前へずらした前年同期の推移を返す。
// 前年系列の月ラベルは比較しやすいよう1年先へシフトする。
func (s *KPIService) MonthlyTrend(storeID, metric string, months int) (*models.MonthlyTrend, error) {
	if months <= 0 {
		months = 3
	}
	end := s.now()
	start := end.AddDate(0, 0, -months*daysPerMonth)
	prevStart := start.AddDate(0, 0, -daysPerYear)
	prevEnd := end.AddDate(0, 0, -daysPerYear)

	current, err := s.store.MonthlySeries(metric, storeID, dateStr(start), dateStr(end))
	if err != nil {
		return nil, err
	}
	prevYear, err := s.store.MonthlySeries(metric, storeID, dateStr(prevStart), dateStr(prevEnd))
	if err != nil {
		return nil, err
	}
	for i, p := range prevYear {
		prevYear[i].Month = shiftMonthForward(p.Month)
	}

	return &models.MonthlyTrend{
		StoreID:  storeID,
		Metric:   metric,
		Current:  current,
		PrevYear: prevYear,
	}, nil
}

// ForecastInput 指定メトリックの予測入力系列（直近2年の日次データ）を返す
func (s *KPIService) ForecastInput(storeID, metric string) ([]models.SeriesPoint, error) {
	start := s.now().AddDate(0, 0, -forecastInputDays)
	return s.store.DailySeries(metric, storeID, dateStr(start))
}

func dateStr(t time.Time) string {
	return t.Format("2006-01-02")
}

// shiftMonthForward YYYY-MM を1年進める。解析できない値はそのまま返す。
func shiftMonthForward(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.AddDate(1, 0, 0).Format("2006-01")
}
