package services

import (
	"context"
	"testing"
	"time"

	"codot-dashboard-api/pkg/models"
	"codot-dashboard-api/pkg/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReportService(t *testing.T, records []models.FactRecord) *ReportService {
	t.Helper()
	kpi := newSeededKPIService(t, "2024-02-01", records)
	svc := NewReportService(kpi, NewLinearForecastService(), nil)
	svc.now = func() time.Time {
		fixed, _ := time.Parse("2006-01-02 15:04:05", "2024-02-01 09:00:00")
		return fixed
	}
	return svc
}

func TestGenerateReportStructure(t *testing.T) {
	svc := newTestReportService(t, []models.FactRecord{
		{Date: "2024-01-15", StoreID: "ST001", CustomerCount: 10, AverageSpend: 1000, SalesAmount: 10000, WorkHours: 8},
		{Date: "2024-01-20", StoreID: "ST001", CustomerCount: 20, AverageSpend: 2000, SalesAmount: 40000, WorkHours: 8},
	})

	report := svc.Generate(context.Background(), "ST001", 1)

	assert.Contains(t, report, "# 店舗分析レポート - ST001")
	assert.Contains(t, report, "## 今月の概要")
	assert.Contains(t, report, "| 顧客数 | 30人")
	assert.Contains(t, report, "| 客単価 | 1500円")
	assert.Contains(t, report, "## 6か月予測")
	assert.Contains(t, report, "## AIコメント")
	assert.Contains(t, report, "*レポート生成日時: 2024-02-01 09:00:00*")
}

func TestGenerateReportFallbackRecommendations(t *testing.T) {
	// OpenAIクライアント未設定時は決定的なフォールバック推奨を使う
	svc := newTestReportService(t, []models.FactRecord{
		{Date: "2024-01-15", StoreID: "ST001", CustomerCount: 10, AverageSpend: 1000, SalesAmount: 10000, WorkHours: 8},
	})

	report := svc.Generate(context.Background(), "ST001", 1)
	assert.Contains(t, report, FallbackRecommendations)
}

func TestGenerateReportUnconfiguredClientFallsBack(t *testing.T) {
	// APIキーが空のクライアントもフォールバック扱い
	kpi := newSeededKPIService(t, "2024-02-01", []models.FactRecord{
		{Date: "2024-01-15", StoreID: "ST001", CustomerCount: 10, AverageSpend: 1000, SalesAmount: 10000, WorkHours: 8},
	})
	svc := NewReportService(kpi, NewLinearForecastService(), openai.NewClient("", "", "gpt-4o-mini"))

	report := svc.Generate(context.Background(), "ST001", 1)
	assert.Contains(t, report, FallbackRecommendations)
}

func TestGenerateReportInsufficientForecastData(t *testing.T) {
	// 観測数が足りない場合、予測の節はプレースホルダー文になる
	svc := newTestReportService(t, []models.FactRecord{
		{Date: "2024-01-15", StoreID: "ST001", CustomerCount: 10, AverageSpend: 1000, SalesAmount: 10000, WorkHours: 8},
	})

	report := svc.Generate(context.Background(), "ST001", 1)
	assert.Contains(t, report, "顧客数: 予測に必要なデータが不足しています")
	assert.Contains(t, report, "客単価: 予測に必要なデータが不足しています")
}

func TestGenerateReportWithForecast(t *testing.T) {
	// 十分な観測数があれば予測サマリー行が出る
	records := make([]models.FactRecord, 0, 30)
	base, _ := time.Parse("2006-01-02", "2024-01-01")
	for i := 0; i < 30; i++ {
		records = append(records, models.FactRecord{
			Date:          base.AddDate(0, 0, i).Format("2006-01-02"),
			StoreID:       "ST001",
			CustomerCount: 10 + i,
			AverageSpend:  1000,
			SalesAmount:   float64((10 + i) * 1000),
			WorkHours:     8,
		})
	}
	svc := newTestReportService(t, records)

	report := svc.Generate(context.Background(), "ST001", 1)
	assert.Contains(t, report, "顧客数: 180日後の予測値")
	assert.Contains(t, report, "信頼区間")
}

func TestGenerateReportNAOnZeroBaseline(t *testing.T) {
	// 前月・前年にデータが無い場合の変化率は N/A
	svc := newTestReportService(t, []models.FactRecord{
		{Date: "2024-01-15", StoreID: "ST001", CustomerCount: 10, AverageSpend: 1000, SalesAmount: 10000, WorkHours: 8},
	})

	report := svc.Generate(context.Background(), "ST001", 1)
	assert.Contains(t, report, "N/A")
}

func TestChangePercent(t *testing.T) {
	assert.Equal(t, "N/A", changePercent(100, 0))
	assert.Equal(t, "+10.0%", changePercent(110, 100))
	assert.Equal(t, "-25.0%", changePercent(75, 100))
	require.Equal(t, "+0.0%", changePercent(100, 100))
}
