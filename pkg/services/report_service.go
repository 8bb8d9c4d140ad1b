package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"codot-dashboard-api/pkg/models"
	"codot-dashboard-api/pkg/openai"
	"codot-dashboard-api/pkg/store"
)

// FallbackRecommendations 外部テキスト生成サービスが利用できない場合の
// 決定的なオフライン推奨リスト
const FallbackRecommendations = `- スタジオの予約空き状況を確認し、ピークタイムの効率的な運用を検討する
- 顧客満足度調査を実施し、サービス品質の向上点を特定する
- 新規顧客獲得のためのSNSキャンペーンを企画・実行する
- スタッフのスキルアップ研修を計画し、撮影技術の向上を図る
- 季節性商品の提案や限定プランの導入を検討する`

// ReportService 店舗分析レポートを組み立てるサービス。
// KPI集計・予測・AI推奨を統合したMarkdownを生成する。
// レポート生成自体は決して失敗しない: 部分的な取得失敗は
// プレースホルダーの節に置き換えて出力する。
type ReportService struct {
	kpi        *KPIService
	forecaster Forecaster
	ai         *openai.Client
	now        func() time.Time
}

// NewReportService 新しいレポートサービスを生成する
func NewReportService(kpi *KPIService, forecaster Forecaster, ai *openai.Client) *ReportService {
	return &ReportService{
		kpi:        kpi,
		forecaster: forecaster,
		ai:         ai,
		now:        time.Now,
	}
}

// Generate 店舗分析レポートをMarkdownで生成する
func (s *ReportService) Generate(ctx context.Context, storeID string, months int) string {
	kpiData, err := s.kpi.Aggregates(storeID, months)
	if err != nil {
		log.Printf("❌ [レポート] KPI集計に失敗: %v", err)
		return fmt.Sprintf("# エラー\n\nレポート生成中にエラーが発生しました: %v\n", err)
	}

	customerForecast := s.forecastSection("顧客数", storeID, store.MetricCustomers)
	spendForecast := s.forecastSection("客単価", storeID, store.MetricSpend)
	recommendations := s.recommendations(ctx, storeID, kpiData)

	var b strings.Builder
	fmt.Fprintf(&b, "# 店舗分析レポート - %s\n\n", storeID)
	b.WriteString("## 今月の概要\n\n")
	b.WriteString("| 指標 | 値 | 前月比 | 前年同月比 |\n")
	b.WriteString("|------|----|---------|---------|\n")
	fmt.Fprintf(&b, "| 顧客数 | %.0f人 | %s | %s |\n",
		kpiData.Current.Customers,
		changePercent(kpiData.Current.Customers, kpiData.PrevMonth.Customers),
		changePercent(kpiData.Current.Customers, kpiData.PrevYear.Customers))
	fmt.Fprintf(&b, "| 客単価 | %.0f円 | %s | %s |\n",
		kpiData.Current.AverageSpend,
		changePercent(kpiData.Current.AverageSpend, kpiData.PrevMonth.AverageSpend),
		changePercent(kpiData.Current.AverageSpend, kpiData.PrevYear.AverageSpend))
	fmt.Fprintf(&b, "| 生産性 | %.0f円/時 | %s | %s |\n\n",
		kpiData.Current.Productivity,
		changePercent(kpiData.Current.Productivity, kpiData.PrevMonth.Productivity),
		changePercent(kpiData.Current.Productivity, kpiData.PrevYear.Productivity))

	fmt.Fprintf(&b, "## %dか月予測\n\n", ForecastHorizonDays/30)
	fmt.Fprintf(&b, "- %s\n- %s\n\n", customerForecast, spendForecast)

	b.WriteString("## AIコメント\n\n")
	b.WriteString(recommendations)
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "*レポート生成日時: %s*\n", s.now().Format("2006-01-02 15:04:05"))
	return b.String()
}

// forecastSection 1メトリック分の予測サマリー行を作る。
// データ不足や予測失敗はプレースホルダー文に置き換える。
func (s *ReportService) forecastSection(label, storeID, metric string) string {
	series, err := s.kpi.ForecastInput(storeID, metric)
	if err != nil {
		log.Printf("⚠️ [レポート] %s の予測入力取得に失敗: %v", label, err)
		return fmt.Sprintf("%s: 予測データの取得に失敗しました", label)
	}
	points, err := s.forecaster.Forecast(series, ForecastHorizonDays)
	if err != nil {
		log.Printf("⚠️ [レポート] %s の予測に失敗: %v", label, err)
		return fmt.Sprintf("%s: 予測に必要なデータが不足しています", label)
	}
	last := points[len(points)-1]
	return fmt.Sprintf("%s: %d日後の予測値 %.0f（信頼区間 %.0f〜%.0f）",
		label, ForecastHorizonDays, last.Value, last.Lower, last.Upper)
}

// recommendations AIによる推奨アクションを取得する。
// サービス未設定・呼び出し失敗時はオフラインのフォールバックを返す。
func (s *ReportService) recommendations(ctx context.Context, storeID string, kpiData *models.KPIAggregates) string {
	if s.ai == nil || !s.ai.Configured() {
		log.Printf("⚠️ [レポート] OpenAI APIキー未設定のためフォールバック推奨を使用")
		return FallbackRecommendations
	}

	prompt := fmt.Sprintf(`あなたはフォトスタジオ経営コンサルタントです。以下の店舗データを分析して、マネージャーが今日実行すべき具体的なアクションプランを5つ提案してください。

店舗ID: %s

現在の指標:
- 顧客数: %.0f人
- 客単価: %.0f円
- 生産性: %.0f円/時

前月比:
- 顧客数変化: %s
- 客単価変化: %s
- 生産性変化: %s

フォトスタジオ業界の知見を活かして、実行可能で具体的な改善案を箇条書きで5つ提案してください。`,
		storeID,
		kpiData.Current.Customers,
		kpiData.Current.AverageSpend,
		kpiData.Current.Productivity,
		changePercent(kpiData.Current.Customers, kpiData.PrevMonth.Customers),
		changePercent(kpiData.Current.AverageSpend, kpiData.PrevMonth.AverageSpend),
		changePercent(kpiData.Current.Productivity, kpiData.PrevMonth.Productivity))

	messages := []openai.ChatMessage{
		{Role: "system", Content: "あなたはフォトスタジオ経営コンサルタントです。実践的で具体的なアドバイスを提供してください。"},
		{Role: "user", Content: prompt},
	}

	response, err := s.ai.ChatCompletion(ctx, messages, 800, 0.7)
	if err != nil {
		log.Printf("⚠️ [レポート] AI推奨の取得に失敗: %v", err)
		return FallbackRecommendations
	}
	return response
}

// changePercent 変化率を整形する。比較元がゼロの場合は N/A。
func changePercent(current, previous float64) string {
	if previous == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%+.1f%%", (current-previous)/previous*100)
}
