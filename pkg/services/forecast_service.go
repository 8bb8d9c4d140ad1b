package services

import (
	"fmt"
	"math"
	"time"

	"codot-dashboard-api/pkg/models"
)

// 予測パラメータ
const (
	// ForecastHorizonDays トレンドチャート用の予測期間（約6か月）
	ForecastHorizonDays = 180
	// minForecastObservations 予測に必要な最低観測数
	minForecastObservations = 10
	// forecastZScore 95%信頼区間のz値
	forecastZScore = 1.96
)

// Forecaster 予測コラボレーターのインターフェース。
// モデル内部は差し替え可能なブラックボックスとして扱い、
// 日付付き系列を受け取って信頼区間付きの予測系列を返す。
type Forecaster interface {
	Forecast(series []models.SeriesPoint, horizonDays int) ([]models.ForecastPoint, error)
}

// LinearForecastService 線形回帰ベースの既定予測実装。
// 予測値まわりの信頼区間は残差の標準偏差から求める。
type LinearForecastService struct{}

// NewLinearForecastService 新しい予測サービスを生成する
func NewLinearForecastService() *LinearForecastService {
	return &LinearForecastService{}
}

// Forecast 日次系列の先をhorizonDays日分予測する
func (s *LinearForecastService) Forecast(series []models.SeriesPoint, horizonDays int) ([]models.ForecastPoint, error) {
	if len(series) < minForecastObservations {
		return nil, fmt.Errorf("予測には最低%d件のデータが必要です（現在%d件）", minForecastObservations, len(series))
	}
	if horizonDays <= 0 {
		return nil, fmt.Errorf("予測期間は1日以上を指定してください")
	}

	// 日付を先頭日からの経過日数に変換して回帰
	base, err := time.Parse("2006-01-02", series[0].Date)
	if err != nil {
		return nil, fmt.Errorf("系列の日付の解析に失敗: %w", err)
	}
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	lastDay := 0.0
	for i, p := range series {
		t, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, fmt.Errorf("系列の日付の解析に失敗: %w", err)
		}
		xs[i] = t.Sub(base).Hours() / 24
		ys[i] = p.Value
		if xs[i] > lastDay {
			lastDay = xs[i]
		}
	}

	slope, intercept := linearFit(xs, ys)

	// 残差の標準偏差 = 予測の不確実性
	residuals := make([]float64, len(xs))
	for i := range xs {
		residuals[i] = ys[i] - (slope*xs[i] + intercept)
	}
	margin := forecastZScore * standardDeviation(residuals)

	points := make([]models.ForecastPoint, 0, horizonDays)
	for d := 1; d <= horizonDays; d++ {
		day := lastDay + float64(d)
		value := slope*day + intercept
		points = append(points, models.ForecastPoint{
			Date:  base.AddDate(0, 0, int(day)).Format("2006-01-02"),
			Value: value,
			Lower: value - margin,
			Upper: value + margin,
		})
	}
	return points, nil
}

// linearFit 最小二乗法で傾きと切片を求める
func linearFit(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func standardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
