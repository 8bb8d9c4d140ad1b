package etl

import (
	"codot-dashboard-api/pkg/excel"
	"codot-dashboard-api/pkg/models"
)

// DefaultWorkHours 勤怠列が無い/解析できない場合の1日あたり標準労働時間。
// 導出値ではなく業務上の固定デフォルト。
const DefaultWorkHours = 8.0

// Normalize 推定済みマッピングを使って生データ行を正規形のファクトレコードに変換する。
//
// date と store は必須。マッピングされた列が無い行・セルが空の行は
// 「構造的にファクトが存在しない」とみなして黙ってスキップし、
// 値が存在するのに解析できない場合のみ RowError として収集する。
// メトリック列の解析失敗は黙ってデフォルト値に落とす。
// 出力順は入力行順。エラーは戻り値で返し、呼び出し側へ例外として伝播しない。
func Normalize(dataRows [][]excel.CellValue, mapping models.ColumnMapping, sourceLabel string) ([]models.FactRecord, []models.RowError) {
	var records []models.FactRecord
	var rowErrors []models.RowError

	if !mapping.Has(models.FieldDate) || !mapping.Has(models.FieldStore) {
		return nil, nil
	}

	for i, row := range dataRows {
		if excel.IsRowEmpty(row) {
			continue
		}
		rowNo := i + 1

		dateCell := cellAt(row, mapping[models.FieldDate])
		if dateCell.IsBlank() {
			continue
		}
		date, ok := dateCell.AsDate()
		if !ok {
			rowErrors = append(rowErrors, models.RowError{
				Source: sourceLabel,
				Row:    rowNo,
				Field:  string(models.FieldDate),
				Value:  dateCell.AsString(),
				Reason: "日付として解釈できません",
			})
			continue
		}

		storeCell := cellAt(row, mapping[models.FieldStore])
		storeID := storeCell.AsString()
		if storeID == "" {
			continue
		}

		record := models.FactRecord{
			Date:      date,
			StoreID:   storeID,
			WorkHours: DefaultWorkHours,
		}
		if col, ok := mapping[models.FieldCustomerCount]; ok {
			if n, ok := cellAt(row, col).AsInt(); ok {
				record.CustomerCount = n
			}
		}
		if col, ok := mapping[models.FieldAverageSpend]; ok {
			if n, ok := cellAt(row, col).AsFloat(); ok {
				record.AverageSpend = n
			}
		}
		if col, ok := mapping[models.FieldSalesAmount]; ok {
			if n, ok := cellAt(row, col).AsFloat(); ok {
				record.SalesAmount = n
			}
		}
		if col, ok := mapping[models.FieldWorkHours]; ok {
			if n, ok := cellAt(row, col).AsFloat(); ok {
				record.WorkHours = n
			}
		}

		applyDerivations(&record)
		records = append(records, record)
	}

	return records, rowErrors
}

// applyDerivations 欠落メトリックを関連する2値から補完する。適用順は固定:
// 売上が無ければ 客数×客単価、さもなくば客単価が無ければ 売上÷客数。
func applyDerivations(r *models.FactRecord) {
	if r.SalesAmount == 0 && r.CustomerCount > 0 && r.AverageSpend > 0 {
		r.SalesAmount = float64(r.CustomerCount) * r.AverageSpend
	} else if r.AverageSpend == 0 && r.CustomerCount > 0 && r.SalesAmount > 0 {
		r.AverageSpend = r.SalesAmount / float64(r.CustomerCount)
	}
}

func cellAt(row []excel.CellValue, col int) excel.CellValue {
	if col < 0 || col >= len(row) {
		return excel.CellValue{}
	}
	return row[col]
}
