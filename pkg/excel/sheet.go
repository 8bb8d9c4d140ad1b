package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// RawSheet ワークシート1枚を行×列の型なし矩形として保持する。
// 正規化が終わったら破棄される一時データ。
type RawSheet struct {
	Name string
	Rows [][]CellValue
}

// ReadWorkbook アップロードされたxlsxを読み取り、全シートをRawSheetとして返す
func ReadWorkbook(r io.Reader) ([]RawSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("Excelファイルの読み込みに失敗: %w", err)
	}
	defer f.Close()

	var sheets []RawSheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("シート '%s' の行取得に失敗: %w", name, err)
		}
		sheet := RawSheet{Name: name, Rows: make([][]CellValue, 0, len(rows))}
		for _, row := range rows {
			cells := make([]CellValue, len(row))
			for i, raw := range row {
				cells[i] = ParseCell(raw)
			}
			sheet.Rows = append(sheet.Rows, cells)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// IsRowEmpty 行が全て空セルかどうか
func IsRowEmpty(row []CellValue) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}
