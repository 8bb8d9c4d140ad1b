package etl

import (
	"fmt"
	"io"
	"log"
	"strings"

	"codot-dashboard-api/pkg/excel"
	"codot-dashboard-api/pkg/models"
	"codot-dashboard-api/pkg/store"
)

// RowErrorPreviewLimit 診断に含める行エラーの最大件数
const RowErrorPreviewLimit = 5

// UploadedFile アップロードされたワークブック1つ分のハンドル
type UploadedFile struct {
	Name   string
	Reader io.Reader
}

// DetectSheetTable シート名の部分一致からアップサート先テーブルを決める。
// シート名のルール:
//   - "売上"   → sales_daily
//   - "顧客"   → customers_daily
//   - "客単価" / "単価" → spend_daily
//   - "勤怠"   → labor_daily
//
// 英語シート名（sales / customer / spend / labor / attendance）も受け付ける。
func DetectSheetTable(sheetName string) (string, bool) {
	lower := strings.ToLower(sheetName)
	switch {
	case strings.Contains(sheetName, "売上"), strings.Contains(lower, "sales"):
		return store.TableSales, true
	case strings.Contains(sheetName, "顧客"), strings.Contains(lower, "customer"):
		return store.TableCustomers, true
	case strings.Contains(sheetName, "客単価"), strings.Contains(sheetName, "単価"),
		strings.Contains(lower, "spend"):
		return store.TableSpend, true
	case strings.Contains(sheetName, "勤怠"), strings.Contains(lower, "labor"),
		strings.Contains(lower, "attendance"):
		return store.TableLabor, true
	}
	return "", false
}

// Ingestor 取り込みオーケストレーター。
// ファイル→シート→推定→正規化→アップサートを厳密に逐次実行する。
// 後続シートの挿入/更新判定は先行シートの書き込み結果を観測するため、
// 並行取り込みはサポートしない。
type Ingestor struct {
	store *store.FactStore
}

// NewIngestor 新しいIngestorを生成する
func NewIngestor(factStore *store.FactStore) *Ingestor {
	return &Ingestor{store: factStore}
}

// IngestFiles アップロードされたファイル群を順に処理し、テーブル別の
// 挿入/更新件数とファイル別の診断を返す。ファイル単位の失敗は記録して
// 次のファイルへ進み、決して途中で打ち切らない。
func (ing *Ingestor) IngestFiles(files []UploadedFile) *models.IngestSummary {
	summary := models.NewIngestSummary()

	for _, file := range files {
		diag := ing.ingestFile(file, summary)
		summary.Files = append(summary.Files, diag)
	}
	return summary
}

func (ing *Ingestor) ingestFile(file UploadedFile, summary *models.IngestSummary) models.FileDiagnostic {
	diag := models.FileDiagnostic{FileName: file.Name, Status: models.FileStatusOK}

	sheets, err := excel.ReadWorkbook(file.Reader)
	if err != nil {
		log.Printf("❌ [取り込み] ファイル %s の読み込みに失敗: %v", file.Name, err)
		diag.Status = models.FileStatusFailed
		diag.Error = err.Error()
		return diag
	}
	log.Printf("📊 [取り込み] ファイル %s を処理中（%dシート）", file.Name, len(sheets))

	producedRecords := false
	hadWarning := false
	for _, sheet := range sheets {
		sheetDiag := ing.ingestSheet(file.Name, sheet, summary)
		if sheetDiag.Records > 0 && sheetDiag.UpsertError == "" {
			producedRecords = true
		}
		if sheetDiag.Warning != "" || sheetDiag.UpsertError != "" {
			hadWarning = true
		}
		diag.Sheets = append(diag.Sheets, sheetDiag)
	}

	if !producedRecords || hadWarning {
		diag.Status = models.FileStatusWarning
	}
	return diag
}

func (ing *Ingestor) ingestSheet(fileName string, sheet excel.RawSheet, summary *models.IngestSummary) models.SheetDiagnostic {
	sheetDiag := models.SheetDiagnostic{SheetName: sheet.Name}

	table, ok := DetectSheetTable(sheet.Name)
	if !ok {
		log.Printf("⚠️ [取り込み] シート '%s' の種別を判定できないためスキップ", sheet.Name)
		sheetDiag.Warning = "シート種別を判定できませんでした"
		return sheetDiag
	}
	sheetDiag.Table = table

	nonEmpty := 0
	for _, row := range sheet.Rows {
		if !excel.IsRowEmpty(row) {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		log.Printf("⚠️ [取り込み] シート '%s' は空のためスキップ", sheet.Name)
		sheetDiag.Warning = "シートが空です"
		return sheetDiag
	}

	result := excel.Infer(sheet)
	sheetDiag.Quality = result.Quality

	sourceLabel := fmt.Sprintf("%s/%s", fileName, sheet.Name)
	records, rowErrors := Normalize(result.DataRows, result.Mapping, sourceLabel)
	sheetDiag.Records = len(records)
	if len(rowErrors) > RowErrorPreviewLimit {
		rowErrors = rowErrors[:RowErrorPreviewLimit]
	}
	sheetDiag.RowErrors = rowErrors

	if len(records) == 0 {
		log.Printf("⚠️ [取り込み] シート '%s' から有効なレコードが得られませんでした", sheet.Name)
		sheetDiag.Warning = "有効なレコードがありません"
		return sheetDiag
	}

	upsert, err := ing.store.Upsert(table, records)
	if err != nil {
		// 永続化の失敗は診断に記録し、残りのシートの処理は継続する
		log.Printf("❌ [取り込み] テーブル %s への書き込みに失敗: %v", table, err)
		sheetDiag.UpsertError = err.Error()
		return sheetDiag
	}

	log.Printf("✅ [取り込み] シート '%s' → %s: %d件挿入 / %d件更新",
		sheet.Name, table, upsert.InsertedRows, upsert.UpdatedRows)
	summary.AddTableResult(table, upsert)
	return sheetDiag
}
