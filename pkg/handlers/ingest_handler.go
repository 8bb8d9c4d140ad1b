package handlers

import (
	"log"
	"net/http"
	"strings"

	"codot-dashboard-api/pkg/etl"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes マルチパートアップロードの上限（32MB）
const maxUploadBytes = 32 << 20

// IngestHandler Excel取り込みAPIのハンドラー
type IngestHandler struct {
	ingestor *etl.Ingestor
}

// NewIngestHandler 新しいIngestHandlerを生成する
func NewIngestHandler(ingestor *etl.Ingestor) *IngestHandler {
	return &IngestHandler{ingestor: ingestor}
}

// IngestFiles CodotのExcelエクスポートをまとめて受け取り、ファクトストアへ
// アップサートする。レスポンスはテーブル別の挿入/更新件数とファイル別診断。
func (h *IngestHandler) IngestFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "マルチパートフォームの解析に失敗しました。",
		})
		return
	}

	form := c.Request.MultipartForm
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "ファイルが指定されていません。'files' フィールドに.xlsxを添付してください。",
		})
		return
	}

	var uploads []etl.UploadedFile
	var openedCloser []func()
	for _, fh := range fileHeaders {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "サポートされていないファイル形式です。.xlsxをアップロードしてください。",
			})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "ファイルの取得に失敗しました。",
			})
			return
		}
		openedCloser = append(openedCloser, func() { f.Close() })
		uploads = append(uploads, etl.UploadedFile{Name: fh.Filename, Reader: f})
	}
	defer func() {
		for _, close := range openedCloser {
			close()
		}
	}()

	log.Printf("📊 [取り込みAPI] %dファイルの取り込みを開始", len(uploads))
	summary := h.ingestor.IngestFiles(uploads)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}
