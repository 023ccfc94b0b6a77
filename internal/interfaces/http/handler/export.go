package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookforge-api/internal/application/export"
	"bookforge-api/internal/interfaces/http/dto"
)

// ExportHandler 文档导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// PDF 编译 PDF 并以附件返回
// @Summary 导出 PDF
// @Tags Export
// @Accept json
// @Produce application/pdf
// @Router /v1/export/pdf [post]
func (h *ExportHandler) PDF(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}

	data, err := export.BuildPDF(req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}

	filename := export.Slugify(req.Title) + ".pdf"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// EPUB 编译 EPUB 并以附件返回
// @Summary 导出 EPUB
// @Tags Export
// @Accept json
// @Produce application/epub+zip
// @Router /v1/export/epub [post]
func (h *ExportHandler) EPUB(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}

	data, err := export.BuildEPUB(req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}

	filename := export.Slugify(req.Title) + ".epub"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/epub+zip", data)
}
