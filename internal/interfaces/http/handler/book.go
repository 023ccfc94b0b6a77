package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookforge-api/internal/application/bookgen"
	"bookforge-api/internal/application/export"
	"bookforge-api/internal/application/jobs"
	"bookforge-api/internal/application/plan"
	"bookforge-api/internal/domain/repository"
	"bookforge-api/internal/interfaces/http/dto"
	"bookforge-api/pkg/errors"
)

// BookHandler 图书生成处理器
type BookHandler struct {
	pipeline *bookgen.Pipeline
	jobs     *jobs.Service
	steps    *bookgen.StepLibrary
	cover    bookgen.CoverRenderer
	audio    *bookgen.AudiobookSynthesizer
	books    repository.BookRepository
}

// NewBookHandler 创建图书生成处理器
func NewBookHandler(
	pipeline *bookgen.Pipeline,
	jobService *jobs.Service,
	steps *bookgen.StepLibrary,
	cover bookgen.CoverRenderer,
	audio *bookgen.AudiobookSynthesizer,
	books repository.BookRepository,
) *BookHandler {
	return &BookHandler{
		pipeline: pipeline,
		jobs:     jobService,
		steps:    steps,
		cover:    cover,
		audio:    audio,
		books:    books,
	}
}

// Generate 同步执行完整生成流水线
// @Summary 生成图书
// @Tags Books
// @Accept json
// @Produce json
// @Router /v1/books/generate [post]
func (h *BookHandler) Generate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req bookgen.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), userID, &req, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, result)
}

// GenerateAsync 提交异步生成任务
// @Summary 提交图书生成任务
// @Tags Books
// @Accept json
// @Produce json
// @Router /v1/books/generate-async [post]
func (h *BookHandler) GenerateAsync(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req bookgen.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}
	// 入队前完成缺省填充，worker 侧反序列化后拿到的就是最终参数
	req.Normalize()

	job, err := h.jobs.Enqueue(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Accepted(c, dto.NewJobAccepted(job))
}

// Outline 只生成大纲，不创建图书记录、不扣减额度
// @Summary 生成图书大纲
// @Tags Books
// @Accept json
// @Produce json
// @Router /v1/books/outline [post]
func (h *BookHandler) Outline(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req bookgen.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}
	req.Normalize()

	outline, err := h.steps.GenerateOutline(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, gin.H{
		"outline":      outline,
		"cover_prompt": bookgen.CoverPrompt(outline, &req),
		"model_used":   h.steps.ModelLabel(req.Provider),
	})
}

// Cover 独立生成一张封面图
// @Summary 生成封面图
// @Tags Books
// @Accept json
// @Produce json
// @Router /v1/books/cover [post]
func (h *BookHandler) Cover(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req dto.CoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Plan == "" {
		req.Plan = plan.TierStarter
	}
	if !plan.Allows(req.Plan, plan.CapabilityCover) {
		respondError(c, errors.PermissionDenied(string(plan.CapabilityCover)))
		return
	}
	if h.cover == nil {
		respondError(c, errors.New(errors.CodeServiceUnavailable, "cover renderer is not configured"))
		return
	}

	imageBase64, mimeType, err := h.cover.Render(c.Request.Context(), req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.CoverResponse{ImageBase64: imageBase64, MimeType: mimeType})
}

// Audiobook 合成有声书试听并以附件返回音频流
// @Summary 合成有声书
// @Tags Books
// @Accept json
// @Produce audio/mpeg
// @Router /v1/books/audiobook [post]
func (h *BookHandler) Audiobook(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req dto.AudiobookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Plan == "" {
		req.Plan = plan.TierStarter
	}
	if !plan.Allows(req.Plan, plan.CapabilityAudiobook) {
		respondError(c, errors.PermissionDenied(string(plan.CapabilityAudiobook)))
		return
	}
	if h.audio == nil {
		respondError(c, errors.New(errors.CodeServiceUnavailable, "speech synthesizer is not configured"))
		return
	}

	result, err := h.audio.Synthesize(c.Request.Context(), req.Text, req.VoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := export.Slugify(req.Title) + ".mp3"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("X-Audio-Chunks", fmt.Sprintf("%d", result.Chunks))
	c.Data(http.StatusOK, result.MimeType, result.Audio)
}

// List 获取当前用户的图书列表
// @Summary 图书列表
// @Tags Books
// @Produce json
// @Router /v1/books [get]
func (h *BookHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	books, err := h.books.ListByUser(c.Request.Context(), userID, 50)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.NewBookSummaries(books))
}
