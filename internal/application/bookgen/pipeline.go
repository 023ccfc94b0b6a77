package bookgen

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bookforge-api/internal/application/export"
	"bookforge-api/internal/application/plan"
	"bookforge-api/internal/domain/entity"
	"bookforge-api/internal/domain/repository"
	"bookforge-api/pkg/errors"
	"bookforge-api/pkg/logger"
	"bookforge-api/pkg/metrics"
	"bookforge-api/pkg/tracer"
)

// 流水线阶段名，按执行顺序排列
const (
	StepQueued       = "queued"
	StepOutline      = "outline"
	StepChapter1     = "chapter_1"
	StepListing      = "listing"
	StepFullChapters = "full_chapters"
	StepCover        = "cover"
	StepAudiobook    = "audiobook"
	StepCompile      = "compile"
	StepUpload       = "upload"
	StepNotify       = "notify"
	StepCompleted    = "completed"
)

// stageProgress 各阶段开始时上报的进度检查点
var stageProgress = map[string]int{
	StepOutline:      5,
	StepChapter1:     20,
	StepListing:      35,
	StepFullChapters: 45,
	StepCover:        65,
	StepAudiobook:    72,
	StepCompile:      82,
	StepUpload:       90,
	StepNotify:       96,
	StepCompleted:    100,
}

// Pipeline 图书生成流水线
// 致命阶段：大纲、第一章、编译、落库；其余阶段失败只记录说明并继续
type Pipeline struct {
	steps    *StepLibrary
	cover    CoverRenderer
	audio    *AudiobookSynthesizer
	notifier Notifier
	store    ArtifactStore
	compiler *export.Compiler
	books    repository.BookRepository
	profiles repository.ProfileRepository
}

// PipelineDeps 流水线依赖
// cover/audio/notifier/store 可为 nil，对应可选阶段按未配置处理
type PipelineDeps struct {
	Steps    *StepLibrary
	Cover    CoverRenderer
	Audio    *AudiobookSynthesizer
	Notifier Notifier
	Store    ArtifactStore
	Compiler *export.Compiler
	Books    repository.BookRepository
	Profiles repository.ProfileRepository
}

// NewPipeline 创建流水线
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		steps:    deps.Steps,
		cover:    deps.Cover,
		audio:    deps.Audio,
		notifier: deps.Notifier,
		store:    deps.Store,
		compiler: deps.Compiler,
		books:    deps.Books,
		profiles: deps.Profiles,
	}
}

// Run 执行一次完整生成
// 计划门控与额度检查在任何服务商调用之前完成；
// 图书记录先于生成创建，成功或失败时各更新一次；
// 成功路径在编译落库后恰好扣减一个额度
func (p *Pipeline) Run(ctx context.Context, userID string, req *BookRequest, sink ProgressSink) (*GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	req.Normalize()
	start := time.Now()

	if err := plan.Validate(req.Plan, req.RequestedCapabilities()); err != nil {
		metrics.BookGenerationTotal.WithLabelValues(string(req.Plan), "denied").Inc()
		return nil, err
	}

	profile, err := p.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.ErrProfileNotFound
	}
	if !profile.HasCredit() {
		metrics.BookGenerationTotal.WithLabelValues(string(req.Plan), "no_credit").Inc()
		return nil, errors.ErrInsufficientCredit
	}

	book := entity.NewBook(uuid.NewString(), userID, req.Genre, string(req.Plan))
	if err := p.books.Create(ctx, book); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to create book record")
	}
	ctx = logger.WithContext(ctx, logger.BookIDKey, book.ID)

	result, err := p.generate(ctx, userID, book, req, sink)
	status := "success"
	if err != nil {
		status = "failed"
		book.MarkFailed(errors.AsAppError(err).Message)
		if uerr := p.books.Update(ctx, book); uerr != nil {
			logger.Error(ctx, "failed to mark book failed", uerr)
		}
	}
	metrics.BookGenerationTotal.WithLabelValues(string(req.Plan), status).Inc()
	metrics.BookGenerationDuration.WithLabelValues(string(req.Plan)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return result, nil
}

// report 上报一次进度检查点
func (p *Pipeline) report(sink ProgressSink, step string) {
	if sink != nil {
		sink(stageProgress[step], step)
	}
}

// generate 执行各生成阶段，调用方负责失败时标记图书记录
func (p *Pipeline) generate(ctx context.Context, userID string, book *entity.Book, req *BookRequest, sink ProgressSink) (*GenerationResult, error) {
	result := &GenerationResult{
		BookID:    book.ID,
		ModelUsed: p.steps.ModelLabel(req.Provider),
		Notes:     []string{},
	}

	// 大纲（致命）
	p.report(sink, StepOutline)
	outline, err := p.steps.GenerateOutline(ctx, req)
	if err != nil {
		metrics.StageFailuresTotal.WithLabelValues(StepOutline, "fatal").Inc()
		return nil, err
	}
	result.Outline = outline

	// 第一章（致命）
	p.report(sink, StepChapter1)
	chapter1, err := p.steps.WriteFirstChapter(ctx, outline, req)
	if err != nil {
		metrics.StageFailuresTotal.WithLabelValues(StepChapter1, "fatal").Inc()
		return nil, err
	}
	result.Chapter1Preview = chapter1

	// 商品信息（解析失败降级为空对象）
	p.report(sink, StepListing)
	result.Listing = p.steps.GenerateListing(ctx, outline, req)
	result.CoverPrompt = CoverPrompt(outline, req)

	// 全书章节（勾选时致命）
	if req.GenerateFullBook {
		p.report(sink, StepFullChapters)
		chapters, err := p.steps.WriteFullBookChapters(ctx, outline, req, chapter1)
		if err != nil {
			metrics.StageFailuresTotal.WithLabelValues(StepFullChapters, "fatal").Inc()
			return nil, err
		}
		result.FullChapters = chapters
	}

	// 封面（非致命）
	if req.GenerateCover {
		p.report(sink, StepCover)
		p.renderCover(ctx, result)
	}

	// 有声书（非致命）
	if req.GenerateAudiobook {
		p.report(sink, StepAudiobook)
		p.synthesizeAudiobook(ctx, req, result, outline, chapter1)
	}

	// 编译（致命）
	p.report(sink, StepCompile)
	artifacts, err := p.compiler.Compile(buildExportModel(req, outline, chapter1, result.FullChapters))
	if err != nil {
		metrics.StageFailuresTotal.WithLabelValues(StepCompile, "fatal").Inc()
		return nil, errors.ErrCompileFailed.WithError(err)
	}

	// 上传（单项非致命）
	var urls entity.ArtifactURLs
	if p.store != nil {
		p.report(sink, StepUpload)
		urls = p.uploadArtifacts(ctx, userID, book.ID, artifacts, result)
	}
	result.DocumentURL = urls.Document
	result.EbookURL = urls.Ebook
	result.CoverURL = urls.Cover
	result.AudioURL = urls.Audio

	// 落库（致命）
	book.MarkReady(outline.Title, urls)
	if err := p.books.Update(ctx, book); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to persist book record")
	}

	// 编译落库成功后恰好扣减一个额度
	if err := p.profiles.DecrementCredit(ctx, userID); err != nil {
		logger.Error(ctx, "credit decrement failed after successful generation", err)
	}

	// 通知（非致命）
	p.notify(ctx, req, result, outline)

	p.report(sink, StepCompleted)
	logger.Info(ctx, "book generation completed", "title", outline.Title, "notes", len(result.Notes))
	return result, nil
}

// renderCover 执行封面阶段，失败追加说明
func (p *Pipeline) renderCover(ctx context.Context, result *GenerationResult) {
	if p.cover == nil {
		result.AddNote("Cover generation skipped: cover renderer is not configured")
		metrics.StageFailuresTotal.WithLabelValues(StepCover, "non_fatal").Inc()
		return
	}
	imageBase64, mimeType, err := p.cover.Render(ctx, result.CoverPrompt)
	if err != nil {
		result.AddNote(fmt.Sprintf("Cover generation skipped: %s", errors.AsAppError(err).Message))
		metrics.StageFailuresTotal.WithLabelValues(StepCover, "non_fatal").Inc()
		logger.Warn(ctx, "cover generation failed, continuing", "error", err.Error())
		return
	}
	result.CoverImageBase64 = imageBase64
	result.CoverImageMime = mimeType
}

// synthesizeAudiobook 执行有声书阶段，失败追加说明
func (p *Pipeline) synthesizeAudiobook(ctx context.Context, req *BookRequest, result *GenerationResult, outline *BookOutline, chapter1 string) {
	if p.audio == nil {
		result.AddNote("Audiobook generation skipped: speech synthesizer is not configured")
		metrics.StageFailuresTotal.WithLabelValues(StepAudiobook, "non_fatal").Inc()
		return
	}
	script := BuildAudiobookScript(outline, chapter1, result.FullChapters)
	audio, err := p.audio.Synthesize(ctx, script, req.VoiceID)
	if err != nil {
		result.AddNote(fmt.Sprintf("Audiobook generation skipped: %s", errors.AsAppError(err).Message))
		metrics.StageFailuresTotal.WithLabelValues(StepAudiobook, "non_fatal").Inc()
		logger.Warn(ctx, "audiobook synthesis failed, continuing", "error", err.Error())
		return
	}
	result.AudiobookBase64 = base64.StdEncoding.EncodeToString(audio.Audio)
	result.AudiobookMime = audio.MimeType
	result.AudiobookChunks = audio.Chunks
}

// uploadArtifacts 上传成品文件，单项失败追加说明且不影响其余上传
func (p *Pipeline) uploadArtifacts(ctx context.Context, userID, bookID string, artifacts *export.Artifacts, result *GenerationResult) entity.ArtifactURLs {
	var urls entity.ArtifactURLs

	upload := func(filename string, content []byte, contentType, label string) string {
		url, err := p.store.Upload(ctx, userID, bookID, filename, content, contentType)
		if err != nil {
			result.AddNote(fmt.Sprintf("%s upload skipped: %s", label, errors.AsAppError(err).Message))
			metrics.StageFailuresTotal.WithLabelValues(StepUpload, "non_fatal").Inc()
			logger.Warn(ctx, "artifact upload failed, continuing", "file", filename, "error", err.Error())
			return ""
		}
		return url
	}

	urls.Document = upload("document.pdf", artifacts.PDF, "application/pdf", "Document")
	urls.Ebook = upload("book.epub", artifacts.EPUB, "application/epub+zip", "Ebook")

	if result.CoverImageBase64 != "" {
		coverBytes, err := base64.StdEncoding.DecodeString(result.CoverImageBase64)
		if err != nil {
			result.AddNote("Cover upload skipped: invalid image encoding")
			metrics.StageFailuresTotal.WithLabelValues(StepUpload, "non_fatal").Inc()
		} else {
			urls.Cover = upload("cover"+extensionForMime(result.CoverImageMime), coverBytes, result.CoverImageMime, "Cover")
		}
	}

	if result.AudiobookBase64 != "" {
		audioBytes, err := base64.StdEncoding.DecodeString(result.AudiobookBase64)
		if err != nil {
			result.AddNote("Audiobook upload skipped: invalid audio encoding")
			metrics.StageFailuresTotal.WithLabelValues(StepUpload, "non_fatal").Inc()
		} else {
			urls.Audio = upload("audiobook.mp3", audioBytes, result.AudiobookMime, "Audiobook")
		}
	}
	return urls
}

// notify 发送完成通知，未配置收件人或服务商时静默跳过
func (p *Pipeline) notify(ctx context.Context, req *BookRequest, result *GenerationResult, outline *BookOutline) {
	if req.RecipientEmail == "" || p.notifier == nil || !p.notifier.Enabled() {
		return
	}
	err := p.notifier.SendBookReady(ctx, BookReadyEmail{
		To:                req.RecipientEmail,
		Title:             outline.Title,
		Genre:             req.Genre,
		Plan:              string(req.Plan),
		ModelLabel:        result.ModelUsed,
		IncludesFullBook:  len(result.FullChapters) > 0,
		IncludesCover:     result.CoverImageBase64 != "",
		IncludesAudiobook: result.AudiobookBase64 != "",
	})
	if err != nil {
		result.AddNote(fmt.Sprintf("Notification skipped: %s", errors.AsAppError(err).Message))
		metrics.StageFailuresTotal.WithLabelValues(StepNotify, "non_fatal").Inc()
		logger.Warn(ctx, "notification dispatch failed, continuing", "error", err.Error())
		return
	}
	result.NotificationSent = true
}

// buildExportModel 将生成结果组装为规范导出模型
// 第一章始终使用完整正文，其余章节无正文时由编译器渲染摘要占位
func buildExportModel(req *BookRequest, outline *BookOutline, chapter1 string, fullChapters []GeneratedChapter) *export.BookModel {
	model := &export.BookModel{
		Title:       outline.Title,
		Subtitle:    outline.Subtitle,
		Author:      req.AuthorName,
		Genre:       req.Genre,
		Language:    req.Language,
		Description: outline.BackCoverDescription,
	}

	if len(fullChapters) > 0 {
		for _, ch := range fullChapters {
			model.Chapters = append(model.Chapters, export.Chapter{
				Number:  ch.Number,
				Title:   ch.Title,
				Summary: ch.Summary,
				Content: ch.Content,
			})
		}
		return model
	}

	if len(outline.Chapters) == 0 {
		model.Chapters = []export.Chapter{{Number: 1, Title: "Chapter 1", Content: chapter1}}
		return model
	}

	for i, stub := range outline.Chapters {
		ch := export.Chapter{Number: stub.Number, Title: stub.Title, Summary: stub.Summary}
		if i == 0 {
			ch.Content = chapter1
		}
		model.Chapters = append(model.Chapters, ch)
	}
	return model
}

// extensionForMime 根据 MIME 类型推断封面文件扩展名
func extensionForMime(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
