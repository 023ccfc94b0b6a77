// Package app 负责装配应用依赖
package app

import (
	"bookforge-api/internal/application/bookgen"
	"bookforge-api/internal/application/export"
	"bookforge-api/internal/application/jobs"
	"bookforge-api/internal/config"
	"bookforge-api/internal/domain/repository"
	"bookforge-api/internal/infrastructure/email"
	"bookforge-api/internal/infrastructure/imagegen"
	"bookforge-api/internal/infrastructure/llm"
	"bookforge-api/internal/infrastructure/messaging"
	"bookforge-api/internal/infrastructure/persistence/postgres"
	"bookforge-api/internal/infrastructure/persistence/redis"
	"bookforge-api/internal/infrastructure/speech"
	"bookforge-api/internal/infrastructure/storage"
)

// Generation 生成链路的装配结果
// API 进程与 worker 进程共享同一套装配逻辑
type Generation struct {
	Steps    *bookgen.StepLibrary
	Cover    bookgen.CoverRenderer
	Audio    *bookgen.AudiobookSynthesizer
	Pipeline *bookgen.Pipeline
	Jobs     *jobs.Service
	Books    repository.BookRepository
	Profiles repository.ProfileRepository
	JobRepo  repository.JobRepository
}

// BuildGeneration 装配生成链路
// 未配置凭证的可选服务商装配为 nil，流水线按未配置阶段处理
func BuildGeneration(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, producer *messaging.Producer) *Generation {
	steps := bookgen.NewStepLibrary(map[string]bookgen.TextProvider{
		bookgen.ProviderClaude: llm.NewAnthropicClient(&cfg.Providers.Anthropic),
		bookgen.ProviderGPT5:   llm.NewOpenAIClient(&cfg.Providers.OpenAI),
	})

	var cover bookgen.CoverRenderer
	if cfg.Providers.Gemini.APIKey != "" {
		cover = imagegen.NewGeminiClient(&cfg.Providers.Gemini)
	}

	var audio *bookgen.AudiobookSynthesizer
	if cfg.Providers.ElevenLabs.APIKey != "" {
		audio = bookgen.NewAudiobookSynthesizer(
			speech.NewElevenLabsClient(&cfg.Providers.ElevenLabs),
			cfg.Providers.ElevenLabs.MaxChunkChars,
		)
	}

	var store bookgen.ArtifactStore
	if sb := storage.NewSupabaseClient(&cfg.Storage); sb.Enabled() {
		store = sb
	}

	var notifier bookgen.Notifier
	if rc := email.NewResendClient(&cfg.Providers.Resend); rc.Enabled() {
		notifier = rc
	}

	books := postgres.NewBookRepository(pg)
	profiles := postgres.NewProfileRepository(pg)

	var jobRepo repository.JobRepository = postgres.NewJobRepository(pg)
	if redisClient != nil {
		jobRepo = redis.NewCachedJobRepository(jobRepo, redisClient)
	}

	pipeline := bookgen.NewPipeline(bookgen.PipelineDeps{
		Steps:    steps,
		Cover:    cover,
		Audio:    audio,
		Notifier: notifier,
		Store:    store,
		Compiler: export.NewCompiler(),
		Books:    books,
		Profiles: profiles,
	})

	// 接口持有具体 nil 指针时不再等于 nil，入队前的空检查会失效
	var publisher jobs.Publisher
	if producer != nil {
		publisher = producer
	}

	return &Generation{
		Steps:    steps,
		Cover:    cover,
		Audio:    audio,
		Pipeline: pipeline,
		Jobs:     jobs.NewService(jobRepo, pipeline, publisher),
		Books:    books,
		Profiles: profiles,
		JobRepo:  jobRepo,
	}
}
