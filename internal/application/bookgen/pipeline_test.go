package bookgen

import (
	"context"
	"fmt"
	"testing"

	"bookforge-api/internal/application/export"
	"bookforge-api/internal/application/plan"
	"bookforge-api/internal/domain/entity"
	"bookforge-api/pkg/errors"
)

// fakeBookRepo 内存图书仓储
type fakeBookRepo struct {
	books     map[string]*entity.Book
	createErr error
	updateErr error
	updates   int
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: map[string]*entity.Book{}}
}

func (f *fakeBookRepo) Create(_ context.Context, book *entity.Book) error {
	if f.createErr != nil {
		return f.createErr
	}
	clone := *book
	f.books[book.ID] = &clone
	return nil
}

func (f *fakeBookRepo) GetByID(_ context.Context, id string) (*entity.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, errors.ErrBookNotFound
	}
	return b, nil
}

func (f *fakeBookRepo) Update(_ context.Context, book *entity.Book) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	clone := *book
	f.books[book.ID] = &clone
	return nil
}

func (f *fakeBookRepo) ListByUser(_ context.Context, userID string, _ int) ([]*entity.Book, error) {
	var out []*entity.Book
	for _, b := range f.books {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookRepo) single() *entity.Book {
	for _, b := range f.books {
		return b
	}
	return nil
}

// fakeProfileRepo 内存用户档案仓储
type fakeProfileRepo struct {
	profile    *entity.Profile
	decrements int
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*entity.Profile, error) {
	if f.profile == nil || f.profile.ID != id {
		return nil, errors.ErrProfileNotFound
	}
	return f.profile, nil
}

func (f *fakeProfileRepo) DecrementCredit(_ context.Context, _ string) error {
	if f.profile.CreditsRemaining <= 0 {
		return errors.ErrInsufficientCredit
	}
	f.profile.CreditsRemaining--
	f.decrements++
	return nil
}

func (f *fakeProfileRepo) UpdatePlan(_ context.Context, _ string, planName string) error {
	f.profile.Plan = planName
	return nil
}

// fakeCover 封面渲染桩
type fakeCover struct {
	err   error
	calls int
}

func (f *fakeCover) Render(_ context.Context, _ string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return "aW1hZ2U=", "image/png", nil
}

// fakeNotifier 通知桩
type fakeNotifier struct {
	enabled bool
	err     error
	sent    []BookReadyEmail
}

func (f *fakeNotifier) Enabled() bool { return f.enabled }

func (f *fakeNotifier) SendBookReady(_ context.Context, email BookReadyEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

// fakeStore 成品存储桩
type fakeStore struct {
	uploads map[string][]byte
	failOn  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: map[string][]byte{}, failOn: map[string]bool{}}
}

func (f *fakeStore) Upload(_ context.Context, userID, bookID, filename string, content []byte, _ string) (string, error) {
	if f.failOn[filename] {
		return "", errors.New(errors.CodeStorageError, "bucket unavailable")
	}
	key := userID + "/" + bookID + "/" + filename
	f.uploads[key] = content
	return "https://storage.example/" + key, nil
}

// testPipeline 组装带默认成功依赖的流水线
type testPipeline struct {
	pipeline *Pipeline
	provider *fakeTextProvider
	books    *fakeBookRepo
	profiles *fakeProfileRepo
	cover    *fakeCover
	speech   *fakeSpeech
	notifier *fakeNotifier
	store    *fakeStore
}

func newTestPipeline() *testPipeline {
	provider := &fakeTextProvider{
		label: "Claude Opus 4.6",
		responses: []string{
			outlineJSON("Ocean Hearts", 3),
			"Chapter one prose.",
			`{"title":"KDP Title"}`,
			"Chapter two prose.",
			"Chapter three prose.",
		},
	}
	tp := &testPipeline{
		provider: provider,
		books:    newFakeBookRepo(),
		profiles: &fakeProfileRepo{profile: &entity.Profile{ID: "user-1", Plan: "enterprise", CreditsRemaining: 3}},
		cover:    &fakeCover{},
		speech:   &fakeSpeech{},
		notifier: &fakeNotifier{enabled: true},
		store:    newFakeStore(),
	}
	tp.pipeline = NewPipeline(PipelineDeps{
		Steps:    NewStepLibrary(map[string]TextProvider{ProviderClaude: provider}),
		Cover:    tp.cover,
		Audio:    NewAudiobookSynthesizer(tp.speech, 0),
		Notifier: tp.notifier,
		Store:    tp.store,
		Compiler: export.NewCompiler(),
		Books:    tp.books,
		Profiles: tp.profiles,
	})
	return tp
}

func enterpriseRequest() *BookRequest {
	return &BookRequest{
		Genre:             "romance",
		Plan:              plan.TierEnterprise,
		GenerateFullBook:  true,
		GenerateCover:     true,
		GenerateAudiobook: true,
		RecipientEmail:    "reader@example.com",
	}
}

func TestRunEnterpriseAllProvidersSucceed(t *testing.T) {
	tp := newTestPipeline()

	result, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outline == nil || result.Outline.Title != "Ocean Hearts" {
		t.Error("missing outline")
	}
	if len(result.FullChapters) != 3 {
		t.Errorf("full chapters = %d, want 3", len(result.FullChapters))
	}
	if result.CoverImageBase64 == "" || result.CoverImageMime != "image/png" {
		t.Error("missing cover artifact")
	}
	if result.AudiobookBase64 == "" || result.AudiobookChunks == 0 {
		t.Error("missing audiobook artifact")
	}
	if !result.NotificationSent {
		t.Error("notification not sent")
	}
	if len(result.Notes) != 0 {
		t.Errorf("notes = %v, want empty", result.Notes)
	}

	book := tp.books.single()
	if book.Status != entity.BookStatusReady {
		t.Errorf("book status = %s, want ready", book.Status)
	}
	if book.Title != "Ocean Hearts" {
		t.Errorf("book title = %q", book.Title)
	}
	if book.DocumentURL == "" || book.EbookURL == "" || book.CoverURL == "" || book.AudioURL == "" {
		t.Errorf("missing artifact URLs: %+v", book)
	}
	if tp.profiles.decrements != 1 {
		t.Errorf("credit decrements = %d, want exactly 1", tp.profiles.decrements)
	}
	if tp.profiles.profile.CreditsRemaining != 2 {
		t.Errorf("credits remaining = %d, want 2", tp.profiles.profile.CreditsRemaining)
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	// 封面失败不影响全书章节与有声书产出
	tp := newTestPipeline()
	tp.cover.err = fmt.Errorf("image provider down")

	result, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.FullChapters) != 3 {
		t.Error("full chapters lost")
	}
	if result.AudiobookBase64 == "" {
		t.Error("audiobook lost")
	}
	if result.CoverImageBase64 != "" {
		t.Error("cover should be absent")
	}
	if len(result.Notes) != 1 {
		t.Fatalf("notes = %v, want one cover note", result.Notes)
	}
	if tp.books.single().Status != entity.BookStatusReady {
		t.Error("book should still be ready")
	}
	if tp.profiles.decrements != 1 {
		t.Errorf("credit decrements = %d, want 1", tp.profiles.decrements)
	}
}

func TestRunPermissionDeniedBeforeAnyCall(t *testing.T) {
	tp := newTestPipeline()
	req := enterpriseRequest()
	req.Plan = plan.TierPro // pro 不含 audiobook

	_, err := tp.pipeline.Run(context.Background(), "user-1", req, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodePermissionDenied) {
		t.Fatalf("expected CodePermissionDenied, got %v", err)
	}
	// 门控先于任何服务商调用与记录创建
	if len(tp.provider.prompts) != 0 {
		t.Errorf("provider called %d times before gate", len(tp.provider.prompts))
	}
	if len(tp.books.books) != 0 {
		t.Error("book record created before gate")
	}
	if tp.profiles.decrements != 0 {
		t.Error("credit touched on denied run")
	}
}

func TestRunInsufficientCredit(t *testing.T) {
	tp := newTestPipeline()
	tp.profiles.profile.CreditsRemaining = 0

	_, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), nil)
	if !errors.IsCode(err, errors.CodeInsufficientCredit) {
		t.Fatalf("expected CodeInsufficientCredit, got %v", err)
	}
	if len(tp.provider.prompts) != 0 {
		t.Error("provider called despite empty balance")
	}
	if len(tp.books.books) != 0 {
		t.Error("book record created despite empty balance")
	}
}

func TestRunOutlineFailureFatal(t *testing.T) {
	tp := newTestPipeline()
	tp.provider.responses = []string{"no structure in this reply"}

	_, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeMalformedOutput) {
		t.Fatalf("expected CodeMalformedOutput, got %v", err)
	}
	book := tp.books.single()
	if book == nil {
		t.Fatal("book record should exist before provider calls")
	}
	if book.Status != entity.BookStatusFailed {
		t.Errorf("book status = %s, want failed", book.Status)
	}
	if book.ErrorMsg == "" {
		t.Error("book error message empty")
	}
	if tp.profiles.decrements != 0 {
		t.Error("credit decremented on failed run")
	}
}

func TestRunUploadFailureNonFatal(t *testing.T) {
	tp := newTestPipeline()
	tp.store.failOn["cover.png"] = true

	result, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CoverURL != "" {
		t.Error("cover URL should be absent")
	}
	if result.DocumentURL == "" || result.EbookURL == "" {
		t.Error("other uploads should succeed")
	}
	if len(result.Notes) != 1 {
		t.Errorf("notes = %v, want one upload note", result.Notes)
	}
	if tp.books.single().Status != entity.BookStatusReady {
		t.Error("book should still be ready")
	}
}

func TestRunNotifierFailureNonFatal(t *testing.T) {
	tp := newTestPipeline()
	tp.notifier.err = fmt.Errorf("smtp refused")

	result, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NotificationSent {
		t.Error("notification_sent should be false")
	}
	if len(result.Notes) != 1 {
		t.Errorf("notes = %v, want one notification note", result.Notes)
	}
}

func TestRunNotifierDisabledIsSilent(t *testing.T) {
	tp := newTestPipeline()
	tp.notifier.enabled = false

	result, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NotificationSent {
		t.Error("notification_sent should be false")
	}
	// 未配置通知不产生说明
	if len(result.Notes) != 0 {
		t.Errorf("notes = %v, want empty", result.Notes)
	}
}

func TestRunStarterMinimalPackage(t *testing.T) {
	tp := newTestPipeline()
	tp.profiles.profile.Plan = "starter"
	req := &BookRequest{Genre: "mystery", Plan: plan.TierStarter}

	result, err := tp.pipeline.Run(context.Background(), "user-1", req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FullChapters != nil {
		t.Error("starter run should have no full chapters")
	}
	if result.CoverImageBase64 != "" || result.AudiobookBase64 != "" {
		t.Error("starter run should have no premium artifacts")
	}
	if result.Chapter1Preview == "" {
		t.Error("chapter 1 preview missing")
	}
	if tp.cover.calls != 0 {
		t.Error("cover renderer called for starter run")
	}
}

func TestRunProgressMonotonicNonDecreasing(t *testing.T) {
	tp := newTestPipeline()

	var progress []int
	var steps []string
	sink := func(p int, step string) {
		progress = append(progress, p)
		steps = append(steps, step)
	}

	_, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("progress decreased: %v", progress)
		}
	}
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Errorf("final progress = %v, want 100", progress)
	}
	if steps[len(steps)-1] != StepCompleted {
		t.Errorf("final step = %q", steps[len(steps)-1])
	}
	if steps[0] != StepOutline {
		t.Errorf("first step = %q", steps[0])
	}
}

func TestRunFailedProgressNever100(t *testing.T) {
	tp := newTestPipeline()
	tp.provider.responses = []string{"garbage"}

	var progress []int
	sink := func(p int, _ string) { progress = append(progress, p) }

	_, err := tp.pipeline.Run(context.Background(), "user-1", enterpriseRequest(), sink)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, p := range progress {
		if p >= 100 {
			t.Errorf("failed run reported progress %d", p)
		}
	}
}

func TestBuildExportModelOutlineStubs(t *testing.T) {
	outline := &BookOutline{
		Title:                "T",
		BackCoverDescription: "desc",
		Chapters: []ChapterStub{
			{Number: 1, Title: "One", Summary: "s1"},
			{Number: 2, Title: "Two", Summary: "s2"},
		},
	}
	req := baseRequest()

	model := buildExportModel(req, outline, "full chapter one text", nil)
	if len(model.Chapters) != 2 {
		t.Fatalf("chapters = %d", len(model.Chapters))
	}
	if model.Chapters[0].Content != "full chapter one text" {
		t.Error("chapter 1 should carry full content")
	}
	if model.Chapters[1].Content != "" || model.Chapters[1].Summary != "s2" {
		t.Error("chapter 2 should be a summary stub")
	}
}
