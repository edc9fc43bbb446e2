package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"ragprompt/internal/config"
	"ragprompt/internal/domain"
	"ragprompt/internal/embedding"
	"ragprompt/internal/extract"
	"ragprompt/internal/logging"
	"ragprompt/internal/uploads"
	"ragprompt/internal/vectorstore/memory"
)

type fakeGenerator struct {
	mu                    sync.Mutex
	model, system, prompt string
	err                   error
}

func (g *fakeGenerator) Generate(_ context.Context, model, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.model, g.system, g.prompt = model, system, prompt
	if g.err != nil {
		return "", g.err
	}
	return "generated: " + model, nil
}

type fixture struct {
	svc     *RAGService
	storage *memory.Storage
	uploads *uploads.Store
	gen     *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := uploads.NewStore(t.TempDir())
	storage := memory.NewStorage()
	gen := &fakeGenerator{}
	settings := SettingsFromConfig(config.Default())
	settings.EmbeddingModel = "tfidf"
	svc, err := NewRAGService(settings, Deps{
		Uploads:   store,
		Storage:   storage,
		Embedders: embedding.NewResolver(embedding.RemoteConfig{}),
		Extractor: extract.NewAuto(logging.Discard()),
		Generator: gen,
		Logger:    logging.Discard(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{svc: svc, storage: storage, uploads: store, gen: gen}
}

func (f *fixture) upload(t *testing.T, name, content string) {
	t.Helper()
	if _, err := f.uploads.Save(name, strings.NewReader(content)); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateDefaults(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "patent.txt", "A foldable display hinge with two detents.\fThe elevator pitch should mention the hinge.")

	res, err := f.svc.Generate(context.Background(), Request{FileName: "patent.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if res.GeneratedText != "generated: llama3" {
		t.Errorf("GeneratedText = %q", res.GeneratedText)
	}
	if !strings.Contains(f.gen.system, "generating elevator pitch tailored") {
		t.Errorf("system = %q", f.gen.system)
	}
	for _, want := range []string{"Create a elevator pitch for the patent.", "foldable display hinge", "concise elevator pitch"} {
		if !strings.Contains(f.gen.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, f.gen.prompt)
		}
	}
	if f.storage.Len() != 0 {
		t.Errorf("index leaked: %d live", f.storage.Len())
	}
}

func TestGenerateOverrides(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "p.txt", "solar tracker with a dual axis motor")

	_, err := f.svc.Generate(context.Background(), Request{
		FileName:       "p.txt",
		DocumentType:   "abstract",
		Model:          "mistral",
		AdditionalInfo: "for engineers",
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.gen.model != "mistral" {
		t.Errorf("model = %q", f.gen.model)
	}
	if !strings.Contains(f.gen.prompt, "for engineers") || !strings.Contains(f.gen.prompt, "Create a abstract for the patent.") {
		t.Errorf("prompt = %s", f.gen.prompt)
	}
}

func TestBuildPromptMissingFile(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BuildPrompt(context.Background(), Request{FileName: "nope.pdf"})
	if !errors.Is(err, uploads.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if _, err := f.svc.BuildPrompt(context.Background(), Request{}); !errors.Is(err, uploads.ErrInvalidName) {
		t.Errorf("empty name err = %v", err)
	}
}

func TestBuildPromptNoText(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "blank.txt", "   \n\f  ")
	_, err := f.svc.BuildPrompt(context.Background(), Request{FileName: "blank.txt"})
	if !errors.Is(err, domain.ErrNoExtractableText) {
		t.Fatalf("err = %v", err)
	}
	if f.storage.Len() != 0 {
		t.Errorf("index leaked after failure")
	}
}

func TestBuildPromptCorruptPDF(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "broken.pdf", "not a pdf")
	_, err := f.svc.BuildPrompt(context.Background(), Request{FileName: "broken.pdf"})
	if !errors.Is(err, domain.ErrNoExtractableText) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildPromptBlankEmbeddingModel(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "p.txt", "text")
	f.svc.settings.EmbeddingModel = " "
	_, err := f.svc.BuildPrompt(context.Background(), Request{FileName: "p.txt"})
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildPromptByPath(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "direct.txt", "a gearbox with helical teeth")
	path, _ := f.uploads.Resolve("direct.txt")

	var calls int
	prompt, err := f.svc.BuildPrompt(context.Background(), Request{
		Path:     path,
		Progress: func(done, total int) { calls++ },
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "helical teeth") {
		t.Errorf("prompt = %s", prompt)
	}
	if calls == 0 {
		t.Error("progress was never reported")
	}
}

func TestGenerateFailure(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "p.txt", "text")
	f.gen.err = errors.New("model not loaded")
	_, err := f.svc.Generate(context.Background(), Request{FileName: "p.txt"})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("err = %v", err)
	}
	if kind := domain.KindOf(err); kind != domain.KindGeneration {
		t.Errorf("KindOf = %q, want %q", kind, domain.KindGeneration)
	}
}

func TestQueryTemplateKeepsOtherVerbsLiteral(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "p.txt", "a gear with helical teeth")
	f.svc.settings.QueryTemplate = "Write a %s of %d pages, 100% original."
	prompt, err := f.svc.BuildPrompt(context.Background(), Request{FileName: "p.txt", DocumentType: "summary"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Write a summary of %d pages, 100% original.") {
		t.Errorf("prompt = %s", prompt)
	}
	if strings.Contains(prompt, "MISSING") {
		t.Errorf("template was formatted with fmt: %s", prompt)
	}
}

func TestConcurrentRequests(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.txt", "alpha particle detector")
	f.upload(t, "b.txt", "beta decay counter")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		name := "a.txt"
		if i%2 == 1 {
			name = "b.txt"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt, err := f.svc.BuildPrompt(context.Background(), Request{FileName: name})
			if err != nil {
				errs <- err
				return
			}
			if name == "a.txt" && strings.Contains(prompt, "beta") {
				errs <- errors.New("context leaked between sessions")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if f.storage.Len() != 0 {
		t.Errorf("indexes leaked: %d", f.storage.Len())
	}
}

func TestNewRAGServiceValidation(t *testing.T) {
	settings := SettingsFromConfig(config.Default())
	deps := Deps{
		Storage:   memory.NewStorage(),
		Embedders: embedding.NewResolver(embedding.RemoteConfig{}),
		Extractor: extract.NewAuto(logging.Discard()),
	}
	bad := settings
	bad.ChunkOverlap = bad.ChunkSize
	if _, err := NewRAGService(bad, deps); err == nil {
		t.Error("expected chunk settings error")
	}
	bad = settings
	bad.TopK = 0
	if _, err := NewRAGService(bad, deps); err == nil {
		t.Error("expected top_k error")
	}
	if _, err := NewRAGService(settings, Deps{}); err == nil {
		t.Error("expected missing deps error")
	}
}

func TestNewStorage(t *testing.T) {
	if _, err := NewStorage(config.VectorStoreConfig{Type: "memory"}); err != nil {
		t.Error(err)
	}
	if _, err := NewStorage(config.VectorStoreConfig{Type: "qdrant"}); err != nil {
		t.Error(err)
	}
	if _, err := NewStorage(config.VectorStoreConfig{Type: "faiss"}); err == nil {
		t.Error("expected error for unknown store")
	}
}
