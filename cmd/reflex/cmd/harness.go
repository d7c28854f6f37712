package cmd

import (
	"log/slog"
	"path/filepath"

	"github.com/ccheney/reflex/internal/config"
	"github.com/ccheney/reflex/internal/embed"
	"github.com/ccheney/reflex/internal/l1"
	"github.com/ccheney/reflex/internal/l2"
	"github.com/ccheney/reflex/internal/mmapstore"
	"github.com/ccheney/reflex/internal/rerank"
	"github.com/ccheney/reflex/internal/scoring"
	storagemock "github.com/ccheney/reflex/internal/storage/mock"
	"github.com/ccheney/reflex/internal/tiered"
	vectordbmock "github.com/ccheney/reflex/internal/vectordb/mock"
)

// harness wires the whole tiered cache against deterministic in-memory
// capability implementations: no model server, no vector database, no
// gateway. It exists to prove the capability seams compile and behave,
// matching the teacher's doctor/status diagnostic commands in spirit.
type harness struct {
	engine   *tiered.Engine
	verifier *scoring.Verifier
	embedder *embed.Stub
	fsStore  *mmapstore.Store
	index    *vectordbmock.Client
	loader   *storagemock.Store
	cfg      config.L2Config
}

func newHarness(dataDir string) *harness {
	embedder := embed.NewStub(config.DefaultVectorSize)
	index := vectordbmock.New()
	loader := storagemock.New()
	cfg := config.Default()

	l1Cache := l1.New(l1.DefaultCapacity)
	l2Cache := l2.New(embedder, index, loader, cfg, slog.Default())
	verifier := scoring.New(rerank.NewStub(rerank.DefaultThreshold), rerank.DefaultThreshold)

	return &harness{
		engine:   tiered.New(l1Cache, l2Cache),
		verifier: verifier,
		embedder: embedder,
		fsStore:  mmapstore.NewStore(filepath.Join(dataDir, "entries")),
		index:    index,
		loader:   loader,
		cfg:      cfg,
	}
}
