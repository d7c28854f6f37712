package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ccheney/reflex/internal/fp16"
	"github.com/ccheney/reflex/internal/hashing"
	"github.com/ccheney/reflex/internal/mmapstore"
	"github.com/ccheney/reflex/internal/output"
	"github.com/ccheney/reflex/internal/rescore"
	"github.com/ccheney/reflex/internal/scoring"
	"github.com/ccheney/reflex/internal/storage"
	"github.com/ccheney/reflex/internal/tiered"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through an L1 exact hit and an L2+L3 semantic hit",
		Long: `demo wires up the tiered engine against in-memory capability
stubs, inserts a single cache entry, then exercises both hit paths:
an exact L1 lookup by fingerprint, and a semantic L2 lookup followed
by L3 cross-encoder verification on a request with a different
fingerprint but matching semantic text.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context(), cmd)
		},
	}
}

func runDemo(ctx context.Context, cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())
	dataDir, err := os.MkdirTemp("", "reflex-demo-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dataDir) }()

	h := newHarness(dataDir)
	out.Statusf("", "request id: %s", uuid.NewString())
	out.Statusf("", "embedder stub: %v", h.embedder.IsStub())
	out.Newline()

	const (
		tenantName = "demo-tenant"
		semantic   = "What is the capital of France?"
		payload    = "The capital of France is Paris."
	)
	tenant := hashing.TenantID(tenantName)
	contextHash := hashing.Context("user", "default")
	fp := hashing.Prompt(semantic)
	storageKey := storage.Key(tenant, fp.Hex(8))

	vec, err := h.embedder.Embed(ctx, semantic)
	if err != nil {
		return fmt.Errorf("embed seed entry: %w", err)
	}

	buf := mmapstore.Encode(mmapstore.CacheEntry{
		TenantID:    tenant,
		ContextHash: contextHash,
		Timestamp:   time.Now().Unix(),
		Embedding:   fp16.ToBytes(vec),
		Payload:     []byte(payload),
	})
	handle, err := h.fsStore.Write(storageKey, buf)
	if err != nil {
		return fmt.Errorf("write seed entry: %w", err)
	}
	if err := h.loader.Write(ctx, storageKey, buf); err != nil {
		return fmt.Errorf("write seed entry to loader: %w", err)
	}

	if _, err := h.engine.InsertBoth(ctx, fp, tenant, handle, semantic, contextHash, storageKey, time.Now().Unix()); err != nil {
		return fmt.Errorf("index seed entry: %w", err)
	}
	out.Success("seeded one cache entry across L1 and L2")
	out.Newline()

	exactResult, err := h.engine.Lookup(ctx, fp, semantic, tenant)
	if err != nil {
		return fmt.Errorf("exact lookup: %w", err)
	}
	if exactResult.Kind == tiered.KindHitL1 {
		out.Successf("%s: payload %q", tiered.StatusHitL1Exact, payload)
		_ = exactResult.L1.Handle.Close()
	} else {
		out.Error("expected an L1 hit on the exact fingerprint, got a miss")
	}
	out.Newline()

	const rephrased = "what is france's capital city"
	otherFP := hashing.Prompt(rephrased)
	semanticResult, err := h.engine.Lookup(ctx, otherFP, semantic, tenant)
	if err != nil {
		return fmt.Errorf("semantic lookup: %w", err)
	}
	switch semanticResult.Kind {
	case tiered.KindHitL1:
		out.Warning("semantic request unexpectedly hit L1")
	case tiered.KindHitL2:
		out.Successf("%s: %d ANN candidates, %d survived rescoring",
			tiered.StatusHitL2Semantic, semanticResult.L2.BQCandidatesCount, len(semanticResult.L2.Candidates))
		return verifyAndReport(ctx, out, h, semantic, semanticResult.L2.Candidates)
	default:
		out.HitStatus(tiered.StatusMiss)
	}
	return nil
}

func verifyAndReport(ctx context.Context, out *output.Writer, h *harness, query string, candidates []rescore.ScoredCandidate) error {
	verifierCandidates := make([]scoring.Candidate, 0, len(candidates))
	for _, c := range candidates {
		verifierCandidates = append(verifierCandidates, scoring.Candidate{PointID: c.PointID, Payload: c.Payload, ScoreHint: c.Score})
	}
	winner, result, err := h.verifier.Verify(ctx, query, verifierCandidates)
	if err != nil {
		return fmt.Errorf("l3 verify: %w", err)
	}
	if result.Outcome == scoring.OutcomeVerified {
		out.Successf("%s: score %.3f, payload %q", result.Status(), result.TopScore, string(winner.Payload))
	} else {
		out.Warningf("%s: top score %.3f did not clear the threshold", result.Status(), result.TopScore)
	}
	return nil
}
