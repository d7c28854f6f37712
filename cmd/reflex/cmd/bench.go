package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccheney/reflex/internal/fp16"
	"github.com/ccheney/reflex/internal/hashing"
	"github.com/ccheney/reflex/internal/mmapstore"
	"github.com/ccheney/reflex/internal/output"
	"github.com/ccheney/reflex/internal/storage"
	"github.com/ccheney/reflex/internal/tiered"
)

func newBenchCmd() *cobra.Command {
	var iterations int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure L1 and L2 lookup latency against in-memory stubs",
		Long: `bench seeds a number of distinct cache entries, then times an
exact (L1) lookup and a semantic (L2) lookup against each one. It
exercises the same engine wiring as demo, at a scale useful for
spotting gross regressions in the capability wiring's own overhead
(not a substitute for load-testing real embedder/vector-db backends).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), cmd, iterations)
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "n", 200, "Number of cache entries to seed and look up")
	return cmd
}

func runBench(ctx context.Context, cmd *cobra.Command, iterations int) error {
	if iterations <= 0 {
		return fmt.Errorf("iterations must be > 0")
	}
	out := output.New(cmd.OutOrStdout())

	dataDir, err := os.MkdirTemp("", "reflex-bench-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dataDir) }()

	h := newHarness(dataDir)
	tenant := hashing.TenantID("bench-tenant")

	l1Latencies := make([]time.Duration, 0, iterations)
	l2Latencies := make([]time.Duration, 0, iterations)

	for i := 0; i < iterations; i++ {
		prompt := fmt.Sprintf("benchmark prompt number %d", i)
		contextHash := hashing.Context("bench", prompt)
		fp := hashing.Prompt(prompt)
		storageKey := storage.Key(tenant, fp.Hex(8))

		vec, err := h.embedder.Embed(ctx, prompt)
		if err != nil {
			return fmt.Errorf("embed iteration %d: %w", i, err)
		}
		buf := mmapstore.Encode(mmapstore.CacheEntry{
			TenantID:    tenant,
			ContextHash: contextHash,
			Timestamp:   time.Now().Unix(),
			Embedding:   fp16.ToBytes(vec),
			Payload:     []byte(prompt),
		})
		handle, err := h.fsStore.Write(storageKey, buf)
		if err != nil {
			return fmt.Errorf("write iteration %d: %w", i, err)
		}
		if err := h.loader.Write(ctx, storageKey, buf); err != nil {
			return fmt.Errorf("write iteration %d to loader: %w", i, err)
		}
		if _, err := h.engine.InsertBoth(ctx, fp, tenant, handle, prompt, contextHash, storageKey, time.Now().Unix()); err != nil {
			return fmt.Errorf("index iteration %d: %w", i, err)
		}

		start := time.Now()
		exact, err := h.engine.Lookup(ctx, fp, prompt, tenant)
		l1Latencies = append(l1Latencies, time.Since(start))
		if err != nil {
			return fmt.Errorf("exact lookup iteration %d: %w", i, err)
		}
		if exact.Kind == tiered.KindHitL1 {
			_ = exact.L1.Handle.Close()
		}

		otherFP := hashing.Prompt(prompt + " (rephrased for semantic probe)")
		start = time.Now()
		semantic, err := h.engine.Lookup(ctx, otherFP, prompt, tenant)
		l2Latencies = append(l2Latencies, time.Since(start))
		if err != nil {
			return fmt.Errorf("semantic lookup iteration %d: %w", i, err)
		}
		if semantic.Kind == tiered.KindHitL1 {
			_ = semantic.L1.Handle.Close()
		}
	}

	out.Statusf("", "seeded and looked up %d entries", iterations)
	out.Statusf("", "L1 lookup: avg %s, p95 %s", average(l1Latencies), percentile(l1Latencies, 0.95))
	out.Statusf("", "L2 lookup: avg %s, p95 %s", average(l2Latencies), percentile(l2Latencies, 0.95))
	return nil
}

func average(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

// percentile returns the p-th percentile latency as the element at index
// floor(p*(len(d)-1)) of a copy of d sorted ascending. p must be in [0, 1].
func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), d...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
