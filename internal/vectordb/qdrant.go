package vectordb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ccheney/reflex/internal/capability"
	reflexerrors "github.com/ccheney/reflex/internal/errors"
	"github.com/ccheney/reflex/internal/vectordb/bq"
)

const (
	payloadTenantID    = "tenant_id"
	payloadContextHash = "context_hash"
	payloadTimestamp   = "timestamp"
	payloadStorageKey  = "storage_key"
)

// Adapter is the production capability.VectorIndex backed by a real Qdrant
// collection, binary-quantized at creation time (spec §4.5). Every call to
// the backend runs through a circuit breaker so a wedged Qdrant instance
// fails lookups fast instead of piling up blocked ANN searches. While the
// circuit is open, or when a half-open probe fails, SearchBQ returns no hits,
// which the tiered engine treats as a Miss; a search error with the circuit
// closed is returned to the caller as VectorDbSearchFailed.
type Adapter struct {
	client  *qdrant.Client
	bq      bq.Config
	breaker *reflexerrors.CircuitBreaker
}

// DialConfig names the Qdrant gRPC endpoint to dial.
type DialConfig struct {
	Host   string
	Port   int
	UseTLS bool
	APIKey string
}

// NewAdapter dials host:port and returns an Adapter using bqConfig for
// every collection it creates.
func NewAdapter(cfg DialConfig, bqConfig bq.Config) (*Adapter, error) {
	qcfg := &qdrant.Config{Host: cfg.Host, Port: cfg.Port, UseTLS: cfg.UseTLS, APIKey: cfg.APIKey}
	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("vectordb: dial qdrant: %w", err)
	}
	breaker := reflexerrors.NewCircuitBreaker("qdrant",
		reflexerrors.WithMaxFailures(5),
		reflexerrors.WithResetTimeout(30*time.Second))
	return &Adapter{client: client, bq: bqConfig, breaker: breaker}, nil
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error { return a.client.Close() }

// EnsureCollection creates a cosine-distance, binary-quantized collection
// of the given dimension if it does not already exist. Idempotent.
func (a *Adapter) EnsureCollection(ctx context.Context, name string, dim int) error {
	attempt := func() error {
		err := a.breaker.Execute(func() error {
			exists, err := a.client.CollectionExists(ctx, name)
			if err != nil {
				return fmt.Errorf("vectordb: check collection exists: %w", err)
			}
			if exists {
				return nil
			}

			alwaysRAM := a.bq.AlwaysRAM
			onDisk := a.bq.OnDiskPayload
			if err := a.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: name,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     uint64(dim),
					Distance: qdrant.Distance_Cosine,
					QuantizationConfig: &qdrant.QuantizationConfig{
						Quantization: &qdrant.QuantizationConfig_Binary{
							Binary: &qdrant.BinaryQuantization{AlwaysRam: &alwaysRAM},
						},
					},
				}),
				OnDiskPayload: &onDisk,
			}); err != nil {
				return fmt.Errorf("vectordb: create collection %q: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return reflexerrors.New(reflexerrors.ErrCodeVectorDbCreateCollectionFailed, "vectordb: ensure collection", err)
		}
		return nil
	}
	return reflexerrors.Retry(ctx, reflexerrors.SingleRetryConfig(), attempt)
}

// Upsert writes points into collection. Eventual consistency does not wait
// for the write to be acknowledged by every replica; majority does.
func (a *Adapter) Upsert(ctx context.Context, collection string, points []capability.VectorPoint, consistency capability.WriteConsistency) error {
	pbPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		payload := map[string]any{
			payloadTenantID:    strconv.FormatUint(p.TenantID, 10),
			payloadContextHash: strconv.FormatUint(p.ContextHash, 10),
			payloadTimestamp:   strconv.FormatInt(p.Timestamp, 10),
			payloadStorageKey:  p.StorageKey,
		}
		pbPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	wait := consistency == capability.ConsistencyMajority
	attempt := func() error {
		err := a.breaker.Execute(func() error {
			_, err := a.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: collection,
				Points:         pbPoints,
				Wait:           &wait,
			})
			return err
		})
		if err != nil {
			return reflexerrors.New(reflexerrors.ErrCodeVectorDbUpsertFailed, fmt.Sprintf("vectordb: upsert into %q", collection), err)
		}
		return nil
	}
	return reflexerrors.Retry(ctx, reflexerrors.SingleRetryConfig(), attempt)
}

// SearchBQ runs a tenant-filtered ANN search and returns up to limit hits,
// score-descending.
func (a *Adapter) SearchBQ(ctx context.Context, collection string, query []float32, limit int, tenantFilter uint64) ([]capability.SearchResult, error) {
	vec := make([]float32, len(query))
	copy(vec, query)

	l := uint64(limit)
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadTenantID, strconv.FormatUint(tenantFilter, 10))},
	}

	hits, err := reflexerrors.CircuitExecuteWithResult(a.breaker,
		func() ([]*qdrant.ScoredPoint, error) {
			return a.client.Query(ctx, &qdrant.QueryPoints{
				CollectionName: collection,
				Query:          qdrant.NewQueryDense(vec),
				Limit:          &l,
				Filter:         filter,
				WithPayload:    qdrant.NewWithPayload(true),
			})
		},
		func() ([]*qdrant.ScoredPoint, error) {
			// Open circuit: degrade to a no-hit search instead of a hard
			// error, since the tiered engine treats empty results the same
			// as a NoCandidates Miss.
			return nil, nil
		})
	if err != nil {
		return nil, reflexerrors.New(reflexerrors.ErrCodeVectorDbSearchFailed, fmt.Sprintf("vectordb: search %q", collection), err)
	}

	results := make([]capability.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, capability.SearchResult{
			ID:          hit.Id.GetNum(),
			Score:       hit.Score,
			TenantID:    tenantFilter,
			ContextHash: parseUint(payloadString(hit.Payload, payloadContextHash)),
			Timestamp:   parseInt(payloadString(hit.Payload, payloadTimestamp)),
			StorageKey:  payloadString(hit.Payload, payloadStorageKey),
		})
	}
	return results, nil
}

// IsReady reports whether the backend is reachable by listing collections.
func (a *Adapter) IsReady(ctx context.Context) error {
	attempt := func() error {
		err := a.breaker.Execute(func() error {
			_, err := a.client.ListCollections(ctx)
			return err
		})
		if err != nil {
			return reflexerrors.New(reflexerrors.ErrCodeVectorDbConnectionFailed, "vectordb: not ready", err)
		}
		return nil
	}
	return reflexerrors.Retry(ctx, reflexerrors.SingleRetryConfig(), attempt)
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}

func parseUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

var _ capability.VectorIndex = (*Adapter)(nil)
