package service

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"supmatch/internal/domain"
	"supmatch/internal/ingest"
	"supmatch/internal/retrieval"
)

// Service is the application facade: startup setup, query handling and
// catalog maintenance. Query handling is read-only and safe for
// concurrent use; all write paths are serialized by ingestMu so the
// pipeline keeps its single-writer guarantee.
type Service struct {
	embedder    domain.Embedder
	index       domain.VectorIndex
	pipeline    *ingest.Pipeline
	engine      *retrieval.Engine
	recordsPath string
	log         *zap.Logger

	ingestMu sync.Mutex
}

func New(embedder domain.Embedder, index domain.VectorIndex, recordsPath string, topK int, log *zap.Logger) *Service {
	return &Service{
		embedder:    embedder,
		index:       index,
		pipeline:    ingest.NewPipeline(embedder, index, log),
		engine:      retrieval.NewEngine(embedder, index, topK),
		recordsPath: recordsPath,
		log:         log,
	}
}

// SetupIfNeeded prepares the backing index before the service accepts
// queries. On a fresh index it creates the collection, ingests the full
// record source and builds the similarity index; on an existing one it
// only makes sure the similarity index is present. Run once at startup.
func (s *Service) SetupIfNeeded() error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	exists, err := s.index.CollectionExists()
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}

	if !exists {
		s.log.Info("collection missing, performing initial setup")
		if err := s.index.CreateCollection(s.embedder.Dimension()); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		records, err := ingest.LoadRecords(s.recordsPath)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		s.pipeline.Ingest(records)
	} else {
		s.log.Info("using existing collection")
	}

	// idempotent: a no-op if the index structure is already built
	if err := s.index.EnsureIndexBuilt(); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	summaries, err := s.Catalog()
	if err != nil {
		return fmt.Errorf("verify catalog: %w", err)
	}
	fragments := 0
	for _, sum := range summaries {
		for _, texts := range sum.Texts {
			fragments += len(texts)
		}
	}
	s.log.Info("catalog ready",
		zap.Int("supervisors", len(summaries)),
		zap.Int("fragments", fragments))
	return nil
}

// Query validates and answers one free-text query. An empty query is an
// input error, never a silent empty result.
func (s *Service) Query(raw string) ([]domain.RankedSupervisor, error) {
	results, err := s.engine.Retrieve(raw)
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyQuery) {
			s.log.Error("query failed", zap.Error(err))
		}
		return nil, err
	}
	return results, nil
}

// AddSupervisor appends one supervisor under a caller-assigned id.
// Idempotent per id; serialized against other writes.
func (s *Service) AddSupervisor(rec domain.RawRecord, id int64) (domain.IngestReport, error) {
	if id <= 0 {
		return domain.IngestReport{}, fmt.Errorf("invalid supervisor id %d", id)
	}
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	return s.pipeline.IngestOne(rec, id), nil
}

// Catalog lists every stored supervisor with its fragment texts grouped
// by kind, in storage order.
func (s *Service) Catalog() ([]domain.SupervisorSummary, error) {
	fragments, err := s.index.DumpAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	byID := map[int64]*domain.SupervisorSummary{}
	var order []*domain.SupervisorSummary
	for _, f := range fragments {
		sum, ok := byID[f.SupervisorID]
		if !ok {
			sum = &domain.SupervisorSummary{
				Supervisor: domain.Supervisor{
					ID:         f.SupervisorID,
					Name:       f.Supervisor,
					Department: f.Department,
					Contact:    f.Contact,
				},
				Texts: map[domain.Kind][]string{},
			}
			byID[f.SupervisorID] = sum
			order = append(order, sum)
		}
		sum.Texts[f.Kind] = append(sum.Texts[f.Kind], f.Text)
	}
	out := make([]domain.SupervisorSummary, len(order))
	for i, sum := range order {
		out[i] = *sum
	}
	return out, nil
}
