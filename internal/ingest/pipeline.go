package ingest

import (
	"strings"

	"go.uber.org/zap"

	"supmatch/internal/domain"
)

// Pipeline converts raw supervisor records into embedded fragments and
// writes them into the vector index.
//
// The pipeline is not safe for concurrent runs: the existence check and
// the later insert are two separate index calls, so two writers racing on
// the same supervisor id can both pass the check and duplicate fragments.
// Callers must guarantee a single writer (the facade runs ingestion before
// serving and serializes explicit adds).
type Pipeline struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	log      *zap.Logger
}

func NewPipeline(embedder domain.Embedder, index domain.VectorIndex, log *zap.Logger) *Pipeline {
	return &Pipeline{embedder: embedder, index: index, log: log}
}

// Ingest processes all records in order, assigning supervisor ids from
// source-record position (1-based). Failures are isolated: a malformed
// record or a failed fragment embedding never aborts the run.
func (p *Pipeline) Ingest(records []domain.RawRecord) domain.IngestReport {
	var report domain.IngestReport
	for i, rec := range records {
		r := p.ingestRecord(rec, int64(i+1))
		report.Add(r)
	}
	p.log.Info("ingestion finished",
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped_existing", report.SkippedExisting),
		zap.Int("skipped_invalid", report.SkippedInvalid),
		zap.Int("fragments_dropped", report.FragmentsDropped))
	return report
}

// IngestOne appends a single supervisor under a caller-assigned id.
// Idempotent: an existing id reports skipped_existing and writes nothing.
func (p *Pipeline) IngestOne(rec domain.RawRecord, id int64) domain.IngestReport {
	return p.ingestRecord(rec, id)
}

func (p *Pipeline) ingestRecord(rec domain.RawRecord, id int64) domain.IngestReport {
	var report domain.IngestReport

	name := strings.TrimSpace(rec.Name)
	if name == "" {
		// tolerated malformed row, not an error
		p.log.Warn("skipping record without name", zap.Int64("supervisor_id", id))
		report.SkippedInvalid++
		return report
	}

	exists, err := p.index.SupervisorExists(id)
	if err != nil {
		p.log.Error("existence check failed, skipping record",
			zap.Int64("supervisor_id", id), zap.Error(err))
		report.SkippedInvalid++
		return report
	}
	if exists {
		p.log.Info("supervisor already ingested, skipping",
			zap.Int64("supervisor_id", id), zap.String("supervisor", name))
		report.SkippedExisting++
		return report
	}

	sup := domain.Supervisor{
		ID:         id,
		Name:       name,
		Department: strings.TrimSpace(rec.Department),
		Contact:    strings.TrimSpace(rec.Contact),
	}

	var fragments []domain.Fragment
	for _, src := range []struct {
		kind domain.Kind
		raw  string
	}{
		{domain.KindInterest, rec.Interests},
		{domain.KindPublication, rec.Publications},
	} {
		for _, text := range splitTexts(src.raw) {
			vec, err := p.embedder.Embed(text)
			if err != nil {
				// drop only this fragment, never the whole record
				p.log.Warn("embedding failed, dropping fragment",
					zap.Int64("supervisor_id", id),
					zap.String("kind", string(src.kind)),
					zap.String("text", text),
					zap.Error(err))
				report.FragmentsDropped++
				continue
			}
			fragments = append(fragments, domain.Fragment{
				SupervisorID: sup.ID,
				Supervisor:   sup.Name,
				Department:   sup.Department,
				Contact:      sup.Contact,
				Kind:         src.kind,
				Text:         text,
				Vector:       vec,
			})
		}
	}

	if len(fragments) == 0 {
		p.log.Warn("no embeddable fragments, skipping record",
			zap.Int64("supervisor_id", id), zap.String("supervisor", name))
		report.SkippedInvalid++
		return report
	}

	if err := p.index.Insert(fragments); err != nil {
		p.log.Error("insert failed, skipping record",
			zap.Int64("supervisor_id", id), zap.Error(err))
		report.SkippedInvalid++
		return report
	}
	if err := p.index.Flush(); err != nil {
		p.log.Error("flush failed", zap.Int64("supervisor_id", id), zap.Error(err))
		report.SkippedInvalid++
		return report
	}
	p.log.Info("supervisor ingested",
		zap.Int64("supervisor_id", id),
		zap.String("supervisor", name),
		zap.Int("fragments", len(fragments)))
	report.Inserted++
	return report
}

// splitTexts splits a ";"-separated multi-value cell into normalized
// fragment texts. Empty texts are dropped; duplicates are preserved, one
// fragment each.
func splitTexts(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := domain.NormalizeText(p); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}
