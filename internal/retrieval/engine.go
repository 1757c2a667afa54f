package retrieval

import (
	"fmt"
	"sort"

	"supmatch/internal/domain"
)

// Engine answers free-text queries: it embeds the query, runs one
// nearest-neighbor search over all fragments and aggregates the hits back
// to supervisor level. Read-only; safe for concurrent use.
type Engine struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	topK     int
}

// NewEngine creates a retrieval engine. topK bounds the single
// nearest-neighbor search; <=0 falls back to 100.
func NewEngine(embedder domain.Embedder, index domain.VectorIndex, topK int) *Engine {
	if topK <= 0 {
		topK = 100
	}
	return &Engine{embedder: embedder, index: index, topK: topK}
}

// Retrieve returns supervisors ranked by combined similarity to the
// query. The combined score is the count-weighted mean of per-kind mean
// scores; ties are broken by first appearance in the hit list. A
// supervisor with no matching fragment is never materialized.
func (e *Engine) Retrieve(query string) ([]domain.RankedSupervisor, error) {
	q := domain.NormalizeText(query)
	if q == "" {
		return nil, domain.ErrEmptyQuery
	}

	vec, err := e.embedder.Embed(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	hits, err := e.index.Search(vec, e.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	return rank(hits), nil
}

type group struct {
	sup       domain.Supervisor
	firstSeen int
	kindOrder []domain.Kind
	byKind    map[domain.Kind][]domain.Match
}

func rank(hits []domain.Hit) []domain.RankedSupervisor {
	groups := map[int64]*group{}
	var order []*group
	for _, h := range hits {
		g, ok := groups[h.SupervisorID]
		if !ok {
			g = &group{
				sup: domain.Supervisor{
					ID:         h.SupervisorID,
					Name:       h.Supervisor,
					Department: h.Department,
					Contact:    h.Contact,
				},
				firstSeen: len(order),
				byKind:    map[domain.Kind][]domain.Match{},
			}
			groups[h.SupervisorID] = g
			order = append(order, g)
		}
		if _, seen := g.byKind[h.Kind]; !seen {
			g.kindOrder = append(g.kindOrder, h.Kind)
		}
		g.byKind[h.Kind] = append(g.byKind[h.Kind], domain.Match{Text: h.Text, Score: h.Score})
	}

	ranked := make([]domain.RankedSupervisor, 0, len(order))
	for _, g := range order {
		ranked = append(ranked, domain.RankedSupervisor{
			Supervisor: g.sup,
			Score:      combinedScore(g),
			Kinds:      sortedKinds(g),
		})
	}
	// score descending, then first-seen hit order: deterministic for
	// identical hit lists
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// combinedScore is the count-weighted mean across kind groups:
// sum(kind_mean * count) / sum(count) over kinds with at least one hit.
func combinedScore(g *group) float64 {
	var weighted float64
	var total int
	for _, k := range g.kindOrder {
		matches := g.byKind[k]
		var sum float64
		for _, m := range matches {
			sum += m.Score
		}
		mean := sum / float64(len(matches))
		weighted += mean * float64(len(matches))
		total += len(matches)
	}
	if total == 0 {
		return 0
	}
	return weighted / float64(total)
}

func sortedKinds(g *group) []domain.KindMatches {
	kinds := make([]domain.KindMatches, 0, len(g.kindOrder))
	for _, k := range g.kindOrder {
		matches := append([]domain.Match(nil), g.byKind[k]...)
		// best-first within the kind
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})
		kinds = append(kinds, domain.KindMatches{Kind: k, Matches: matches})
	}
	return kinds
}
