package memory

import (
	"errors"
	"math"
	"sort"
	"sync"

	"supmatch/internal/domain"
)

// Index is an in-process vector index using brute-force cosine
// similarity. It mirrors the external index's contract, including flush
// visibility: inserted fragments become searchable only after Flush.
type Index struct {
	mu        sync.RWMutex
	created   bool
	dimension int
	pending   []domain.Fragment
	fragments []domain.Fragment
}

func NewIndex() *Index { return &Index{} }

func (x *Index) CollectionExists() (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.created, nil
}

func (x *Index) CreateCollection(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.created {
		return nil
	}
	x.created = true
	x.dimension = dimension
	return nil
}

// EnsureIndexBuilt is a no-op for brute-force search.
func (x *Index) EnsureIndexBuilt() error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if !x.created {
		return errors.New("collection does not exist")
	}
	return nil
}

func (x *Index) SupervisorExists(id int64) (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, f := range x.fragments {
		if f.SupervisorID == id {
			return true, nil
		}
	}
	return false, nil
}

func (x *Index) Insert(fragments []domain.Fragment) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.created {
		return errors.New("collection does not exist")
	}
	for _, f := range fragments {
		if len(f.Vector) != x.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	x.pending = append(x.pending, fragments...)
	return nil
}

func (x *Index) Flush() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.fragments = append(x.fragments, x.pending...)
	x.pending = nil
	return nil
}

func (x *Index) Search(vector []float64, limit int) ([]domain.Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if !x.created {
		return nil, errors.New("collection does not exist")
	}
	if limit <= 0 {
		limit = 100
	}
	hits := make([]domain.Hit, 0, len(x.fragments))
	for _, f := range x.fragments {
		hits = append(hits, domain.Hit{
			SupervisorID: f.SupervisorID,
			Supervisor:   f.Supervisor,
			Department:   f.Department,
			Contact:      f.Contact,
			Kind:         f.Kind,
			Text:         f.Text,
			Score:        cosine(f.Vector, vector),
		})
	}
	// stable: equal scores keep storage order
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func (x *Index) DumpAll() ([]domain.Fragment, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]domain.Fragment, len(x.fragments))
	for i, f := range x.fragments {
		f.Vector = nil
		out[i] = f
	}
	return out, nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
