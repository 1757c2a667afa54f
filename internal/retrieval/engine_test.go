package retrieval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supmatch/internal/domain"
)

type stubEmbedder struct {
	fail  bool
	calls int
}

func (s *stubEmbedder) Name() string { return "stub" }
func (s *stubEmbedder) Dimension() int { return 3 }

func (s *stubEmbedder) Embed(text string) ([]float64, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("provider down")
	}
	return []float64{1, 0, 0}, nil
}

// fakeIndex serves preset hits; only Search matters to the engine.
type fakeIndex struct {
	hits      []domain.Hit
	searchErr error
	lastLimit int
}

func (f *fakeIndex) CollectionExists() (bool, error) { return true, nil }

func (f *fakeIndex) CreateCollection(int) error { return nil }

func (f *fakeIndex) EnsureIndexBuilt() error { return nil }

func (f *fakeIndex) SupervisorExists(int64) (bool, error) { return false, nil }

func (f *fakeIndex) Insert([]domain.Fragment) error { return nil }

func (f *fakeIndex) Flush() error { return nil }

func (f *fakeIndex) DumpAll() ([]domain.Fragment, error) { return nil, nil }

func (f *fakeIndex) Search(_ []float64, limit int) ([]domain.Hit, error) {
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func hit(supID int64, name string, kind domain.Kind, text string, score float64) domain.Hit {
	return domain.Hit{SupervisorID: supID, Supervisor: name, Kind: kind, Text: text, Score: score}
}

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	emb := &stubEmbedder{}
	e := NewEngine(emb, &fakeIndex{}, 100)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := e.Retrieve(q)
		require.ErrorIs(t, err, domain.ErrEmptyQuery, "query %q", q)
	}
	assert.Zero(t, emb.calls, "embedder must not be contacted for empty queries")
}

func TestRetrieveEmbeddingUnavailable(t *testing.T) {
	e := NewEngine(&stubEmbedder{fail: true}, &fakeIndex{}, 100)
	_, err := e.Retrieve("robots")
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetrieveIndexUnavailable(t *testing.T) {
	idx := &fakeIndex{searchErr: errors.New("connection refused")}
	e := NewEngine(&stubEmbedder{}, idx, 100)
	_, err := e.Retrieve("robots")
	require.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestRetrieveUsesConfiguredTopK(t *testing.T) {
	idx := &fakeIndex{}
	e := NewEngine(&stubEmbedder{}, idx, 25)
	_, err := e.Retrieve("robots")
	require.NoError(t, err)
	assert.Equal(t, 25, idx.lastLimit)
}

func TestRetrieveNoHitsNoPhantoms(t *testing.T) {
	e := NewEngine(&stubEmbedder{}, &fakeIndex{}, 100)
	results, err := e.Retrieve("robots")
	require.NoError(t, err)
	assert.Empty(t, results, "no hit may materialize a supervisor")
}

func TestRetrieveCombinedScore(t *testing.T) {
	idx := &fakeIndex{hits: []domain.Hit{
		hit(1, "Dr. A", domain.KindInterest, "robotics", 0.9),
		hit(2, "Dr. B", domain.KindInterest, "security", 0.8),
		hit(1, "Dr. A", domain.KindInterest, "iot", 0.7),
		hit(1, "Dr. A", domain.KindPublication, "swarm robots at scale", 0.5),
	}}
	e := NewEngine(&stubEmbedder{}, idx, 100)

	results, err := e.Retrieve("robots")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// B: 0.8; A: (mean(0.9,0.7)*2 + 0.5*1) / 3 = 0.7
	assert.Equal(t, "Dr. B", results[0].Name)
	assert.InDelta(t, 0.8, results[0].Score, 1e-9)
	assert.Equal(t, "Dr. A", results[1].Name)
	assert.InDelta(t, 0.7, results[1].Score, 1e-9)

	// combined score stays within the contributing hit scores
	assert.LessOrEqual(t, results[1].Score, 0.9)
	assert.GreaterOrEqual(t, results[1].Score, 0.5)

	// matched texts grouped by kind, best-first within each kind
	a := results[1]
	require.Len(t, a.Kinds, 2)
	assert.Equal(t, domain.KindInterest, a.Kinds[0].Kind)
	require.Len(t, a.Kinds[0].Matches, 2)
	assert.Equal(t, "robotics", a.Kinds[0].Matches[0].Text)
	assert.Equal(t, "iot", a.Kinds[0].Matches[1].Text)
	assert.Equal(t, domain.KindPublication, a.Kinds[1].Kind)
}

func TestRetrieveTieBreakFirstSeen(t *testing.T) {
	idx := &fakeIndex{hits: []domain.Hit{
		hit(7, "Dr. X", domain.KindInterest, "databases", 0.6),
		hit(3, "Dr. Y", domain.KindInterest, "compilers", 0.6),
	}}
	e := NewEngine(&stubEmbedder{}, idx, 100)

	results, err := e.Retrieve("storage")
	require.NoError(t, err)
	require.Len(t, results, 2)
	// equal scores keep first appearance in the hit list
	assert.Equal(t, "Dr. X", results[0].Name)
	assert.Equal(t, "Dr. Y", results[1].Name)
}

func TestRetrieveRankingMonotonicity(t *testing.T) {
	// every kind mean of A dominates B's with equal counts
	idx := &fakeIndex{hits: []domain.Hit{
		hit(2, "Dr. B", domain.KindInterest, "iot", 0.5),
		hit(1, "Dr. A", domain.KindInterest, "robotics", 0.9),
		hit(2, "Dr. B", domain.KindPublication, "older paper", 0.3),
		hit(1, "Dr. A", domain.KindPublication, "newer paper", 0.6),
	}}
	e := NewEngine(&stubEmbedder{}, idx, 100)

	results, err := e.Retrieve("robots")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Dr. A", results[0].Name)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRetrieveDuplicateTextsCountSeparately(t *testing.T) {
	idx := &fakeIndex{hits: []domain.Hit{
		hit(1, "Dr. A", domain.KindInterest, "robotics", 0.9),
		hit(1, "Dr. A", domain.KindInterest, "robotics", 0.9),
		hit(1, "Dr. A", domain.KindInterest, "iot", 0.3),
	}}
	e := NewEngine(&stubEmbedder{}, idx, 100)

	results, err := e.Retrieve("robots")
	require.NoError(t, err)
	require.Len(t, results, 1)
	// (0.9+0.9+0.3)/3
	assert.InDelta(t, 0.7, results[0].Score, 1e-9)
	assert.Len(t, results[0].Kinds[0].Matches, 3)
}
