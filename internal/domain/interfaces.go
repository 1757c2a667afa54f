package domain

// Embedder converts free text into a fixed-dimension numeric vector.
// The dimension is fixed at deployment time and must match the vector
// field configured on the index.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(text string) ([]float64, error)
}

// VectorIndex stores embedded fragments and answers nearest-neighbor
// queries. All implementations use cosine similarity: higher is better.
type VectorIndex interface {
	// CollectionExists reports whether the backing collection has been
	// created.
	CollectionExists() (bool, error)
	// CreateCollection creates the collection with the given vector
	// dimension. Idempotent if the collection already exists.
	CreateCollection(dimension int) error
	// EnsureIndexBuilt builds the similarity index structure if missing.
	// Idempotent.
	EnsureIndexBuilt() error
	// SupervisorExists reports whether any fragment for the given
	// supervisor id is stored.
	SupervisorExists(id int64) (bool, error)
	// Insert writes a batch of fragments. Every fragment must carry a
	// vector of the collection's dimension.
	Insert(fragments []Fragment) error
	// Flush makes previously inserted fragments durable and searchable.
	Flush() error
	// Search returns up to limit fragments nearest to the query vector,
	// best-first.
	Search(vector []float64, limit int) ([]Hit, error)
	// DumpAll returns every stored fragment without vectors, in storage
	// order.
	DumpAll() ([]Fragment, error)
}
