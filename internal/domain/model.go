package domain

import "strings"

// Kind tags the source attribute a fragment was embedded from.
type Kind string

const (
	KindInterest    Kind = "interest"
	KindPublication Kind = "publication"
)

// ResultField returns the JSON field carrying this kind's matched texts
// in query responses.
func (k Kind) ResultField() string {
	if k == KindPublication {
		return "top_papers"
	}
	return "top_" + string(k) + "s"
}

// Supervisor is one catalog entry. The ID is assigned from source-record
// order at ingestion time and is stable across runs.
type Supervisor struct {
	ID         int64
	Name       string
	Department string
	Contact    string
}

// Fragment is a single embeddable text unit owned by one supervisor.
// Supervisor attributes are denormalized onto every fragment so search
// hits need no join at read time.
type Fragment struct {
	SupervisorID int64
	Supervisor   string
	Department   string
	Contact      string
	Kind         Kind
	Text         string
	Vector       []float64
}

// Hit is one nearest-neighbor search result. Score follows the index's
// similarity metric: higher is better.
type Hit struct {
	SupervisorID int64
	Supervisor   string
	Department   string
	Contact      string
	Kind         Kind
	Text         string
	Score        float64
}

// RawRecord is one row of the supervisor source spreadsheet. Multi-value
// fields hold ";"-separated texts and are normalized by the pipeline.
type RawRecord struct {
	Name         string
	Department   string
	Contact      string
	Interests    string
	Publications string
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Inserted         int
	SkippedExisting  int
	SkippedInvalid   int
	FragmentsDropped int
}

// Add accumulates another report into this one.
func (r *IngestReport) Add(other IngestReport) {
	r.Inserted += other.Inserted
	r.SkippedExisting += other.SkippedExisting
	r.SkippedInvalid += other.SkippedInvalid
	r.FragmentsDropped += other.FragmentsDropped
}

// Match is one matched fragment text with its individual similarity score.
type Match struct {
	Text  string
	Score float64
}

// KindMatches groups the matches of one kind, best-first.
type KindMatches struct {
	Kind    Kind
	Matches []Match
}

// RankedSupervisor is one query result: a supervisor with its combined
// score and all matched texts grouped by kind.
type RankedSupervisor struct {
	Supervisor
	Score float64
	Kinds []KindMatches
}

// SupervisorSummary is one catalog listing entry: a supervisor and all of
// its stored fragment texts grouped by kind.
type SupervisorSummary struct {
	Supervisor
	Texts map[Kind][]string
}

// NormalizeText trims and lower-cases a fragment or query text. An empty
// result means the text carries nothing embeddable.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
