package milvus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"supmatch/internal/domain"
)

// Index is a minimal client to the Milvus v2 REST API. Fragments are
// stored in one collection with denormalized supervisor attributes and a
// COSINE-indexed vector field; the primary key is auto-assigned.
type Index struct {
	url        string
	token      string
	collection string
	indexType  string
	nlist      int
	client     *http.Client
}

type Config struct {
	URL        string
	Token      string
	Collection string
	IndexType  string
	NList      int
	Timeout    time.Duration
}

// queryLimit is the maximum row count Milvus accepts for a single query;
// DumpAll is bounded by it.
const queryLimit = 16384

var outputFields = []string{"supervisor_id", "supervisor", "department", "contact", "kind", "text"}

func NewIndex(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	indexType := cfg.IndexType
	if indexType == "" {
		indexType = "IVF_FLAT"
	}
	nlist := cfg.NList
	if nlist == 0 {
		nlist = 128
	}
	return &Index{
		url:        cfg.URL,
		token:      cfg.Token,
		collection: cfg.Collection,
		indexType:  indexType,
		nlist:      nlist,
		client:     &http.Client{Timeout: timeout},
	}
}

func (x *Index) CollectionExists() (bool, error) {
	var out struct {
		Has bool `json:"has"`
	}
	body := map[string]any{"collectionName": x.collection}
	if err := x.post("/v2/vectordb/collections/has", body, &out); err != nil {
		return false, err
	}
	return out.Has, nil
}

func (x *Index) CreateCollection(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"collectionName": x.collection,
		"schema": map[string]any{
			"autoId":             true,
			"enableDynamicField": false,
			"fields": []map[string]any{
				{"fieldName": "id", "dataType": "Int64", "isPrimary": true},
				{"fieldName": "supervisor_id", "dataType": "Int64"},
				varCharField("supervisor", 256),
				varCharField("department", 256),
				varCharField("contact", 256),
				varCharField("kind", 32),
				varCharField("text", 2048),
				{
					"fieldName":         "vector",
					"dataType":          "FloatVector",
					"elementTypeParams": map[string]string{"dim": strconv.Itoa(dimension)},
				},
			},
		},
	}
	// Milvus answers success for an existing collection with the same schema
	return x.post("/v2/vectordb/collections/create", body, nil)
}

func (x *Index) EnsureIndexBuilt() error {
	body := map[string]any{
		"collectionName": x.collection,
		"indexParams": []map[string]any{
			{
				"fieldName":  "vector",
				"indexName":  "vector_idx",
				"metricType": "COSINE",
				"params": map[string]any{
					"index_type": x.indexType,
					"nlist":      x.nlist,
				},
			},
		},
	}
	if err := x.post("/v2/vectordb/indexes/create", body, nil); err != nil {
		return err
	}
	load := map[string]any{"collectionName": x.collection}
	return x.post("/v2/vectordb/collections/load", load, nil)
}

func (x *Index) SupervisorExists(id int64) (bool, error) {
	var rows []row
	body := map[string]any{
		"collectionName": x.collection,
		"filter":         fmt.Sprintf("supervisor_id == %d", id),
		"outputFields":   []string{"supervisor_id"},
		"limit":          1,
	}
	if err := x.post("/v2/vectordb/entities/query", body, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (x *Index) Insert(fragments []domain.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}
	data := make([]map[string]any, len(fragments))
	for i, f := range fragments {
		if f.Vector == nil {
			return fmt.Errorf("fragment %q for supervisor %d has no vector", f.Text, f.SupervisorID)
		}
		data[i] = map[string]any{
			"supervisor_id": f.SupervisorID,
			"supervisor":    f.Supervisor,
			"department":    f.Department,
			"contact":       f.Contact,
			"kind":          string(f.Kind),
			"text":          f.Text,
			"vector":        f.Vector,
		}
	}
	body := map[string]any{"collectionName": x.collection, "data": data}
	return x.post("/v2/vectordb/entities/insert", body, nil)
}

func (x *Index) Flush() error {
	body := map[string]any{"collectionName": x.collection}
	return x.post("/v2/vectordb/collections/flush", body, nil)
}

func (x *Index) Search(vector []float64, limit int) ([]domain.Hit, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []row
	body := map[string]any{
		"collectionName": x.collection,
		"data":           [][]float64{vector},
		"annsField":      "vector",
		"limit":          limit,
		"outputFields":   outputFields,
		"searchParams": map[string]any{
			"metricType": "COSINE",
			"params":     map[string]any{"nprobe": 10},
		},
	}
	if err := x.post("/v2/vectordb/entities/search", body, &rows); err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, domain.Hit{
			SupervisorID: r.SupervisorID,
			Supervisor:   r.Supervisor,
			Department:   r.Department,
			Contact:      r.Contact,
			Kind:         domain.Kind(r.Kind),
			Text:         r.Text,
			Score:        r.Distance,
		})
	}
	return hits, nil
}

func (x *Index) DumpAll() ([]domain.Fragment, error) {
	var rows []row
	body := map[string]any{
		"collectionName": x.collection,
		"filter":         "supervisor_id >= 0",
		"outputFields":   outputFields,
		"limit":          queryLimit,
	}
	if err := x.post("/v2/vectordb/entities/query", body, &rows); err != nil {
		return nil, err
	}
	fragments := make([]domain.Fragment, 0, len(rows))
	for _, r := range rows {
		fragments = append(fragments, domain.Fragment{
			SupervisorID: r.SupervisorID,
			Supervisor:   r.Supervisor,
			Department:   r.Department,
			Contact:      r.Contact,
			Kind:         domain.Kind(r.Kind),
			Text:         r.Text,
		})
	}
	return fragments, nil
}

// row is the shape Milvus returns for query and search results. Distance
// is only present on search responses.
type row struct {
	SupervisorID int64   `json:"supervisor_id"`
	Supervisor   string  `json:"supervisor"`
	Department   string  `json:"department"`
	Contact      string  `json:"contact"`
	Kind         string  `json:"kind"`
	Text         string  `json:"text"`
	Distance     float64 `json:"distance"`
}

func (x *Index) post(path string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, x.url+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if x.token != "" {
		req.Header.Set("Authorization", "Bearer "+x.token)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("milvus POST %s failed: %s", path, resp.Status)
	}
	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&envelope); err != nil {
		return err
	}
	if envelope.Code != 0 {
		return fmt.Errorf("milvus POST %s failed: code %d: %s", path, envelope.Code, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

func varCharField(name string, maxLength int) map[string]any {
	return map[string]any{
		"fieldName":         name,
		"dataType":          "VarChar",
		"elementTypeParams": map[string]string{"max_length": strconv.Itoa(maxLength)},
	}
}
