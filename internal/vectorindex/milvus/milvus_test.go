package milvus

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supmatch/internal/domain"
)

// fakeMilvus records requests and serves canned v2 REST envelopes per path.
type fakeMilvus struct {
	responses map[string]string
	requests  map[string]json.RawMessage
}

func newFakeMilvus() *fakeMilvus {
	return &fakeMilvus{
		responses: map[string]string{},
		requests:  map[string]json.RawMessage{},
	}
}

func (f *fakeMilvus) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.requests[r.URL.Path] = body
		resp, ok := f.responses[r.URL.Path]
		if !ok {
			resp = `{"code":0}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	})
}

func newTestIndex(t *testing.T, f *fakeMilvus) *Index {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewIndex(Config{URL: srv.URL, Collection: "test_collection"})
}

func TestCollectionExists(t *testing.T) {
	f := newFakeMilvus()
	f.responses["/v2/vectordb/collections/has"] = `{"code":0,"data":{"has":true}}`
	x := newTestIndex(t, f)

	exists, err := x.CollectionExists()
	require.NoError(t, err)
	assert.True(t, exists)

	var req map[string]any
	require.NoError(t, json.Unmarshal(f.requests["/v2/vectordb/collections/has"], &req))
	assert.Equal(t, "test_collection", req["collectionName"])
}

func TestErrorEnvelope(t *testing.T) {
	f := newFakeMilvus()
	f.responses["/v2/vectordb/collections/has"] = `{"code":1100,"message":"schema mismatch"}`
	x := newTestIndex(t, f)

	_, err := x.CollectionExists()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema mismatch")
}

func TestCreateCollectionSchema(t *testing.T) {
	f := newFakeMilvus()
	x := newTestIndex(t, f)

	require.NoError(t, x.CreateCollection(1536))
	require.Error(t, x.CreateCollection(0))

	var req struct {
		Schema struct {
			AutoID bool `json:"autoId"`
			Fields []struct {
				FieldName string            `json:"fieldName"`
				DataType  string            `json:"dataType"`
				Params    map[string]string `json:"elementTypeParams"`
			} `json:"fields"`
		} `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(f.requests["/v2/vectordb/collections/create"], &req))
	assert.True(t, req.Schema.AutoID)

	names := map[string]string{}
	for _, fld := range req.Schema.Fields {
		names[fld.FieldName] = fld.DataType
		if fld.FieldName == "vector" {
			assert.Equal(t, "1536", fld.Params["dim"])
		}
	}
	assert.Equal(t, "Int64", names["supervisor_id"])
	assert.Equal(t, "VarChar", names["kind"])
	assert.Equal(t, "FloatVector", names["vector"])
}

func TestSupervisorExists(t *testing.T) {
	f := newFakeMilvus()
	f.responses["/v2/vectordb/entities/query"] = `{"code":0,"data":[{"supervisor_id":3}]}`
	x := newTestIndex(t, f)

	exists, err := x.SupervisorExists(3)
	require.NoError(t, err)
	assert.True(t, exists)

	var req map[string]any
	require.NoError(t, json.Unmarshal(f.requests["/v2/vectordb/entities/query"], &req))
	assert.Equal(t, "supervisor_id == 3", req["filter"])

	f.responses["/v2/vectordb/entities/query"] = `{"code":0,"data":[]}`
	exists, err = x.SupervisorExists(99)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInsertRejectsMissingVector(t *testing.T) {
	x := newTestIndex(t, newFakeMilvus())
	err := x.Insert([]domain.Fragment{{SupervisorID: 1, Text: "robotics"}})
	require.Error(t, err)
}

func TestInsertPayload(t *testing.T) {
	f := newFakeMilvus()
	x := newTestIndex(t, f)

	require.NoError(t, x.Insert([]domain.Fragment{{
		SupervisorID: 1,
		Supervisor:   "Dr. A",
		Kind:         domain.KindInterest,
		Text:         "robotics",
		Vector:       []float64{0.1, 0.2},
	}}))

	var req struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(f.requests["/v2/vectordb/entities/insert"], &req))
	require.Len(t, req.Data, 1)
	assert.Equal(t, "Dr. A", req.Data[0]["supervisor"])
	assert.Equal(t, "interest", req.Data[0]["kind"])
	assert.NotContains(t, req.Data[0], "id", "primary key is auto-assigned")
}

func TestSearchParsesHits(t *testing.T) {
	f := newFakeMilvus()
	f.responses["/v2/vectordb/entities/search"] = `{"code":0,"data":[
		{"supervisor_id":1,"supervisor":"Dr. A","kind":"interest","text":"robotics","distance":0.91},
		{"supervisor_id":2,"supervisor":"Dr. B","kind":"publication","text":"older paper","distance":0.42}
	]}`
	x := newTestIndex(t, f)

	hits, err := x.Search([]float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].SupervisorID)
	assert.Equal(t, domain.KindInterest, hits[0].Kind)
	assert.InDelta(t, 0.91, hits[0].Score, 1e-9)
	assert.Equal(t, domain.KindPublication, hits[1].Kind)

	var req map[string]any
	require.NoError(t, json.Unmarshal(f.requests["/v2/vectordb/entities/search"], &req))
	assert.Equal(t, "vector", req["annsField"])
	assert.EqualValues(t, 10, req["limit"])
}

func TestDumpAll(t *testing.T) {
	f := newFakeMilvus()
	f.responses["/v2/vectordb/entities/query"] = `{"code":0,"data":[
		{"supervisor_id":1,"supervisor":"Dr. A","kind":"interest","text":"robotics"}
	]}`
	x := newTestIndex(t, f)

	fragments, err := x.DumpAll()
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "robotics", fragments[0].Text)
	assert.Nil(t, fragments[0].Vector)
}

func TestUnreachableServer(t *testing.T) {
	x := NewIndex(Config{URL: "http://127.0.0.1:1", Collection: "c"})
	_, err := x.CollectionExists()
	require.Error(t, err)
}
