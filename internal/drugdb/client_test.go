package drugdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:           srv.URL,
		ResolveTimeout:    time.Second,
		BulkTimeout:       time.Second,
		PairTimeout:       time.Second,
		RequestsPerSecond: 1000,
		Burst:             100,
		BreakerFailures:   100,
	}, logger.Nop(), metrics.New("test"))
	return c, &calls
}

func TestResolveIdentifier_DirectHitIsCached(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rxcui.json", r.URL.Path)
		assert.Equal(t, "Warfarin", r.URL.Query().Get("name"))
		assert.Equal(t, "0", r.URL.Query().Get("allsrc"))
		w.Write([]byte(`{"idGroup":{"name":"Warfarin","rxnormId":["11289"]}}`))
	})

	id, ok := c.ResolveIdentifier(context.Background(), "Warfarin")
	require.True(t, ok)
	assert.Equal(t, "11289", id)

	id, ok = c.ResolveIdentifier(context.Background(), "  warfarin ")
	require.True(t, ok)
	assert.Equal(t, "11289", id)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestResolveIdentifier_SpellingSuggestionFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rxcui.json" && r.URL.Query().Get("name") == "asprin":
			w.Write([]byte(`{"idGroup":{"name":"asprin"}}`))
		case r.URL.Path == "/spellingsuggestions.json":
			w.Write([]byte(`{"suggestionGroup":{"suggestionList":{"suggestion":["aspirin","asparaginase"]}}}`))
		case r.URL.Path == "/rxcui.json" && r.URL.Query().Get("name") == "aspirin":
			w.Write([]byte(`{"idGroup":{"rxnormId":["1191"]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	id, ok := c.ResolveIdentifier(context.Background(), "asprin")
	require.True(t, ok)
	assert.Equal(t, "1191", id)
}

func TestResolveIdentifier_FailureIsNoData(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	id, ok := c.ResolveIdentifier(context.Background(), "warfarin")
	assert.False(t, ok)
	assert.Empty(t, id)

	_, ok = c.ResolveIdentifier(context.Background(), "")
	assert.False(t, ok)
}

func TestResolveIdentifier_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"idGroup": [`))
	})
	_, ok := c.ResolveIdentifier(context.Background(), "warfarin")
	assert.False(t, ok)
}

func TestInteractions_ParsesRecords(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/interaction/list.json", r.URL.Path)
		assert.Equal(t, "11289+1191", r.URL.Query().Get("rxcuis"))
		w.Write([]byte(`{
			"fullInteractionTypeGroup": [{
				"sourceName": "DrugBank",
				"fullInteractionType": [{
					"interactionPair": [{
						"severity": "high",
						"description": "The risk of bleeding can be increased.",
						"interactionConcept": [
							{"minConceptItem": {"name": "warfarin"}},
							{"minConceptItem": {"name": "aspirin"}}
						]
					}, {
						"description": "No severity reported."
					}]
				}]
			}]
		}`))
	})

	records := c.Interactions(context.Background(), []string{"11289", "", "1191"})
	require.Len(t, records, 2)
	assert.Equal(t, "high", records[0].Severity)
	assert.Equal(t, "DrugBank", records[0].Source)
	assert.Equal(t, []string{"warfarin", "aspirin"}, records[0].Drugs)
	assert.Empty(t, records[1].Severity)
	assert.Empty(t, records[1].Drugs)
}

func TestInteractions_TimeoutIsNoData(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c.cfg.PairTimeout = 50 * time.Millisecond

	start := time.Now()
	assert.Nil(t, c.Interactions(context.Background(), []string{"1", "2"}))
	assert.Less(t, time.Since(start), time.Second)
}

func TestInteractions_SingleIdentifierSkipsRequest(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.Nil(t, c.Interactions(context.Background(), []string{"1"}))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}
