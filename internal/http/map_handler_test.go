package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func getPath(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestServeMapFile(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	rec := getPath(t, env.router, "/map/meta.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestServeMapFileNotFound(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	rec := getPath(t, env.router, "/map/missing.json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServeMapFileRejectsNonJSON(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	rec := getPath(t, env.router, "/map/secrets.txt")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-json name, got %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	rec := getPath(t, env.router, "/api/search?q=blue")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []json.RawMessage `json:"results"`
		Count   int               `json:"count"`
		Total   int               `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Total != 1 {
		t.Fatalf("expected one match, got %+v", resp)
	}
}

func TestSearchInvalidLimit(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	for _, limit := range []string{"0", "-5", "101", "abc"} {
		rec := getPath(t, env.router, "/api/search?limit="+limit)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for limit %q, got %d", limit, rec.Code)
		}
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	rec := getPath(t, env.router, "/api/search/suggestions?q=blu")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Suggestions) != 1 || resp.Suggestions[0] != "Blue Bottle Coffee" {
		t.Fatalf("unexpected suggestions %v", resp.Suggestions)
	}
}

func TestSuggestionsRequireQuery(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	rec := getPath(t, env.router, "/api/search/suggestions")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a query, got %d", rec.Code)
	}
}

func TestTypesAndTagsEndpoints(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	rec := getPath(t, env.router, "/api/search/types")
	if rec.Code != http.StatusOK {
		t.Fatalf("types: expected 200, got %d", rec.Code)
	}
	var types struct {
		Types []string `json:"types"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &types)
	if len(types.Types) != 1 || types.Types[0] != "cafe" {
		t.Fatalf("unexpected types %v", types.Types)
	}

	rec = getPath(t, env.router, "/api/search/tags")
	if rec.Code != http.StatusOK {
		t.Fatalf("tags: expected 200, got %d", rec.Code)
	}
	var tags struct {
		Tags []string `json:"tags"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &tags)
	if len(tags.Tags) != 1 || tags.Tags[0] != "coffee" {
		t.Fatalf("unexpected tags %v", tags.Tags)
	}
}
