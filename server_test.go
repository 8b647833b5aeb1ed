package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, classifier *Classifier, assistant *ChatAssistant) *Server {
	t.Helper()
	if assistant == nil {
		assistant = &ChatAssistant{Provider: "databricks", HTTPClient: http.DefaultClient}
	}
	return NewServer(Config{}, classifier, assistant, newTestDB(t), nil)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestClassifyEndpointSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[2.0]}`))
	}))
	defer upstream.Close()

	server := newTestServer(t, &Classifier{
		Catalog:    testCatalog(t),
		Endpoint:   upstream.URL,
		Token:      "tok",
		HTTPClient: upstream.Client(),
	}, nil)

	rec := postJSON(t, server, "/mpcdc/classify_change", `{
		"categorization_tier_1": "INFRAESTRUCTURA",
		"change_request_status": 2,
		"scheduled_start_date": "2026-02-09T08:00:00",
		"scheduled_end_date": "2026-02-09T12:00:00"
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp classifySuccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if resp.Status != "success" || resp.PredictedLabel != "DEGRADACIO" || resp.RawPrediction != 2.0 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClassifyEndpointAlias(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[0.0]}`))
	}))
	defer upstream.Close()

	server := newTestServer(t, &Classifier{
		Catalog:    testCatalog(t),
		Endpoint:   upstream.URL,
		Token:      "tok",
		HTTPClient: upstream.Client(),
	}, nil)

	rec := postJSON(t, server, "/classify", `{"ASORG": "IT"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestClassifyEndpointEmptyBody(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: testCatalog(t), Endpoint: "http://model", HTTPClient: http.DefaultClient}, nil)

	for _, body := range []string{"", "{}", "null"} {
		rec := postJSON(t, server, "/mpcdc/classify_change", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
		var resp classifyErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("parsing response: %v", err)
		}
		if resp.Status != "error" {
			t.Fatalf("body %q: status field = %q, want error", body, resp.Status)
		}
	}
}

func TestClassifyEndpointCatalogUnavailable(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: nil, Endpoint: "http://model", HTTPClient: http.DefaultClient}, nil)

	rec := postJSON(t, server, "/mpcdc/classify_change", `{"ASORG": "IT"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "catalog") {
		t.Fatalf("expected catalog message, got %s", rec.Body.String())
	}
}

func TestClassifyEndpointUpstreamFailureIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	server := newTestServer(t, &Classifier{
		Catalog:    testCatalog(t),
		Endpoint:   upstream.URL,
		Token:      "tok",
		HTTPClient: upstream.Client(),
	}, nil)

	rec := postJSON(t, server, "/mpcdc/classify_change", `{"ASORG": "IT"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestClassifyEndpointDecodeFailureSurfacesRawResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":["garbage"]}`))
	}))
	defer upstream.Close()

	server := newTestServer(t, &Classifier{
		Catalog:    testCatalog(t),
		Endpoint:   upstream.URL,
		Token:      "tok",
		HTTPClient: upstream.Client(),
	}, nil)

	rec := postJSON(t, server, "/mpcdc/classify_change", `{"ASORG": "IT"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp classifyErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if string(resp.RawResponse) != `{"predictions":["garbage"]}` {
		t.Fatalf("raw_response = %q, want upstream body", resp.RawResponse)
	}
}

func TestClassifyEndpointRejectsGet(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: testCatalog(t), Endpoint: "http://model", HTTPClient: http.DefaultClient}, nil)

	req := httptest.NewRequest("GET", "/mpcdc/classify_change", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestClassifyEndpointRecordsHistory(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[1.0]}`))
	}))
	defer upstream.Close()

	db := newTestDB(t)
	server := NewServer(Config{}, &Classifier{
		Catalog:    testCatalog(t),
		Endpoint:   upstream.URL,
		Token:      "tok",
		HTTPClient: upstream.Client(),
	}, &ChatAssistant{Provider: "databricks", HTTPClient: http.DefaultClient}, db, nil)

	rec := postJSON(t, server, "/mpcdc/classify_change", `{"categorization_tier_1": "SEGURETAT"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM classification_history WHERE predicted_label = 'TALL DE SERVEI'`).Scan(&count); err != nil {
		t.Fatalf("querying history: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one history row, got %d", count)
	}
}

func TestChatEndpointEmptyMessage(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: testCatalog(t)}, nil)

	rec := postJSON(t, server, "/mpcdc/chat", `{"message": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatEndpointDemoMode(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: testCatalog(t)}, nil)

	rec := postJSON(t, server, "/mpcdc/chat", `{"message": "infrastructure change"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if !strings.Contains(resp["response"], "INFRAESTRUCTURA") {
		t.Fatalf("expected canned infrastructure-change response, got %q", resp["response"])
	}
}

func TestStatusEndpointDemoMode(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: testCatalog(t)}, nil)

	req := httptest.NewRequest("GET", "/mpcdc/status", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if resp.Status != "demo" {
		t.Fatalf("status field = %q, want demo", resp.Status)
	}
	if resp.EquivalenceMapStatus != "loaded" {
		t.Fatalf("equivalence_map_status = %q, want loaded", resp.EquivalenceMapStatus)
	}
}

func TestStatusEndpointReportsCatalogError(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: nil}, nil)

	req := httptest.NewRequest("GET", "/mpcdc/status", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if resp.EquivalenceMapStatus != "error" {
		t.Fatalf("equivalence_map_status = %q, want error", resp.EquivalenceMapStatus)
	}
}

func TestRootRedirectsToMpcdc(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: testCatalog(t)}, nil)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/mpcdc" {
		t.Fatalf("Location = %q, want /mpcdc", loc)
	}
}

func TestIndexReportsFlags(t *testing.T) {
	server := newTestServer(t, &Classifier{Catalog: nil}, nil)

	req := httptest.NewRequest("GET", "/mpcdc", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if resp["map_loaded"] != false {
		t.Fatalf("map_loaded = %v, want false", resp["map_loaded"])
	}
	if resp["use_mock"] != true {
		t.Fatalf("use_mock = %v, want true", resp["use_mock"])
	}
}
