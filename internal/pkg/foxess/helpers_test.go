package foxess

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestTransport(srv *httptest.Server) *transport {
	return newTransport(HTTPClient(5*time.Second, "foxess-test"), srv.URL, 5*time.Second)
}

func writeResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"errno":  0,
		"msg":    "success",
		"result": result,
	}); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func writeErrno(t *testing.T, w http.ResponseWriter, errno int) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"errno": errno,
		"msg":   "error",
	}); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return body
}
