package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/roach88/vendorsync/internal/record"
)

// VendorPathPrefix is the path the fake API serves vendors under.
const VendorPathPrefix = "/almaws/v1/acq/vendors/"

// FakeVendorAPI is an in-memory stand-in for the remote vendor API.
//
// It decodes the key from the request path the way a real server would, so
// tests can assert on the logical key a request carried.
type FakeVendorAPI struct {
	Server *httptest.Server
	APIKey string

	mu       sync.Mutex
	records  map[string]record.Payload
	failGet  map[string]int
	failPut  map[string]int
	gets     []string
	puts     []string
	rawPaths []string
	requests []Request
}

// Request is one answered call, as seen by the fake API.
type Request struct {
	Method string
	Key    string
	Status int
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s %d", r.Method, r.Key, r.Status)
}

// NewFakeVendorAPI starts a fake API that requires apiKey on every request.
// The server is closed when the test ends.
func NewFakeVendorAPI(t *testing.T, apiKey string) *FakeVendorAPI {
	t.Helper()
	f := &FakeVendorAPI{
		APIKey:  apiKey,
		records: make(map[string]record.Payload),
		failGet: make(map[string]int),
		failPut: make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	f.Server.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL is the API root to configure the gateway with.
func (f *FakeVendorAPI) BaseURL() string {
	return f.Server.URL + strings.TrimSuffix(VendorPathPrefix, "/")
}

// Put stores a vendor record.
func (f *FakeVendorAPI) Put(key string, p record.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[key] = p
}

// Record returns the stored vendor record.
func (f *FakeVendorAPI) Record(key string) (record.Payload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.records[key]
	return p, ok
}

// FailGet makes every GET for key answer with status.
func (f *FakeVendorAPI) FailGet(key string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet[key] = status
}

// FailPut makes every PUT for key answer with status.
func (f *FakeVendorAPI) FailPut(key string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut[key] = status
}

// ClearFailures removes every injected failure.
func (f *FakeVendorAPI) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = make(map[string]int)
	f.failPut = make(map[string]int)
}

// Gets returns the decoded keys of every GET, in order.
func (f *FakeVendorAPI) Gets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.gets...)
}

// Puts returns the decoded keys of every successful PUT, in order.
func (f *FakeVendorAPI) Puts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.puts...)
}

// Requests returns every call that reached a vendor path, in order.
func (f *FakeVendorAPI) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// RawPaths returns the escaped request paths, in order.
func (f *FakeVendorAPI) RawPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.rawPaths...)
}

func (f *FakeVendorAPI) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("apikey") != f.APIKey {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		return
	}
	if !strings.HasPrefix(r.URL.Path, VendorPathPrefix) {
		http.NotFound(w, r)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, VendorPathPrefix)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawPaths = append(f.rawPaths, r.URL.EscapedPath())
	status := f.answer(w, r, key)
	f.requests = append(f.requests, Request{Method: r.Method, Key: key, Status: status})
}

// answer writes the response for key and returns its status. f.mu is held.
func (f *FakeVendorAPI) answer(w http.ResponseWriter, r *http.Request, key string) int {
	switch r.Method {
	case http.MethodGet:
		f.gets = append(f.gets, key)
		if status, ok := f.failGet[key]; ok {
			http.Error(w, `{"error":"injected failure"}`, status)
			return status
		}
		p, ok := f.records[key]
		if !ok {
			http.Error(w, `{"error":"vendor not found"}`, http.StatusNotFound)
			return http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
		return http.StatusOK
	case http.MethodPut:
		if status, ok := f.failPut[key]; ok {
			http.Error(w, `{"error":"injected failure"}`, status)
			return status
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return http.StatusBadRequest
		}
		var p record.Payload
		if err := json.Unmarshal(body, &p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return http.StatusBadRequest
		}
		f.records[key] = p
		f.puts = append(f.puts, key)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return http.StatusOK
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return http.StatusMethodNotAllowed
	}
}

// VendorPayload returns a complete vendor record with the given code and
// financial system code.
func VendorPayload(code, financialSysCode string) record.Payload {
	return record.Payload{
		"access_provider":    false,
		"account":            []any{},
		"code":               code,
		"contact_info":       map[string]any{},
		"contact_person":     []any{},
		"currency":           map[string]any{"value": "USD"},
		"edi_info":           map[string]any{},
		"financial_sys_code": financialSysCode,
		"governmental":       false,
		"interface":          []any{},
		"language":           map[string]any{"value": "en"},
		"liable_for_vat":     false,
		"library":            []any{},
		"licensor":           false,
		"link":               "https://example.test/vendors/" + code,
		"material_supplier":  true,
		"name":               "Vendor " + code,
		"note":               []any{},
		"status":             map[string]any{"value": "ACTIVE"},
	}
}
