package testsupport

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"dialer/internal/api"
)

// FakeBackend is an in-memory calling backend served over httptest.
type FakeBackend struct {
	Server *httptest.Server

	mu         sync.Mutex
	businesses []api.Business
	assets     []api.Asset
	activeKey  string
	callMsg    string
	account    api.AccountInfo
	failures   map[string]failure
	requests   []string
	uploads    map[string][]byte
	nextID     int
	updates    chan api.Business
}

type failure struct {
	status  int
	message string
}

// NewFakeBackend starts a backend seeded with businesses and registers
// cleanup.
func NewFakeBackend(t testing.TB, businesses ...api.Business) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		businesses: append([]api.Business(nil), businesses...),
		callMsg:    "Started calling businesses",
		failures:   map[string]failure{},
		uploads:    map[string][]byte{},
		nextID:     len(businesses) + 1,
		updates:    make(chan api.Business, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/businesses", f.listBusinesses)
	mux.HandleFunc("POST /api/upload-csv", f.uploadCSV)
	mux.HandleFunc("DELETE /api/clear-database", f.clearDatabase)
	mux.HandleFunc("GET /api/export-csv", f.exportCSV)
	mux.HandleFunc("POST /api/call-all", f.callAll)
	mux.HandleFunc("GET /api/business-updates", f.streamUpdates)
	mux.HandleFunc("GET /api/assets", f.listAssets)
	mux.HandleFunc("POST /api/assets/set-active/{key}", f.setActive)
	mux.HandleFunc("DELETE /api/assets/{key}", f.deleteAsset)
	mux.HandleFunc("POST /api/upload-recording", f.uploadRecording)
	mux.HandleFunc("POST /api/generate-recordings", f.generateRecordings)
	mux.HandleFunc("GET /api/twilio-info", f.accountInfo)

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server base URL.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// Fail makes every request to path answer with status and an error payload.
// An empty message sends no payload.
func (f *FakeBackend) Fail(path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure{status: status, message: message}
}

// SetAssets replaces the stored recordings.
func (f *FakeBackend) SetAssets(assets ...api.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets = append([]api.Asset(nil), assets...)
}

// SetCallAllMessage sets the message returned by call-all.
func (f *FakeBackend) SetCallAllMessage(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callMsg = msg
}

// SetAccount sets the account info payload.
func (f *FakeBackend) SetAccount(info api.AccountInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = info
}

// Push queues a record for the next update stream reader.
func (f *FakeBackend) Push(b api.Business) {
	f.updates <- b
}

// Businesses returns the stored directory.
func (f *FakeBackend) Businesses() []api.Business {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Business(nil), f.businesses...)
}

// ActiveKey returns the backend's active recording.
func (f *FakeBackend) ActiveKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeKey
}

// Upload returns the stored content of an uploaded file.
func (f *FakeBackend) Upload(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.uploads[name]
	return data, ok
}

// Requests returns "METHOD path" for every request received.
func (f *FakeBackend) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Called reports whether a request matching "METHOD path" was received.
func (f *FakeBackend) Called(methodPath string) bool {
	for _, r := range f.Requests() {
		if r == methodPath {
			return true
		}
	}
	return false
}

func (f *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		fail, failing := f.failures[r.URL.Path]
		f.mu.Unlock()
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			if fail.message != "" {
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: fail.message})
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) listBusinesses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, f.Businesses())
}

func (f *FakeBackend) uploadCSV(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, api.ErrorResponse{Error: "No file uploaded"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil || len(rows) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, api.ErrorResponse{Error: "Invalid CSV"})
		return
	}

	f.mu.Lock()
	f.uploads[header.Filename] = data
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		f.businesses = append(f.businesses, api.Business{
			ID:         strconv.Itoa(f.nextID),
			Name:       row[0],
			Phone:      row[1],
			CallStatus: api.CallPending,
		})
		f.nextID++
	}
	f.mu.Unlock()
	writeJSON(w, map[string]string{"message": "File processed"})
}

func (f *FakeBackend) clearDatabase(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.businesses = nil
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) exportCSV(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "name", "phone", "callStatus"})
	for _, b := range f.Businesses() {
		_ = cw.Write([]string{b.ID, b.Name, b.Phone, string(b.CallStatus)})
	}
	cw.Flush()
}

func (f *FakeBackend) callAll(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	msg := f.callMsg
	for i := range f.businesses {
		f.businesses[i].CallStatus = api.CallCalling
	}
	f.mu.Unlock()
	writeJSON(w, api.CallAllResponse{Message: msg})
}

func (f *FakeBackend) streamUpdates(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			_, _ = io.WriteString(w, ": keepalive\n\n")
			flusher.Flush()
		case b := <-f.updates:
			f.mu.Lock()
			for i := range f.businesses {
				if f.businesses[i].ID == b.ID {
					f.businesses[i] = b
				}
			}
			f.mu.Unlock()
			payload, _ := json.Marshal(b)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (f *FakeBackend) listAssets(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	assets := append([]api.Asset(nil), f.assets...)
	f.mu.Unlock()
	writeJSON(w, assets)
}

func (f *FakeBackend) setActive(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.Key == key {
			f.activeKey = key
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Recording not found"})
}

func (f *FakeBackend) deleteAsset(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.assets[:0]
	for _, a := range f.assets {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	f.assets = kept
	if f.activeKey == key {
		f.activeKey = ""
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) uploadRecording(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	f.mu.Lock()
	f.uploads[header.Filename] = data
	key := "recordings/" + header.Filename
	f.assets = append(f.assets, api.Asset{Key: key, Filename: header.Filename, CreatedAt: time.Now().UTC()})
	f.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (f *FakeBackend) generateRecordings(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	f.mu.Lock()
	f.assets = append(f.assets,
		api.Asset{Key: "standard/greeting.wav", Filename: "greeting.wav", CreatedAt: now},
		api.Asset{Key: "standard/discount.wav", Filename: "discount.wav", CreatedAt: now},
	)
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) accountInfo(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	info := f.account
	f.mu.Unlock()
	writeJSON(w, info)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
