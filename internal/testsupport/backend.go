package testsupport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// RecordedRequest is one request handled by the fake backend.
type RecordedRequest struct {
	Method        string
	Path          string
	RequestID     string
	Authorization string
	Status        int
}

type fakeClient struct {
	ID   int64  `json:"clientId"`
	Name string `json:"name"`
}

type failure struct {
	status  int
	message string
}

// Backend is an in-process fake of the barbershop HTTP API. Client ids are
// encoded as JSON numbers.
type Backend struct {
	server *httptest.Server

	// RefreshToken is accepted by /auth/refresh.
	RefreshToken string

	mu       sync.Mutex
	order    []string
	queues   map[string][]fakeClient
	nextID   int64
	token    string
	tokenGen int
	failures map[string]failure
	delay    time.Duration
	requests []RecordedRequest
}

// NewBackend starts a fake backend serving the given barbers and registers cleanup.
func NewBackend(t testing.TB, barbers ...string) *Backend {
	t.Helper()
	b := &Backend{
		RefreshToken: "refresh-token",
		queues:       make(map[string][]fakeClient, len(barbers)),
		nextID:       1000,
		token:        "staff-token-0",
		failures:     make(map[string]failure),
	}
	for _, id := range barbers {
		b.order = append(b.order, id)
		b.queues[id] = nil
	}

	r := mux.NewRouter()
	r.Use(b.record)
	r.Methods(http.MethodGet).Path("/public/barber-queue/{barber}").HandlerFunc(b.getQueue)
	r.Methods(http.MethodPost).Path("/public/join-queue").HandlerFunc(b.join)
	r.Methods(http.MethodPost).Path("/public/leave-queue").HandlerFunc(b.leave)
	r.Methods(http.MethodGet).Path("/public/position").HandlerFunc(b.position)
	r.Methods(http.MethodGet).Path("/barber/queues").HandlerFunc(b.requireStaff(b.allQueues))
	r.Methods(http.MethodPost).Path("/barber/serve-client").HandlerFunc(b.requireStaff(b.serve))
	r.Methods(http.MethodPost).Path("/auth/refresh").HandlerFunc(b.refresh)

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string {
	return b.server.URL
}

// Token returns the currently valid staff token.
func (b *Backend) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// ExpireToken invalidates the current staff token; the next valid one is only
// obtainable through /auth/refresh.
func (b *Backend) ExpireToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenGen++
	b.token = "staff-token-" + strconv.Itoa(b.tokenGen)
}

// Add appends a client to barber's queue and returns its id.
func (b *Backend) Add(barber, name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strconv.FormatInt(b.addLocked(barber, name), 10)
}

// Seed appends several clients and returns their ids in order.
func (b *Backend) Seed(barber string, names ...string) []string {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		ids = append(ids, b.Add(barber, name))
	}
	return ids
}

// Remove deletes a client wherever it is queued.
func (b *Backend) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false
	}
	_, ok := b.removeLocked(n)
	return ok
}

// Rename changes a queued client's display name.
func (b *Backend) Rename(id, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, _ := strconv.ParseInt(id, 10, 64)
	for barber, clients := range b.queues {
		for i := range clients {
			if clients[i].ID == n {
				b.queues[barber][i].Name = name
			}
		}
	}
}

// IDs returns barber's queue ids in serving order.
func (b *Backend) IDs(barber string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.queues[barber]))
	for _, c := range b.queues[barber] {
		ids = append(ids, strconv.FormatInt(c.ID, 10))
	}
	return ids
}

// Fail makes every request to path answer status with message until Recover.
func (b *Backend) Fail(path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = failure{status: status, message: message}
}

// Recover clears a failure installed by Fail.
func (b *Backend) Recover(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, path)
}

// SetDelay slows every response down by d.
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// Requests returns the requests handled so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// CountRequests returns how many requests hit path.
func (b *Backend) CountRequests(path string) int {
	count := 0
	for _, req := range b.Requests() {
		if req.Path == path {
			count++
		}
	}
	return count
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		delay := b.delay
		fail, failing := b.failures[r.URL.Path]
		b.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}

		handler := next
		if failing {
			handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, fail.status, fail.message)
			})
		}

		b.mu.Lock()
		idx := len(b.requests)
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			RequestID:     r.Header.Get("X-Request-ID"),
			Authorization: r.Header.Get("Authorization"),
		})
		b.mu.Unlock()

		m := httpsnoop.CaptureMetrics(handler, w, r)
		slog.Debug("fake backend handled", "method", r.Method, "url", r.URL, "duration", m.Duration, "status", m.Code)

		b.mu.Lock()
		b.requests[idx].Status = m.Code
		b.mu.Unlock()
	})
}

func (b *Backend) requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		want := "Bearer " + b.token
		b.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r)
	}
}

func (b *Backend) getQueue(w http.ResponseWriter, r *http.Request) {
	barber := mux.Vars(r)["barber"]
	b.mu.Lock()
	clients, ok := b.queues[barber]
	out := append([]fakeClient{}, clients...)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "unknown barber")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": out})
}

func (b *Backend) join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Barber string `json:"barber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[req.Barber]; !ok {
		writeError(w, http.StatusBadRequest, "unknown barber")
		return
	}
	id := b.addLocked(req.Barber, strings.TrimSpace(req.Name))
	writeJSON(w, http.StatusOK, map[string]any{"clientId": id, "position": len(b.queues[req.Barber])})
}

func (b *Backend) leave(w http.ResponseWriter, r *http.Request) {
	b.removeFromBody(w, r)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	b.removeFromBody(w, r)
}

func (b *Backend) removeFromBody(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID json.Number `json:"clientId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	id, err := req.ClientID.Int64()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid clientId")
		return
	}
	b.mu.Lock()
	_, ok := b.removeLocked(id)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (b *Backend) position(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("clientId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid clientId")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, barber := range b.order {
		for i, c := range b.queues[barber] {
			if c.ID == id {
				writeJSON(w, http.StatusOK, map[string]any{
					"found":    true,
					"position": i + 1,
					"barber":   barber,
					"name":     c.Name,
				})
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"found": false})
}

func (b *Backend) allQueues(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make(map[string][]fakeClient, len(b.queues))
	for barber, clients := range b.queues {
		out[barber] = append([]fakeClient{}, clients...)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken != b.RefreshToken {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": b.Token()})
}

func (b *Backend) addLocked(barber, name string) int64 {
	b.nextID++
	if _, ok := b.queues[barber]; !ok {
		b.order = append(b.order, barber)
	}
	b.queues[barber] = append(b.queues[barber], fakeClient{ID: b.nextID, Name: name})
	return b.nextID
}

func (b *Backend) removeLocked(id int64) (string, bool) {
	for barber, clients := range b.queues {
		for i, c := range clients {
			if c.ID == id {
				b.queues[barber] = append(clients[:i:i], clients[i+1:]...)
				return barber, true
			}
		}
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("fake backend encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// String summarizes queues for test failure messages.
func (b *Backend) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for _, barber := range b.order {
		fmt.Fprintf(&sb, "%s=%v ", barber, b.queues[barber])
	}
	return strings.TrimSpace(sb.String())
}
