package barbershop_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"barberq/internal/barbershop"
	"barberq/internal/logging"
	"barberq/internal/queue"
	"barberq/internal/testsupport"
)

func newClient(t *testing.T, backend *testsupport.Backend, opts ...barbershop.Option) *barbershop.Client {
	t.Helper()
	client, err := barbershop.New(backend.URL(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestQueueSnapshotPreservesServingOrder(t *testing.T) {
	backend := testsupport.NewBackend(t, "junior")
	ids := backend.Seed("junior", "Ana", "Bruno", "Carla")
	client := newClient(t, backend)

	snap, err := client.QueueSnapshot(context.Background(), "junior")
	if err != nil {
		t.Fatalf("QueueSnapshot: %v", err)
	}
	want := queue.NewSnapshot(
		queue.Entry{ID: ids[0], Name: "Ana"},
		queue.Entry{ID: ids[1], Name: "Bruno"},
		queue.Entry{ID: ids[2], Name: "Carla"},
	)
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownBarberIsNotFound(t *testing.T) {
	backend := testsupport.NewBackend(t, "junior")
	client := newClient(t, backend)

	_, err := client.Queue(context.Background(), "ghost")
	if !errors.Is(err, barbershop.ErrNotFound) {
		t.Fatalf("Queue = %v, want ErrNotFound", err)
	}
	var statusErr *barbershop.StatusError
	if !errors.As(err, &statusErr) || statusErr.Message != "unknown barber" {
		t.Fatalf("expected backend message, got %v", err)
	}
}

func TestJoinLeaveAndPosition(t *testing.T) {
	backend := testsupport.NewBackend(t, "yago")
	backend.Seed("yago", "First")
	client := newClient(t, backend)
	ctx := context.Background()

	ticket, err := client.Join(ctx, "  Maria ", "yago")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if ticket.Position != 2 {
		t.Fatalf("position = %d, want 2", ticket.Position)
	}

	pos, err := client.Position(ctx, ticket.ClientID.String())
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	want := barbershop.Position{Found: true, Position: 2, Barber: "yago", Name: "Maria"}
	if diff := cmp.Diff(want, pos); diff != "" {
		t.Fatalf("position mismatch (-want +got):\n%s", diff)
	}

	if err := client.Leave(ctx, ticket.ClientID.String()); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	pos, err = client.Position(ctx, ticket.ClientID.String())
	if err != nil {
		t.Fatalf("Position after leave: %v", err)
	}
	if pos.Found {
		t.Fatal("client should be gone after leaving")
	}
}

func TestJoinSurfacesBackendError(t *testing.T) {
	backend := testsupport.NewBackend(t, "yago")
	client := newClient(t, backend)

	_, err := client.Join(context.Background(), "Maria", "nobody")
	var statusErr *barbershop.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadRequest {
		t.Fatalf("Join = %v, want 400 StatusError", err)
	}
	if !strings.Contains(err.Error(), "unknown barber") {
		t.Fatalf("error should carry backend message: %v", err)
	}
}

func TestServeRequiresCredentials(t *testing.T) {
	backend := testsupport.NewBackend(t, "reine")
	id := backend.Add("reine", "Ana")
	client := newClient(t, backend)

	if err := client.Serve(context.Background(), id); !errors.Is(err, barbershop.ErrUnauthorized) {
		t.Fatalf("Serve without token = %v, want ErrUnauthorized", err)
	}
	if backend.CountRequests("/barber/serve-client") != 0 {
		t.Fatal("no request should be sent without credentials")
	}
}

func TestServeRefreshesExpiredToken(t *testing.T) {
	backend := testsupport.NewBackend(t, "reine")
	id := backend.Add("reine", "Ana")
	client := newClient(t, backend, barbershop.WithTokens(backend.Token(), backend.RefreshToken))
	backend.ExpireToken()

	if err := client.Serve(context.Background(), id); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if got := backend.IDs("reine"); len(got) != 0 {
		t.Fatalf("client should have been served, queue=%v", got)
	}
	if backend.CountRequests("/auth/refresh") != 1 {
		t.Fatalf("expected exactly one refresh, got %d", backend.CountRequests("/auth/refresh"))
	}

	// The refreshed token is reused.
	if _, err := client.Queues(context.Background()); err != nil {
		t.Fatalf("Queues: %v", err)
	}
	if backend.CountRequests("/auth/refresh") != 1 {
		t.Fatal("token should not be refreshed again")
	}
}

func TestServeWithoutRefreshTokenFailsUnauthorized(t *testing.T) {
	backend := testsupport.NewBackend(t, "reine")
	id := backend.Add("reine", "Ana")
	client := newClient(t, backend, barbershop.WithTokens("stale", ""))

	err := client.Serve(context.Background(), id)
	if !errors.Is(err, barbershop.ErrUnauthorized) {
		t.Fatalf("Serve = %v, want ErrUnauthorized", err)
	}
	if backend.CountRequests("/auth/refresh") != 0 {
		t.Fatal("refresh must not be attempted without a refresh token")
	}
}

func TestQueuesReturnsEveryBarber(t *testing.T) {
	backend := testsupport.NewBackend(t, "junior", "yago")
	a := backend.Add("junior", "Ana")
	client := newClient(t, backend, barbershop.WithTokens(backend.Token(), ""))

	queues, err := client.Queues(context.Background())
	if err != nil {
		t.Fatalf("Queues: %v", err)
	}
	if len(queues) != 2 || len(queues["yago"]) != 0 {
		t.Fatalf("unexpected queues %+v", queues)
	}
	if got := queues["junior"]; len(got) != 1 || got[0].ClientID.String() != a {
		t.Fatalf("unexpected junior queue %+v", got)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	backend := testsupport.NewBackend(t, "junior")
	client := newClient(t, backend)

	ctx := logging.WithRequestID(context.Background(), "req-42")
	if _, err := client.Queue(ctx, "junior"); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if _, err := client.Queue(context.Background(), "junior"); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	reqs := backend.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[0].RequestID != "req-42" {
		t.Fatalf("request id = %q, want req-42", reqs[0].RequestID)
	}
	if reqs[1].RequestID == "" || reqs[1].RequestID == "req-42" {
		t.Fatalf("expected a generated request id, got %q", reqs[1].RequestID)
	}
}

func TestUnavailableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := barbershop.New(url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Queue(context.Background(), "junior")
	if !barbershop.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	backend := testsupport.NewBackend(t, "junior")
	backend.Fail("/public/barber-queue/junior", http.StatusServiceUnavailable, "maintenance")
	_, err = newClient(t, backend).Queue(context.Background(), "junior")
	if !barbershop.IsUnavailable(err) {
		t.Fatalf("503 should count as unavailable, got %v", err)
	}
}

func TestClientIDAcceptsNumbersAndStrings(t *testing.T) {
	var entries []barbershop.QueueEntry
	body := `[{"clientId": 1712, "name": "A"}, {"clientId": "abc-9", "name": "B"}, {"clientId": null, "name": "C"}]`
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got := []string{entries[0].ClientID.String(), entries[1].ClientID.String(), entries[2].ClientID.String()}
	if diff := cmp.Diff([]string{"1712", "abc-9", ""}, got); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(struct {
		ClientID barbershop.ClientID `json:"clientId"`
	}{ClientID: "1712"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"clientId":"1712"}` {
		t.Fatalf("client ids are sent as strings, got %s", out)
	}
}
