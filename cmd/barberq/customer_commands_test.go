package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestJoinStatusLeave(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("yago", "Bia")

	out, _, err := runCLI(t, []string{"join", "Ana", "--barber", "yago"}, env.configPath)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	requireContains(t, out, "Joined Yago's queue as Ana")
	requireContains(t, out, "Your position: 2")

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Ana, you are number 2 in Yago's queue")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var payload statusJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !payload.Found || payload.Position != 2 || payload.Barber != "yago" {
		t.Fatalf("unexpected status payload: %+v", payload)
	}

	_, _, err = runCLI(t, []string{"join", "Ana", "--barber", "junior"}, env.configPath)
	if err == nil {
		t.Fatal("expected a second join to be refused")
	}
	requireContains(t, err.Error(), "already waiting")

	out, _, err = runCLI(t, []string{"leave"}, env.configPath)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	requireContains(t, out, "Left Yago's queue")
	if got := len(env.backend.IDs("yago")); got != 1 {
		t.Fatalf("yago queue length = %d, want 1", got)
	}

	_, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err == nil {
		t.Fatal("expected status without a session to fail")
	}
	requireContains(t, err.Error(), "not in a queue")
}

func TestJoinReportsFormErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"join", "Ana"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing barber to fail")
	}
	requireContains(t, err.Error(), "select a barber")

	_, _, err = runCLI(t, []string{"join", "Ana", "--barber", "nobody"}, env.configPath)
	if err == nil {
		t.Fatal("expected unknown barber to fail")
	}
	requireContains(t, err.Error(), `unknown barber "nobody"`)
	if n := env.backend.CountRequests("/public/join-queue"); n != 0 {
		t.Fatalf("join requests = %d, want 0", n)
	}
}

func TestPreview(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("junior", "Ana", "Bia")

	out, _, err := runCLI(t, []string{"preview", "junior"}, env.configPath)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	requireContains(t, out, "Your position will be 3")

	out, _, err = runCLI(t, []string{"preview", "yago"}, env.configPath)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	requireContains(t, out, "Your position will be 1")
}

func TestPreviewWatchStopsWithContext(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("junior", "Ana")

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	out, _, err := runCLIContext(t, ctx, []string{"preview", "junior", "--watch"}, env.configPath)
	if err != nil {
		t.Fatalf("preview --watch: %v", err)
	}
	requireContains(t, out, "Your position will be 2")
}

func TestStatusWatchEndsWhenClientLeaves(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"join", "Ana", "--barber", "junior"}, env.configPath); err != nil {
		t.Fatalf("join: %v", err)
	}
	id := env.backend.IDs("junior")[0]

	go func() {
		time.Sleep(250 * time.Millisecond)
		env.backend.Remove(id)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, _, err := runCLIContext(t, ctx, []string{"status", "--watch"}, env.configPath)
	if err != nil {
		t.Fatalf("status --watch: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("watch ran until the deadline instead of ending when the client left")
	}
	requireContains(t, out, "Ana, you are next in Junior's queue")
	requireContains(t, out, "Ana is no longer in Junior's queue")

	_, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err == nil {
		t.Fatal("expected the session to be cleared")
	}
}
