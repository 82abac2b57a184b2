package ops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fieldday/internal/platform/config"
	"fieldday/internal/platform/store"
	sourcerdom "fieldday/internal/services/sourcer/domain"
)

type fakeRunner struct {
	mu   sync.Mutex
	reqs []sourcerdom.Request
	done chan struct{}
}

func (f *fakeRunner) SourceIndex(_ context.Context, req sourcerdom.Request) (int, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	close(f.done)
	return 1, nil
}

func (f *fakeRunner) SourceDocument(context.Context, sourcerdom.Request, string) (int, error) {
	return 0, nil
}

func newTestServer() (*Server, *fakeRunner) {
	runner := &fakeRunner{done: make(chan struct{})}
	// a store with no backends configured reports healthy
	return New(config.New(), &store.Store{}, runner), runner
}

func TestNew_PortEnvBecomesListenAddr(t *testing.T) {
	t.Setenv("API_PORT", "8080")

	srv, _ := newTestServer()
	if srv.addr != ":8080" {
		t.Fatalf("listen addr = %q, want %q", srv.addr, ":8080")
	}
}

func TestHealthz_OK(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer()
	rr := httptest.NewRecorder()
	srv.handleHealthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestSource_AcceptsAndRunsInBackground(t *testing.T) {
	t.Parallel()

	srv, runner := newTestServer()
	body := `{
		"indexUrl": "http://sports.example.com/v2/venues",
		"provider": "espn",
		"sport": "football-ncaa",
		"documentType": "venue"
	}`
	rr := httptest.NewRecorder()
	srv.handleSource(rr, httptest.NewRequest(http.MethodPost, "/v1/source", strings.NewReader(body)))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rr.Code)
	}

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("background sourcing run never started")
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.reqs) != 1 || runner.reqs[0].IndexURL != "http://sports.example.com/v2/venues" {
		t.Fatalf("runner requests = %+v", runner.reqs)
	}
}

func TestSource_RejectsInvalidBody(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{nope`},
		{"missing index url", `{"provider":"espn","sport":"football-ncaa","documentType":"venue"}`},
		{"relative index url", `{"indexUrl":"venues/1","provider":"espn","sport":"football-ncaa","documentType":"venue"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			srv, runner := newTestServer()
			rr := httptest.NewRecorder()
			srv.handleSource(rr, httptest.NewRequest(http.MethodPost, "/v1/source", strings.NewReader(c.body)))

			if rr.Code < 400 {
				t.Fatalf("status = %d, want client error", rr.Code)
			}
			select {
			case <-runner.done:
				t.Fatal("invalid request still triggered a sourcing run")
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}
