package testutil

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"botdesk/internal/devserver"
)

// BackendURLEnv points integration tests at an already running backend
// instead of an in-process development server.
const BackendURLEnv = "BOTDESK_TEST_API_URL"

// StartBackend returns the base URL of a backend that lives for the rest of
// the test. Lookup order:
// 1) BOTDESK_TEST_API_URL
// 2) a fresh in-process devserver with its own database
func StartBackend(t testing.TB) string {
	t.Helper()
	if url := strings.TrimRight(strings.TrimSpace(os.Getenv(BackendURLEnv)), "/"); url != "" {
		return url
	}
	srv, err := devserver.New(devserver.Options{
		StorePath: filepath.Join(t.TempDir(), "devserver.db"),
		Secret:    "test-secret",
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("start devserver: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return ts.URL
}

// UniqueEmail derives a per-test address so runs against a shared backend
// never collide on sign-up.
func UniqueEmail(t testing.TB, local string) string {
	t.Helper()
	name := strings.ToLower(strings.NewReplacer("/", "-", " ", "-", "_", "-").Replace(t.Name()))
	return local + "+" + name + "@example.com"
}
