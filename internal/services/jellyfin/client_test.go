package jellyfin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"spool/internal/config"
	"spool/internal/services/jellyfin"
)

func TestRefreshSendsTokenAndPath(t *testing.T) {
	var gotPath, gotToken, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Emby-Token")
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := jellyfin.NewClient(server.URL+"/", "secret", server.Client())
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if gotPath != "/Library/Refresh" || gotMethod != http.MethodPost {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotToken != "secret" {
		t.Fatalf("token = %q", gotToken)
	}
}

func TestRefreshReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := jellyfin.NewClient(server.URL, "secret", server.Client())
	if err := client.Refresh(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestNewFromConfigDisabledIsNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Jellyfin.Enabled = false
	service := jellyfin.NewFromConfig(&cfg)
	if err := service.Refresh(context.Background()); err != nil {
		t.Fatalf("noop refresh returned error: %v", err)
	}
}
