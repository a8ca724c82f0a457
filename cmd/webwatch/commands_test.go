package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeDaemon serves just enough of the API for the CLI command methods.
func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/monitors", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message":"monitor created","id":3}`))
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"count":0,"data":[]}`))
		}
	})
	mux.HandleFunc("/monitors/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"monitor deleted","id":3}`))
	})
	mux.HandleFunc("/worker/run", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("secret") != "s" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid secret"})
			return
		}
		_, _ = w.Write([]byte(`{"message":"batch completed","checked":0,"snapshots":0,"changed":0,"unchanged":0,"failed":0}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAddListRemoveAgainstDaemon(t *testing.T) {
	srv := fakeDaemon(t)
	c := command{}

	flags := MonitorFlags{
		URL: "https://example.com", Selector: "#p",
		OwnerEmail: "a@x", OwnerKey: "k",
		APIUrl: srv.URL,
	}
	if err := c.Add(flags); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.List(MonitorFlags{OwnerKey: "k", APIUrl: srv.URL}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := c.Remove(MonitorFlags{ID: 3, OwnerKey: "k", APIUrl: srv.URL}); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func TestTriggerSecretMismatch(t *testing.T) {
	srv := fakeDaemon(t)
	c := command{}

	if err := c.Trigger(TriggerFlags{Secret: "s", APIUrl: srv.URL}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	err := c.Trigger(TriggerFlags{Secret: "nope", APIUrl: srv.URL})
	if err == nil || !strings.Contains(err.Error(), "invalid secret") {
		t.Fatalf("expected secret error, got %v", err)
	}
}

func TestCommandsFailWhenDaemonDown(t *testing.T) {
	srv := fakeDaemon(t)
	srv.Close()
	c := command{}

	err := c.List(MonitorFlags{OwnerKey: "k", APIUrl: srv.URL})
	if err == nil || !strings.Contains(err.Error(), "not reachable") {
		t.Fatalf("expected reachability error, got %v", err)
	}
}

func TestHelpMentionsSubcommands(t *testing.T) {
	root := buildRoot()
	var sb strings.Builder
	root.SetOut(&sb)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help should succeed: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"serve", "check", "add", "list", "remove", "trigger"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}
