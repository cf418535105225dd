package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spec-kit/faceauth-service/internal/domain"
)

func TestListCandidatesSendsBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/managers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer eyJtok" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"id":"m1","name":"Sana","faceImageUrl":"https://cdn/m1.jpg"},
			{"_id":"m2","name":"Omar","profileImage":"https://cdn/m2.jpg"},
			{"id":"m3","name":"No Photo"}
		]}`))
	}))
	defer server.Close()

	d := NewDirectory(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	resp, err := d.ListCandidates(context.Background(), "eyJtok", domain.RoleTagManager)
	if err != nil {
		t.Fatalf("ListCandidates() error: %v", err)
	}
	if !resp.Success || len(resp.Data) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
	want := domain.RosterEntry{Identifier: "m2", DisplayName: "Omar", RoleTag: domain.RoleTagManager, ReferenceImageURL: "https://cdn/m2.jpg"}
	if resp.Data[1] != want {
		t.Fatalf("entry = %+v, want %+v", resp.Data[1], want)
	}
	if resp.Data[2].Comparable() {
		t.Fatalf("entry without photo must not be comparable")
	}
}

func TestListCandidatesReportsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":"Invalid face authentication token"}`))
	}))
	defer server.Close()

	d := NewDirectory(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	resp, err := d.ListCandidates(context.Background(), "face_auth_1_m1", domain.RoleTagEmployee)
	if err != nil {
		t.Fatalf("ListCandidates() error: %v", err)
	}
	if resp.Success || resp.Status != http.StatusUnauthorized || !resp.NeedsRetry() {
		t.Fatalf("expected retryable failure, got %+v", resp)
	}
	if resp.Error != "HTTP 401: Invalid face authentication token" {
		t.Fatalf("unexpected error text %q", resp.Error)
	}
}

func TestListCandidatesUnknownTag(t *testing.T) {
	d := NewDirectory(Options{BaseURL: "http://127.0.0.1:1"})
	if _, err := d.ListCandidates(context.Background(), "t", domain.RoleTag("visitor")); err == nil {
		t.Fatalf("expected error for unknown tag")
	}
}
