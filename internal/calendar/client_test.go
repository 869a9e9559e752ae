package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBusyPeriods(t *testing.T) {
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)

	var gotPath, gotAuth string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{
			"busy": []map[string]string{
				{"start": "2026-09-07T10:00:00Z", "end": "2026-09-07T11:00:00Z"},
				{"start": "2026-09-07T14:00:00Z", "end": "2026-09-07T15:30:00Z"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "secret-key"})
	busy, err := client.BusyPeriods(context.Background(), "Informatics", start, end)
	if err != nil {
		t.Fatalf("BusyPeriods failed: %v", err)
	}

	if gotPath != "/departments/Informatics/freebusy" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if got := gotQuery["start"]; len(got) != 1 || got[0] != start.Format(time.RFC3339) {
		t.Errorf("start query = %v", got)
	}

	if len(busy) != 2 {
		t.Fatalf("got %d busy periods, want 2", len(busy))
	}
	if !busy[0].Start.Equal(time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("first busy start = %v", busy[0].Start)
	}
	if !busy[1].End.Equal(time.Date(2026, 9, 7, 15, 30, 0, 0, time.UTC)) {
		t.Errorf("second busy end = %v", busy[1].End)
	}
}

func TestBusyPeriods_RetriesServerErrors(t *testing.T) {
	start := time.Now()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"busy": []any{}})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	busy, err := client.BusyPeriods(context.Background(), "Informatics", start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("BusyPeriods failed after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("server hit %d times, want 3", calls)
	}
	if len(busy) != 0 {
		t.Errorf("got %d busy periods, want 0", len(busy))
	}
}

func TestBusyPeriods_ClientErrorNotRetried(t *testing.T) {
	start := time.Now()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	if _, err := client.BusyPeriods(context.Background(), "Informatics", start, start.Add(time.Hour)); err == nil {
		t.Fatal("expected an error on 403")
	}
	if calls != 1 {
		t.Errorf("server hit %d times, want 1", calls)
	}
}

func TestCheckAvailability(t *testing.T) {
	start := time.Now()
	busy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"busy": []any{}}
		if busy {
			resp["busy"] = []map[string]string{{
				"start": start.Format(time.RFC3339),
				"end":   start.Add(time.Hour).Format(time.RFC3339),
			}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	ctx := context.Background()

	if free, err := client.CheckAvailability(ctx, "Informatics", start, start.Add(time.Hour)); err != nil || free {
		t.Errorf("busy calendar: free=%v err=%v, want false/nil", free, err)
	}

	busy = false
	if free, err := client.CheckAvailability(ctx, "Informatics", start, start.Add(time.Hour)); err != nil || !free {
		t.Errorf("empty calendar: free=%v err=%v, want true/nil", free, err)
	}
}

func TestCreateEvent(t *testing.T) {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)

	var gotPath, gotKey, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "evt-42",
			"status": "confirmed",
			"start":  start.Format(time.RFC3339),
			"end":    start.Add(time.Hour).Format(time.RFC3339),
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	event, err := client.CreateEvent(context.Background(), EventInput{
		IdempotencyKey: "request-42",
		Department:     "Informatics",
		Summary:        "counseling: Dina Putri / Rahmat Hidayat",
		Start:          start,
		End:            start.Add(time.Hour),
		Attendees: []Attendee{
			{Email: "dina@student.example.edu", Role: "student"},
			{Email: "rahmat@staff.example.edu", Role: "counselor"},
		},
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if gotPath != "/departments/Informatics/events" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "request-42" {
		t.Errorf("idempotency key = %q, want request-42", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if _, leaked := gotBody["IdempotencyKey"]; leaked {
		t.Error("idempotency key must not appear in the body")
	}
	if gotBody["summary"] != "counseling: Dina Putri / Rahmat Hidayat" {
		t.Errorf("summary = %v", gotBody["summary"])
	}
	if attendees, ok := gotBody["attendees"].([]any); !ok || len(attendees) != 2 {
		t.Errorf("attendees = %v", gotBody["attendees"])
	}

	if event.ID != "evt-42" {
		t.Errorf("event id = %q, want evt-42", event.ID)
	}
	if !event.Start.Equal(start) {
		t.Errorf("event start = %v", event.Start)
	}
}

func TestCreateEvent_GeneratesKeyWhenMissing(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		json.NewEncoder(w).Encode(map[string]string{"id": "evt-1"})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	if _, err := client.CreateEvent(context.Background(), EventInput{Department: "Informatics"}); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if gotKey == "" {
		t.Error("missing idempotency key was not generated")
	}
}

func TestCreateEvent_RejectionIncludesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"overlapping event"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.CreateEvent(context.Background(), EventInput{Department: "Informatics"})
	if err == nil {
		t.Fatal("expected an error on 409")
	}
	if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "overlapping event") {
		t.Errorf("error lacks status or detail: %v", err)
	}
}
