package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"customs-league/internal/config"
	"customs-league/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.Config{ExtractorBaseURL: baseURL})
}

func TestFetchExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/scoreboard"):
			json.NewEncoder(w).Encode(ScoreboardResponse{
				MapName: "Lotus",
				Source:  "TRACKER",
				Rows: []domain.StatRow{
					{Team: domain.TeamAlpha, PlayerIdentityHint: "PlayerOne#EU", Kills: 21, Deaths: 14, ACS: 244},
					{Team: domain.TeamBravo, PlayerIdentityHint: "PlayerTwo#EU", Kills: 13, Deaths: 16, ACS: 171},
				},
			})
		case strings.HasSuffix(r.URL.Path, "/meta"):
			json.NewEncoder(w).Encode(MetaResponse{Reference: "ref-1", MapName: "Lotus", RoundsWon: 13, RoundsLost: 9})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchExtraction(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Scoreboard.MapName != "Lotus" || len(got.Scoreboard.Rows) != 2 {
		t.Fatalf("scoreboard = %+v", got.Scoreboard)
	}
	if got.Scoreboard.Rows[0].Kills != 21 {
		t.Fatalf("row 0 = %+v", got.Scoreboard.Rows[0])
	}
	if got.Meta.RoundsWon != 13 {
		t.Fatalf("meta = %+v", got.Meta)
	}
}

func TestFetchScoreboard_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(ScoreboardResponse{MapName: "Ascent"})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchScoreboard(context.Background(), "ref-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MapName != "Ascent" {
		t.Fatalf("scoreboard = %+v", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want a single retry", calls.Load())
	}
}

func TestFetchScoreboard_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchScoreboard(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, 4xx must not be retried", calls.Load())
	}
}
