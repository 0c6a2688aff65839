package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchMatchesOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/matches" {
			t.Errorf("path inesperado: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"match_id":1,"team_a":"Flamengo","team_b":"Palmeiras","start_time":"2026-08-31T16:00:00Z","is_live":true,"current_minute":37,"score_a":1,"score_b":0},
			{"match_id":2,"team_a":"Grêmio","team_b":"Internacional","start_time":"2026-08-31T19:00:00Z","is_live":false}
		]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	ms, err := c.FetchMatches(context.Background())
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("esperava 2 partidas, veio %d", len(ms))
	}
	if !ms[0].IsLive || ms[0].CurrentMinute == nil || *ms[0].CurrentMinute != 37 {
		t.Fatalf("partida ao vivo mal decodificada: %+v", ms[0])
	}
	if ms[1].CurrentMinute != nil || ms[1].ScoreA != nil {
		t.Fatalf("campos opcionais deveriam ser nil: %+v", ms[1])
	}
}

func TestFetchOddsDrawOptional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"match_id":1,"team_a_odds":1.50,"team_b_odds":2.50,"draw_odds":3.00},
			{"match_id":2,"team_a_odds":1.90,"team_b_odds":1.90}
		]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	odds, err := c.FetchOdds(context.Background())
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if odds[0].DrawOdds == nil || *odds[0].DrawOdds != 3.00 {
		t.Fatalf("draw_odds deveria estar presente: %+v", odds[0])
	}
	if odds[1].DrawOdds != nil {
		t.Fatalf("draw_odds deveria ser nil: %+v", odds[1])
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"not found vira NoData", http.StatusNotFound, "", KindNoData},
		{"bad request vira InvalidRequest", http.StatusBadRequest, "", KindInvalidRequest},
		{"500 vira ServerError", http.StatusInternalServerError, "", KindServerError},
		{"json quebrado vira DecodeFailure", http.StatusOK, `{"não é array"`, KindDecodeFailure},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL)
			_, err := c.FetchOdds(context.Background())
			if err == nil {
				t.Fatal("esperava erro")
			}
			if got := KindOf(err); got != tc.want {
				t.Fatalf("kind = %s, esperava %s", got, tc.want)
			}
		})
	}
}

func TestServerErrorKeepsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.FetchMatches(context.Background())

	fe, ok := err.(*Error)
	if !ok {
		t.Fatalf("esperava *Error, veio %T", err)
	}
	if fe.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", fe.StatusCode)
	}
}

func TestTimeoutKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	c.HTTP.Timeout = 20 * time.Millisecond

	_, err := c.FetchOdds(context.Background())
	if got := KindOf(err); got != KindTimeout {
		t.Fatalf("kind = %s, esperava timeout", got)
	}
}

func TestUnavailableKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // porta fechada: connection refused

	c := NewHTTPClient(srv.URL)
	_, err := c.FetchOdds(context.Background())
	if got := KindOf(err); got != KindUnavailable {
		t.Fatalf("kind = %s, esperava unavailable", got)
	}
}
