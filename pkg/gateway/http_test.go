package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL, 5*time.Second, testLogger())
	require.NoError(t, err)
	return c
}

const documentBody = `{"name":"Sky Forts","background":"Floating islands","rules":{"win":"hold three forts"},"players":{"number_of_players":3,"Roles":[{"name":"Pilot","ability":"Fly"},{"name":"Engineer","ability":"Build"},{"name":"Scout","ability":"Spy"}]},"rule_id":"abc-123"}`

func TestHTTPClient_GenerateRules(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathGenerateRules, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(documentBody))
	})

	doc, err := c.GenerateRules(context.Background(), GenerateRequest{
		NumberOfPlayers:         3,
		GameDuration:            "30 minutes",
		DescriptionOfBackground: "Floating islands",
		GameCategory:            "adventure",
		GameMechanics:           []string{"Card Play"},
	})
	require.NoError(t, err)

	assert.Equal(t, "abc-123", doc.RuleID)
	assert.Equal(t, "Sky Forts", doc.Name)
	assert.Len(t, doc.Players.Roles, 3)

	assert.Equal(t, float64(3), got["number_of_players"])
	assert.Equal(t, "30 minutes", got["game_duration"])
	assert.Equal(t, "Floating islands", got["description_of_background"])
	assert.Equal(t, "adventure", got["game_category"])
	assert.Equal(t, []any{"Card Play"}, got["game_mechanics"])
}

func TestHTTPClient_OptimizeRules(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathOptimizeRules, r.URL.Path)
		var req OptimizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abc-123", req.RuleID)
		assert.Equal(t, "more trading", req.Feedback)
		_, _ = w.Write([]byte(documentBody))
	})

	doc, err := c.OptimizeRules(context.Background(), OptimizeRequest{RuleID: "abc-123", Feedback: "more trading"})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", doc.RuleID)
}

func TestHTTPClient_OptimizeRulesValidation(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.OptimizeRules(context.Background(), OptimizeRequest{RuleID: "abc", Feedback: "   "})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "feedback", vErr.Field)
	assert.False(t, called, "validation errors must not reach the network")
}

func TestHTTPClient_StartGameplay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathStartGameplay, r.URL.Path)
		var req StartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, StartRequest{RuleID: "r", PlayerRole: "Pilot"}, req)
		_, _ = w.Write([]byte(`{"next_action":{"choose":"pick one","choice_2":"Flee","choice_1":"Fight"}}`))
	})

	resp, err := c.StartGameplay(context.Background(), StartRequest{RuleID: "r", PlayerRole: "Pilot"})
	require.NoError(t, err)
	require.True(t, resp.NextAction.IsMapping())
	assert.Equal(t, "choose", resp.NextAction.Fields[0].Key)
	assert.Equal(t, "choice_2", resp.NextAction.Fields[1].Key)
}

func TestHTTPClient_PlayRound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathPlayRound, r.URL.Path)
		var req RoundRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, RoundRequest{RuleID: "r", PlayerRole: "Pilot", RoundID: 4, Action: "User chose to choice_1"}, req)
		_, _ = w.Write([]byte(`{"next_action":{"choice_1":"Rest"},"history":[{"actions":{"description":"X"}},{"events":{"description":"Y"}}]}`))
	})

	resp, err := c.PlayRound(context.Background(), RoundRequest{RuleID: "r", PlayerRole: "Pilot", RoundID: 4, Action: "User chose to choice_1"})
	require.NoError(t, err)
	require.Len(t, resp.History, 2)
	assert.Equal(t, "Y", resp.LastHistory().Get("events").Get("description").Text())
}

func TestHTTPClient_PlayRoundWithoutHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"next_action":{"choice_1":"Rest"},"history":"none"}`))
	})

	resp, err := c.PlayRound(context.Background(), RoundRequest{RuleID: "r", PlayerRole: "p", RoundID: 1, Action: "a"})
	require.NoError(t, err)
	assert.Empty(t, resp.History)
	assert.Nil(t, resp.LastHistory())
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransport bool
		wantMalformed bool
		wantMessage   string
	}{
		{"server error with json", http.StatusInternalServerError, `{"error":"rules engine down"}`, true, false, "gameplay-start: API returned status 500: rules engine down"},
		{"server error plain", http.StatusBadGateway, `upstream timeout`, true, false, "gameplay-start: API returned status 502: upstream timeout"},
		{"not json", http.StatusOK, `<html>`, false, true, ""},
		{"missing next_action", http.StatusOK, `{"choose":"x"}`, false, true, ""},
		{"next_action not object", http.StatusOK, `{"next_action":"x"}`, false, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.StartGameplay(context.Background(), StartRequest{RuleID: "r", PlayerRole: "p"})
			require.Error(t, err)

			var tErr *TransportError
			var mErr *MalformedResponseError
			assert.Equal(t, tt.wantTransport, errors.As(err, &tErr))
			assert.Equal(t, tt.wantMalformed, errors.As(err, &mErr))
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, err.Error())
			}
		})
	}
}

func TestHTTPClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, time.Second, testLogger())
	require.NoError(t, err)

	_, err = c.GenerateRules(context.Background(), GenerateRequest{NumberOfPlayers: 2})
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, 0, tErr.Status)
	assert.Equal(t, OpGenerateRules, tErr.Op)
}

func TestHTTPClient_Ping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == PathHealth {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewHTTPClient_InvalidURL(t *testing.T) {
	_, err := NewHTTPClient("not a url", time.Second, nil)
	assert.Error(t, err)
}

func TestRoundRequest_Validate(t *testing.T) {
	tests := []struct {
		name  string
		req   RoundRequest
		field string
	}{
		{"ok", RoundRequest{RuleID: "r", PlayerRole: "p", RoundID: 1, Action: "a"}, ""},
		{"no rule", RoundRequest{PlayerRole: "p", RoundID: 1, Action: "a"}, "rule_id"},
		{"no role", RoundRequest{RuleID: "r", RoundID: 1, Action: "a"}, "player_role"},
		{"round zero", RoundRequest{RuleID: "r", PlayerRole: "p", Action: "a"}, "round_id"},
		{"no action", RoundRequest{RuleID: "r", PlayerRole: "p", RoundID: 2}, "action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
