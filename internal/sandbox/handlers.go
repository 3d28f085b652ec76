// Package sandbox is a local stand-in for the rules and gameplay services. It
// serves canned games from an embedded catalog and keeps state in Redis, so the
// console can be run and tested without the real backend.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/boardgame-console/pkg/gateway"
	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// RulesHandler serves generate and optimize.
type RulesHandler struct {
	store   Store
	catalog *Catalog
	logger  *slog.Logger
	newID   func() string
}

func NewRulesHandler(store Store, catalog *Catalog, logger *slog.Logger) *RulesHandler {
	return &RulesHandler{
		store:   store,
		catalog: catalog,
		logger:  logger,
		newID:   func() string { return uuid.New().String() },
	}
}

func (h *RulesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	switch r.URL.Path {
	case gateway.PathGenerateRules:
		h.handleGenerate(w, r)
	case gateway.PathOptimizeRules:
		h.handleOptimize(w, r)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *RulesHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req gateway.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid generate request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.NumberOfPlayers < ruledoc.MinPlayers || req.NumberOfPlayers > ruledoc.MaxPlayers {
		writeError(w, h.logger, http.StatusBadRequest, "number_of_players must be between 2 and 5")
		return
	}

	tpl := h.catalog.Pick(req.GameCategory)
	ruleID := h.newID()
	doc := NewDocument(tpl, ruleID, req)

	if err := h.store.SaveRules(r.Context(), ruleID, doc); err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save rules")
		return
	}

	h.logger.Info("Rules generated",
		"rule_id", ruleID,
		"template", tpl.Name,
		"players", req.NumberOfPlayers,
		"category", req.GameCategory)
	writeNode(w, h.logger, http.StatusOK, doc)
}

func (h *RulesHandler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req gateway.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	doc, ok := loadRules(r.Context(), w, h.store, h.logger, req.RuleID)
	if !ok {
		return
	}
	doc = ApplyFeedback(doc, req.Feedback)
	if err := h.store.SaveRules(r.Context(), req.RuleID, doc); err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save rules")
		return
	}

	h.logger.Info("Rules optimized", "rule_id", req.RuleID)
	writeNode(w, h.logger, http.StatusOK, doc)
}

// GameplayHandler serves gameplay start and round.
type GameplayHandler struct {
	store   Store
	catalog *Catalog
	logger  *slog.Logger
}

func NewGameplayHandler(store Store, catalog *Catalog, logger *slog.Logger) *GameplayHandler {
	return &GameplayHandler{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

func (h *GameplayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	switch r.URL.Path {
	case gateway.PathStartGameplay:
		h.handleStart(w, r)
	case gateway.PathPlayRound:
		h.handleRound(w, r)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *GameplayHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req gateway.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	tpl, ok := h.seat(r.Context(), w, req.RuleID, req.PlayerRole)
	if !ok {
		return
	}
	if err := h.store.ResetHistory(r.Context(), req.RuleID, req.PlayerRole); err != nil {
		h.logger.Error("Failed to reset history", "rule_id", req.RuleID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to start gameplay")
		return
	}

	h.logger.Info("Gameplay started", "rule_id", req.RuleID, "player_role", req.PlayerRole)
	writeNode(w, h.logger, http.StatusOK, ruledoc.Map(
		ruledoc.F("rule_id", ruledoc.String(req.RuleID)),
		ruledoc.F("player_role", ruledoc.String(req.PlayerRole)),
		ruledoc.F("next_action", NextAction(tpl, 1)),
	))
}

func (h *GameplayHandler) handleRound(w http.ResponseWriter, r *http.Request) {
	var req gateway.RoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	tpl, ok := h.seat(r.Context(), w, req.RuleID, req.PlayerRole)
	if !ok {
		return
	}

	entry := HistoryEntry(tpl, req.RoundID, req.PlayerRole, req.Action)
	if err := h.store.AppendHistory(r.Context(), req.RuleID, req.PlayerRole, entry); err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to record round")
		return
	}
	history, err := h.store.History(r.Context(), req.RuleID, req.PlayerRole)
	if err != nil {
		h.logger.Error("Failed to read history", "rule_id", req.RuleID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read history")
		return
	}

	h.logger.Debug("Round played",
		"rule_id", req.RuleID,
		"player_role", req.PlayerRole,
		"round_id", req.RoundID,
		"history_len", len(history))
	writeNode(w, h.logger, http.StatusOK, ruledoc.Map(
		ruledoc.F("round_id", ruledoc.Int(req.RoundID)),
		ruledoc.F("next_action", NextAction(tpl, req.RoundID+1)),
		ruledoc.F("history", ruledoc.Seq(history...)),
	))
}

// seat loads the game and checks role is on its roster.
func (h *GameplayHandler) seat(ctx context.Context, w http.ResponseWriter, ruleID, role string) (Template, bool) {
	raw, ok := loadRules(ctx, w, h.store, h.logger, ruleID)
	if !ok {
		return Template{}, false
	}
	doc, err := ruledoc.DocumentFromNode(raw)
	if err != nil {
		h.logger.Error("Stored rules are invalid", "rule_id", ruleID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Stored rules are invalid")
		return Template{}, false
	}
	if _, ok := doc.Role(role); !ok {
		writeError(w, h.logger, http.StatusBadRequest, "player_role is not in this game's roster")
		return Template{}, false
	}
	tpl, ok := h.catalog.ByName(doc.Name)
	if !ok {
		tpl = h.catalog.Games[0]
	}
	return tpl, true
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

type HealthHandler struct {
	store  Store
	logger *slog.Logger
}

func NewHealthHandler(store Store, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Store health check failed", "error", err)
		components["store"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["store"] = "healthy"
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "boardgame-sandbox",
		Components: components,
	})
}

// NewMux wires the sandbox routes.
func NewMux(store Store, catalog *Catalog, logger *slog.Logger) *http.ServeMux {
	rules := NewRulesHandler(store, catalog, logger)
	gameplay := NewGameplayHandler(store, catalog, logger)

	mux := http.NewServeMux()
	mux.Handle(gateway.PathHealth, NewHealthHandler(store, logger))
	mux.Handle(gateway.PathGenerateRules, rules)
	mux.Handle(gateway.PathOptimizeRules, rules)
	mux.Handle(gateway.PathStartGameplay, gameplay)
	mux.Handle(gateway.PathPlayRound, gameplay)
	return mux
}

func loadRules(ctx context.Context, w http.ResponseWriter, store Store, logger *slog.Logger, ruleID string) (*ruledoc.Node, bool) {
	doc, err := store.LoadRules(ctx, ruleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Warn("Rules not found", "rule_id", ruleID)
			writeError(w, logger, http.StatusNotFound, "Rules not found")
			return nil, false
		}
		writeError(w, logger, http.StatusInternalServerError, "Failed to load rules")
		return nil, false
	}
	return doc, true
}

func writeNode(w http.ResponseWriter, logger *slog.Logger, status int, n *ruledoc.Node) {
	data, err := n.MarshalJSON()
	if err != nil {
		logger.Error("Failed to encode response", "error", err)
		writeError(w, logger, http.StatusInternalServerError, "Failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Error("Failed to write response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, gateway.ErrorResponse{Error: message})
}
