/*
scenarios.go - Demo roster for testing and demonstrations

PURPOSE:
  Populates the store with a small roster covering every group, so the
  planning and statistics views have something to show on a fresh
  database.

AVAILABLE SCENARIOS:
  demo:  one agent in each of groups A-D and the primary pair of group E,
         all entering on 2025-11-01

HOW SCENARIOS WORK:
 1. Reset the store (clear every table)
 2. Register the agents through the roster (same validation as the API)

USAGE VIA API:
  POST /api/scenarios/demo
  POST /api/scenarios/reset

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Roster endpoints
*/
package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/rota-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const DemoScenarioID = "demo"

var scenarios = []ScenarioDTO{
	{
		ID:          DemoScenarioID,
		Name:        "Demo roster",
		Description: "One agent per rotating group A-D plus the group E pair, entering 2025-11-01",
	},
}

// DemoEntryDate is the entry date of every demo agent.
var DemoEntryDate = generic.NewTimePoint(2025, 11, 1)

// DemoAgents is the demo roster, in group then code order.
var DemoAgents = []generic.Agent{
	{Code: "A01", LastName: "Dupont", FirstName: "Alice", Group: generic.GroupA, EntryDate: DemoEntryDate},
	{Code: "B02", LastName: "Martin", FirstName: "Bob", Group: generic.GroupB, EntryDate: DemoEntryDate},
	{Code: "C03", LastName: "Lefevre", FirstName: "Carole", Group: generic.GroupC, EntryDate: DemoEntryDate},
	{Code: "D04", LastName: "Dubois", FirstName: "David", Group: generic.GroupD, EntryDate: DemoEntryDate},
	{Code: "E01", LastName: "Zahiri", FirstName: "Ahmed", Group: generic.GroupE, EntryDate: DemoEntryDate},
	{Code: "E02", LastName: "Zarrouk", FirstName: "Benoit", Group: generic.GroupE, EntryDate: DemoEntryDate},
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// LoadDemo resets the store and registers DemoAgents.
func (h *Handler) LoadDemo(ctx context.Context) ([]generic.Agent, error) {
	if err := h.Store.Reset(ctx); err != nil {
		return nil, err
	}
	out := make([]generic.Agent, 0, len(DemoAgents))
	for _, a := range DemoAgents {
		saved, err := h.Roster.RegisterAgent(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}

	h.setScenario(DemoScenarioID)
	h.log.Info("demo scenario loaded", zap.Int("agents", len(out)))
	return out, nil
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last loaded scenario ("" after a reset).
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario": current})
}

func (h *Handler) LoadDemoScenario(w http.ResponseWriter, r *http.Request) {
	agents, err := h.LoadDemo(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioLoadDTO{Scenario: DemoScenarioID, Agents: toAgentDTOs(agents)})
}

// ResetDatabase clears every table.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.setScenario("")
	h.log.Warn("store reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
