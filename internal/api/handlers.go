package api

import (
	"encoding/json"
	"net/http"

	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/service"
)

type analyzeRequest struct {
	Tenant    string        `json:"tenant,omitempty"`
	Records   []core.Record `json:"records,omitempty"`
	ChunkSize int           `json:"chunk_size,omitempty"`
	Goal      string        `json:"goal,omitempty"`
}

type pipelineRequest struct {
	Tenant          string        `json:"tenant,omitempty"`
	Records         []core.Record `json:"records,omitempty"`
	BusinessContext string        `json:"business_context,omitempty"`
}

type agentsRequest struct {
	Tasks     []core.AgentTask `json:"tasks"`
	Synthesis *core.AgentTask  `json:"synthesis,omitempty"`
}

type generateRequest struct {
	Tenant   string            `json:"tenant"`
	Count    int               `json:"count"`
	Scenario *service.Scenario `json:"scenario,omitempty"`
}

type generateResponse struct {
	Committed []core.Record `json:"committed"`
	Count     int           `json:"count"`
}

type recordsResponse struct {
	Tenant  string        `json:"tenant"`
	Records []core.Record `json:"records"`
	Count   int           `json:"count"`
}

type flowsResponse struct {
	Entries []core.FlowEntry `json:"entries"`
	Dropped int64            `json:"dropped"`
}

// resolveRecords returns inline records when given, otherwise loads the
// tenant's committed records from the store.
func (s *Server) resolveRecords(r *http.Request, tenant string, inline []core.Record) ([]core.Record, error) {
	if len(inline) > 0 {
		return inline, nil
	}
	if tenant == "" {
		return nil, core.ErrValidation(core.CodeNoRecords, "no inline records and no tenant to load from")
	}
	return s.deps.Store.ListRecords(r.Context(), tenant)
}

// handleAnalyze runs a chunked batch analysis over the supplied records.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	records, err := s.resolveRecords(r, req.Tenant, req.Records)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	result, err := s.deps.Analyzer.RunBatchAnalysis(r.Context(), records, req.ChunkSize, req.Goal)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handlePipeline runs the multi-phase analysis pipeline.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	records, err := s.resolveRecords(r, req.Tenant, req.Records)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	result, err := s.deps.Pipeline.Run(r.Context(), records, req.BusinessContext)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleAgents fans the supplied tasks out to specialist agents, optionally
// followed by a synthesis pass.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	var req agentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var (
		result *service.AgentRunResult
		err    error
	)
	if req.Synthesis != nil {
		result, err = s.deps.Agents.RunWithSynthesis(r.Context(), req.Tasks, *req.Synthesis)
	} else {
		result, err = s.deps.Agents.RunAgents(r.Context(), req.Tasks)
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleGenerate produces and commits synthetic records for a tenant.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Tenant == "" {
		respondError(w, http.StatusBadRequest, "tenant is required")
		return
	}

	committed, err := s.deps.Generator.Generate(r.Context(), req.Count, req.Tenant, req.Scenario)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, generateResponse{
		Committed: committed,
		Count:     len(committed),
	})
}

// handleListRecords returns the tenant's committed records.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		respondError(w, http.StatusBadRequest, "tenant query parameter is required")
		return
	}

	records, err := s.deps.Store.ListRecords(r.Context(), tenant)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recordsResponse{
		Tenant:  tenant,
		Records: records,
		Count:   len(records),
	})
}

// handleGetFlows returns the buffered model traffic entries without
// consuming them.
func (s *Server) handleGetFlows(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, flowsResponse{
		Entries: s.deps.Flows.Drain(),
		Dropped: s.deps.Flows.Dropped(),
	})
}

// handleClearFlows empties the traffic buffer.
func (s *Server) handleClearFlows(w http.ResponseWriter, _ *http.Request) {
	s.deps.Flows.Clear()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleMetrics returns per-agent performance aggregates.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agents":  s.deps.Perf.StatsByAgent(),
		"samples": s.deps.Perf.Len(),
	})
}
