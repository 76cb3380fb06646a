package relay

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxSubmitBytes = 4 << 20

type generateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Generate validates the submit envelope and forwards it upstream with the
// server-held key. The upstream reply passes through verbatim so clients see
// the same job envelope they would get talking to the upstream directly.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxSubmitBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable payload")
		return
	}
	var req generateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if req.Model == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "model is required")
		return
	}

	resp, err := a.Upstream.Generate(r.Context(), payload)
	if err != nil {
		a.Logger.Error().Err(err).Str("model", req.Model).Msg("relay: upstream generate failed")
		a.error(w, http.StatusBadGateway, "upstream", "generation backend unavailable")
		return
	}

	a.audit(r, req, resp)
	a.proxy(w, resp)
}

// JobStatus forwards a snapshot fetch for an asynchronous job.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	resp, err := a.Upstream.JobStatus(r.Context(), jobID)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("relay: upstream status failed")
		a.error(w, http.StatusBadGateway, "upstream", "generation backend unavailable")
		return
	}

	if a.Audit != nil && resp.Status == http.StatusOK {
		if status := snapshotStatus(resp.Body); status != "" {
			if err := a.Audit.UpdateStatus(r.Context(), jobID, status); err != nil {
				a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("relay: audit update failed")
			}
		}
	}
	a.proxy(w, resp)
}

// VideoStatus forwards a long-running video operation poll.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	operation := chi.URLParam(r, "operation")
	if operation == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "operation required")
		return
	}

	resp, err := a.Upstream.VideoStatus(r.Context(), operation)
	if err != nil {
		a.Logger.Error().Err(err).Str("operation", operation).Msg("relay: upstream video status failed")
		a.error(w, http.StatusBadGateway, "upstream", "generation backend unavailable")
		return
	}
	a.proxy(w, resp)
}

// snapshotStatus pulls the job status out of a snapshot reply, accepting both
// the flat and the job-wrapped envelope shapes.
func snapshotStatus(body []byte) string {
	var snap struct {
		Status string `json:"status"`
		Job    struct {
			Status string `json:"status"`
		} `json:"job"`
	}
	if json.Unmarshal(body, &snap) != nil {
		return ""
	}
	if snap.Job.Status != "" {
		return snap.Job.Status
	}
	return snap.Status
}

// audit records an accepted submission, best-effort.
func (a *App) audit(r *http.Request, req generateRequest, resp *ProxyResponse) {
	if a.Audit == nil || resp.Status < 200 || resp.Status >= 300 {
		return
	}
	var envelope struct {
		JobID string `json:"jobId"`
	}
	_ = json.Unmarshal(resp.Body, &envelope)
	status := "submitted"
	if envelope.JobID == "" {
		status = "completed"
	}
	rec := AuditRecord{
		Provider: req.Model,
		Model:    req.Model,
		Prompt:   req.Prompt,
		JobID:    envelope.JobID,
		Status:   status,
	}
	if err := a.Audit.Record(r.Context(), rec); err != nil {
		a.Logger.Warn().Err(err).Str("model", req.Model).Msg("relay: audit record failed")
	}
}
