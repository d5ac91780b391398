package api

import (
	"encoding/json"
	"net/http"

	"argus/core"
	"argus/correlate"
	"argus/util"
)

const maxTopIncidents = 10

// runRequest is the trigger payload. Both fields are optional.
type runRequest struct {
	TimeWindowHours float64  `json:"time_window_hours"`
	RuleIDs         []string `json:"rule_ids"`
}

// runResponse is the run result envelope.
type runResponse struct {
	Success        bool                      `json:"success"`
	IncidentsFound int                       `json:"incidents_found"`
	IncidentsSaved int                       `json:"incidents_saved"`
	TopIncidents   []core.CorrelatedIncident `json:"top_incidents"`
}

// runCorrelation triggers one synchronous correlation pass. A body that
// fails to parse runs with defaults rather than erroring.
func (a *API) runCorrelation(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			a.logger.Debugw("Unparseable run request, using defaults", "error", util.SanitizeError(err))
			req = runRequest{}
		}
	}

	result, err := a.engine.Run(r.Context(), correlate.RunParams{
		TimeWindowHours: req.TimeWindowHours,
		RuleIDs:         req.RuleIDs,
	})
	if err != nil {
		a.logger.Errorw("Correlation run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "correlation run failed")
		return
	}

	top := result.Incidents
	if len(top) > maxTopIncidents {
		top = top[:maxTopIncidents]
	}
	if top == nil {
		top = []core.CorrelatedIncident{}
	}

	writeJSON(w, http.StatusOK, runResponse{
		Success:        true,
		IncidentsFound: result.Report.IncidentsFound,
		IncidentsSaved: result.Report.IncidentsSaved,
		TopIncidents:   top,
	})
}

func (a *API) healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
