package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/pkg/errors"
	"wallet-activity-stats/pkg/utils"

	"go.uber.org/zap"
)

const statsCacheControl = "s-maxage=15, stale-while-revalidate=30"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseWindow reads optional from/to query parameters in ms
func parseWindow(q url.Values) (entity.TimeWindow, error) {
	var window entity.TimeWindow
	for key, dst := range map[string]*int64{"from": &window.FromMs, "to": &window.ToMs} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return entity.TimeWindow{}, fmt.Errorf("invalid %s", key)
		}
		*dst = v
	}
	return window, nil
}

func (s *Server) handleAddressStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := utils.ExtractAddress(q.Get("address"))
	if address == "" {
		writeError(w, http.StatusBadRequest, "Invalid address")
		return
	}
	window, err := parseWindow(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time window")
		return
	}

	stats, err := s.stats.ComputeWithBudget(r.Context(), address, window)
	if err != nil {
		switch {
		case errors.IsValidation(err):
			writeError(w, http.StatusBadRequest, "Invalid address")
		case errors.IsCancelled(err):
			s.logger.Debug("Client went away", zap.String("address", address))
		default:
			s.logger.Error("Failed to compute stats", zap.String("address", address), zap.Error(err))
			writeError(w, http.StatusBadGateway, "Upstream unavailable")
		}
		return
	}

	w.Header().Set("Cache-Control", statsCacheControl)
	writeJSON(w, http.StatusOK, stats)
}

// validateScoreRequest rejects negative numeric inputs
func validateScoreRequest(req *entity.ScoreRequest) error {
	t := req.Thresholds
	checks := []struct {
		name  string
		value int64
	}{
		{"from", req.From},
		{"to", req.To},
		{"leniency", int64(req.Leniency)},
		{"concurrency", int64(req.Concurrency)},
		{"minTotalExternalOut", int64(t.MinTotalExternalOut)},
		{"minStake", int64(t.MinStake)},
		{"minNative", int64(t.MinNative)},
		{"minNftMint", int64(t.MinNftMint)},
		{"minDomainMint", int64(t.MinDomainMint)},
		{"minGM", int64(t.MinGM)},
		{"minCC", int64(t.MinCC)},
		{"minSwap", int64(t.MinSwap)},
		{"minAddLiq", int64(t.MinAddLiq)},
		{"minRemoveLiq", int64(t.MinRemoveLiq)},
	}
	for _, c := range checks {
		if c.value < 0 {
			return fmt.Errorf("%s must not be negative", c.name)
		}
	}
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req entity.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if err := validateScoreRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.scorer.Score(r.Context(), req)
	if err != nil {
		if errors.IsCancelled(err) {
			s.logger.Debug("Scoring request cancelled")
			return
		}
		s.logger.Error("Scoring failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Scoring failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
