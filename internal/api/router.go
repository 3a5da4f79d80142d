// Package api provides the HTTP surface of a running evaluation service:
// health, the cached per-strategy leaderboard and the progress WebSocket.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"strategylab/internal/gateway"
	"strategylab/internal/model"
	redisstore "strategylab/internal/store/redis"
)

// Deps are the components the router exposes.
type Deps struct {
	Hub   *gateway.Hub
	Cache *redisstore.Cache
	RunID string
}

// NewRouter sets up HTTP routes for the evaluation service.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if d.Cache == nil {
			http.Error(w, "score cache not configured", http.StatusServiceUnavailable)
			return
		}
		strategyID := r.URL.Query().Get("strategy")
		if strategyID == "" {
			http.Error(w, "strategy query parameter is required", http.StatusBadRequest)
			return
		}
		n := 10
		if s := r.URL.Query().Get("n"); s != "" {
			if v, err := strconv.Atoi(s); err == nil && v > 0 {
				n = v
			}
		}

		labels, err := d.Cache.TopCombos(r.Context(), d.RunID, strategyID, n)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		scores := make([]model.ParamScore, 0, len(labels))
		for _, label := range labels {
			s, err := d.Cache.GetScore(r.Context(), d.RunID, strategyID, label)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			if s != nil {
				scores = append(scores, *s)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"run_id":   d.RunID,
			"strategy": strategyID,
			"scores":   scores,
		})
	})

	if d.Hub != nil {
		mux.HandleFunc("/ws", d.Hub.HandleWS)
	}

	return mux
}
