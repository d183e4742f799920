package rest

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"arbscreen/internal/arbitrage"
	"arbscreen/internal/opportunity"
)

// LatestProvider exposes the most recent scan.
type LatestProvider interface {
	Latest() (arbitrage.Result, bool)
}

type Server struct {
	mux    *http.ServeMux
	latest LatestProvider
}

func New(latest LatestProvider) *Server {
	s := &Server{mux: http.NewServeMux(), latest: latest}
	s.mux.HandleFunc("GET /status", s.status)
	s.mux.HandleFunc("GET /opportunities", s.opportunities)
	s.mux.HandleFunc("GET /failures", s.failures)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

type statusBody struct {
	ScanID     string    `json:"scan_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Evaluated  int       `json:"evaluated"`
	Triangular int       `json:"triangular"`
	Cross      int       `json:"cross_exchange"`
	Failures   int       `json:"failures"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest.Latest()
	if !ok {
		http.Error(w, "no scan yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, statusBody{
		ScanID:     res.ScanID,
		StartedAt:  res.StartedAt,
		DurationMs: res.Duration.Milliseconds(),
		Evaluated:  res.Evaluated,
		Triangular: len(res.Triangular),
		Cross:      len(res.Cross),
		Failures:   len(res.Failures),
	})
}

// opportunities serves ranked records; ?kind=triangular|cross_exchange, ?limit=N.
func (s *Server) opportunities(w http.ResponseWriter, r *http.Request) {
	res, ok := s.latest.Latest()
	if !ok {
		http.Error(w, "no scan yet", http.StatusServiceUnavailable)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	var opps []opportunity.Opportunity
	switch opportunity.Kind(r.URL.Query().Get("kind")) {
	case "":
		opps = append(slices.Clip(opportunity.Top(res.Triangular, limit)), opportunity.Top(res.Cross, limit)...)
	case opportunity.Triangular:
		opps = opportunity.Top(res.Triangular, limit)
	case opportunity.CrossExchange:
		opps = opportunity.Top(res.Cross, limit)
	default:
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}
	records := make([]opportunity.Record, len(opps))
	for i, o := range opps {
		records[i] = o.Record()
	}
	writeJSON(w, struct {
		ScanID  string               `json:"scan_id"`
		Records []opportunity.Record `json:"opportunities"`
	}{res.ScanID, records})
}

type failureBody struct {
	Stage    string `json:"stage"`
	Exchange string `json:"exchange"`
	Subject  string `json:"subject"`
	Reason   string `json:"reason"`
	Error    string `json:"error"`
}

func (s *Server) failures(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest.Latest()
	if !ok {
		http.Error(w, "no scan yet", http.StatusServiceUnavailable)
		return
	}
	out := make([]failureBody, len(res.Failures))
	for i, f := range res.Failures {
		out[i] = failureBody{Stage: f.Stage, Exchange: f.Exchange, Subject: f.Subject, Reason: f.Reason}
		if f.Err != nil {
			out[i].Error = f.Err.Error()
		}
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
