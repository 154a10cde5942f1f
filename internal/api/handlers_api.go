package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/dispersion"
	"github.com/lox/co2twin/internal/efficiency"
	"github.com/lox/co2twin/internal/intervention"
	"github.com/lox/co2twin/internal/metrics"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/seasonal"
	"github.com/lox/co2twin/internal/sector"
	"github.com/lox/co2twin/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stations, err := s.repo.ListStations(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthStatus{Status: "error", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "ok",
		Stations:  len(stations),
		Reporting: s.sess.ReportingActive(),
	})
}

// mode reads ?mode=, defaulting to the session's display mode.
func (s *Server) mode(r *http.Request) (display.Mode, error) {
	if q := r.URL.Query().Get("mode"); q != "" {
		return display.ParseMode(q)
	}
	return s.sess.Mode(), nil
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stations, err := s.repo.ListStations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if city := r.URL.Query().Get("city"); city != "" {
		stations = display.Visible(stations, city, mode)
	}

	view := s.sess.WithMode(mode)
	out := make([]StationView, 0, len(stations))
	for i := range stations {
		out = append(out, newStationView(&stations[i], view))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) station(w http.ResponseWriter, r *http.Request) (*models.Station, bool) {
	name := mux.Vars(r)["name"]
	st, err := s.repo.GetStation(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("station %q not found", name))
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return st, true
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, ok := s.station(w, r)
	if !ok {
		return
	}
	v, has := display.Resolve(st, mode)
	out := DisplayView{Station: st.Name, Mode: mode, HasValue: has, Band: display.BandFor(v, has)}
	if has {
		out.Value = &v
	}
	writeJSON(w, http.StatusOK, out)
}

// scenarioFor builds the city scenario from cached weather. Without an
// observation, the scenario carries only the seasonal profile.
func (s *Server) scenarioFor(city string, sel seasonal.MonthSelector) (seasonal.Scenario, error) {
	obs, ok := s.weather.Get(city)
	if !ok {
		obs = models.WeatherObservation{City: city}
	}
	sc, err := seasonal.BuildScenario(obs, sel, s.sess.Clock())
	if err != nil {
		return seasonal.Scenario{}, err
	}
	metrics.ScenariosBuilt.WithLabelValues(string(sc.StagnationRisk)).Inc()
	return sc, nil
}

func parseOptionalFloat(r *http.Request, key string) (*float64, error) {
	q := r.URL.Query().Get(key)
	if q == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(q, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid %s %q", key, q)
	}
	return &f, nil
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	method := efficiency.Method(q.Get("method"))
	if method == "" {
		method = efficiency.RoadsideCaptureUnit
	}

	var overrides *efficiency.Overrides
	ndvi, err := parseOptionalFloat(r, "ndvi")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	albedo, err := parseOptionalFloat(r, "albedo")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if lulc := q.Get("lulc"); lulc != "" || ndvi != nil || albedo != nil {
		overrides = &efficiency.Overrides{NDVI: ndvi, Albedo: albedo}
		if lulc != "" {
			overrides.LULC = &lulc
		}
	}

	st, ok := s.station(w, r)
	if !ok {
		return
	}

	out := SuggestionView{Station: st.Name, Method: method}
	var scenario *seasonal.Scenario
	if m := q.Get("month"); m != "" {
		sel, err := seasonal.ParseMonthSelector(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sc, err := s.scenarioFor(st.City, sel)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		scenario = &sc
		view := newScenarioView(sc)
		out.Scenario = &view
	}

	out.Breakdown = efficiency.Explain(st, method, scenario, overrides)
	out.Efficiency = out.Breakdown.Final
	for _, warn := range out.Breakdown.Warnings {
		out.Warnings = append(out.Warnings, warn.Error())
	}
	metrics.SuggestionsTotal.WithLabelValues(string(method)).Inc()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	city := mux.Vars(r)["city"]
	stations, err := s.repo.ListStations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	weights, ok := sectorMix(city, stations, mode)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no categorised stations in %q", city))
		return
	}
	writeJSON(w, http.StatusOK, weights)
}

func sectorMix(city string, stations []models.Station, mode display.Mode) (SectorsView, bool) {
	total, ok := sector.AggregateCity(city, stations, mode)
	if !ok {
		return SectorsView{}, false
	}
	return SectorsView{
		City:     city,
		Mode:     mode,
		Weights:  total,
		Shares:   total.Normalized(),
		Dominant: sector.Top(total),
	}, true
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	sel, err := seasonal.ParseMonthSelector(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sc, err := s.scenarioFor(mux.Vars(r)["city"], sel)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, newScenarioView(sc))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stations, err := s.repo.ListStations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if city := r.URL.Query().Get("city"); city != "" {
		filtered := stations[:0]
		for _, st := range stations {
			if st.City == city {
				filtered = append(filtered, st)
			}
		}
		stations = filtered
	}
	writeJSON(w, http.StatusOK, display.Summarize(stations, mode))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n := 0
	if q := r.URL.Query().Get("n"); q != "" {
		n, err = strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid n %q", q))
			return
		}
	}
	stations, err := s.repo.ListStations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	cities := display.RecommendCities(stations, mode, n)
	if cities == nil {
		cities = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": mode, "cities": cities})
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cell, err := parseOptionalFloat(r, "cell")
	if err != nil || (cell != nil && *cell <= 0) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid cell size"))
		return
	}
	size := 0.0
	if cell != nil {
		size = *cell
	}

	stations, err := s.repo.ListStations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	cells := dispersion.BinStations(stations, mode, size)
	out := make([]CellView, 0, len(cells))
	for _, c := range cells {
		strength := dispersion.Normalize(c)
		shade := dispersion.ColorFor(strength)
		out = append(out, CellView{Cell: c, CO2: ptr(c.CO2), Strength: strength, Color: shade.Hex, Opacity: shade.Opacity})
	}
	writeJSON(w, http.StatusOK, out)
}

// applyRequest is the wire form of an intervention. Efficiency and month stay
// raw so a missing or mistyped value is reported against its field.
type applyRequest struct {
	Station    string          `json:"station"`
	Method     string          `json:"method"`
	Efficiency json.RawMessage `json:"efficiency"`
	Target     models.Target   `json:"target"`
	Token      string          `json:"integrity_token"`
	Month      json.RawMessage `json:"month"`
	Retry      bool            `json:"retry"`
}

func (a applyRequest) request() (intervention.Request, error) {
	req := intervention.Request{
		Station: a.Station,
		Method:  a.Method,
		Target:  a.Target,
		Token:   a.Token,
	}
	if isNull(a.Efficiency) {
		return req, &intervention.ValidationError{Field: "efficiency", Reason: "required"}
	}
	if err := json.Unmarshal(a.Efficiency, &req.Efficiency); err != nil {
		return req, &intervention.ValidationError{Field: "efficiency", Reason: fmt.Sprintf("%s is not a number", a.Efficiency)}
	}
	return req, nil
}

// month accepts "auto", a number, or a numeric string. Absent means auto.
func (a applyRequest) month() (seasonal.MonthSelector, error) {
	if isNull(a.Month) {
		return seasonal.Auto, nil
	}
	var raw string
	if err := json.Unmarshal(a.Month, &raw); err != nil {
		raw = string(a.Month)
	}
	sel, err := seasonal.ParseMonthSelector(raw)
	if err != nil {
		return seasonal.Auto, &intervention.ValidationError{Field: "month", Reason: err.Error()}
	}
	return sel, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var body applyRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	req, err := body.request()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	sel, err := body.month()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if st, err := s.repo.GetStation(r.Context(), req.Station); err == nil {
		if sc, err := s.scenarioFor(st.City, sel); err == nil {
			req.Scenario = &sc
		}
	}

	var res *intervention.Result
	if body.Retry {
		res, err = s.engine.ApplyWithRetry(r.Context(), s.sess, req, s.retries)
	} else {
		res, err = s.engine.Apply(r.Context(), s.sess, req)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReportStart(w http.ResponseWriter, r *http.Request) {
	if s.sess.Report == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("reporting not configured"))
		return
	}
	s.sess.Report.Start(s.sess.Clock())
	writeJSON(w, http.StatusOK, s.sess.Report.Totals())
}

func (s *Server) handleReportStop(w http.ResponseWriter, r *http.Request) {
	if s.sess.Report == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("reporting not configured"))
		return
	}
	s.sess.Report.Stop()
	writeJSON(w, http.StatusOK, s.sess.Report.Totals())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.sess.Report == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("reporting not configured"))
		return
	}
	entries := s.sess.Report.Entries()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].AppliedAt.Before(entries[j].AppliedAt) })
	if entries == nil {
		entries = []models.ReportLogEntry{}
	}
	writeJSON(w, http.StatusOK, ReportView{Totals: s.sess.Report.Totals(), Entries: entries})
}
