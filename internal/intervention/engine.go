// Package intervention applies a remediation efficiency to a station's CO2
// reading under an optimistic concurrency token.
package intervention

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/lox/co2twin/internal/landuse"
	"github.com/lox/co2twin/internal/metrics"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/seasonal"
	"github.com/lox/co2twin/internal/session"
	"github.com/lox/co2twin/internal/store"
)

// State is the lifecycle of one intervention attempt.
type State string

const (
	Proposed  State = "proposed"
	Validated State = "validated"
	Applied   State = "applied"
	Rejected  State = "rejected"
)

// Repository is the station storage the engine mutates. CompareAndSwapReading
// must commit the value and the new token together.
type Repository interface {
	GetStation(ctx context.Context, name string) (*models.Station, error)
	CompareAndSwapReading(ctx context.Context, name string, target models.Target, expected string, value float64, token string) error
}

type Request struct {
	Station    string        `json:"station"`
	Method     string        `json:"method"`
	Efficiency float64       `json:"efficiency"`
	Target     models.Target `json:"target"`
	Token      string        `json:"integrity_token"`

	// Scenario is the weather in effect, recorded in the log snapshot.
	Scenario *seasonal.Scenario `json:"-"`
}

type Result struct {
	State          State                 `json:"state"`
	Station        string                `json:"station"`
	CO2Before      float64               `json:"co2_before"`
	CO2After       float64               `json:"co2_after"`
	Reduction      float64               `json:"reduction"`
	AppliedTo      models.Target         `json:"applied_to"`
	IntegrityToken string                `json:"integrity_token"`
	Entry          models.ReportLogEntry `json:"entry"`
	Logged         bool                  `json:"logged"`
}

type Engine struct {
	repo     Repository
	newToken func() string
	newID    func() string
}

func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, newToken: uuid.NewString, newID: uuid.NewString}
}

// Apply runs one attempt. A rejected attempt returns *ValidationError or
// *ConcurrencyConflict and leaves the station untouched.
func (e *Engine) Apply(ctx context.Context, sess *session.Session, req Request) (*Result, error) {
	res, err := e.apply(ctx, sess, req)
	outcome := "applied"
	var verr *ValidationError
	var conflict *ConcurrencyConflict
	switch {
	case errors.As(err, &verr):
		outcome = "invalid"
	case errors.As(err, &conflict):
		outcome = "conflict"
	case err != nil:
		outcome = "error"
	}
	metrics.InterventionsTotal.WithLabelValues(req.Method, outcome).Inc()
	if err != nil {
		log.Printf("intervention: %s %s rejected: %v", req.Station, req.Method, err)
		return nil, err
	}
	metrics.InterventionReduction.Observe(res.Reduction)
	return res, nil
}

func (e *Engine) apply(ctx context.Context, sess *session.Session, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	st, err := e.repo.GetStation(ctx, req.Station)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &ValidationError{Field: "station", Reason: fmt.Sprintf("unknown station %q", req.Station)}
	}
	if err != nil {
		return nil, fmt.Errorf("load station %s: %w", req.Station, err)
	}
	if st.IntegrityToken != req.Token {
		return nil, &ConcurrencyConflict{Station: st.Name, Expected: req.Token, Actual: st.IntegrityToken}
	}

	target, before, ok := currentValue(st, req.Target)
	if !ok {
		return nil, &ValidationError{Field: "target", Reason: fmt.Sprintf("station %s has no reading", st.Name)}
	}

	after := math.Max(0, before*(1-req.Efficiency/100))
	token := e.newToken()
	err = e.repo.CompareAndSwapReading(ctx, st.Name, target, req.Token, after, token)
	switch {
	case errors.Is(err, store.ErrTokenMismatch):
		actual := ""
		if cur, gerr := e.repo.GetStation(ctx, st.Name); gerr == nil {
			actual = cur.IntegrityToken
		}
		return nil, &ConcurrencyConflict{Station: st.Name, Expected: req.Token, Actual: actual}
	case errors.Is(err, store.ErrNotFound):
		return nil, &ValidationError{Field: "station", Reason: fmt.Sprintf("unknown station %q", req.Station)}
	case err != nil:
		return nil, fmt.Errorf("update station %s: %w", st.Name, err)
	}

	res := &Result{
		State:          Applied,
		Station:        st.Name,
		CO2Before:      before,
		CO2After:       after,
		Reduction:      before - after,
		AppliedTo:      target,
		IntegrityToken: token,
	}
	res.Entry = models.ReportLogEntry{
		ID:         e.newID(),
		AppliedAt:  sess.Clock(),
		Station:    st.Name,
		City:       st.City,
		Method:     req.Method,
		Efficiency: req.Efficiency,
		AppliedTo:  string(target),
		CO2Before:  before,
		CO2After:   after,
		Reduction:  res.Reduction,
		Snapshot:   snapshot(st, req.Scenario),
	}

	if sess.ReportingActive() {
		logged, err := sess.Report.Append(ctx, res.Entry)
		if err != nil {
			log.Printf("intervention: report sink for %s: %v", st.Name, err)
		}
		res.Logged = logged
		if logged {
			metrics.ReportEntries.Inc()
		}
	}

	log.Printf("intervention: %s %s %.0f%% on %s %.2f -> %.2f", st.Name, req.Method, req.Efficiency, target, before, after)
	return res, nil
}

func validate(req Request) error {
	if req.Station == "" {
		return &ValidationError{Field: "station", Reason: "required"}
	}
	if math.IsNaN(req.Efficiency) || math.IsInf(req.Efficiency, 0) {
		return &ValidationError{Field: "efficiency", Reason: "not a finite number"}
	}
	if req.Efficiency < 0 || req.Efficiency > 100 {
		return &ValidationError{Field: "efficiency", Reason: fmt.Sprintf("%v outside 0..100", req.Efficiency)}
	}
	if req.Target != models.TargetBaseline && req.Target != models.TargetLive {
		return &ValidationError{Field: "target", Reason: fmt.Sprintf("%q is not baseline or live", req.Target)}
	}
	if req.Token == "" {
		return &ValidationError{Field: "integrity_token", Reason: "required"}
	}
	return nil
}

// currentValue reads the requested target, falling back to the other reading
// when the requested one is absent. The returned target is where the value
// came from and where the new value is written.
func currentValue(st *models.Station, want models.Target) (models.Target, float64, bool) {
	if v := st.Reading(want); models.Finite(v) {
		return want, v.Float64, true
	}
	other := models.TargetLive
	if want == models.TargetLive {
		other = models.TargetBaseline
	}
	if v := st.Reading(other); models.Finite(v) {
		return other, v.Float64, true
	}
	return want, 0, false
}

func snapshot(st *models.Station, sc *seasonal.Scenario) models.EnvSnapshot {
	snap := models.EnvSnapshot{LULC: st.LULC}
	snap.EfficiencyFactor, _ = landuse.EfficiencyFactor(st.LULC)
	if models.Finite(st.NDVI) {
		v := st.NDVI.Float64
		snap.NDVI = &v
	}
	if models.Finite(st.Albedo) {
		v := st.Albedo.Float64
		snap.Albedo = &v
	}
	if sc != nil {
		snap.Month = sc.Month
		snap.StagnationRisk = string(sc.StagnationRisk)
		mh := sc.MixingHeight
		snap.MixingHeight = &mh
		if sc.DisplayTemp.Valid {
			v := sc.DisplayTemp.Float64
			snap.DisplayTemp = &v
		}
		if sc.WindMs.Valid {
			v := sc.WindMs.Float64
			snap.WindMs = &v
		}
	}
	return snap
}
