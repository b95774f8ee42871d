package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/domain"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

// Sampler is the domain service surface the handlers need.
type Sampler interface {
	GetVariables(ctx context.Context, p nested.Point, vars []string) ([]domain.VariableResult, error)
	Sets() []domain.SetDefinition
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	sampler Sampler
}

// NewHandler creates a new Handler.
func NewHandler(sampler Sampler) *Handler {
	return &Handler{sampler: sampler}
}

// RegisterRoutes attaches all routes to the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /v1/sample", h.handleSample)
	mux.HandleFunc("GET /v1/sets", h.handleSets)
}

// handleHealth returns 204 No Content for liveness checks.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type variableResponse struct {
	Name        string   `json:"name"`
	Value       float64  `json:"value"`
	U           *float64 `json:"u,omitempty"`
	V           *float64 `json:"v,omitempty"`
	Unit        string   `json:"unit"`
	Source      string   `json:"source"`
	SourceIndex int      `json:"source_index"`
	SetSize     int      `json:"set_size"`
}

type sampleResponse struct {
	Time      time.Time          `json:"time"`
	Depth     float64            `json:"depth"`
	Lat       float64            `json:"lat"`
	Lon       float64            `json:"lon"`
	Variables []variableResponse `json:"variables"`
}

type boundsResponse struct {
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

type memberResponse struct {
	Position int            `json:"position"`
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	Bounds   boundsResponse `json:"bounds"`
}

type setResponse struct {
	Name    string           `json:"name"`
	Kind    string           `json:"kind"`
	Unit    string           `json:"unit"`
	Members []memberResponse `json:"members"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleSample resolves the requested variables at one point.
func (h *Handler) handleSample(w http.ResponseWriter, r *http.Request) {
	p, vars, err := parseSampleQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results, err := h.sampler.GetVariables(r.Context(), p, vars)
	if err != nil {
		var unknown *domain.ErrUnknownVariable
		switch {
		case errors.As(err, &unknown):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, nested.ErrOutOfBoundsAll):
			writeError(w, http.StatusUnprocessableEntity, err)
		default:
			slog.ErrorContext(r.Context(), "sampling failed", "point", p.String(), "variables", vars, "error", err)
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	resp := sampleResponse{Time: p.Time, Depth: p.Depth, Lat: p.Lat, Lon: p.Lon, Variables: make([]variableResponse, 0, len(results))}
	for _, res := range results {
		v := variableResponse{
			Name:        res.Name,
			Value:       res.Value,
			Unit:        res.Unit,
			Source:      res.Source,
			SourceIndex: res.SourceIndex,
			SetSize:     res.SetSize,
		}
		if res.Vector != nil {
			v.U, v.V = &res.Vector.U, &res.Vector.V
		}
		resp.Variables = append(resp.Variables, v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSets lists the served sets with members in priority order.
func (h *Handler) handleSets(w http.ResponseWriter, r *http.Request) {
	defs := h.sampler.Sets()
	resp := make([]setResponse, 0, len(defs))
	for _, def := range defs {
		kind := domain.SetKindScalar
		if def.IsVector() {
			kind = domain.SetKindVector
		}
		set := setResponse{Name: def.Name, Kind: string(kind), Unit: def.Unit, Members: make([]memberResponse, 0, len(def.Members))}
		for _, m := range def.Members {
			set.Members = append(set.Members, memberResponse{
				Position: m.Position,
				Name:     m.Name,
				Kind:     string(m.Kind),
				Bounds:   boundsResponse(m.Bounds),
			})
		}
		resp = append(resp, set)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseSampleQuery(r *http.Request) (nested.Point, []string, error) {
	q := r.URL.Query()

	vars, err := model.ParseVariables(q.Get("variables"))
	if err != nil {
		return nested.Point{}, nil, err
	}

	ts := time.Now().UTC()
	if v := q.Get("time"); v != "" {
		ts, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return nested.Point{}, nil, fmt.Errorf("time must be RFC 3339: %w", err)
		}
	}

	coords := map[string]float64{"depth": 0}
	for _, name := range []string{"lat", "lon", "depth"} {
		v := q.Get(name)
		if v == "" {
			if name == "depth" {
				continue
			}
			return nested.Point{}, nil, fmt.Errorf("%s is required", name)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nested.Point{}, nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		coords[name] = f
	}

	p := nested.Point{Time: ts, Depth: coords["depth"], Lat: coords["lat"], Lon: coords["lon"]}
	if err := p.Validate(); err != nil {
		return nested.Point{}, nil, err
	}

	return p, vars, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
