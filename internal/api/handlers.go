package api

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// createWaveRequest is the body of POST /api/waves. Structural checks live
// in the tags; catalog rules are enforced by the engine.
type createWaveRequest struct {
	Activity     string     `json:"activity" validate:"required,max=64"`
	Area         string     `json:"area" validate:"max=120"`
	LocationName string     `json:"location_name" validate:"max=200"`
	Lat          *float64   `json:"lat" validate:"omitempty,latitude"`
	Lng          *float64   `json:"lng" validate:"omitempty,longitude"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	Threshold    int        `json:"threshold" validate:"omitempty,min=2"`
	Thought      string     `json:"thought"`
}

// joinResponse is the body of POST /api/waves/{waveId}/join.
type joinResponse struct {
	Wave          wave.Wave `json:"wave"`
	IsUnlocked    bool      `json:"is_unlocked"`
	ChatRoomID    string    `json:"chat_room_id,omitempty"`
	AlreadyMember bool      `json:"already_member"`
	PendingUnlock bool      `json:"pending_unlock"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Healthy(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createWave(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req createWaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}

	create := engine.CreateRequest{
		CreatorID:    userID,
		Activity:     wave.ActivityType(req.Activity),
		Area:         req.Area,
		LocationName: req.LocationName,
		ScheduledFor: req.ScheduledFor,
		Threshold:    req.Threshold,
		Thought:      req.Thought,
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		writeEngineError(w, s.logger, r, wave.Invalid("location", "lat and lng must be given together"))
		return
	}
	if req.Lat != nil {
		create.Location = &geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	}

	created, err := s.engine.Lifecycle.Create(r.Context(), create)
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := floatParam(q.Get("lat"), "lat", true)
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	lng, err := floatParam(q.Get("lng"), "lng", true)
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	radius, err := floatParam(q.Get("radius_km"), "radius_km", false)
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	window, err := wave.ParseTimeWindow(q.Get("window"))
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeEngineError(w, s.logger, r, wave.Invalid("limit", "not an integer"))
			return
		}
	}

	page, err := s.engine.Query.Nearby(r.Context(), engine.NearbyRequest{
		Center:   geo.Point{Lat: lat, Lng: lng},
		RadiusKm: radius,
		Window:   window,
		Cursor:   q.Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func floatParam(raw, name string, required bool) (float64, error) {
	if raw == "" {
		if required {
			return 0, wave.Invalid(name, "required")
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, wave.Invalid(name, "not a number")
	}
	return v, nil
}

func (s *Server) getWave(w http.ResponseWriter, r *http.Request) {
	got, err := s.engine.Lifecycle.Get(r.Context(), mux.Vars(r)["waveId"])
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (s *Server) participants(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.Lifecycle.Participants(r.Context(), mux.Vars(r)["waveId"])
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"participants": list})
}

func (s *Server) joinWave(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	out, err := s.engine.Coordinator.Join(r.Context(), mux.Vars(r)["waveId"], userID)
	if err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{
		Wave:          out.Wave,
		IsUnlocked:    out.Unlocked,
		ChatRoomID:    out.ChatRoomID,
		AlreadyMember: out.AlreadyMember,
		PendingUnlock: out.PendingUnlock,
	})
}

func (s *Server) deleteWave(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	if err := s.engine.Lifecycle.Delete(r.Context(), mux.Vars(r)["waveId"], userID); err != nil {
		writeEngineError(w, s.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
