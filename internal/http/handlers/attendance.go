package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/http/respond"
	"github.com/ctrlhora/ctrlhora-be/internal/middleware"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/models/dto"
)

// Ledger is the attendance surface the handler needs.
type Ledger interface {
	RegisterEntry(ctx context.Context, identity models.Identity, gpsPosition string) (models.AttendanceRecord, error)
	RegisterExit(ctx context.Context, identity models.Identity, gpsPosition string) error
	History(ctx context.Context, identity models.Identity, limit int) ([]models.AttendanceRecord, error)
}

// AttendanceHandler serves clock-in, clock-out and history.
type AttendanceHandler struct {
	ledger Ledger
}

func NewAttendanceHandler(ledger Ledger) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger}
}

// Register attaches the routes behind protect.
func (h *AttendanceHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.Handle("POST /entry", protect(http.HandlerFunc(h.handleEntry)))
	mux.Handle("POST /exit", protect(http.HandlerFunc(h.handleExit)))
	mux.Handle("GET /records", protect(http.HandlerFunc(h.handleRecords)))
}

func (h *AttendanceHandler) handleEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrInvalidToken)
		return
	}
	gps, err := gpsPosition(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	record, err := h.ledger.RegisterEntry(r.Context(), identity, gps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.EntryResponse{Message: "Entry registered", Record: record})
}

func (h *AttendanceHandler) handleExit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrInvalidToken)
		return
	}
	gps, err := gpsPosition(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.ledger.RegisterExit(r.Context(), identity, gps); err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "Exit registered"})
}

func (h *AttendanceHandler) handleRecords(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrInvalidToken)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, apperrors.Invalid("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	records, err := h.ledger.History(r.Context(), identity, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.RecordsResponse{Records: records})
}

// gpsPosition reads gps_position from the query string, a JSON body or a
// form body, in that order.
func gpsPosition(w http.ResponseWriter, r *http.Request) (string, error) {
	if v := r.URL.Query().Get("gps_position"); v != "" {
		return v, nil
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req dto.GPSRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return "", err
		}
		return req.GPSPosition, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return r.FormValue("gps_position"), nil
}
