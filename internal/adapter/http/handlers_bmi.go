package adapthttp

import (
	"errors"
	"net/http"
	"time"

	"bmicalc/internal/app"
	"bmicalc/internal/domain"
	"bmicalc/internal/view"
)

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Weight and height stay raw text; the engine decides what parses.
	var body struct {
		Weight string `json:"weight"`
		Height string `json:"height"`
		Date   string `json:"date"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	date := time.Now()
	if body.Date != "" {
		d, err := time.ParseInLocation(time.DateOnly, body.Date, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		date = d
	}

	sess := sessionFromContext(r)
	rec, err := s.bmi.Calculate(r.Context(), sess.ID, body.Weight, body.Height, date)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "alert": view.InvalidInput()})
		return
	case errors.Is(err, app.ErrFutureDate):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, app.ErrSessionNotFound):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		s.log.Error("calculate", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"record": rec, "display": view.FromRecord(rec)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := historyLimit(r)
	sess := sessionFromContext(r)
	recs, err := s.bmi.History(r.Context(), sess.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": view.List(recs), "count": len(recs)})
}
