package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/fxsync/notification"
	"github.com/sig-0/fxsync/storage"
	"github.com/sig-0/fxsync/storage/types"
)

var (
	errUnableToFetchReport       = errors.New("unable to fetch report")
	errUnableToFetchNotification = errors.New("unable to fetch notification")
	errNoReport                  = errors.New("no sync run recorded yet")
	errNoNotification            = errors.New("no notification handed off yet")
	errCurrencyNotPublished      = errors.New("currency not in the notification")
	errInvalidDate               = errors.New("invalid date (must be YYYY-MM-DD)")
)

// syncTimeout bounds a manually triggered sync
const syncTimeout = 10 * time.Minute

func (s *Server) LatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.storage.LatestReport(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNoReport) {
			writeError(w, http.StatusNotFound, errNoReport)

			return
		}

		s.logger.Debug(
			"unable to fetch report",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToFetchReport)

		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) LatestNotification(w http.ResponseWriter, r *http.Request) {
	n, ok := s.loadNotification(w, r)
	if !ok {
		return
	}

	resp := &NotificationResponse{
		Number:      n.Number,
		PublishDate: n.PublishDate.Format(types.DateLayout),
		Details:     make([]*DetailResponse, 0, len(n.Details)),
	}

	for _, d := range n.Details {
		resp.Details = append(resp.Details, toDetailResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) LatestRate(w http.ResponseWriter, r *http.Request) {
	code, err := parseCurrencySymbol(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	n, ok := s.loadNotification(w, r)
	if !ok {
		return
	}

	for _, d := range n.Details {
		if d.Code == code {
			writeJSON(w, http.StatusOK, toDetailResponse(d))

			return
		}
	}

	writeError(w, http.StatusNotFound, errCurrencyNotPublished)
}

// Sync runs a sync for the date given as the "date" query param (defaults to today).
// The route is not authenticated, so the server should only listen where callers
// are trusted. The run outlives a client disconnect, up to syncTimeout
func (s *Server) Sync(w http.ResponseWriter, r *http.Request) {
	target, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	ctx, cancelFn := context.WithTimeout(context.WithoutCancel(r.Context()), syncTimeout)
	defer cancelFn()

	report, err := s.syncer.Run(ctx, target)
	if err != nil {
		s.logger.Error(
			"sync failed",
			"target", target.Format(types.DateLayout),
			"err", err,
		)

		writeError(w, http.StatusBadGateway, err)

		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) loadNotification(w http.ResponseWriter, r *http.Request) (*types.Notification, bool) {
	n, err := s.storage.LoadNotification(r.Context())
	if err == nil {
		return n, true
	}

	if errors.Is(err, storage.ErrNoNotification) {
		writeError(w, http.StatusNotFound, errNoNotification)

		return nil, false
	}

	s.logger.Debug(
		"unable to fetch notification",
		"err", err,
	)

	writeError(w, http.StatusInternalServerError, errUnableToFetchNotification)

	return nil, false
}

func toDetailResponse(d types.CurrencyDetail) *DetailResponse {
	resp := &DetailResponse{
		Code:       d.Code,
		ExportRate: d.ExportRate,
		ImportRate: d.ImportRate,
		Units:      d.Units,
	}

	if rate, ok := notification.EffectiveRate(d); ok {
		resp.Rate = rate.String()
	}

	return resp
}

func parseDate(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return notification.MidnightUTC(time.Now()), nil // default is today
	}

	t, err := time.Parse(types.DateLayout, v)
	if err != nil {
		return time.Time{}, errInvalidDate
	}

	return t, nil
}

func parseCurrencySymbol(v string) (types.Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if len(s) != 3 {
		return "", errors.New("invalid currency (must be 3 letters)")
	}

	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", errors.New("invalid currency (must be A-Z)")
		}
	}

	return types.Currency(s), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
