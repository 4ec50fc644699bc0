package server

import "github.com/sig-0/fxsync/storage/types"

type DetailResponse struct {
	ExportRate *float64       `json:"export_rate"`
	ImportRate *float64       `json:"import_rate"`
	Units      *float64       `json:"units"`
	Code       types.Currency `json:"code"`
	Rate       string         `json:"rate,omitempty"` // effective per-unit rate, if any
}

type NotificationResponse struct {
	Number      string            `json:"number"`
	PublishDate string            `json:"publish_date"`
	Details     []*DetailResponse `json:"details"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
