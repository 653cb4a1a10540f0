package services

import "errors"

var (
	ErrRecordNotFound = errors.New("audit record not found")
	ErrInvalidSource  = errors.New("unknown audit source")
	ErrInvalidRange   = errors.New("invalid time range")
	ErrExportTooLarge = errors.New("export exceeds row limit")
)
