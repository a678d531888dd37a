package repository

import "errors"

var (
	ErrFeedUnavailable  = errors.New("feed session could not be started")
	ErrNavigationFailed = errors.New("navigation failed")
	ErrFieldMissing     = errors.New("field not present in fragment")
	ErrNotFound         = errors.New("not found")
	ErrQueueEmpty       = errors.New("queue is empty")
)
