package usecase

import "errors"

var (
	ErrUnresolvedID  = errors.New("record id could not be resolved")
	ErrDuplicate     = errors.New("record already seen")
	ErrIncomplete    = errors.New("record is missing required fields")
	ErrTargetReached = errors.New("target count already reached")
	ErrRunInProgress = errors.New("a harvest for this target is already queued or running")
)
