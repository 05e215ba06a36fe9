package poller

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned when Run is called on a loop that has already run.
var ErrAlreadyStarted = errors.New("poller: loop already started")

// ErrBusy is returned by RunOnce while another cycle is in flight.
var ErrBusy = errors.New("poller: cycle already in flight")

// Stage identifies the step of a cycle that failed.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageValidate Stage = "validate"
	StageApply    Stage = "apply"
)

// CycleError reports a skipped cycle. The view keeps its previous state.
type CycleError struct {
	View  string
	Stage Stage
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.View, e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

func eventType(stage Stage) string {
	switch stage {
	case StageFetch:
		return "poll_fetch_failed"
	case StageValidate:
		return "poll_snapshot_rejected"
	default:
		return "poll_apply_failed"
	}
}

func errorHint(stage Stage) string {
	switch stage {
	case StageFetch:
		return "check api.base_url and that the barbershop backend is reachable"
	case StageValidate:
		return "backend returned a queue with duplicate client ids"
	default:
		return "view rejected the patch; restart the view to rebuild it"
	}
}
