package service

import (
	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/realtime"
)

// TransitionResult is the outcome of a group session state change: the
// status to persist, system messages to append to the chat log, and events
// to publish to the session room. Computing it is pure so every lifecycle
// rule can be tested without a store.
type TransitionResult struct {
	Status         models.GroupSessionStatus
	SystemMessages []string
	Events         []realtime.Event
}

// JoinTransition validates that a session can accept the user and yields
// the join announcement. The capacity guard itself lives in the conditional
// insert, not here.
func JoinTransition(gs *models.GroupSession, username string) (*TransitionResult, error) {
	if !gs.Status.Joinable() {
		return nil, apierrors.NewStateConflictError("Cannot join a " + string(gs.Status) + " session")
	}
	return &TransitionResult{
		Status:         gs.Status,
		SystemMessages: []string{username + " joined the session"},
		Events: []realtime.Event{{
			Type:      realtime.EventUserJoined,
			SessionID: gs.ID,
			Data:      map[string]string{"username": username},
		}},
	}, nil
}

// LeaveTransition yields the leave announcement.
func LeaveTransition(gs *models.GroupSession, username string) *TransitionResult {
	return &TransitionResult{
		Status:         gs.Status,
		SystemMessages: []string{username + " left the session"},
		Events: []realtime.Event{{
			Type:      realtime.EventUserLeft,
			SessionID: gs.ID,
			Data:      map[string]string{"username": username},
		}},
	}
}

// StartTransition moves a scheduled session in progress. Host only.
func StartTransition(gs *models.GroupSession, callerID uuid.UUID) (*TransitionResult, error) {
	if gs.HostID != callerID {
		return nil, apierrors.NewAuthorizationError("Only the host can start the session")
	}
	if gs.Status != models.GroupSessionScheduled {
		return nil, apierrors.NewStateConflictError("Cannot start a " + string(gs.Status) + " session")
	}
	return &TransitionResult{
		Status:         models.GroupSessionInProgress,
		SystemMessages: []string{"Session started"},
		Events: []realtime.Event{{
			Type:      realtime.EventSessionStarted,
			SessionID: gs.ID,
		}},
	}, nil
}

// CompleteTransition records that one participant finished. When no joined
// participant remains the whole session completes and "Session ended" is
// appended last.
func CompleteTransition(gs *models.GroupSession, remainingJoined int) (*TransitionResult, error) {
	if gs.Status != models.GroupSessionInProgress {
		return nil, apierrors.NewStateConflictError("Cannot complete a " + string(gs.Status) + " session")
	}
	if remainingJoined > 0 {
		return &TransitionResult{Status: gs.Status}, nil
	}
	return &TransitionResult{
		Status:         models.GroupSessionCompleted,
		SystemMessages: []string{"Session ended"},
		Events: []realtime.Event{{
			Type:      realtime.EventSessionEnded,
			SessionID: gs.ID,
		}},
	}, nil
}

// CancelTransition cancels a session. Host only, never after completion.
func CancelTransition(gs *models.GroupSession, callerID uuid.UUID) (*TransitionResult, error) {
	if gs.HostID != callerID {
		return nil, apierrors.NewAuthorizationError("Only the host can cancel the session")
	}
	if gs.Status == models.GroupSessionCompleted {
		return nil, apierrors.NewStateConflictError("Cannot cancel a completed session")
	}
	if gs.Status == models.GroupSessionCancelled {
		return nil, apierrors.NewStateConflictError("Session is already cancelled")
	}
	return &TransitionResult{
		Status:         models.GroupSessionCancelled,
		SystemMessages: []string{"Session cancelled by host"},
		Events: []realtime.Event{{
			Type:      realtime.EventSessionCancelled,
			SessionID: gs.ID,
		}},
	}, nil
}
