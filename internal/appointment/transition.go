package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// The lifecycle is deliberately small:
//
//	pending --confirm--> confirmed
//	pending, confirmed --cancel--> cancelled (terminal)
//
// Apply is a pure function over it: given the current appointment and
// an action it returns the updated appointment or a typed rejection.
// The service persists the result with a compare-and-swap so a
// concurrent mutation surfaces as the same rejection instead of a lost
// update.

type Action interface {
	isAction()
}

type ConfirmAction struct{}

func (ConfirmAction) isAction() {}

type CancelAction struct {
	By     Actor
	Reason *string
}

func (CancelAction) isAction() {}

func Apply(a Appointment, action Action, now time.Time) (Appointment, error) {
	switch act := action.(type) {
	case ConfirmAction:
		if a.Status != StatusPending {
			return Appointment{}, fmt.Errorf("%w: confirm requires pending, have %s", ErrInvalidTransition, a.Status)
		}
		a.Status = StatusConfirmed
		a.UpdatedAt = now
		return a, nil

	case CancelAction:
		if a.Status == StatusCancelled {
			return Appointment{}, fmt.Errorf("%w: already cancelled", ErrInvalidTransition)
		}
		by := act.By
		a.Status = StatusCancelled
		a.CancelledBy = &by
		a.CancellationReason = act.Reason
		a.UpdatedAt = now
		return a, nil
	}

	return Appointment{}, fmt.Errorf("unknown action %T", action)
}

// CancellationRecipient names the party to tell about the cancellation:
// the patient, unless the patient cancelled themselves, in which case
// the provider.
func (a *Appointment) CancellationRecipient() uuid.UUID {
	if a.CancelledBy != nil && *a.CancelledBy == ActorPatient {
		return a.ProviderID
	}
	return a.PatientID
}
