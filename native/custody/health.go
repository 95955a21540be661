package custody

import (
	"strings"

	"github.com/google/uuid"
)

// staleActivityWindow is how long the engine may sit idle before the health
// status degrades. Advisory only; staleness never blocks operations.
const staleActivityWindow = 7 * 24 * 3600

// Pause halts order creation and settlement. Operator only.
func (e *Engine) Pause(caller [20]byte) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if err := e.requireOperator(caller); err != nil {
		return err
	}
	ctrl, err := e.state.ControlGet()
	if err != nil {
		return err
	}
	if ctrl.Paused {
		return nil
	}
	ctrl.Paused = true
	if err := e.state.ControlPut(ctrl); err != nil {
		return err
	}
	e.emit(NewPausedEvent(caller, e.now()))
	return nil
}

// Resume lifts an operator pause. It does not clear emergency mode; use
// DeactivateEmergency for that.
func (e *Engine) Resume(caller [20]byte) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if err := e.requireOperator(caller); err != nil {
		return err
	}
	ctrl, err := e.state.ControlGet()
	if err != nil {
		return err
	}
	if ctrl.Emergency {
		return ErrEmergencyActive
	}
	if !ctrl.Paused {
		return nil
	}
	ctrl.Paused = false
	if err := e.state.ControlPut(ctrl); err != nil {
		return err
	}
	e.emit(NewResumedEvent(caller, e.now()))
	return nil
}

// ActivateEmergency enters lockdown: it sets emergency mode and pauses the
// module. The governance gate applies; the token must bind to the reason via
// EmergencyActivateHash.
func (e *Engine) ActivateEmergency(caller [20]byte, token uuid.UUID, reason string) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	ctrl, err := e.state.ControlGet()
	if err != nil {
		return err
	}
	// An already-active lockdown rejects before the gate so the proposal
	// stays collectable for the next episode.
	if ctrl.Emergency {
		return ErrEmergencyActive
	}
	reason = strings.TrimSpace(reason)
	proposal, err := e.authorize(caller, token, ProposalKindEmergencyActivate, EmergencyActivateHash(reason))
	if err != nil {
		return err
	}
	now := e.now()
	ctrl.Emergency = true
	ctrl.Paused = true
	ctrl.EmergencyActivatedAt = now
	ctrl.EmergencyReason = reason
	snap := e.state.Snapshot()
	if err := retireProposal(snap, proposal); err != nil {
		return err
	}
	if err := snap.ControlPut(ctrl); err != nil {
		return err
	}
	if err := snap.Commit(); err != nil {
		return err
	}
	e.emit(NewEmergencyActivatedEvent(reason, caller, now))
	return nil
}

// DeactivateEmergency lifts the lockdown and unpauses. Before the emergency
// delay elapses, lifting requires governance quorum; afterwards the operator
// may lift it unilaterally and the token is ignored. Time substitutes for
// governance here rather than supplementing it; the asymmetry is deliberate.
func (e *Engine) DeactivateEmergency(caller [20]byte, token uuid.UUID) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	ctrl, err := e.state.ControlGet()
	if err != nil {
		return err
	}
	if !ctrl.Emergency {
		return nil
	}
	p, err := e.params()
	if err != nil {
		return err
	}
	now := e.now()
	early := now < ctrl.EmergencyActivatedAt+p.EmergencyDelay
	var proposal *Proposal
	if early {
		proposal, err = e.authorize(caller, token, ProposalKindEmergencyDeactivate, EmergencyDeactivateHash(ctrl.EmergencyActivatedAt))
		if err != nil {
			return err
		}
	} else if err := e.requireOperator(caller); err != nil {
		return err
	}
	ctrl.Emergency = false
	ctrl.Paused = false
	ctrl.EmergencyActivatedAt = 0
	ctrl.EmergencyReason = ""
	snap := e.state.Snapshot()
	if err := retireProposal(snap, proposal); err != nil {
		return err
	}
	if err := snap.ControlPut(ctrl); err != nil {
		return err
	}
	if err := snap.Commit(); err != nil {
		return err
	}
	e.emit(NewEmergencyDeactivatedEvent(caller, now, early))
	return nil
}

// Healthy reports whether the engine is operational and recently active.
func (e *Engine) Healthy() (bool, error) {
	status, err := e.HealthStatus()
	if err != nil {
		return false, err
	}
	return status.Healthy, nil
}

// HealthStatus returns the queryable controller snapshot together with the
// advisory metrics.
func (e *Engine) HealthStatus() (HealthStatus, error) {
	if e == nil || e.state == nil {
		return HealthStatus{}, errNilState
	}
	ctrl, err := e.state.ControlGet()
	if err != nil {
		return HealthStatus{}, err
	}
	metrics, err := e.state.MetricsGet()
	if err != nil {
		return HealthStatus{}, err
	}
	now := e.now()
	fresh := metrics.LastActivity == 0 || now <= metrics.LastActivity+staleActivityWindow
	return HealthStatus{
		Healthy:              !ctrl.Emergency && !ctrl.Paused && fresh,
		Paused:               ctrl.Paused,
		Emergency:            ctrl.Emergency,
		EmergencyActivatedAt: ctrl.EmergencyActivatedAt,
		Metrics:              metrics.Clone(),
	}, nil
}
