package custody

import (
	"encoding/hex"
	"strconv"

	"wagmicharge/core/events"
)

const (
	EventTypeOrderCreated         = "custody.order.created"
	EventTypeOrderSettled         = "custody.order.settled"
	EventTypeOrderRefunded        = "custody.order.refunded"
	EventTypeBatchSettled         = "custody.batch.settled"
	EventTypeAssetRegistered      = "custody.asset.registered"
	EventTypeAssetUpdated         = "custody.asset.updated"
	EventTypeParamsUpdated        = "custody.params.updated"
	EventTypeAdminsUpdated        = "custody.admins.updated"
	EventTypeProposalCreated      = "custody.proposal.created"
	EventTypeProposalApproved     = "custody.proposal.approved"
	EventTypePaused               = "custody.paused"
	EventTypeResumed              = "custody.resumed"
	EventTypeEmergencyActivated   = "custody.emergency.activated"
	EventTypeEmergencyDeactivated = "custody.emergency.deactivated"
)

// NewOrderCreatedEvent returns the canonical payload for a newly custodied
// order.
func NewOrderCreatedEvent(o *Order) *events.Event {
	attrs := make(map[string]string)
	evt := &events.Event{Type: EventTypeOrderCreated, Attributes: attrs}
	if o == nil {
		return evt
	}
	attrs["requestId"] = hex.EncodeToString(o.RequestID[:])
	attrs["asset"] = o.Asset.Symbol()
	attrs["amount"] = o.Amount.String()
	attrs["depositor"] = hex.EncodeToString(o.Depositor[:])
	attrs["createdAt"] = strconv.FormatUint(o.CreatedAt, 10)
	attrs["kind"] = strconv.FormatUint(uint64(o.Kind), 10)
	return evt
}

// NewOrderSettledEvent returns the payload emitted when an order is disbursed.
// The event type distinguishes operator payouts from depositor refunds.
func NewOrderSettledEvent(o *Order, decision Decision, recipient [20]byte, caller [20]byte, now uint64) *events.Event {
	eventType := EventTypeOrderSettled
	if decision == DecisionRefund {
		eventType = EventTypeOrderRefunded
	}
	attrs := make(map[string]string)
	evt := &events.Event{Type: eventType, Attributes: attrs}
	if o == nil {
		return evt
	}
	attrs["requestId"] = hex.EncodeToString(o.RequestID[:])
	attrs["asset"] = o.Asset.Symbol()
	attrs["amount"] = o.Amount.String()
	attrs["decision"] = decision.String()
	attrs["recipient"] = hex.EncodeToString(recipient[:])
	attrs["settler"] = hex.EncodeToString(caller[:])
	attrs["settledAt"] = strconv.FormatUint(now, 10)
	return evt
}

// NewBatchSettledEvent returns the aggregate payload for a batch run.
func NewBatchSettledEvent(result BatchResult, requested int, caller [20]byte, now uint64) *events.Event {
	return &events.Event{Type: EventTypeBatchSettled, Attributes: map[string]string{
		"requested": strconv.Itoa(requested),
		"processed": strconv.FormatUint(uint64(result.Processed), 10),
		"skipped":   strconv.FormatUint(uint64(result.Skipped), 10),
		"settler":   hex.EncodeToString(caller[:]),
		"settledAt": strconv.FormatUint(now, 10),
	}}
}

func newAssetEvent(eventType string, info *AssetInfo, caller [20]byte, now uint64) *events.Event {
	attrs := make(map[string]string)
	evt := &events.Event{Type: eventType, Attributes: attrs}
	if info == nil {
		return evt
	}
	attrs["asset"] = info.Asset.Symbol()
	attrs["name"] = info.Name
	attrs["decimals"] = strconv.FormatUint(uint64(info.Decimals), 10)
	attrs["maxOrderAmount"] = info.MaxOrderAmount.String()
	attrs["active"] = strconv.FormatBool(info.Active)
	attrs["actor"] = hex.EncodeToString(caller[:])
	attrs["updatedAt"] = strconv.FormatUint(now, 10)
	return evt
}

// NewAssetRegisteredEvent returns the payload for a new registry entry.
func NewAssetRegisteredEvent(info *AssetInfo, caller [20]byte, now uint64) *events.Event {
	return newAssetEvent(EventTypeAssetRegistered, info, caller, now)
}

// NewAssetUpdatedEvent returns the payload for an activation toggle.
func NewAssetUpdatedEvent(info *AssetInfo, caller [20]byte, now uint64) *events.Event {
	return newAssetEvent(EventTypeAssetUpdated, info, caller, now)
}

// NewParamsUpdatedEvent returns the payload emitted after a parameter update
// commits.
func NewParamsUpdatedEvent(p Params, caller [20]byte, now uint64) *events.Event {
	return &events.Event{Type: EventTypeParamsUpdated, Attributes: map[string]string{
		"settlementDelay":  strconv.FormatUint(p.SettlementDelay, 10),
		"dailyLimit":       p.DailyLimit.String(),
		"maxBatchSize":     strconv.FormatUint(uint64(p.MaxBatchSize), 10),
		"emergencyDelay":   strconv.FormatUint(p.EmergencyDelay, 10),
		"requireApprovals": strconv.FormatBool(p.RequireApprovals),
		"actor":            hex.EncodeToString(caller[:]),
		"updatedAt":        strconv.FormatUint(now, 10),
	}}
}

// NewAdminsUpdatedEvent returns the payload for an admin-set change.
func NewAdminsUpdatedEvent(count int, threshold uint32, caller [20]byte, now uint64) *events.Event {
	return &events.Event{Type: EventTypeAdminsUpdated, Attributes: map[string]string{
		"admins":    strconv.Itoa(count),
		"threshold": strconv.FormatUint(uint64(threshold), 10),
		"actor":     hex.EncodeToString(caller[:]),
		"updatedAt": strconv.FormatUint(now, 10),
	}}
}

// NewProposalCreatedEvent returns the payload for a freshly issued governance
// token.
func NewProposalCreatedEvent(p *Proposal, caller [20]byte) *events.Event {
	attrs := make(map[string]string)
	evt := &events.Event{Type: EventTypeProposalCreated, Attributes: attrs}
	if p == nil {
		return evt
	}
	attrs["proposal"] = p.ID.String()
	attrs["kind"] = p.Kind
	attrs["payloadHash"] = hex.EncodeToString(p.PayloadHash[:])
	attrs["submittedAt"] = strconv.FormatUint(p.SubmittedAt, 10)
	attrs["proposer"] = hex.EncodeToString(caller[:])
	return evt
}

// NewProposalApprovedEvent returns the payload recorded for each collected
// approval.
func NewProposalApprovedEvent(p *Proposal, caller [20]byte, threshold uint32) *events.Event {
	attrs := make(map[string]string)
	evt := &events.Event{Type: EventTypeProposalApproved, Attributes: attrs}
	if p == nil {
		return evt
	}
	attrs["proposal"] = p.ID.String()
	attrs["kind"] = p.Kind
	attrs["approvals"] = strconv.Itoa(len(p.Approvals))
	attrs["threshold"] = strconv.FormatUint(uint64(threshold), 10)
	attrs["approver"] = hex.EncodeToString(caller[:])
	return evt
}

// NewPausedEvent returns the payload for an operator pause.
func NewPausedEvent(caller [20]byte, now uint64) *events.Event {
	return &events.Event{Type: EventTypePaused, Attributes: map[string]string{
		"actor":    hex.EncodeToString(caller[:]),
		"pausedAt": strconv.FormatUint(now, 10),
	}}
}

// NewResumedEvent returns the payload for an operator resume.
func NewResumedEvent(caller [20]byte, now uint64) *events.Event {
	return &events.Event{Type: EventTypeResumed, Attributes: map[string]string{
		"actor":     hex.EncodeToString(caller[:]),
		"resumedAt": strconv.FormatUint(now, 10),
	}}
}

// NewEmergencyActivatedEvent returns the payload for a lockdown activation.
func NewEmergencyActivatedEvent(reason string, caller [20]byte, now uint64) *events.Event {
	return &events.Event{Type: EventTypeEmergencyActivated, Attributes: map[string]string{
		"reason":      reason,
		"actor":       hex.EncodeToString(caller[:]),
		"activatedAt": strconv.FormatUint(now, 10),
	}}
}

// NewEmergencyDeactivatedEvent returns the payload for lifting the lockdown.
// Early carries whether quorum was required because the emergency delay had
// not yet elapsed.
func NewEmergencyDeactivatedEvent(caller [20]byte, now uint64, early bool) *events.Event {
	return &events.Event{Type: EventTypeEmergencyDeactivated, Attributes: map[string]string{
		"actor":         hex.EncodeToString(caller[:]),
		"deactivatedAt": strconv.FormatUint(now, 10),
		"early":         strconv.FormatBool(early),
	}}
}
