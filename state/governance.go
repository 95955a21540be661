package state

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"wagmicharge/native/custody"
)

type storedParams struct {
	SettlementDelay  uint64
	DailyLimit       *big.Int
	MaxBatchSize     uint32
	EmergencyDelay   uint64
	RequireApprovals bool
}

// ParamsGet loads the governance parameters, reporting whether any are set.
func (m *Manager) ParamsGet() (custody.Params, bool, error) {
	var stored storedParams
	ok, err := m.kvGet(paramsKey, &stored)
	if err != nil || !ok {
		return custody.Params{}, false, err
	}
	return custody.Params{
		SettlementDelay:  stored.SettlementDelay,
		DailyLimit:       stored.DailyLimit,
		MaxBatchSize:     stored.MaxBatchSize,
		EmergencyDelay:   stored.EmergencyDelay,
		RequireApprovals: stored.RequireApprovals,
	}, true, nil
}

// ParamsPut persists the governance parameters after bounds validation.
func (m *Manager) ParamsPut(p custody.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	clone := p.Clone()
	return m.kvPut(paramsKey, &storedParams{
		SettlementDelay:  clone.SettlementDelay,
		DailyLimit:       clone.DailyLimit,
		MaxBatchSize:     clone.MaxBatchSize,
		EmergencyDelay:   clone.EmergencyDelay,
		RequireApprovals: clone.RequireApprovals,
	})
}

type storedAdmins struct {
	Admins    [][20]byte
	Threshold uint32
}

// AdminsGet returns the admin set and approval threshold.
func (m *Manager) AdminsGet() ([][20]byte, uint32, error) {
	var stored storedAdmins
	if _, err := m.kvGet(adminsKey, &stored); err != nil {
		return nil, 0, err
	}
	return stored.Admins, stored.Threshold, nil
}

// AdminsPut persists the admin set and threshold. The quorum invariant is
// enforced here as a last line of defence behind the engine's clamping.
func (m *Manager) AdminsPut(admins [][20]byte, threshold uint32) error {
	if len(admins) == 0 && threshold != 0 {
		return fmt.Errorf("state: threshold without admins")
	}
	if len(admins) > 0 && (threshold < 1 || threshold > uint32(len(admins))) {
		return fmt.Errorf("state: threshold %d out of [1, %d]", threshold, len(admins))
	}
	return m.kvPut(adminsKey, &storedAdmins{Admins: admins, Threshold: threshold})
}

type storedProposal struct {
	ID          [16]byte
	Kind        string
	PayloadHash [32]byte
	SubmittedAt uint64
	Approvals   [][20]byte
	Executed    bool
}

func proposalKey(id uuid.UUID) []byte {
	return prefixedKey(proposalPrefix, id[:])
}

// ProposalGet loads a governance proposal by token.
func (m *Manager) ProposalGet(id uuid.UUID) (*custody.Proposal, bool, error) {
	var stored storedProposal
	ok, err := m.kvGet(proposalKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &custody.Proposal{
		ID:          uuid.UUID(stored.ID),
		Kind:        stored.Kind,
		PayloadHash: stored.PayloadHash,
		SubmittedAt: stored.SubmittedAt,
		Approvals:   stored.Approvals,
		Executed:    stored.Executed,
	}, true, nil
}

// ProposalPut persists a governance proposal.
func (m *Manager) ProposalPut(p *custody.Proposal) error {
	if p == nil {
		return fmt.Errorf("state: nil proposal")
	}
	clone := p.Clone()
	return m.kvPut(proposalKey(clone.ID), &storedProposal{
		ID:          [16]byte(clone.ID),
		Kind:        clone.Kind,
		PayloadHash: clone.PayloadHash,
		SubmittedAt: clone.SubmittedAt,
		Approvals:   clone.Approvals,
		Executed:    clone.Executed,
	})
}

type storedUsage struct {
	Day  uint64
	Used *big.Int
}

// LimitUsageGet returns the rolling-day payout counters.
func (m *Manager) LimitUsageGet() (custody.DayUsage, error) {
	var stored storedUsage
	ok, err := m.kvGet(limitUsageKey, &stored)
	if err != nil {
		return custody.DayUsage{}, err
	}
	if !ok {
		return custody.DayUsage{Used: big.NewInt(0)}, nil
	}
	return custody.DayUsage{Day: stored.Day, Used: stored.Used}, nil
}

// LimitUsagePut persists the rolling-day payout counters.
func (m *Manager) LimitUsagePut(u custody.DayUsage) error {
	clone := u.Clone()
	return m.kvPut(limitUsageKey, &storedUsage{Day: clone.Day, Used: clone.Used})
}

type storedControl struct {
	Paused               bool
	Emergency            bool
	EmergencyActivatedAt uint64
	EmergencyReason      string
}

// ControlGet returns the pause and emergency flags.
func (m *Manager) ControlGet() (custody.Control, error) {
	var stored storedControl
	if _, err := m.kvGet(controlKey, &stored); err != nil {
		return custody.Control{}, err
	}
	return custody.Control{
		Paused:               stored.Paused,
		Emergency:            stored.Emergency,
		EmergencyActivatedAt: stored.EmergencyActivatedAt,
		EmergencyReason:      stored.EmergencyReason,
	}, nil
}

// ControlPut persists the pause and emergency flags.
func (m *Manager) ControlPut(c custody.Control) error {
	return m.kvPut(controlKey, &storedControl{
		Paused:               c.Paused,
		Emergency:            c.Emergency,
		EmergencyActivatedAt: c.EmergencyActivatedAt,
		EmergencyReason:      c.EmergencyReason,
	})
}

type storedMetrics struct {
	TotalOrders   uint64
	TotalSettled  uint64
	TotalRefunded uint64
	TotalVolume   *big.Int
	LastActivity  uint64
}

// MetricsGet returns the advisory health counters.
func (m *Manager) MetricsGet() (custody.Metrics, error) {
	var stored storedMetrics
	ok, err := m.kvGet(metricsKey, &stored)
	if err != nil {
		return custody.Metrics{}, err
	}
	if !ok {
		return custody.Metrics{TotalVolume: big.NewInt(0)}, nil
	}
	return custody.Metrics{
		TotalOrders:   stored.TotalOrders,
		TotalSettled:  stored.TotalSettled,
		TotalRefunded: stored.TotalRefunded,
		TotalVolume:   stored.TotalVolume,
		LastActivity:  stored.LastActivity,
	}, nil
}

// MetricsPut persists the advisory health counters.
func (m *Manager) MetricsPut(metrics custody.Metrics) error {
	clone := metrics.Clone()
	return m.kvPut(metricsKey, &storedMetrics{
		TotalOrders:   clone.TotalOrders,
		TotalSettled:  clone.TotalSettled,
		TotalRefunded: clone.TotalRefunded,
		TotalVolume:   clone.TotalVolume,
		LastActivity:  clone.LastActivity,
	})
}
