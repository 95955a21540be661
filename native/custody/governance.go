package custody

import (
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
)

// Proposal kinds. Each governance-gated operation binds its token to one of
// these plus a payload hash over the operation's semantic inputs.
const (
	ProposalKindParamsUpdate        = "params.update"
	ProposalKindEmergencyActivate   = "emergency.activate"
	ProposalKindEmergencyDeactivate = "emergency.deactivate"
)

// ParamsHash binds a parameter update proposal to the exact values being
// approved, so approvals cannot be redirected to a different update.
func ParamsHash(p Params) [32]byte {
	encoded, err := rlp.EncodeToBytes(p.Clone())
	if err != nil {
		// Params contains only RLP-encodable fields; this is unreachable.
		panic(fmt.Sprintf("custody: encode params: %v", err))
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(ProposalKindParamsUpdate), encoded))
	return out
}

// EmergencyActivateHash binds an activation proposal to its reason.
func EmergencyActivateHash(reason string) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(ProposalKindEmergencyActivate), []byte(reason)))
	return out
}

// EmergencyDeactivateHash binds a deactivation proposal to the activation
// timestamp, making each lockdown episode a distinct approval target.
func EmergencyDeactivateHash(activatedAt uint64) [32]byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], activatedAt)
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(ProposalKindEmergencyDeactivate), ts[:]))
	return out
}

func (e *Engine) isAdmin(caller [20]byte) (bool, error) {
	admins, _, err := e.state.AdminsGet()
	if err != nil {
		return false, err
	}
	for _, a := range admins {
		if a == caller {
			return true, nil
		}
	}
	return false, nil
}

// Propose issues a fresh governance token for a gated operation. The operator
// and admins may propose. The token is passed back by each subsequent
// approving invocation of the gated operation itself; there is no separate
// execute step.
func (e *Engine) Propose(caller [20]byte, kind string, payloadHash [32]byte) (uuid.UUID, error) {
	if err := e.enter(); err != nil {
		return uuid.UUID{}, err
	}
	defer e.leave()

	switch kind {
	case ProposalKindParamsUpdate, ProposalKindEmergencyActivate, ProposalKindEmergencyDeactivate:
	default:
		return uuid.UUID{}, fmt.Errorf("custody: unknown proposal kind %q", kind)
	}
	if caller != e.operator {
		admin, err := e.isAdmin(caller)
		if err != nil {
			return uuid.UUID{}, err
		}
		if !admin {
			return uuid.UUID{}, ErrNotAdmin
		}
	}
	proposal := &Proposal{
		ID:          uuid.New(),
		Kind:        kind,
		PayloadHash: payloadHash,
		SubmittedAt: e.now(),
	}
	if err := e.state.ProposalPut(proposal); err != nil {
		return uuid.UUID{}, err
	}
	e.emit(NewProposalCreatedEvent(proposal, caller))
	return proposal.ID, nil
}

// authorize runs the governance gate for a gated operation. With approvals
// disabled or no admins configured, the operator executes immediately and the
// returned proposal is nil. Otherwise the caller must be an admin; their
// approval is recorded idempotently and the operation proceeds only on the
// invocation that reaches quorum, which receives the satisfied proposal back
// so it can retire the token inside the operation's own snapshot. Approvals
// below quorum persist; the executed flag commits with the operation or not
// at all.
func (e *Engine) authorize(caller [20]byte, token uuid.UUID, kind string, payloadHash [32]byte) (*Proposal, error) {
	p, err := e.params()
	if err != nil {
		return nil, err
	}
	admins, threshold, err := e.state.AdminsGet()
	if err != nil {
		return nil, err
	}
	if !p.RequireApprovals || len(admins) == 0 {
		return nil, e.requireOperator(caller)
	}

	isAdmin := false
	for _, a := range admins {
		if a == caller {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		return nil, ErrNotAdmin
	}
	proposal, ok, err := e.state.ProposalGet(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNotFound
	}
	if proposal.Executed {
		return nil, ErrProposalExecuted
	}
	if proposal.Kind != kind || proposal.PayloadHash != payloadHash {
		return nil, ErrProposalMismatch
	}
	if !proposal.HasApproval(caller) {
		proposal.Approvals = append(proposal.Approvals, caller)
		if err := e.state.ProposalPut(proposal); err != nil {
			return nil, err
		}
		e.emit(NewProposalApprovedEvent(proposal, caller, threshold))
	}
	if uint32(len(proposal.Approvals)) < threshold {
		return nil, fmt.Errorf("%w: %d of %d", ErrInsufficientApprovals, len(proposal.Approvals), threshold)
	}
	return proposal, nil
}

// retireProposal marks a satisfied proposal executed. Gated operations call it
// against their snapshot so a failure after quorum leaves the token reusable.
func retireProposal(st State, proposal *Proposal) error {
	if proposal == nil {
		return nil
	}
	proposal.Executed = true
	return st.ProposalPut(proposal)
}

// UpdateParams replaces the governance parameters. Out-of-range values are
// rejected before any state is touched, then the governance gate applies.
func (e *Engine) UpdateParams(caller [20]byte, token uuid.UUID, p Params) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if err := p.Validate(); err != nil {
		return err
	}
	proposal, err := e.authorize(caller, token, ProposalKindParamsUpdate, ParamsHash(p))
	if err != nil {
		return err
	}
	snap := e.state.Snapshot()
	if err := retireProposal(snap, proposal); err != nil {
		return err
	}
	if err := snap.ParamsPut(p.Clone()); err != nil {
		return err
	}
	if err := snap.Commit(); err != nil {
		return err
	}
	e.emit(NewParamsUpdatedEvent(p, caller, e.now()))
	return nil
}

// Params returns the effective governance parameters.
func (e *Engine) Params() (Params, error) {
	if e == nil || e.state == nil {
		return Params{}, errNilState
	}
	p, err := e.params()
	if err != nil {
		return Params{}, err
	}
	return p.Clone(), nil
}

// SetAdmins replaces the admin set and approval threshold. The threshold is
// clamped into [1, len(admins)] for a non-empty set; an empty set clears it.
func (e *Engine) SetAdmins(caller [20]byte, admins [][20]byte, threshold uint32) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if err := e.requireOperator(caller); err != nil {
		return err
	}
	deduped := make([][20]byte, 0, len(admins))
	seen := make(map[[20]byte]struct{}, len(admins))
	for _, a := range admins {
		if a == ([20]byte{}) {
			return fmt.Errorf("custody: zero admin address")
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		deduped = append(deduped, a)
	}
	if len(deduped) == 0 {
		threshold = 0
	} else {
		if threshold < 1 {
			threshold = 1
		}
		if threshold > uint32(len(deduped)) {
			threshold = uint32(len(deduped))
		}
	}
	if err := e.state.AdminsPut(deduped, threshold); err != nil {
		return err
	}
	e.emit(NewAdminsUpdatedEvent(len(deduped), threshold, caller, e.now()))
	return nil
}

// Admins returns the configured admin set and approval threshold.
func (e *Engine) Admins() ([][20]byte, uint32, error) {
	if e == nil || e.state == nil {
		return nil, 0, errNilState
	}
	return e.state.AdminsGet()
}
