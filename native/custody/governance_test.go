package custody

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
)

func newGovernedEngine(t *testing.T) (*Engine, *mockState, *capturingEmitter) {
	t.Helper()
	engine, state, emitter := newTestEngine(t)
	params := DefaultParams()
	params.RequireApprovals = true
	if err := state.ParamsPut(params); err != nil {
		t.Fatalf("params: %v", err)
	}
	if err := state.AdminsPut([][20]byte{adminOne, adminTwo}, 2); err != nil {
		t.Fatalf("admins: %v", err)
	}
	return engine, state, emitter
}

func TestUpdateParamsOperatorFastPath(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	next := DefaultParams()
	next.SettlementDelay = 7200
	// No admins configured: the operator executes without a token.
	if err := engine.UpdateParams(operatorAddr, uuid.UUID{}, next); err != nil {
		t.Fatalf("update: %v", err)
	}
	p, _, _ := state.ParamsGet()
	if p.SettlementDelay != 7200 {
		t.Fatalf("delay = %d, want 7200", p.SettlementDelay)
	}
	if err := engine.UpdateParams(outsiderAddr, uuid.UUID{}, next); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("outsider update: got %v", err)
	}
}

func TestUpdateParamsQuorum(t *testing.T) {
	engine, state, emitter := newGovernedEngine(t)

	next := DefaultParams()
	next.RequireApprovals = true
	next.SettlementDelay = 7200
	token, err := engine.Propose(adminOne, ProposalKindParamsUpdate, ParamsHash(next))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	// First approval is below quorum; nothing applies yet.
	if err := engine.UpdateParams(adminOne, token, next); !errors.Is(err, ErrInsufficientApprovals) {
		t.Fatalf("first approval: got %v", err)
	}
	p, _, _ := state.ParamsGet()
	if p.SettlementDelay != DefaultParams().SettlementDelay {
		t.Fatalf("params applied before quorum")
	}

	// The below-quorum approval persists without retiring the token.
	stored, ok, _ := state.ProposalGet(token)
	if !ok || stored.Executed || len(stored.Approvals) != 1 {
		t.Fatalf("collecting proposal: %+v", stored)
	}

	// Re-approval by the same admin is idempotent.
	if err := engine.UpdateParams(adminOne, token, next); !errors.Is(err, ErrInsufficientApprovals) {
		t.Fatalf("repeat approval: got %v", err)
	}
	if got := emitter.typed(EventTypeProposalApproved); len(got) != 1 {
		t.Fatalf("approval events = %d, want 1", len(got))
	}

	// The call that reaches quorum executes.
	if err := engine.UpdateParams(adminTwo, token, next); err != nil {
		t.Fatalf("quorum call: %v", err)
	}
	p, _, _ = state.ParamsGet()
	if p.SettlementDelay != 7200 {
		t.Fatalf("delay = %d, want 7200", p.SettlementDelay)
	}

	// The token is single-use.
	if err := engine.UpdateParams(adminOne, token, next); !errors.Is(err, ErrProposalExecuted) {
		t.Fatalf("reuse: got %v", err)
	}
}

func TestUpdateParamsGateRejections(t *testing.T) {
	engine, _, _ := newGovernedEngine(t)

	next := DefaultParams()
	next.RequireApprovals = true
	next.SettlementDelay = 7200
	token, err := engine.Propose(operatorAddr, ProposalKindParamsUpdate, ParamsHash(next))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	if err := engine.UpdateParams(outsiderAddr, token, next); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("outsider: got %v", err)
	}
	if err := engine.UpdateParams(adminOne, uuid.New(), next); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("unknown token: got %v", err)
	}

	// A token bound to different values cannot authorize this update.
	other := next
	other.SettlementDelay = 9000
	if err := engine.UpdateParams(adminOne, token, other); !errors.Is(err, ErrProposalMismatch) {
		t.Fatalf("payload mismatch: got %v", err)
	}

	// With approvals required, the operator alone is not an admin.
	if err := engine.UpdateParams(operatorAddr, token, next); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("operator under quorum: got %v", err)
	}
}

func TestUpdateParamsBounds(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	cases := []func(*Params){
		func(p *Params) { p.SettlementDelay = MinSettlementDelay - 1 },
		func(p *Params) { p.SettlementDelay = MaxSettlementDelay + 1 },
		func(p *Params) { p.MaxBatchSize = 0 },
		func(p *Params) { p.MaxBatchSize = MaxBatchSize + 1 },
		func(p *Params) { p.EmergencyDelay = MinEmergencyDelay - 1 },
		func(p *Params) { p.EmergencyDelay = MaxEmergencyDelay + 1 },
		func(p *Params) { p.DailyLimit = big.NewInt(0) },
		func(p *Params) { p.DailyLimit = nil },
	}
	for i, mutate := range cases {
		p := DefaultParams()
		mutate(&p)
		if err := engine.UpdateParams(operatorAddr, uuid.UUID{}, p); !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("case %d: got %v", i, err)
		}
	}
}

func TestProposeAuthorization(t *testing.T) {
	engine, _, _ := newGovernedEngine(t)

	if _, err := engine.Propose(outsiderAddr, ProposalKindParamsUpdate, [32]byte{}); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("outsider propose: got %v", err)
	}
	if _, err := engine.Propose(operatorAddr, "bogus.kind", [32]byte{}); err == nil {
		t.Fatalf("unknown kind accepted")
	}
	if _, err := engine.Propose(adminOne, ProposalKindEmergencyActivate, EmergencyActivateHash("drill")); err != nil {
		t.Fatalf("admin propose: %v", err)
	}
}

func TestSetAdmins(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	if err := engine.SetAdmins(outsiderAddr, [][20]byte{adminOne}, 1); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("outsider: got %v", err)
	}
	if err := engine.SetAdmins(operatorAddr, [][20]byte{adminOne, {}}, 1); err == nil {
		t.Fatalf("zero address accepted")
	}

	// Duplicates collapse and the threshold clamps to the set size.
	if err := engine.SetAdmins(operatorAddr, [][20]byte{adminOne, adminOne, adminTwo}, 9); err != nil {
		t.Fatalf("set admins: %v", err)
	}
	admins, threshold, _ := state.AdminsGet()
	if len(admins) != 2 || threshold != 2 {
		t.Fatalf("admins=%d threshold=%d, want 2/2", len(admins), threshold)
	}

	// Clearing the set zeroes the threshold.
	if err := engine.SetAdmins(operatorAddr, nil, 5); err != nil {
		t.Fatalf("clear admins: %v", err)
	}
	admins, threshold, _ = state.AdminsGet()
	if len(admins) != 0 || threshold != 0 {
		t.Fatalf("admins=%d threshold=%d, want 0/0", len(admins), threshold)
	}
}

func TestParamsHashBindsValues(t *testing.T) {
	a := DefaultParams()
	b := DefaultParams()
	b.SettlementDelay++
	if ParamsHash(a) == ParamsHash(b) {
		t.Fatalf("distinct params hash equal")
	}
	if ParamsHash(a) != ParamsHash(DefaultParams()) {
		t.Fatalf("equal params hash differs")
	}
	if EmergencyActivateHash("a") == EmergencyActivateHash("b") {
		t.Fatalf("distinct reasons hash equal")
	}
	if EmergencyDeactivateHash(1) == EmergencyDeactivateHash(2) {
		t.Fatalf("distinct episodes hash equal")
	}
}
