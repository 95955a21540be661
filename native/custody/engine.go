package custody

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"wagmicharge/core/events"
)

var errNilState = errors.New("custody engine: state not configured")

// State is the durable backend contract required by the engine. It covers the
// order store, the pending index, the asset registry, governance records, and
// the ledger collaborator that actually moves value. state.Manager provides
// the production implementation; tests supply map-backed mocks.
type State interface {
	OrderGet(id [32]byte) (*Order, bool, error)
	OrderPut(*Order) error

	PendingAppend(id [32]byte) error
	PendingRemove(id [32]byte) error
	PendingLen() (uint64, error)
	PendingAt(i uint64) ([32]byte, error)

	DayIndexAppend(day uint64, id [32]byte) error
	DayOrders(day uint64) ([][32]byte, error)

	AssetPut(*AssetInfo) error
	AssetGet(a Asset) (*AssetInfo, bool, error)
	AssetList() ([]Asset, error)

	ParamsGet() (Params, bool, error)
	ParamsPut(Params) error

	AdminsGet() ([][20]byte, uint32, error)
	AdminsPut(admins [][20]byte, threshold uint32) error

	ProposalGet(id uuid.UUID) (*Proposal, bool, error)
	ProposalPut(*Proposal) error

	LimitUsageGet() (DayUsage, error)
	LimitUsagePut(DayUsage) error

	ControlGet() (Control, error)
	ControlPut(Control) error

	MetricsGet() (Metrics, error)
	MetricsPut(Metrics) error

	BalanceOf(addr [20]byte, asset Asset) (*big.Int, error)
	Allowance(owner [20]byte, asset Asset) (*big.Int, error)
	SetAllowance(owner [20]byte, asset Asset, amount *big.Int) error
	TransferNative(from, to [20]byte, amount *big.Int) error
	TransferToken(asset Asset, from, to [20]byte, amount *big.Int) error

	Snapshot() TxState
}

// TxState is an isolated overlay over a State. Writes buffer until Commit and
// are discarded otherwise. Batch settlement runs each item inside one so a
// failed item leaves no partial state.
type TxState interface {
	State
	Commit() error
}

// vaultAddress is the module account that custodies deposited value between
// order creation and settlement.
var vaultAddress = func() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("wagmicharge/custody/vault"))[12:])
	return addr
}()

// Engine orchestrates the order lifecycle: creation into custody, batched and
// single settlement, refunds, asset registry upkeep, governance gating, and
// the emergency controller. It is the sole writer of orders and the pending
// index.
type Engine struct {
	state    State
	emitter  events.Emitter
	operator [20]byte
	nowFn    func() uint64
	inFlight bool
}

// NewEngine creates a custody engine with a no-op emitter. Callers override
// collaborators via the Set methods before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetOperator configures the single privileged account that owns governance
// state and receives accepted-order payouts.
func (e *Engine) SetOperator(addr [20]byte) { e.operator = addr }

// Operator returns the configured operator account.
func (e *Engine) Operator() [20]byte { return e.operator }

// VaultAddress returns the module custody account.
func (e *Engine) VaultAddress() [20]byte { return vaultAddress }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily so tests can supply
// deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return e.nowFn()
}

// enter arms the re-entrancy guard. Any nested call back into a
// state-mutating entry point while one is executing fails immediately.
func (e *Engine) enter() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.inFlight {
		return ErrReentrancy
	}
	e.inFlight = true
	return nil
}

func (e *Engine) leave() { e.inFlight = false }

func (e *Engine) requireOperator(caller [20]byte) error {
	if caller != e.operator {
		return ErrNotOperator
	}
	return nil
}

func (e *Engine) params() (Params, error) {
	p, ok, err := e.state.ParamsGet()
	if err != nil {
		return Params{}, err
	}
	if !ok {
		return DefaultParams(), nil
	}
	return p, nil
}

// requireOperational rejects value-moving operations while paused or in
// emergency mode.
func (e *Engine) requireOperational() (Control, error) {
	ctrl, err := e.state.ControlGet()
	if err != nil {
		return Control{}, err
	}
	if ctrl.Emergency {
		return ctrl, ErrEmergencyActive
	}
	if ctrl.Paused {
		return ctrl, ErrPaused
	}
	return ctrl, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// CreateOrder takes custody of the caller's funds against an external request
// identifier. For the native asset the attached value must equal amount
// exactly; for token assets the custodied amount is measured from the vault's
// pre/post balances, defending against fee-charging tokens.
func (e *Engine) CreateOrder(caller [20]byte, requestID [32]byte, asset Asset, amount, value *big.Int) (*Order, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if requestID == ([32]byte{}) {
		return nil, ErrZeroRequestID
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if _, err := e.requireOperational(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.OrderGet(requestID); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrDuplicateOrder
	}
	info, ok, err := e.state.AssetGet(asset)
	if err != nil {
		return nil, err
	}
	if !ok || !info.Acceptable() {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotAcceptable, asset)
	}
	if amt.Cmp(info.MaxOrderAmount) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrExceedsMaxOrderAmount, amt, info.MaxOrderAmount)
	}

	snap := e.state.Snapshot()
	received, err := e.custodyDeposit(snap, caller, asset, amt, value)
	if err != nil {
		return nil, err
	}
	now := e.now()
	order := &Order{
		RequestID: requestID,
		Asset:     asset,
		Amount:    received,
		Depositor: caller,
		CreatedAt: now,
		Settled:   false,
		Kind:      OrderKindStandard,
	}
	if err := snap.OrderPut(order); err != nil {
		return nil, err
	}
	if err := snap.PendingAppend(requestID); err != nil {
		return nil, err
	}
	if err := snap.DayIndexAppend(now/secondsPerDay, requestID); err != nil {
		return nil, err
	}
	if err := recordVolume(snap, asset, received); err != nil {
		return nil, err
	}
	metrics, err := snap.MetricsGet()
	if err != nil {
		return nil, err
	}
	metrics = metrics.Clone()
	metrics.TotalOrders++
	metrics.TotalVolume.Add(metrics.TotalVolume, received)
	metrics.LastActivity = now
	if err := snap.MetricsPut(metrics); err != nil {
		return nil, err
	}
	if err := snap.Commit(); err != nil {
		return nil, err
	}
	e.emit(NewOrderCreatedEvent(order))
	return order.Clone(), nil
}

// custodyDeposit moves the deposit into the vault and returns the amount
// actually received.
func (e *Engine) custodyDeposit(st State, caller [20]byte, asset Asset, amount, value *big.Int) (*big.Int, error) {
	if asset.IsNative() {
		if value == nil || value.Cmp(amount) != 0 {
			return nil, ErrValueMismatch
		}
		if err := st.TransferNative(caller, vaultAddress, amount); err != nil {
			return nil, err
		}
		return cloneBigInt(amount), nil
	}
	if value != nil && value.Sign() != 0 {
		return nil, ErrValueMismatch
	}
	allowance, err := st.Allowance(caller, asset)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(amount) < 0 {
		return nil, ErrInsufficientAllowance
	}
	balance, err := st.BalanceOf(caller, asset)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	pre, err := st.BalanceOf(vaultAddress, asset)
	if err != nil {
		return nil, err
	}
	if err := st.TransferToken(asset, caller, vaultAddress, amount); err != nil {
		return nil, err
	}
	if err := st.SetAllowance(caller, asset, new(big.Int).Sub(allowance, amount)); err != nil {
		return nil, err
	}
	post, err := st.BalanceOf(vaultAddress, asset)
	if err != nil {
		return nil, err
	}
	received := new(big.Int).Sub(post, pre)
	if received.Sign() <= 0 {
		return nil, ErrTransferFailed
	}
	return received, nil
}

// Settle disburses a single pending order according to the decision. The
// settlement delay applies; use CancelOrder to refund inside the delay
// window.
func (e *Engine) Settle(caller [20]byte, requestID [32]byte, decision Decision) (*Order, error) {
	return e.settleGuarded(caller, requestID, decision, true)
}

// CancelOrder refunds a pending order back to its depositor. The operator may
// invoke it at any time regardless of the settlement delay; the daily limit
// tracker never applies to refunds.
func (e *Engine) CancelOrder(caller [20]byte, requestID [32]byte) (*Order, error) {
	return e.settleGuarded(caller, requestID, DecisionRefund, false)
}

func (e *Engine) settleGuarded(caller [20]byte, requestID [32]byte, decision Decision, enforceDelay bool) (*Order, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, fmt.Errorf("custody: invalid decision %d", decision)
	}
	if _, err := e.requireOperational(); err != nil {
		return nil, err
	}
	p, err := e.params()
	if err != nil {
		return nil, err
	}
	now := e.now()
	snap := e.state.Snapshot()
	order, recipient, err := e.settleOrder(snap, requestID, decision, enforceDelay, now, p)
	if err != nil {
		return nil, err
	}
	if err := snap.Commit(); err != nil {
		return nil, err
	}
	e.emit(NewOrderSettledEvent(order, decision, recipient, caller, now))
	return order.Clone(), nil
}

// settleOrder performs the single-order settlement sub-operation against the
// supplied state. The settled flag flip and the outbound transfer commit
// together or not at all; callers run it inside a snapshot.
func (e *Engine) settleOrder(st State, requestID [32]byte, decision Decision, enforceDelay bool, now uint64, p Params) (*Order, [20]byte, error) {
	var zero [20]byte
	order, ok, err := st.OrderGet(requestID)
	if err != nil {
		return nil, zero, err
	}
	if !ok {
		return nil, zero, ErrOrderNotFound
	}
	if order.Settled {
		return nil, zero, ErrAlreadySettled
	}
	if enforceDelay && now < order.CreatedAt+p.SettlementDelay {
		return nil, zero, ErrSettlementDelay
	}

	recipient := order.Depositor
	if decision == DecisionAccept {
		recipient = e.operator
		usage, err := st.LimitUsageGet()
		if err != nil {
			return nil, zero, err
		}
		next, err := ConsumeDailyAllowance(p.DailyLimit, now, usage, order.Amount)
		if err != nil {
			return nil, zero, err
		}
		if err := st.LimitUsagePut(next); err != nil {
			return nil, zero, err
		}
	}

	if err := e.payOut(st, order.Asset, recipient, order.Amount); err != nil {
		return nil, zero, err
	}

	order.Settled = true
	if err := st.OrderPut(order); err != nil {
		return nil, zero, err
	}
	if err := st.PendingRemove(requestID); err != nil {
		return nil, zero, err
	}
	metrics, err := st.MetricsGet()
	if err != nil {
		return nil, zero, err
	}
	metrics = metrics.Clone()
	if decision == DecisionAccept {
		metrics.TotalSettled++
	} else {
		metrics.TotalRefunded++
	}
	metrics.LastActivity = now
	if err := st.MetricsPut(metrics); err != nil {
		return nil, zero, err
	}
	return order, recipient, nil
}

// payOut moves custodied value from the vault to the settlement recipient.
// Every transfer failure surfaces as a specific kind; funds are never
// silently dropped.
func (e *Engine) payOut(st State, asset Asset, to [20]byte, amount *big.Int) error {
	if asset.IsNative() {
		if err := st.TransferNative(vaultAddress, to, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return nil
	}
	if err := st.TransferToken(asset, vaultAddress, to, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// BatchSettle settles up to MaxBatchSize orders in one call. Each pair is
// attempted in an isolated snapshot: orders that are absent, already settled,
// younger than the settlement delay, or whose sub-operation fails count as
// skips and never abort the rest of the batch.
func (e *Engine) BatchSettle(caller [20]byte, requestIDs [][32]byte, decisions []Decision) (BatchResult, error) {
	if err := e.enter(); err != nil {
		return BatchResult{}, err
	}
	defer e.leave()

	var result BatchResult
	if err := e.requireOperator(caller); err != nil {
		return result, err
	}
	if len(requestIDs) != len(decisions) {
		return result, ErrBatchLengthMismatch
	}
	if len(requestIDs) == 0 {
		return result, ErrEmptyBatch
	}
	if _, err := e.requireOperational(); err != nil {
		return result, err
	}
	p, err := e.params()
	if err != nil {
		return result, err
	}
	if uint32(len(requestIDs)) > p.MaxBatchSize {
		return result, fmt.Errorf("%w: %d > %d", ErrBatchSizeExceeded, len(requestIDs), p.MaxBatchSize)
	}

	now := e.now()
	for i, id := range requestIDs {
		if !decisions[i].Valid() {
			result.Skipped++
			continue
		}
		snap := e.state.Snapshot()
		order, recipient, err := e.settleOrder(snap, id, decisions[i], true, now, p)
		if err != nil {
			result.Skipped++
			continue
		}
		if err := snap.Commit(); err != nil {
			result.Skipped++
			continue
		}
		result.Processed++
		e.emit(NewOrderSettledEvent(order, decisions[i], recipient, caller, now))
	}
	e.emit(NewBatchSettledEvent(result, len(requestIDs), caller, now))
	return result, nil
}

// scanDefaultLimit caps how many pending slots a single scan call walks;
// callers paginate with the returned offset.
const scanDefaultLimit = 100

// ScanSettleable walks at most limit slots of the pending index from offset,
// collecting order identifiers whose age exceeds the settlement delay. It
// returns the matches, the offset to resume from, and whether more slots
// remain beyond the scanned window. A zero or excessive limit is clamped to
// the default.
func (e *Engine) ScanSettleable(offset, limit uint64) ([][32]byte, uint64, bool, error) {
	if e == nil || e.state == nil {
		return nil, 0, false, errNilState
	}
	if limit == 0 || limit > scanDefaultLimit {
		limit = scanDefaultLimit
	}
	p, err := e.params()
	if err != nil {
		return nil, 0, false, err
	}
	total, err := e.state.PendingLen()
	if err != nil {
		return nil, 0, false, err
	}
	end := offset + limit
	if end < offset || end > total {
		end = total
	}
	now := e.now()
	matches := make([][32]byte, 0, limit)
	i := offset
	for ; i < end; i++ {
		id, err := e.state.PendingAt(i)
		if err != nil {
			return nil, 0, false, err
		}
		order, ok, err := e.state.OrderGet(id)
		if err != nil {
			return nil, 0, false, err
		}
		if !ok || order.Settled {
			continue
		}
		if now >= order.CreatedAt+p.SettlementDelay {
			matches = append(matches, id)
		}
	}
	return matches, i, i < total, nil
}

// GetOrder returns the stored order for a request identifier.
func (e *Engine) GetOrder(requestID [32]byte) (*Order, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	order, ok, err := e.state.OrderGet(requestID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return order.Clone(), true, nil
}

// DayOrders returns the request identifiers created within the given day
// bucket (Unix time / 86400).
func (e *Engine) DayOrders(day uint64) ([][32]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.DayOrders(day)
}
