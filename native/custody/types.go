package custody

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// nativeAssetSymbol is the canonical display and storage form of the chain
// native unit. Fungible assets may not register under it.
const nativeAssetSymbol = "NATIVE"

// Asset is a tagged variant distinguishing the chain-native unit from a
// registered fungible token. The zero value is the native asset.
type Asset struct {
	symbol string
}

// NativeAsset returns the variant for the chain-native unit.
func NativeAsset() Asset { return Asset{} }

// TokenAsset returns the fungible variant for the given symbol. The symbol is
// validated lazily; use NormalizeSymbol to validate eagerly.
func TokenAsset(symbol string) Asset {
	return Asset{symbol: strings.ToUpper(strings.TrimSpace(symbol))}
}

// IsNative reports whether the asset is the chain-native unit.
func (a Asset) IsNative() bool { return a.symbol == "" }

// Symbol returns the token symbol, or the canonical native marker for the
// native asset. The returned form doubles as the persistence key.
func (a Asset) Symbol() string {
	if a.IsNative() {
		return nativeAssetSymbol
	}
	return a.symbol
}

func (a Asset) String() string { return a.Symbol() }

// ParseAsset maps a canonical symbol back onto the tagged variant.
func ParseAsset(symbol string) (Asset, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return Asset{}, fmt.Errorf("custody: empty asset symbol")
	}
	if trimmed == nativeAssetSymbol {
		return NativeAsset(), nil
	}
	if err := validateSymbol(trimmed); err != nil {
		return Asset{}, err
	}
	return Asset{symbol: trimmed}, nil
}

// NormalizeSymbol validates a fungible token symbol and returns its canonical
// uppercase form. The native marker is reserved.
func NormalizeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if err := validateSymbol(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("custody: empty asset symbol")
	}
	if symbol == nativeAssetSymbol {
		return fmt.Errorf("custody: symbol %s is reserved for the native asset", symbol)
	}
	if len(symbol) > 16 {
		return fmt.Errorf("custody: asset symbol too long: %s", symbol)
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("custody: invalid asset symbol: %s", symbol)
		}
	}
	return nil
}

// OrderKind is reserved for future order variants. Only the standard kind is
// defined today.
type OrderKind uint8

const (
	OrderKindStandard OrderKind = iota
)

// Valid reports whether the kind value is within the supported range.
func (k OrderKind) Valid() bool { return k == OrderKindStandard }

// Order is a single custody-and-pending-disbursement record keyed by an
// externally supplied request identifier. Amount reflects the value actually
// received into custody, which may differ from the requested amount for
// fee-charging tokens.
type Order struct {
	RequestID [32]byte
	Asset     Asset
	Amount    *big.Int
	Depositor [20]byte
	CreatedAt uint64
	Settled   bool
	Kind      OrderKind
}

// Clone returns a deep copy so callers can mutate the copy without affecting
// the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// SanitizeOrder validates an order record and returns a cloned instance with a
// non-nil amount. The original value is not mutated.
func SanitizeOrder(o *Order) (*Order, error) {
	if o == nil {
		return nil, fmt.Errorf("custody: nil order")
	}
	if o.RequestID == ([32]byte{}) {
		return nil, ErrZeroRequestID
	}
	clone := o.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if !clone.Kind.Valid() {
		return nil, fmt.Errorf("custody: invalid order kind: %d", clone.Kind)
	}
	return clone, nil
}

// AssetInfo captures the registry entry for an accepted asset. Supported is
// append-only: a registered asset is never removed, only deactivated.
type AssetInfo struct {
	Asset          Asset
	Name           string
	Decimals       uint8
	MaxOrderAmount *big.Int
	Volume         *big.Int
	Supported      bool
	Active         bool
}

// Clone returns a deep copy of the registry entry.
func (i *AssetInfo) Clone() *AssetInfo {
	if i == nil {
		return nil
	}
	clone := *i
	if i.MaxOrderAmount != nil {
		clone.MaxOrderAmount = new(big.Int).Set(i.MaxOrderAmount)
	} else {
		clone.MaxOrderAmount = big.NewInt(0)
	}
	if i.Volume != nil {
		clone.Volume = new(big.Int).Set(i.Volume)
	} else {
		clone.Volume = big.NewInt(0)
	}
	return &clone
}

// Acceptable reports whether orders may be created against the asset.
func (i *AssetInfo) Acceptable() bool {
	return i != nil && i.Supported && i.Active
}

// Governance parameter bounds enforced by Params.Validate.
const (
	MinSettlementDelay = 60
	MaxSettlementDelay = 7 * 24 * 3600
	MinBatchSize       = 1
	MaxBatchSize       = 100
	MinEmergencyDelay  = 3600
	MaxEmergencyDelay  = 30 * 24 * 3600
)

// Params holds the operator-governed settlement parameters.
type Params struct {
	SettlementDelay  uint64
	DailyLimit       *big.Int
	MaxBatchSize     uint32
	EmergencyDelay   uint64
	RequireApprovals bool
}

// DefaultParams returns the parameters applied when a fresh state has none.
func DefaultParams() Params {
	return Params{
		SettlementDelay:  3600,
		DailyLimit:       new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e9)),
		MaxBatchSize:     25,
		EmergencyDelay:   24 * 3600,
		RequireApprovals: false,
	}
}

// Clone returns a deep copy of the parameter set.
func (p Params) Clone() Params {
	clone := p
	if p.DailyLimit != nil {
		clone.DailyLimit = new(big.Int).Set(p.DailyLimit)
	} else {
		clone.DailyLimit = big.NewInt(0)
	}
	return clone
}

// Validate enforces the fixed parameter bounds. It is called before any state
// is touched so a rejected update never partially applies.
func (p Params) Validate() error {
	if p.SettlementDelay < MinSettlementDelay || p.SettlementDelay > MaxSettlementDelay {
		return fmt.Errorf("%w: settlement delay %d out of [%d, %d]", ErrInvalidParams, p.SettlementDelay, MinSettlementDelay, MaxSettlementDelay)
	}
	if p.MaxBatchSize < MinBatchSize || p.MaxBatchSize > MaxBatchSize {
		return fmt.Errorf("%w: batch size %d out of [%d, %d]", ErrInvalidParams, p.MaxBatchSize, MinBatchSize, MaxBatchSize)
	}
	if p.EmergencyDelay < MinEmergencyDelay || p.EmergencyDelay > MaxEmergencyDelay {
		return fmt.Errorf("%w: emergency delay %d out of [%d, %d]", ErrInvalidParams, p.EmergencyDelay, MinEmergencyDelay, MaxEmergencyDelay)
	}
	if p.DailyLimit == nil || p.DailyLimit.Sign() <= 0 {
		return fmt.Errorf("%w: daily limit must be positive", ErrInvalidParams)
	}
	return nil
}

// Decision selects the settlement recipient: the operator account on accept,
// the original depositor on refund.
type Decision uint8

const (
	DecisionAccept Decision = iota
	DecisionRefund
)

// Valid reports whether the decision value is within the supported range.
func (d Decision) Valid() bool {
	switch d {
	case DecisionAccept, DecisionRefund:
		return true
	default:
		return false
	}
}

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionRefund:
		return "refund"
	default:
		return fmt.Sprintf("decision(%d)", uint8(d))
	}
}

// ParseDecision maps the wire form back onto the enum.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept":
		return DecisionAccept, nil
	case "refund":
		return DecisionRefund, nil
	default:
		return 0, fmt.Errorf("custody: invalid decision %q", s)
	}
}

// BatchResult summarises a batch settlement run.
type BatchResult struct {
	Processed uint32
	Skipped   uint32
}

// Metrics carries the advisory health counters. They never gate correctness.
type Metrics struct {
	TotalOrders   uint64
	TotalSettled  uint64
	TotalRefunded uint64
	TotalVolume   *big.Int
	LastActivity  uint64
}

// Clone returns a deep copy of the metrics snapshot.
func (m Metrics) Clone() Metrics {
	clone := m
	if m.TotalVolume != nil {
		clone.TotalVolume = new(big.Int).Set(m.TotalVolume)
	} else {
		clone.TotalVolume = big.NewInt(0)
	}
	return clone
}

// Control holds the pause and emergency flags together with the activation
// timestamp needed for the delayed-deactivation rule.
type Control struct {
	Paused               bool
	Emergency            bool
	EmergencyActivatedAt uint64
	EmergencyReason      string
}

// Proposal is the explicit governance token collected against a gated
// operation. Approvals are idempotent per admin; the proposal executes on the
// call that reaches quorum and is single-use afterwards.
type Proposal struct {
	ID          uuid.UUID
	Kind        string
	PayloadHash [32]byte
	SubmittedAt uint64
	Approvals   [][20]byte
	Executed    bool
}

// Clone returns a deep copy of the proposal.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Approvals = make([][20]byte, len(p.Approvals))
	copy(clone.Approvals, p.Approvals)
	return &clone
}

// HasApproval reports whether the address already approved the proposal.
func (p *Proposal) HasApproval(addr [20]byte) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Approvals {
		if a == addr {
			return true
		}
	}
	return false
}

// HealthStatus is the queryable snapshot of the health controller.
type HealthStatus struct {
	Healthy              bool
	Paused               bool
	Emergency            bool
	EmergencyActivatedAt uint64
	Metrics              Metrics
}
