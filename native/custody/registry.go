package custody

import (
	"fmt"
	"math/big"
	"strings"
)

// maxRegisteredAssets bounds the registry so listing never iterates an
// unbounded set.
const maxRegisteredAssets = 64

// RegisterAsset adds an asset to the registry. Registration is operator-only,
// blocked while emergency mode is active, and append-only: a registered asset
// is never removed, only deactivated.
func (e *Engine) RegisterAsset(caller [20]byte, asset Asset, name string, decimals uint8, maxOrderAmount *big.Int) (*AssetInfo, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	ctrl, err := e.state.ControlGet()
	if err != nil {
		return nil, err
	}
	if ctrl.Emergency {
		return nil, ErrEmergencyActive
	}
	if !asset.IsNative() {
		if _, err := NormalizeSymbol(asset.Symbol()); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("custody: asset name must not be empty")
	}
	maxAmt := cloneBigInt(maxOrderAmount)
	if maxAmt.Sign() <= 0 {
		return nil, fmt.Errorf("%w: per-order maximum must be positive", ErrZeroAmount)
	}
	if _, ok, err := e.state.AssetGet(asset); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, asset)
	}
	registered, err := e.state.AssetList()
	if err != nil {
		return nil, err
	}
	if len(registered) >= maxRegisteredAssets {
		return nil, ErrRegistryFull
	}

	info := &AssetInfo{
		Asset:          asset,
		Name:           strings.TrimSpace(name),
		Decimals:       decimals,
		MaxOrderAmount: maxAmt,
		Volume:         big.NewInt(0),
		Supported:      true,
		Active:         true,
	}
	if err := e.state.AssetPut(info); err != nil {
		return nil, err
	}
	e.emit(NewAssetRegisteredEvent(info, caller, e.now()))
	return info.Clone(), nil
}

// SetAssetActive toggles whether new orders may be created against the asset.
func (e *Engine) SetAssetActive(caller [20]byte, asset Asset, active bool) (*AssetInfo, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	info, ok, err := e.state.AssetGet(asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetUnknown, asset)
	}
	if info.Active == active {
		return info.Clone(), nil
	}
	info.Active = active
	if err := e.state.AssetPut(info); err != nil {
		return nil, err
	}
	e.emit(NewAssetUpdatedEvent(info, caller, e.now()))
	return info.Clone(), nil
}

// AcceptableAsset reports whether the asset is registered and active.
func (e *Engine) AcceptableAsset(asset Asset) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	info, ok, err := e.state.AssetGet(asset)
	if err != nil {
		return false, err
	}
	return ok && info.Acceptable(), nil
}

// AssetInfo returns the registry entry for an asset.
func (e *Engine) AssetInfo(asset Asset) (*AssetInfo, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	info, ok, err := e.state.AssetGet(asset)
	if err != nil || !ok {
		return nil, ok, err
	}
	return info.Clone(), true, nil
}

// Assets lists the registered asset identifiers.
func (e *Engine) Assets() ([]Asset, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.AssetList()
}

// recordVolume adds the custodied amount to the asset's cumulative volume
// counter. Negative deltas are rejected; big.Int arithmetic cannot overflow.
func recordVolume(st State, asset Asset, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("custody: negative volume delta")
	}
	info, ok, err := st.AssetGet(asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetUnknown, asset)
	}
	info.Volume.Add(info.Volume, amount)
	return st.AssetPut(info)
}
