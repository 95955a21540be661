package state

import (
	"fmt"
	"math/big"
	"sort"

	"wagmicharge/native/custody"
)

type storedAsset struct {
	Symbol         string
	Name           string
	Decimals       uint8
	MaxOrderAmount *big.Int
	Volume         *big.Int
	Supported      bool
	Active         bool
}

func assetKey(a custody.Asset) []byte {
	return prefixedKey(assetPrefix, []byte(a.Symbol()))
}

// AssetGet loads a registry entry.
func (m *Manager) AssetGet(a custody.Asset) (*custody.AssetInfo, bool, error) {
	var stored storedAsset
	ok, err := m.kvGet(assetKey(a), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	asset, err := custody.ParseAsset(stored.Symbol)
	if err != nil {
		return nil, false, fmt.Errorf("state: corrupt asset entry %q: %w", stored.Symbol, err)
	}
	return &custody.AssetInfo{
		Asset:          asset,
		Name:           stored.Name,
		Decimals:       stored.Decimals,
		MaxOrderAmount: stored.MaxOrderAmount,
		Volume:         stored.Volume,
		Supported:      stored.Supported,
		Active:         stored.Active,
	}, true, nil
}

// AssetPut persists a registry entry and records the symbol in the sorted
// asset index.
func (m *Manager) AssetPut(info *custody.AssetInfo) error {
	if info == nil {
		return fmt.Errorf("state: nil asset info")
	}
	clone := info.Clone()
	if err := m.kvPut(assetKey(clone.Asset), &storedAsset{
		Symbol:         clone.Asset.Symbol(),
		Name:           clone.Name,
		Decimals:       clone.Decimals,
		MaxOrderAmount: clone.MaxOrderAmount,
		Volume:         clone.Volume,
		Supported:      clone.Supported,
		Active:         clone.Active,
	}); err != nil {
		return err
	}
	var symbols []string
	if _, err := m.kvGet(assetListKey, &symbols); err != nil {
		return err
	}
	symbol := clone.Asset.Symbol()
	for _, s := range symbols {
		if s == symbol {
			return nil
		}
	}
	symbols = append(symbols, symbol)
	sort.Strings(symbols)
	return m.kvPut(assetListKey, symbols)
}

// AssetList returns the registered asset identifiers in symbol order.
func (m *Manager) AssetList() ([]custody.Asset, error) {
	var symbols []string
	if _, err := m.kvGet(assetListKey, &symbols); err != nil {
		return nil, err
	}
	assets := make([]custody.Asset, 0, len(symbols))
	for _, s := range symbols {
		asset, err := custody.ParseAsset(s)
		if err != nil {
			return nil, fmt.Errorf("state: corrupt asset index entry %q: %w", s, err)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}
