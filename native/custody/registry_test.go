package custody

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

func TestRegisterAsset(t *testing.T) {
	engine, _, emitter := newTestEngine(t)

	info, err := engine.RegisterAsset(operatorAddr, TokenAsset("USDX"), "Test Dollar", 6, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !info.Acceptable() || info.Decimals != 6 {
		t.Fatalf("info = %+v", info)
	}
	if got := emitter.typed(EventTypeAssetRegistered); len(got) != 1 {
		t.Fatalf("register events = %d, want 1", len(got))
	}

	if _, err := engine.RegisterAsset(operatorAddr, TokenAsset("USDX"), "Again", 6, big.NewInt(1)); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("re-register: got %v", err)
	}
	if _, err := engine.RegisterAsset(outsiderAddr, TokenAsset("EURX"), "Euro", 6, big.NewInt(1)); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("outsider register: got %v", err)
	}
	if _, err := engine.RegisterAsset(operatorAddr, TokenAsset("eur x"), "Euro", 6, big.NewInt(1)); err == nil {
		t.Fatalf("invalid symbol accepted")
	}
	if _, err := engine.RegisterAsset(operatorAddr, TokenAsset("EURX"), "  ", 6, big.NewInt(1)); err == nil {
		t.Fatalf("blank name accepted")
	}
	if _, err := engine.RegisterAsset(operatorAddr, TokenAsset("EURX"), "Euro", 6, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("zero max: got %v", err)
	}

	assets, err := engine.Assets()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Native was seeded by the test fixture.
	if len(assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(assets))
	}
}

func TestRegistryCapacity(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	// One slot is taken by the seeded native asset.
	for i := 0; i < maxRegisteredAssets-1; i++ {
		symbol := fmt.Sprintf("TOK%d", i)
		if _, err := engine.RegisterAsset(operatorAddr, TokenAsset(symbol), symbol, 6, big.NewInt(1)); err != nil {
			t.Fatalf("register %s: %v", symbol, err)
		}
	}
	if _, err := engine.RegisterAsset(operatorAddr, TokenAsset("OVER"), "Over", 6, big.NewInt(1)); !errors.Is(err, ErrRegistryFull) {
		t.Fatalf("over capacity: got %v", err)
	}
}

func TestSetAssetActive(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	asset := TokenAsset("USDX")
	if _, err := engine.RegisterAsset(operatorAddr, asset, "Test Dollar", 6, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := engine.SetAssetActive(operatorAddr, TokenAsset("GHOST"), false); !errors.Is(err, ErrAssetUnknown) {
		t.Fatalf("unknown asset: got %v", err)
	}
	info, err := engine.SetAssetActive(operatorAddr, asset, false)
	if err != nil || info.Active {
		t.Fatalf("deactivate: %v, %+v", err, info)
	}
	ok, err := engine.AcceptableAsset(asset)
	if err != nil || ok {
		t.Fatalf("deactivated asset acceptable")
	}

	// Deactivation never deletes the registry entry.
	stored, found, _ := state.AssetGet(asset)
	if !found || !stored.Supported {
		t.Fatalf("entry removed on deactivate: %+v", stored)
	}

	info, err = engine.SetAssetActive(operatorAddr, asset, true)
	if err != nil || !info.Active {
		t.Fatalf("reactivate: %v, %+v", err, info)
	}
	ok, _ = engine.AcceptableAsset(asset)
	if !ok {
		t.Fatalf("reactivated asset not acceptable")
	}
}
