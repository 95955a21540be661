package state

import (
	"fmt"
	"math/big"

	"wagmicharge/native/custody"
)

// The ledger stores per-(address, asset) balances and the allowances granted
// to the custody vault. It is the asset-transfer collaborator the engine
// calls into; every transfer either succeeds completely or returns an error
// with both balances untouched.

func balanceKey(addr [20]byte, asset custody.Asset) []byte {
	return prefixedKey(balancePrefix, []byte(asset.Symbol()), []byte(":"), addr[:])
}

func allowanceKey(owner [20]byte, asset custody.Asset) []byte {
	return prefixedKey(allowancePrefix, []byte(asset.Symbol()), []byte(":"), owner[:])
}

// BalanceOf returns the ledger balance, zero when the account is untouched.
func (m *Manager) BalanceOf(addr [20]byte, asset custody.Asset) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := m.kvGet(balanceKey(addr, asset), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (m *Manager) setBalance(addr [20]byte, asset custody.Asset, amount *big.Int) error {
	return m.kvPut(balanceKey(addr, asset), amount)
}

// Allowance returns the amount the owner has authorised the custody vault to
// pull for the given asset.
func (m *Manager) Allowance(owner [20]byte, asset custody.Asset) (*big.Int, error) {
	allowance := new(big.Int)
	ok, err := m.kvGet(allowanceKey(owner, asset), allowance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return allowance, nil
}

// SetAllowance records the amount the owner authorises the custody vault to
// pull.
func (m *Manager) SetAllowance(owner [20]byte, asset custody.Asset, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative allowance")
	}
	return m.kvPut(allowanceKey(owner, asset), amount)
}

// Credit mints value into an account. Used by genesis bootstrap and tests;
// the engine itself only ever moves existing value.
func (m *Manager) Credit(addr [20]byte, asset custody.Asset, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative credit")
	}
	balance, err := m.BalanceOf(addr, asset)
	if err != nil {
		return err
	}
	return m.setBalance(addr, asset, balance.Add(balance, amount))
}

func (m *Manager) transfer(asset custody.Asset, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := m.BalanceOf(from, asset)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return custody.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	toBal, err := m.BalanceOf(to, asset)
	if err != nil {
		return err
	}
	if err := m.setBalance(from, asset, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return m.setBalance(to, asset, new(big.Int).Add(toBal, amount))
}

// TransferNative moves native value between accounts.
func (m *Manager) TransferNative(from, to [20]byte, amount *big.Int) error {
	return m.transfer(custody.NativeAsset(), from, to, amount)
}

// TransferToken moves fungible token value between accounts.
func (m *Manager) TransferToken(asset custody.Asset, from, to [20]byte, amount *big.Int) error {
	if asset.IsNative() {
		return fmt.Errorf("state: native asset has no token transfer")
	}
	return m.transfer(asset, from, to, amount)
}
