package state

import (
	"fmt"
	"math/big"

	"wagmicharge/native/custody"
)

type storedOrder struct {
	RequestID [32]byte
	Asset     string
	Amount    *big.Int
	Depositor [20]byte
	CreatedAt uint64
	Settled   bool
	Kind      uint8
}

func orderKey(id [32]byte) []byte {
	return prefixedKey(orderPrefix, id[:])
}

// OrderGet loads an order by request identifier.
func (m *Manager) OrderGet(id [32]byte) (*custody.Order, bool, error) {
	var stored storedOrder
	ok, err := m.kvGet(orderKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	asset, err := custody.ParseAsset(stored.Asset)
	if err != nil {
		return nil, false, fmt.Errorf("state: corrupt order %x: %w", id, err)
	}
	return &custody.Order{
		RequestID: stored.RequestID,
		Asset:     asset,
		Amount:    stored.Amount,
		Depositor: stored.Depositor,
		CreatedAt: stored.CreatedAt,
		Settled:   stored.Settled,
		Kind:      custody.OrderKind(stored.Kind),
	}, true, nil
}

// OrderPut persists an order after sanitising it.
func (m *Manager) OrderPut(o *custody.Order) error {
	sanitized, err := custody.SanitizeOrder(o)
	if err != nil {
		return err
	}
	return m.kvPut(orderKey(sanitized.RequestID), &storedOrder{
		RequestID: sanitized.RequestID,
		Asset:     sanitized.Asset.Symbol(),
		Amount:    sanitized.Amount,
		Depositor: sanitized.Depositor,
		CreatedAt: sanitized.CreatedAt,
		Settled:   sanitized.Settled,
		Kind:      uint8(sanitized.Kind),
	})
}

// --- Pending index: dense slot array plus a reverse position map. Positions
// are stored 1-based so zero can mean "absent"; removal swaps the last slot
// into the hole.

func pendingSlotKey(i uint64) []byte {
	return prefixedKey(pendingSlotPrefix, uint64Bytes(i))
}

func pendingPosKey(id [32]byte) []byte {
	return prefixedKey(pendingPosPrefix, id[:])
}

// PendingLen returns the number of identifiers in the pending index.
func (m *Manager) PendingLen() (uint64, error) {
	var length uint64
	if _, err := m.kvGet(pendingLenKey, &length); err != nil {
		return 0, err
	}
	return length, nil
}

// PendingAt returns the identifier stored at slot i.
func (m *Manager) PendingAt(i uint64) ([32]byte, error) {
	var id [32]byte
	ok, err := m.kvGet(pendingSlotKey(i), &id)
	if err != nil {
		return id, err
	}
	if !ok {
		return id, fmt.Errorf("state: pending slot %d out of range", i)
	}
	return id, nil
}

// PendingPosition returns the 1-based position of id, or zero when absent.
func (m *Manager) PendingPosition(id [32]byte) (uint64, error) {
	var pos uint64
	if _, err := m.kvGet(pendingPosKey(id), &pos); err != nil {
		return 0, err
	}
	return pos, nil
}

// PendingAppend adds an identifier to the tail of the index. Duplicates are
// rejected.
func (m *Manager) PendingAppend(id [32]byte) error {
	pos, err := m.PendingPosition(id)
	if err != nil {
		return err
	}
	if pos != 0 {
		return fmt.Errorf("state: %x already pending", id)
	}
	length, err := m.PendingLen()
	if err != nil {
		return err
	}
	if err := m.kvPut(pendingSlotKey(length), id); err != nil {
		return err
	}
	if err := m.kvPut(pendingPosKey(id), length+1); err != nil {
		return err
	}
	return m.kvPut(pendingLenKey, length+1)
}

// PendingRemove deletes an identifier from the index in O(1) by moving the
// last slot into the freed position. Removing an absent identifier is a
// no-op.
func (m *Manager) PendingRemove(id [32]byte) error {
	pos, err := m.PendingPosition(id)
	if err != nil {
		return err
	}
	if pos == 0 {
		return nil
	}
	length, err := m.PendingLen()
	if err != nil {
		return err
	}
	if length == 0 || pos > length {
		return fmt.Errorf("state: pending index corrupt for %x", id)
	}
	lastSlot := length - 1
	hole := pos - 1
	if hole != lastSlot {
		moved, err := m.PendingAt(lastSlot)
		if err != nil {
			return err
		}
		if err := m.kvPut(pendingSlotKey(hole), moved); err != nil {
			return err
		}
		if err := m.kvPut(pendingPosKey(moved), pos); err != nil {
			return err
		}
	}
	if err := m.db.Delete(pendingSlotKey(lastSlot)); err != nil {
		return err
	}
	if err := m.db.Delete(pendingPosKey(id)); err != nil {
		return err
	}
	return m.kvPut(pendingLenKey, lastSlot)
}

// --- Per-day creation index.

func dayIndexKey(day uint64) []byte {
	return prefixedKey(dayIndexPrefix, uint64Bytes(day))
}

// DayIndexAppend records a request identifier under its creation day bucket.
func (m *Manager) DayIndexAppend(day uint64, id [32]byte) error {
	ids, err := m.DayOrders(day)
	if err != nil {
		return err
	}
	ids = append(ids, id)
	return m.kvPut(dayIndexKey(day), ids)
}

// DayOrders returns the request identifiers created within the day bucket.
func (m *Manager) DayOrders(day uint64) ([][32]byte, error) {
	var ids [][32]byte
	if _, err := m.kvGet(dayIndexKey(day), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
