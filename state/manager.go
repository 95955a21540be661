package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"wagmicharge/native/custody"
	"wagmicharge/storage"
)

// Manager implements custody.State over a raw key-value substrate. Keys are
// Keccak-256 hashes of prefixed byte strings; values are RLP. Every record is
// durable: nothing the engine relies on lives only in memory.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var _ custody.State = (*Manager)(nil)

var (
	orderPrefix       = []byte("custody/order:")
	pendingLenKey     = ethcrypto.Keccak256([]byte("custody/pending/len"))
	pendingSlotPrefix = []byte("custody/pending/slot:")
	pendingPosPrefix  = []byte("custody/pending/pos:")
	dayIndexPrefix    = []byte("custody/day:")
	assetPrefix       = []byte("custody/asset:")
	assetListKey      = ethcrypto.Keccak256([]byte("custody/assets"))
	paramsKey         = ethcrypto.Keccak256([]byte("custody/params"))
	adminsKey         = ethcrypto.Keccak256([]byte("custody/admins"))
	proposalPrefix    = []byte("custody/proposal:")
	limitUsageKey     = ethcrypto.Keccak256([]byte("custody/limits/usage"))
	controlKey        = ethcrypto.Keccak256([]byte("custody/control"))
	metricsKey        = ethcrypto.Keccak256([]byte("custody/metrics"))
	balancePrefix     = []byte("ledger/balance:")
	allowancePrefix   = []byte("ledger/allowance:")
)

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	buf := append([]byte(nil), prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return ethcrypto.Keccak256(buf)
}

func uint64Bytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// kvGet decodes the value stored at key into out, reporting whether the key
// was present.
func (m *Manager) kvGet(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) kvPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// Snapshot returns an isolated overlay manager. Writes buffer in memory until
// Commit flushes them into the underlying database; a discarded snapshot
// leaves the parent untouched.
func (m *Manager) Snapshot() custody.TxState {
	return &txManager{Manager: Manager{db: storage.NewOverlay(m.db)}}
}

type txManager struct {
	Manager
}

// Commit flushes the overlay into its parent database.
func (t *txManager) Commit() error {
	return t.db.(*storage.Overlay).Commit()
}
