package rpc

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"wagmicharge/native/custody"
	"wagmicharge/state"
	"wagmicharge/storage"
)

var (
	testOperator  = [20]byte{0x01}
	testDepositor = [20]byte{0x02}
)

func testRequestID(b byte) [32]byte {
	var id [32]byte
	id[31] = b
	return id
}

func hexRequestID(b byte) string {
	id := testRequestID(b)
	return hex.EncodeToString(id[:])
}

func newTestServer(t *testing.T) (*Server, *custody.Engine, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	engine := custody.NewEngine()
	engine.SetState(manager)
	engine.SetOperator(testOperator)
	engine.SetNowFunc(func() uint64 { return 1_000_000 })

	_, err := engine.RegisterAsset(testOperator, custody.NativeAsset(), "Native Coin", 18, big.NewInt(1_000_000))
	require.NoError(t, err)
	return NewServer(engine), engine, manager
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func createTestOrder(t *testing.T, engine *custody.Engine, manager *state.Manager, id [32]byte, amount int64) {
	t.Helper()
	require.NoError(t, manager.Credit(testDepositor, custody.NativeAsset(), big.NewInt(amount)))
	_, err := engine.CreateOrder(testDepositor, id, custody.NativeAsset(), big.NewInt(amount), big.NewInt(amount))
	require.NoError(t, err)
}

func TestGetOrder(t *testing.T) {
	srv, engine, manager := newTestServer(t)
	createTestOrder(t, engine, manager, testRequestID(1), 500)

	rec := doGet(t, srv, "/v1/orders/"+hexRequestID(1))
	require.Equal(t, http.StatusOK, rec.Code)

	var got orderJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "NATIVE", got.Asset)
	require.Equal(t, "500", got.Amount)
	require.Equal(t, hex.EncodeToString(testDepositor[:]), got.Depositor)
	require.False(t, got.Settled)

	rec = doGet(t, srv, "/v1/orders/"+hexRequestID(9))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doGet(t, srv, "/v1/orders/nothex")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSettleable(t *testing.T) {
	srv, engine, manager := newTestServer(t)
	createTestOrder(t, engine, manager, testRequestID(1), 100)
	createTestOrder(t, engine, manager, testRequestID(2), 100)

	// Orders are still inside the settlement delay.
	rec := doGet(t, srv, "/v1/orders/settleable")
	require.Equal(t, http.StatusOK, rec.Code)
	var got settleableJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Empty(t, got.Orders)

	engine.SetNowFunc(func() uint64 { return 1_000_000 + 3600 })
	rec = doGet(t, srv, "/v1/orders/settleable?offset=0&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Orders, 2)
	require.False(t, got.More)

	rec = doGet(t, srv, "/v1/orders/settleable?offset=junk")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDayOrders(t *testing.T) {
	srv, engine, manager := newTestServer(t)
	createTestOrder(t, engine, manager, testRequestID(1), 100)

	day := uint64(1_000_000) / 86400
	rec := doGet(t, srv, "/v1/orders/day/"+strconv.FormatUint(day, 10))
	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	require.Equal(t, []string{hexRequestID(1)}, ids)

	rec = doGet(t, srv, "/v1/orders/day/999999")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	require.Empty(t, ids)

	rec = doGet(t, srv, "/v1/orders/day/notaday")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssetEndpoints(t *testing.T) {
	srv, engine, _ := newTestServer(t)
	_, err := engine.RegisterAsset(testOperator, custody.TokenAsset("USDX"), "Test Dollar", 6, big.NewInt(1_000))
	require.NoError(t, err)

	rec := doGet(t, srv, "/v1/assets")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []assetJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	rec = doGet(t, srv, "/v1/assets/usdx")
	require.Equal(t, http.StatusOK, rec.Code)
	var got assetJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "USDX", got.Asset)
	require.Equal(t, "Test Dollar", got.Name)
	require.True(t, got.Active)

	rec = doGet(t, srv, "/v1/assets/GHOST")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doGet(t, srv, "/v1/assets/bad-symbol")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHealth(t *testing.T) {
	srv, engine, manager := newTestServer(t)
	createTestOrder(t, engine, manager, testRequestID(1), 100)

	rec := doGet(t, srv, "/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var got healthJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.Healthy)
	require.EqualValues(t, 1, got.TotalOrders)
	require.Equal(t, "100", got.TotalVolume)

	require.NoError(t, engine.Pause(testOperator))
	rec = doGet(t, srv, "/v1/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.False(t, got.Healthy)
	require.True(t, got.Paused)
}

func TestGetAdmins(t *testing.T) {
	srv, engine, _ := newTestServer(t)
	admin := [20]byte{0x0a}
	require.NoError(t, engine.SetAdmins(testOperator, [][20]byte{admin}, 1))

	rec := doGet(t, srv, "/v1/admins")
	require.Equal(t, http.StatusOK, rec.Code)
	var got adminsJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, []string{hex.EncodeToString(admin[:])}, got.Admins)
	require.EqualValues(t, 1, got.Threshold)
}
