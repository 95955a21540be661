package rpc

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"wagmicharge/native/custody"
)

type orderJSON struct {
	RequestID string `json:"requestId"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Depositor string `json:"depositor"`
	CreatedAt uint64 `json:"createdAt"`
	Settled   bool   `json:"settled"`
	Kind      uint8  `json:"kind"`
}

func orderToJSON(o *custody.Order) orderJSON {
	return orderJSON{
		RequestID: hex.EncodeToString(o.RequestID[:]),
		Asset:     o.Asset.Symbol(),
		Amount:    o.Amount.String(),
		Depositor: hex.EncodeToString(o.Depositor[:]),
		CreatedAt: o.CreatedAt,
		Settled:   o.Settled,
		Kind:      uint8(o.Kind),
	}
}

type assetJSON struct {
	Asset          string `json:"asset"`
	Name           string `json:"name"`
	Decimals       uint8  `json:"decimals"`
	MaxOrderAmount string `json:"maxOrderAmount"`
	Volume         string `json:"volume"`
	Supported      bool   `json:"supported"`
	Active         bool   `json:"active"`
}

func assetToJSON(info *custody.AssetInfo) assetJSON {
	return assetJSON{
		Asset:          info.Asset.Symbol(),
		Name:           info.Name,
		Decimals:       info.Decimals,
		MaxOrderAmount: info.MaxOrderAmount.String(),
		Volume:         info.Volume.String(),
		Supported:      info.Supported,
		Active:         info.Active,
	}
}

type settleableJSON struct {
	Orders     []string `json:"orders"`
	NextOffset uint64   `json:"nextOffset"`
	More       bool     `json:"more"`
}

type healthJSON struct {
	Healthy              bool   `json:"healthy"`
	Paused               bool   `json:"paused"`
	Emergency            bool   `json:"emergency"`
	EmergencyActivatedAt uint64 `json:"emergencyActivatedAt,omitempty"`
	TotalOrders          uint64 `json:"totalOrders"`
	TotalSettled         uint64 `json:"totalSettled"`
	TotalRefunded        uint64 `json:"totalRefunded"`
	TotalVolume          string `json:"totalVolume"`
	LastActivity         uint64 `json:"lastActivity"`
}

type adminsJSON struct {
	Admins    []string `json:"admins"`
	Threshold uint32   `json:"threshold"`
}

func parseRequestID(s string) ([32]byte, bool) {
	var id [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(raw) != 32 {
		return id, false
	}
	copy(id[:], raw)
	return id, true
}

// GetOrder handles GET /v1/orders/{id}.
func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRequestID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request identifier")
		return
	}
	order, found, err := s.engine.GetOrder(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, orderToJSON(order))
}

// GetSettleable handles GET /v1/orders/settleable.
func (s *Server) GetSettleable(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	offset, err := parseUintParam(query.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := parseUintParam(query.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	ids, next, more, err := s.engine.ScanSettleable(offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := settleableJSON{Orders: make([]string, 0, len(ids)), NextOffset: next, More: more}
	for _, id := range ids {
		out.Orders = append(out.Orders, hex.EncodeToString(id[:]))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDayOrders handles GET /v1/orders/day/{day}.
func (s *Server) GetDayOrders(w http.ResponseWriter, r *http.Request) {
	day, err := parseUintParam(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day bucket")
		return
	}
	ids, err := s.engine.DayOrders(day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, hex.EncodeToString(id[:]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListAssets handles GET /v1/assets.
func (s *Server) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.engine.Assets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]assetJSON, 0, len(assets))
	for _, a := range assets {
		info, ok, err := s.engine.AssetInfo(a)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if ok {
			out = append(out, assetToJSON(info))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetAsset handles GET /v1/assets/{symbol}.
func (s *Server) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := custody.ParseAsset(chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset symbol")
		return
	}
	info, ok, err := s.engine.AssetInfo(asset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "asset not registered")
		return
	}
	writeJSON(w, http.StatusOK, assetToJSON(info))
}

// GetHealth handles GET /v1/health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.HealthStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthJSON{
		Healthy:              status.Healthy,
		Paused:               status.Paused,
		Emergency:            status.Emergency,
		EmergencyActivatedAt: status.EmergencyActivatedAt,
		TotalOrders:          status.Metrics.TotalOrders,
		TotalSettled:         status.Metrics.TotalSettled,
		TotalRefunded:        status.Metrics.TotalRefunded,
		TotalVolume:          status.Metrics.TotalVolume.String(),
		LastActivity:         status.Metrics.LastActivity,
	})
}

// GetAdmins handles GET /v1/admins.
func (s *Server) GetAdmins(w http.ResponseWriter, r *http.Request) {
	admins, threshold, err := s.engine.Admins()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := adminsJSON{Admins: make([]string, 0, len(admins)), Threshold: threshold}
	for _, a := range admins {
		out.Admins = append(out.Admins, hex.EncodeToString(a[:]))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseUintParam(s string) (uint64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}
