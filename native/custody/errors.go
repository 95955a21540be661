package custody

import "errors"

// Every distinguishable failure kind surfaces as one of these sentinels,
// possibly wrapped with call-site context. Callers discriminate with
// errors.Is; no state-changing path returns a generic catch-all.
var (
	// Input validation. Rejected before any state change.
	ErrZeroRequestID         = errors.New("custody: zero request identifier")
	ErrZeroAmount            = errors.New("custody: amount must be positive")
	ErrDuplicateOrder        = errors.New("custody: duplicate order")
	ErrExceedsMaxOrderAmount = errors.New("custody: amount exceeds per-order maximum")
	ErrBatchLengthMismatch   = errors.New("custody: request and decision lengths differ")
	ErrEmptyBatch            = errors.New("custody: empty batch")
	ErrBatchSizeExceeded     = errors.New("custody: batch size exceeded")
	ErrInvalidParams         = errors.New("custody: invalid governance params")

	// Asset registry.
	ErrAssetExists        = errors.New("custody: asset already registered")
	ErrAssetUnknown       = errors.New("custody: asset not registered")
	ErrAssetNotAcceptable = errors.New("custody: asset not acceptable")
	ErrRegistryFull       = errors.New("custody: asset registry at capacity")

	// Authorization.
	ErrNotOperator           = errors.New("custody: caller is not the operator")
	ErrNotAdmin              = errors.New("custody: caller is not an admin")
	ErrInsufficientApprovals = errors.New("custody: insufficient approvals")
	ErrProposalNotFound      = errors.New("custody: proposal not found")
	ErrProposalMismatch      = errors.New("custody: proposal does not match operation")
	ErrProposalExecuted      = errors.New("custody: proposal already executed")

	// Custody and transfer.
	ErrOrderNotFound         = errors.New("custody: order not found")
	ErrAlreadySettled        = errors.New("custody: order already settled")
	ErrSettlementDelay       = errors.New("custody: settlement delay not elapsed")
	ErrValueMismatch         = errors.New("custody: attached value does not match amount")
	ErrInsufficientBalance   = errors.New("custody: insufficient balance")
	ErrInsufficientAllowance = errors.New("custody: insufficient allowance")
	ErrTransferFailed        = errors.New("custody: transfer failed")
	ErrDailyLimitExceeded    = errors.New("custody: daily withdrawal limit exceeded")

	// Operational mode. Rejected uniformly regardless of other validity.
	ErrPaused          = errors.New("custody: module paused")
	ErrEmergencyActive = errors.New("custody: emergency mode active")
	ErrReentrancy      = errors.New("custody: reentrant call rejected")
)
