package custody

import (
	"fmt"
	"math/big"
)

const secondsPerDay = 86400

// DayUsage captures the rolling-day payout counters. The day bucket is the
// Unix timestamp divided by 86400; advancing the bucket resets the
// accumulator.
type DayUsage struct {
	Day  uint64
	Used *big.Int
}

// Clone returns a deep copy of the usage counters.
func (u DayUsage) Clone() DayUsage {
	clone := u
	if u.Used != nil {
		clone.Used = new(big.Int).Set(u.Used)
	} else {
		clone.Used = big.NewInt(0)
	}
	return clone
}

// ConsumeDailyAllowance verifies that releasing amount to the operator fits
// within the configured daily limit and returns the updated counters. The
// previous counters are returned unchanged when the limit would be exceeded.
// Refund payouts never pass through here: returning custody to the depositor
// is not a release of value.
func ConsumeDailyAllowance(limit *big.Int, now uint64, prev DayUsage, amount *big.Int) (DayUsage, error) {
	if amount == nil || amount.Sign() <= 0 {
		return prev, fmt.Errorf("%w: non-positive payout", ErrZeroAmount)
	}
	if limit == nil || limit.Sign() <= 0 {
		return prev, fmt.Errorf("%w: daily limit not configured", ErrInvalidParams)
	}
	next := prev.Clone()
	bucket := now / secondsPerDay
	if next.Day != bucket {
		next = DayUsage{Day: bucket, Used: big.NewInt(0)}
	}
	next.Used.Add(next.Used, amount)
	if next.Used.Cmp(limit) > 0 {
		return prev, ErrDailyLimitExceeded
	}
	return next, nil
}
