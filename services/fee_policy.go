package services

import (
	config "github.com/hyungeunseanson/locally-server/configs"
)

// FeePolicy is the single source of truth for platform percentages.
// Any percentage shown elsewhere (listing pages, host dashboards) is a
// display-only duplicate of these two rates.
type FeePolicy struct {
	GuestFeeRate  float64 // added on top of the base amount
	HostShareRate float64 // share of the base amount paid out to the host
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		GuestFeeRate:  config.ConfigFloat("PLATFORM_GUEST_FEE_RATE", 0.10),
		HostShareRate: config.ConfigFloat("PLATFORM_HOST_SHARE_RATE", 0.80),
	}
}

// PlatformFee floors so the guest is never charged a fraction of a
// currency unit.
func (p FeePolicy) PlatformFee(baseAmount int64) int64 {
	return int64(float64(baseAmount) * p.GuestFeeRate)
}

func (p FeePolicy) TotalAmount(baseAmount int64) int64 {
	return baseAmount + p.PlatformFee(baseAmount)
}

// HostPayout floors so the platform never pays out a fraction it did
// not collect.
func (p FeePolicy) HostPayout(baseAmount int64) int64 {
	return int64(float64(baseAmount) * p.HostShareRate)
}
