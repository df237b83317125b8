package domain

// BillingInterval is the charge cadence
type BillingInterval string

const (
	BillingIntervalOneTime     BillingInterval = "ONE_TIME"
	BillingIntervalEvery30Days BillingInterval = "EVERY_30_DAYS"
	BillingIntervalAnnual      BillingInterval = "ANNUAL"
)

// IsRecurring reports whether the interval is a subscription
func (i BillingInterval) IsRecurring() bool {
	return i == BillingIntervalEvery30Days || i == BillingIntervalAnnual
}

// BillingConfig describes the charge a shop must have paid
type BillingConfig struct {
	Required     bool
	ChargeName   string
	Amount       float64
	CurrencyCode string
	Interval     BillingInterval
	Test         bool
}

// BillingStatus enumerates the billing check outcomes
type BillingStatus int

const (
	BillingHasPayment BillingStatus = iota
	BillingNeedsPayment
	BillingCheckFailed
)

// BillingResult is the outcome of a billing check
type BillingResult struct {
	Status          BillingStatus
	ConfirmationURL string
	Reason          string
}

// HasPayment builds a BillingHasPayment result
func HasPayment() BillingResult {
	return BillingResult{Status: BillingHasPayment}
}

// NeedsPayment builds a BillingNeedsPayment result
func NeedsPayment(confirmationURL string) BillingResult {
	return BillingResult{Status: BillingNeedsPayment, ConfirmationURL: confirmationURL}
}

// CheckFailed builds a BillingCheckFailed result
func CheckFailed(reason string) BillingResult {
	return BillingResult{Status: BillingCheckFailed, Reason: reason}
}
