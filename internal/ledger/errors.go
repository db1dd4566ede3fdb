package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSameAccount         = errors.New("sender and recipient are the same account")
	ErrNotRegistered       = errors.New("provider not registered")
	ErrAlreadyRegistered   = errors.New("provider already registered")
	ErrInvalidReading      = errors.New("reading out of range")
	ErrNotFound            = errors.New("not found")
	ErrInvalidOptions      = errors.New("invalid market options")
	ErrInvalidEndBlock     = errors.New("end block must be in the future")
	ErrInvalidDescription  = errors.New("invalid market description")
	ErrMarketNotFound      = errors.New("market not found")
	ErrMarketResolved      = errors.New("market is closed for betting")
	ErrInvalidOption       = errors.New("invalid option")
	ErrOptionMismatch      = errors.New("existing bet is on a different option")
	ErrAlreadyResolved     = errors.New("market already resolved")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMarketNotResolved   = errors.New("market not resolved")
	ErrNoBet               = errors.New("no bet placed")
	ErrNotWinner           = errors.New("bet did not win")
	ErrNotRefundable       = errors.New("market has winning stake, no refund")
	ErrAlreadyClaimed      = errors.New("already claimed")
	ErrInvalidArguments    = errors.New("invalid arguments")
	ErrUnknownFunction     = errors.New("unknown function")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrSameAccount, "SameAccount"},
	{ErrNotRegistered, "NotRegistered"},
	{ErrAlreadyRegistered, "AlreadyRegistered"},
	{ErrInvalidReading, "InvalidReading"},
	{ErrNotFound, "NotFound"},
	{ErrInvalidOptions, "InvalidOptions"},
	{ErrInvalidEndBlock, "InvalidEndBlock"},
	{ErrInvalidDescription, "InvalidDescription"},
	{ErrMarketNotFound, "MarketNotFound"},
	{ErrMarketResolved, "MarketResolved"},
	{ErrInvalidOption, "InvalidOption"},
	{ErrOptionMismatch, "OptionMismatch"},
	{ErrAlreadyResolved, "AlreadyResolved"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrMarketNotResolved, "MarketNotResolved"},
	{ErrNoBet, "NoBet"},
	{ErrNotWinner, "NotWinner"},
	{ErrNotRefundable, "NotRefundable"},
	{ErrAlreadyClaimed, "AlreadyClaimed"},
	{ErrInvalidArguments, "InvalidArguments"},
	{ErrUnknownFunction, "UnknownFunction"},
}

// Kind returns the wire name of a ledger error, or "" when err is not one.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}
