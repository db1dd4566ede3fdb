package ledger

import "math"

// Mint credits amount new tokens to recipient.
func (s *State) Mint(caller string, amount uint64, recipient string) error {
	if s.admin != "" && caller != s.admin {
		return ErrUnauthorized
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if !ValidPrincipal(recipient) {
		return ErrInvalidArguments
	}
	if IsEscrow(recipient) {
		return ErrUnauthorized
	}
	if s.totalSupply > math.MaxUint64-amount {
		return ErrInvalidAmount
	}
	s.balances[recipient] += amount
	s.totalSupply += amount
	return nil
}

// Transfer moves amount from sender to recipient. The caller must be the
// sender. Escrow accounts are only funded by bets and only release funds
// through claims.
func (s *State) Transfer(caller string, amount uint64, sender, recipient string) error {
	if caller != sender || IsEscrow(sender) || IsEscrow(recipient) {
		return ErrUnauthorized
	}
	return s.move(amount, sender, recipient)
}

// move debits from and credits to with no caller check. Every stake and payout
// goes through it.
func (s *State) move(amount uint64, from, to string) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if !ValidPrincipal(from) || !ValidPrincipal(to) {
		return ErrInvalidArguments
	}
	if from == to {
		return ErrSameAccount
	}
	if s.balances[from] < amount {
		return ErrInsufficientBalance
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	return nil
}

// Balance returns the balance of account, zero when unknown.
func (s *State) Balance(account string) uint64 {
	return s.balances[account]
}

// TotalSupply returns the number of tokens in existence.
func (s *State) TotalSupply() uint64 {
	return s.totalSupply
}
