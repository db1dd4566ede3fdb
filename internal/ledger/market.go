package ledger

import (
	"math/big"
	"strconv"
	"strings"
)

// Market creation limits.
const (
	MinOptions           = 2
	MaxOptions           = 16
	MaxDescriptionLength = 256
)

const escrowPrefix = "escrow.market."

// Market is a pari-mutuel prediction market.
type Market struct {
	ID            uint64   `json:"id"`
	Creator       string   `json:"creator"`
	Description   string   `json:"description"`
	Options       []string `json:"options"`
	EndBlock      uint64   `json:"endBlock"`
	TotalStake    uint64   `json:"totalStake"`
	OptionStakes  []uint64 `json:"optionStakes"`
	Resolved      bool     `json:"resolved"`
	WinningOption *uint64  `json:"winningOption"`
	CreatedAt     uint64   `json:"createdAt"`
}

// Open reports whether the market accepts bets at block height.
func (m *Market) Open(height uint64) bool {
	return !m.Resolved && height < m.EndBlock
}

// Bet is one principal's stake in a market.
type Bet struct {
	Option  uint64 `json:"option"`
	Amount  uint64 `json:"amount"`
	Claimed bool   `json:"claimed"`
}

// EscrowAccount returns the principal holding the stakes of market id.
func EscrowAccount(id uint64) string {
	return escrowPrefix + strconv.FormatUint(id, 10)
}

// IsEscrow reports whether p is a market escrow account.
func IsEscrow(p string) bool {
	return strings.HasPrefix(p, escrowPrefix)
}

// CreateMarket opens a market closing at endBlock and returns its id.
func (s *State) CreateMarket(caller, description string, options []string, endBlock uint64) (uint64, error) {
	if description == "" || len(description) > MaxDescriptionLength {
		return 0, ErrInvalidDescription
	}
	if len(options) < MinOptions || len(options) > MaxOptions {
		return 0, ErrInvalidOptions
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if o == "" || seen[o] {
			return 0, ErrInvalidOptions
		}
		seen[o] = true
	}
	if endBlock <= s.block {
		return 0, ErrInvalidEndBlock
	}

	s.lastMarket++
	id := s.lastMarket
	s.markets[id] = &Market{
		ID:           id,
		Creator:      caller,
		Description:  description,
		Options:      append([]string(nil), options...),
		EndBlock:     endBlock,
		OptionStakes: make([]uint64, len(options)),
		CreatedAt:    s.block,
	}
	return id, nil
}

// PlaceBet escrows amount from caller on option of market id. A repeat bet on
// the same option adds to the existing stake.
func (s *State) PlaceBet(caller string, id, option, amount uint64) error {
	m, ok := s.markets[id]
	if !ok {
		return ErrMarketNotFound
	}
	if !m.Open(s.block) {
		return ErrMarketResolved
	}
	if option >= uint64(len(m.Options)) {
		return ErrInvalidOption
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	key := betKey{market: id, bettor: caller}
	prev, hasBet := s.bets[key]
	if hasBet && prev.Option != option {
		return ErrOptionMismatch
	}

	if err := s.move(amount, caller, EscrowAccount(id)); err != nil {
		return err
	}

	if hasBet {
		prev.Amount += amount
	} else {
		s.bets[key] = &Bet{Option: option, Amount: amount}
	}
	m.TotalStake += amount
	m.OptionStakes[option] += amount
	return nil
}

// ResolveMarket fixes the winning option. Only the creator or the admin may
// resolve, and only once.
func (s *State) ResolveMarket(caller string, id, winning uint64) error {
	m, ok := s.markets[id]
	if !ok {
		return ErrMarketNotFound
	}
	if m.Resolved {
		return ErrAlreadyResolved
	}
	if caller != m.Creator && (s.admin == "" || caller != s.admin) {
		return ErrUnauthorized
	}
	if winning >= uint64(len(m.Options)) {
		return ErrInvalidOption
	}
	m.Resolved = true
	m.WinningOption = &winning
	return nil
}

// ClaimWinnings pays caller's pari-mutuel share of a resolved market:
// stake * totalStake / winningStake.
func (s *State) ClaimWinnings(caller string, id uint64) (uint64, error) {
	m, b, err := s.claimable(caller, id)
	if err != nil {
		return 0, err
	}
	if b.Option != *m.WinningOption {
		return 0, ErrNotWinner
	}

	payout := Payout(b.Amount, m.TotalStake, m.OptionStakes[*m.WinningOption])
	if err := s.move(payout, EscrowAccount(id), caller); err != nil {
		return 0, err
	}
	b.Claimed = true
	return payout, nil
}

// ClaimRefund returns caller's stake when nobody staked on the winning option.
func (s *State) ClaimRefund(caller string, id uint64) (uint64, error) {
	m, b, err := s.claimable(caller, id)
	if err != nil {
		return 0, err
	}
	if m.OptionStakes[*m.WinningOption] != 0 {
		return 0, ErrNotRefundable
	}
	if err := s.move(b.Amount, EscrowAccount(id), caller); err != nil {
		return 0, err
	}
	b.Claimed = true
	return b.Amount, nil
}

func (s *State) claimable(caller string, id uint64) (*Market, *Bet, error) {
	m, ok := s.markets[id]
	if !ok {
		return nil, nil, ErrMarketNotFound
	}
	if !m.Resolved {
		return nil, nil, ErrMarketNotResolved
	}
	b, ok := s.bets[betKey{market: id, bettor: caller}]
	if !ok {
		return nil, nil, ErrNoBet
	}
	if b.Claimed {
		return nil, nil, ErrAlreadyClaimed
	}
	return m, b, nil
}

// Payout computes stake * total / winning without overflowing.
func Payout(stake, total, winning uint64) uint64 {
	if winning == 0 {
		return 0
	}
	p := new(big.Int).SetUint64(stake)
	p.Mul(p, new(big.Int).SetUint64(total))
	p.Quo(p, new(big.Int).SetUint64(winning))
	return p.Uint64()
}

// Market returns a copy of market id.
func (s *State) Market(id uint64) (Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return Market{}, ErrNotFound
	}
	return copyMarket(m), nil
}

// Markets returns copies of every market ordered by id.
func (s *State) Markets() []Market {
	out := make([]Market, 0, len(s.markets))
	for id := uint64(1); id <= s.lastMarket; id++ {
		if m, ok := s.markets[id]; ok {
			out = append(out, copyMarket(m))
		}
	}
	return out
}

// Bet returns bettor's bet in market id.
func (s *State) Bet(id uint64, bettor string) (Bet, error) {
	b, ok := s.bets[betKey{market: id, bettor: bettor}]
	if !ok {
		return Bet{}, ErrNotFound
	}
	return *b, nil
}

func copyMarket(m *Market) Market {
	c := *m
	c.Options = append([]string(nil), m.Options...)
	c.OptionStakes = append([]uint64(nil), m.OptionStakes...)
	if m.WinningOption != nil {
		w := *m.WinningOption
		c.WinningOption = &w
	}
	return c
}
