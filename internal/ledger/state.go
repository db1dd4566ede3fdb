// Package ledger implements the deterministic climate token, climate oracle
// and prediction market state machine. A State is not safe for concurrent
// use; callers serialize access to it.
package ledger

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// MaxPrincipalLength bounds the byte length of a principal.
const MaxPrincipalLength = 150

// Options configures a fresh State.
type Options struct {
	// Admin may mint, register providers and resolve any market. Empty means
	// those operations are open to every caller (resolve stays creator-only).
	Admin string
	// StartBlock is the block height of a fresh ledger. Zero means 1.
	StartBlock uint64
}

// State is the whole ledger: balances, provider registry, readings, markets
// and bets, plus the logical block height.
type State struct {
	admin string
	block uint64

	balances    map[string]uint64
	totalSupply uint64

	providers   map[string]bool
	readings    map[uint64]*ClimateReading
	lastReading uint64

	markets    map[uint64]*Market
	bets       map[betKey]*Bet
	lastMarket uint64
}

type betKey struct {
	market uint64
	bettor string
}

// NewState returns an empty ledger.
func NewState(opts Options) *State {
	start := opts.StartBlock
	if start == 0 {
		start = 1
	}
	return &State{
		admin:     opts.Admin,
		block:     start,
		balances:  make(map[string]uint64),
		providers: make(map[string]bool),
		readings:  make(map[uint64]*ClimateReading),
		markets:   make(map[uint64]*Market),
		bets:      make(map[betKey]*Bet),
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := &State{
		admin:       s.admin,
		block:       s.block,
		balances:    maps.Clone(s.balances),
		totalSupply: s.totalSupply,
		providers:   maps.Clone(s.providers),
		readings:    make(map[uint64]*ClimateReading, len(s.readings)),
		lastReading: s.lastReading,
		markets:     make(map[uint64]*Market, len(s.markets)),
		bets:        make(map[betKey]*Bet, len(s.bets)),
		lastMarket:  s.lastMarket,
	}
	// readings are immutable once created
	maps.Copy(c.readings, s.readings)
	for id, m := range s.markets {
		mc := copyMarket(m)
		c.markets[id] = &mc
	}
	for k, b := range s.bets {
		bc := *b
		c.bets[k] = &bc
	}
	return c
}

// Admin returns the configured admin principal.
func (s *State) Admin() string {
	return s.admin
}

// BlockHeight returns the current logical block height.
func (s *State) BlockHeight() uint64 {
	return s.block
}

// AdvanceTo moves the block height forward to height. Heights at or below the
// current one are ignored.
func (s *State) AdvanceTo(height uint64) {
	if height > s.block {
		s.block = height
	}
}

// CheckSupply verifies that the total supply equals the sum of all balances.
func (s *State) CheckSupply() error {
	var sum uint64
	for _, b := range s.balances {
		sum += b
	}
	if sum != s.totalSupply {
		return fmt.Errorf("ledger: supply mismatch: balances sum to %d, supply is %d", sum, s.totalSupply)
	}
	return nil
}

// Holding is one account balance.
type Holding struct {
	Principal string `json:"principal"`
	Balance   uint64 `json:"balance"`
}

// TopHolders returns up to limit non-escrow accounts ordered by balance,
// largest first. Ties are broken by principal.
func (s *State) TopHolders(limit int) []Holding {
	out := make([]Holding, 0, len(s.balances))
	for p, b := range s.balances {
		if b == 0 || IsEscrow(p) {
			continue
		}
		out = append(out, Holding{Principal: p, Balance: b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].Principal < out[j].Principal
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ValidPrincipal reports whether p is usable as an account identity.
func ValidPrincipal(p string) bool {
	if p == "" || len(p) > MaxPrincipalLength {
		return false
	}
	return !strings.ContainsAny(p, " \t\r\n")
}
