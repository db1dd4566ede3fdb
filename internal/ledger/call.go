package ledger

import "fmt"

// Function names accepted by Call.
const (
	FnMint             = "mint"
	FnTransfer         = "transfer"
	FnGetBalance       = "get-balance"
	FnGetTotalSupply   = "get-total-supply"
	FnRegisterProvider = "register-data-provider"
	FnIsProvider       = "is-data-provider"
	FnSubmitClimate    = "submit-climate-data"
	FnGetClimate       = "get-climate-data"
	FnGetLatestReading = "get-latest-reading"
	FnCreateMarket     = "create-market"
	FnPlaceBet         = "place-bet"
	FnResolveMarket    = "resolve-market"
	FnClaimWinnings    = "claim-winnings"
	FnClaimRefund      = "claim-refund"
	FnGetMarket        = "get-market"
	FnGetBet           = "get-bet"
	FnGetBlockHeight   = "get-block-height"
)

type handler struct {
	arity    int
	readOnly bool
	run      func(s *State, caller string, args []any) (any, error)
}

var handlers = map[string]handler{
	FnMint: {2, false, func(s *State, caller string, args []any) (any, error) {
		amount, err := amountArg(args, 0)
		if err != nil {
			return nil, err
		}
		recipient, err := principalArg(args, 1)
		if err != nil {
			return nil, err
		}
		return true, s.Mint(caller, amount, recipient)
	}},
	FnTransfer: {3, false, func(s *State, caller string, args []any) (any, error) {
		amount, err := amountArg(args, 0)
		if err != nil {
			return nil, err
		}
		sender, err := principalArg(args, 1)
		if err != nil {
			return nil, err
		}
		recipient, err := principalArg(args, 2)
		if err != nil {
			return nil, err
		}
		return true, s.Transfer(caller, amount, sender, recipient)
	}},
	FnGetBalance: {1, true, func(s *State, _ string, args []any) (any, error) {
		account, err := principalArg(args, 0)
		if err != nil {
			return nil, err
		}
		return s.Balance(account), nil
	}},
	FnGetTotalSupply: {0, true, func(s *State, _ string, _ []any) (any, error) {
		return s.TotalSupply(), nil
	}},
	FnRegisterProvider: {1, false, func(s *State, caller string, args []any) (any, error) {
		provider, err := principalArg(args, 0)
		if err != nil {
			return nil, err
		}
		return true, s.RegisterProvider(caller, provider)
	}},
	FnIsProvider: {1, true, func(s *State, _ string, args []any) (any, error) {
		p, err := principalArg(args, 0)
		if err != nil {
			return nil, err
		}
		return s.IsProvider(p), nil
	}},
	FnSubmitClimate: {3, false, func(s *State, caller string, args []any) (any, error) {
		var v [3]int64
		for i := range v {
			n, err := intArg(args, i)
			if err != nil {
				return nil, err
			}
			v[i] = n
		}
		return s.SubmitReading(caller, v[0], v[1], v[2])
	}},
	FnGetClimate: {1, true, func(s *State, _ string, args []any) (any, error) {
		id, err := uintArg(args, 0)
		if err != nil {
			return nil, err
		}
		return s.Reading(id)
	}},
	FnGetLatestReading: {0, true, func(s *State, _ string, _ []any) (any, error) {
		return s.LatestReading()
	}},
	FnCreateMarket: {3, false, func(s *State, caller string, args []any) (any, error) {
		desc, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		options, err := stringsArg(args, 1)
		if err != nil {
			return nil, err
		}
		endBlock, err := uintArg(args, 2)
		if err != nil {
			return nil, err
		}
		return s.CreateMarket(caller, desc, options, endBlock)
	}},
	FnPlaceBet: {3, false, func(s *State, caller string, args []any) (any, error) {
		id, err := uintArg(args, 0)
		if err != nil {
			return nil, err
		}
		option, err := optionArg(args, 1)
		if err != nil {
			return nil, err
		}
		amount, err := amountArg(args, 2)
		if err != nil {
			return nil, err
		}
		return true, s.PlaceBet(caller, id, option, amount)
	}},
	FnResolveMarket: {2, false, func(s *State, caller string, args []any) (any, error) {
		id, err := uintArg(args, 0)
		if err != nil {
			return nil, err
		}
		winning, err := optionArg(args, 1)
		if err != nil {
			return nil, err
		}
		return true, s.ResolveMarket(caller, id, winning)
	}},
	FnClaimWinnings: {1, false, func(s *State, caller string, args []any) (any, error) {
		id, err := uintArg(args, 0)
		if err != nil {
			return nil, err
		}
		return s.ClaimWinnings(caller, id)
	}},
	FnClaimRefund: {1, false, func(s *State, caller string, args []any) (any, error) {
		id, err := uintArg(args, 0)
		if err != nil {
			return nil, err
		}
		return s.ClaimRefund(caller, id)
	}},
	FnGetMarket: {1, true, func(s *State, _ string, args []any) (any, error) {
		id, err := uintArg(args, 0)
		if err != nil {
			return nil, err
		}
		return s.Market(id)
	}},
	FnGetBet: {2, true, func(s *State, _ string, args []any) (any, error) {
		id, err := uintArg(args, 0)
		if err != nil {
			return nil, err
		}
		bettor, err := principalArg(args, 1)
		if err != nil {
			return nil, err
		}
		return s.Bet(id, bettor)
	}},
	FnGetBlockHeight: {0, true, func(s *State, _ string, _ []any) (any, error) {
		return s.BlockHeight(), nil
	}},
}

// ReadOnly reports whether function never mutates state. Unknown functions
// report false.
func ReadOnly(function string) bool {
	h, ok := handlers[function]
	return ok && h.readOnly
}

// Known reports whether function is a recognized entry point.
func Known(function string) bool {
	_, ok := handlers[function]
	return ok
}

// Call is the contract entry point. caller is trusted as already
// authenticated. A failed call returns a nil value and leaves s unchanged.
func (s *State) Call(caller, function string, args []any) (any, error) {
	h, ok := handlers[function]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, function)
	}
	if !ValidPrincipal(caller) || IsEscrow(caller) {
		return nil, ErrUnauthorized
	}
	if err := arity(args, h.arity); err != nil {
		return nil, err
	}
	v, err := h.run(s, caller, args)
	if err != nil {
		return nil, err
	}
	return v, nil
}
