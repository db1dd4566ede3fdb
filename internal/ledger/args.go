package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Call arguments arrive either as Go values or as JSON-decoded values
// (float64 or json.Number for numbers, []any for lists).

func arity(args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: want %d arguments, got %d", ErrInvalidArguments, n, len(args))
	}
	return nil
}

func uintArg(args []any, i int) (uint64, error) {
	switch v := args[i].(type) {
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case int:
		if v >= 0 {
			return uint64(v), nil
		}
	case int64:
		if v >= 0 {
			return uint64(v), nil
		}
	case float64:
		if v >= 0 && v <= 1<<53 && v == math.Trunc(v) {
			return uint64(v), nil
		}
	case json.Number:
		if n, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: argument %d: want unsigned integer, got %v", ErrInvalidArguments, i, args[i])
}

func intArg(args []any, i int) (int64, error) {
	switch v := args[i].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), nil
		}
	case float64:
		if math.Abs(v) <= 1<<53 && v == math.Trunc(v) {
			return int64(v), nil
		}
	case json.Number:
		if n, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: argument %d: want integer, got %v", ErrInvalidArguments, i, args[i])
}

func stringArg(args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %d: want string, got %v", ErrInvalidArguments, i, args[i])
	}
	return s, nil
}

func principalArg(args []any, i int) (string, error) {
	s, err := stringArg(args, i)
	if err != nil {
		return "", err
	}
	if !ValidPrincipal(s) {
		return "", fmt.Errorf("%w: argument %d: invalid principal %q", ErrInvalidArguments, i, s)
	}
	return s, nil
}

func stringsArg(args []any, i int) ([]string, error) {
	switch v := args[i].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for j, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: argument %d[%d]: want string, got %v", ErrInvalidArguments, i, j, e)
			}
			out[j] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: argument %d: want list of strings, got %v", ErrInvalidArguments, i, args[i])
}

// amountArg reads a token amount. Negative amounts read as zero so they fail
// with ErrInvalidAmount at the same point a zero amount does.
func amountArg(args []any, i int) (uint64, error) {
	if n, err := intArg(args, i); err == nil && n < 0 {
		return 0, nil
	}
	return uintArg(args, i)
}

// optionArg reads an option index. Negative indices read as out of range.
func optionArg(args []any, i int) (uint64, error) {
	if n, err := intArg(args, i); err == nil && n < 0 {
		return math.MaxUint64, nil
	}
	return uintArg(args, i)
}
