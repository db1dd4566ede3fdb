package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"climatemarket/internal/config"
	"climatemarket/internal/events"
	"climatemarket/internal/ledger"
	"climatemarket/internal/metrics"
	"climatemarket/internal/storage"
)

// GenesisCaller signs genesis calls when no admin is configured
const GenesisCaller = "genesis"

// Receipt is the outcome of a successful call
type Receipt struct {
	TxID  string `json:"tx_id,omitempty"`
	Block uint64 `json:"block"`
	Value any    `json:"value"`
}

// Runtime owns the ledger state. Mutating calls run against a clone that
// replaces the live state only once the call is journaled.
type Runtime struct {
	mu      sync.Mutex
	state   *ledger.State
	store   *storage.Store
	pub     events.Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewRuntime wraps state. pub, m and log may be nil.
func NewRuntime(state *ledger.State, store *storage.Store, pub events.Publisher, m *metrics.Metrics, log *zap.Logger) *Runtime {
	if pub == nil {
		pub = events.Discard{}
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runtime{
		state:   state,
		store:   store,
		pub:     pub,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
	r.observe()
	return r
}

// Submit runs function on behalf of caller. Read-only functions are answered
// from the live state without touching the journal.
func (r *Runtime) Submit(ctx context.Context, caller, function string, args []any) (Receipt, error) {
	start := time.Now()
	defer func() {
		r.metrics.CallDuration.WithLabelValues(fnLabel(function)).Observe(time.Since(start).Seconds())
	}()

	if ledger.ReadOnly(function) {
		r.mu.Lock()
		value, err := r.state.Call(caller, function, args)
		block := r.state.BlockHeight()
		r.mu.Unlock()
		r.count(function, err)
		if err != nil {
			return Receipt{}, err
		}
		return Receipt{Block: block, Value: value}, nil
	}

	r.mu.Lock()
	next := r.state.Clone()
	value, err := next.Call(caller, function, args)
	if err != nil {
		r.mu.Unlock()
		r.count(function, err)
		return Receipt{}, err
	}

	rec, err := newRecord(next.BlockHeight(), caller, function, args, value)
	if err == nil {
		err = r.store.AppendCall(ctx, rec)
	}
	if err != nil {
		r.mu.Unlock()
		r.count(function, err)
		r.log.Error("journal write failed", zap.String("function", function), zap.String("caller", caller), zap.Error(err))
		return Receipt{}, fmt.Errorf("journal call: %w", err)
	}
	r.state = next
	r.observe()
	pub := r.pub
	r.mu.Unlock()

	r.count(function, nil)
	r.log.Debug("call committed",
		zap.String("tx_id", rec.TxID),
		zap.Uint64("block", rec.Block),
		zap.String("caller", caller),
		zap.String("function", function),
	)

	r.publish(ctx, pub, events.Event{
		TxID:     rec.TxID,
		Block:    rec.Block,
		Caller:   caller,
		Function: function,
		Args:     rec.Args,
		Value:    rec.Result,
		At:       r.now().UTC(),
	})

	return Receipt{TxID: rec.TxID, Block: rec.Block, Value: value}, nil
}

// AddPublisher adds a sink for committed-call events
func (r *Runtime) AddPublisher(p events.Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pub = events.Multi{r.pub, p}
}

// View runs fn against the live state. fn must not retain s.
func (r *Runtime) View(fn func(s *ledger.State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.state)
}

// BlockHeight returns the current block height
func (r *Runtime) BlockHeight() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.BlockHeight()
}

// AdvanceBlock moves the chain head forward by one and persists it.
// It returns the new height and the open markets whose betting window
// closed at that height.
func (r *Runtime) AdvanceBlock(ctx context.Context) (uint64, []ledger.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	height := r.state.BlockHeight() + 1
	if err := r.store.SetBlockHeight(ctx, height); err != nil {
		return 0, nil, fmt.Errorf("persist block height: %w", err)
	}
	r.state.AdvanceTo(height)
	r.observe()

	var closed []ledger.Market
	for _, m := range r.state.Markets() {
		if !m.Resolved && m.EndBlock == height {
			closed = append(closed, m)
		}
	}
	return height, closed, nil
}

// Replay rebuilds the state from the journal and restores the persisted
// chain head. It returns the number of calls applied.
func (r *Runtime) Replay(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls, err := r.store.ListCalls(ctx, 0, 0)
	if err != nil {
		return 0, err
	}

	for _, rec := range calls {
		r.state.AdvanceTo(rec.Block)
		args, err := DecodeArgs(rec.Args)
		if err != nil {
			return 0, fmt.Errorf("replay %s: %w", rec.TxID, err)
		}
		if _, err := r.state.Call(rec.Caller, rec.Function, args); err != nil {
			return 0, fmt.Errorf("replay %s %s by %s: %w", rec.TxID, rec.Function, rec.Caller, err)
		}
	}

	head, ok, err := r.store.BlockHeight(ctx)
	if err != nil {
		return 0, err
	}
	if ok {
		r.state.AdvanceTo(head)
	}
	if err := r.state.CheckSupply(); err != nil {
		return 0, fmt.Errorf("replay: %w", err)
	}
	r.observe()
	return len(calls), nil
}

// ApplyGenesis registers the genesis providers and mints the genesis balances
// through the journal. It does nothing once the journal holds any call.
func (r *Runtime) ApplyGenesis(ctx context.Context, g config.Genesis) error {
	n, err := r.store.CountCalls(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	caller := g.Admin
	if caller == "" {
		caller = GenesisCaller
	}

	for _, p := range g.Providers {
		if _, err := r.Submit(ctx, caller, ledger.FnRegisterProvider, []any{p}); err != nil {
			return fmt.Errorf("genesis provider %s: %w", p, err)
		}
	}

	holders := make([]string, 0, len(g.Balances))
	for p := range g.Balances {
		holders = append(holders, p)
	}
	slices.Sort(holders)
	for _, p := range holders {
		if _, err := r.Submit(ctx, caller, ledger.FnMint, []any{g.Balances[p], p}); err != nil {
			return fmt.Errorf("genesis balance %s: %w", p, err)
		}
	}
	return nil
}

func (r *Runtime) count(function string, err error) {
	result := "ok"
	if err != nil {
		result = ledger.Kind(err)
		if result == "" {
			result = "internal"
		}
	}
	r.metrics.Calls.WithLabelValues(fnLabel(function), result).Inc()
}

// fnLabel bounds the metric label set to known functions
func fnLabel(function string) string {
	if !ledger.Known(function) {
		return "unknown"
	}
	return function
}

// observe updates the state gauges; r.mu must be held
func (r *Runtime) observe() {
	r.metrics.BlockHeight.Set(float64(r.state.BlockHeight()))
	r.metrics.TotalSupply.Set(float64(r.state.TotalSupply()))
}

func (r *Runtime) publish(ctx context.Context, pub events.Publisher, e events.Event) {
	if err := pub.Publish(ctx, e); err != nil {
		r.metrics.PublishErrors.WithLabelValues(e.Function).Inc()
		r.log.Warn("event publish failed", zap.String("tx_id", e.TxID), zap.Error(err))
	}
}

func newRecord(block uint64, caller, function string, args []any, value any) (*storage.CallRecord, error) {
	if args == nil {
		args = []any{}
	}
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	rawValue, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return &storage.CallRecord{
		TxID:     uuid.NewString(),
		Block:    block,
		Caller:   caller,
		Function: function,
		Args:     rawArgs,
		Result:   rawValue,
	}, nil
}

// DecodeArgs decodes a JSON argument list keeping numbers exact
func DecodeArgs(raw json.RawMessage) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args []any
	if err := dec.Decode(&args); err != nil {
		return nil, errors.Join(ledger.ErrInvalidArguments, err)
	}
	return args, nil
}

// Market returns a copy of market id
func (r *Runtime) Market(id uint64) (ledger.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Market(id)
}
