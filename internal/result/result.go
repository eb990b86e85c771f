// Package result implements the typed outcome objects process_one and
// cancel return (spec.md §6), grounded on fastlob/result/result.py's
// ResultBuilder/ExecutionResult split: a mutable Builder
// accumulates state while an operation runs, then Build() freezes it
// into the public, immutable Result handed back to the caller.
package result

import (
	"github.com/shopspring/decimal"

	"fastlob/internal/engine"
)

// Kind tags which concrete result a Result value holds.
type Kind int

const (
	KindLimit Kind = iota
	KindMarket
	KindCancel
	KindError
)

// Result is the common interface satisfied by every concrete result
// type, so ProcessOne can return one polymorphically.
type Result interface {
	Kind() Kind
	Success() bool
	Messages() []string
}

// LimitResult reports an order accepted onto the book without
// immediately matching (spec.md §6).
type LimitResult struct {
	OrderID  string
	success  bool
	messages []string
}

func (r LimitResult) Kind() Kind          { return KindLimit }
func (r LimitResult) Success() bool       { return r.success }
func (r LimitResult) Messages() []string { return r.messages }

// MarketResult reports an order that matched, possibly partially
// before any residual was placed (spec.md §6).
type MarketResult struct {
	OrderID      string
	success      bool
	messages     []string
	LimitsFilled int
	OrdersFilled int
	execVolume   map[string]decimal.Decimal
	execPrices   map[string]decimal.Decimal
}

func (r MarketResult) Kind() Kind          { return KindMarket }
func (r MarketResult) Success() bool       { return r.success }
func (r MarketResult) Messages() []string { return r.messages }

// ExecVolume returns the executed volume at price, or zero if price
// was never executed against.
func (r MarketResult) ExecVolume(price decimal.Decimal) decimal.Decimal {
	return r.execVolume[price.String()]
}

// EachExecVolume calls fn once per price that was executed against.
func (r MarketResult) EachExecVolume(fn func(price, volume decimal.Decimal)) {
	for key, price := range r.execPrices {
		fn(price, r.execVolume[key])
	}
}

// CancelResult reports the outcome of a cancel request (spec.md §6).
type CancelResult struct {
	OrderID  string
	success  bool
	messages []string
}

func (r CancelResult) Kind() Kind          { return KindCancel }
func (r CancelResult) Success() bool       { return r.success }
func (r CancelResult) Messages() []string { return r.messages }

// ErrorResult reports a parameter or state error with no associated
// order id (spec.md §6).
type ErrorResult struct {
	messages []string
}

func (r ErrorResult) Kind() Kind          { return KindError }
func (r ErrorResult) Success() bool       { return false }
func (r ErrorResult) Messages() []string { return r.messages }

// NewError builds a standalone ErrorResult, used for NotRunning
// rejections that have no order id to attach to.
func NewError(message string) ErrorResult {
	return ErrorResult{messages: []string{message}}
}

// Builder accumulates state for one in-flight operation before it is
// frozen with Build(). The zero value is not usable; use one of the
// New*Builder constructors.
type Builder struct {
	kind     Kind
	orderID  string
	success  bool
	messages []string
	outcome  *engine.Outcome
}

// NewLimitBuilder starts a LimitResult in progress for orderID.
func NewLimitBuilder(orderID string) *Builder {
	return &Builder{kind: KindLimit, orderID: orderID}
}

// NewMarketBuilder starts a MarketResult in progress for orderID.
func NewMarketBuilder(orderID string) *Builder {
	return &Builder{kind: KindMarket, orderID: orderID}
}

// NewCancelBuilder starts a CancelResult in progress for orderID.
func NewCancelBuilder(orderID string) *Builder {
	return &Builder{kind: KindCancel, orderID: orderID}
}

// NewErrorBuilder starts a standalone ErrorResult in progress.
func NewErrorBuilder() *Builder {
	return &Builder{kind: KindError}
}

// SetSuccess records the operation's outcome.
func (b *Builder) SetSuccess(ok bool) *Builder {
	b.success = ok
	return b
}

// AddMessage appends a human-readable message.
func (b *Builder) AddMessage(msg string) *Builder {
	b.messages = append(b.messages, msg)
	return b
}

// SetOutcome attaches the engine.Outcome a MarketResult builder
// reports limits_filled/orders_filled/exec_volume from.
func (b *Builder) SetOutcome(o *engine.Outcome) *Builder {
	b.outcome = o
	return b
}

// Build freezes the builder into the immutable Result its kind names.
func (b *Builder) Build() Result {
	switch b.kind {
	case KindLimit:
		return LimitResult{OrderID: b.orderID, success: b.success, messages: b.messages}
	case KindCancel:
		return CancelResult{OrderID: b.orderID, success: b.success, messages: b.messages}
	case KindError:
		return ErrorResult{messages: b.messages}
	case KindMarket:
		m := MarketResult{
			OrderID:    b.orderID,
			success:    b.success,
			messages:   b.messages,
			execVolume: make(map[string]decimal.Decimal),
			execPrices: make(map[string]decimal.Decimal),
		}
		if b.outcome != nil {
			m.LimitsFilled = b.outcome.LimitsFilled
			m.OrdersFilled = b.outcome.OrdersFilled
			b.outcome.ExecVolume.Each(func(price, volume decimal.Decimal) {
				key := price.String()
				m.execPrices[key] = price
				m.execVolume[key] = volume
			})
		}
		return m
	default:
		return ErrorResult{messages: b.messages}
	}
}
