package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fastlob/internal/enums"
	"fastlob/internal/money"
)

// ErrInvalidParams is wrapped by every validation failure NewParams
// returns, so callers can test with errors.Is regardless of the exact
// reason.
var ErrInvalidParams = errors.New("order: invalid params")

// Params holds validated order-construction arguments. The zero value
// is not usable; build one with NewParams.
type Params struct {
	side     enums.Side
	price    decimal.Decimal
	quantity decimal.Decimal
	tif      enums.TimeInForce
	expiry   *int64
}

// NewParams validates side/price/quantity/tif/expiry in this order: GTD
// requires an expiry, a non-GTD order must not carry one, price and then
// quantity must fall in [money.MinValue, money.MaxValue], and GTD's
// expiry must lie in the future.
func NewParams(side enums.Side, price, quantity float64, tif enums.TimeInForce, expiry int64) (*Params, error) {
	if tif == enums.GTD && expiry == 0 {
		return nil, fmt.Errorf("%w: GTD order requires an expiry timestamp", ErrInvalidParams)
	}

	if tif != enums.GTD && expiry != 0 {
		return nil, fmt.Errorf("%w: expiry only applies to GTD orders", ErrInvalidParams)
	}

	priceDec := money.Quantize(decimal.NewFromFloat(price))
	if !money.InRange(priceDec) {
		return nil, fmt.Errorf("%w: price %s out of range [%s, %s]", ErrInvalidParams, priceDec, money.MinValue(), money.MaxValue())
	}

	qtyDec := money.Quantize(decimal.NewFromFloat(quantity))
	if !money.InRange(qtyDec) {
		return nil, fmt.Errorf("%w: quantity %s out of range [%s, %s]", ErrInvalidParams, qtyDec, money.MinValue(), money.MaxValue())
	}

	var expPtr *int64
	if tif == enums.GTD {
		// Unix() truncates the current time to whole seconds, so the
		// expiry is compared against the current second rounded down:
		// an expiry one second past that is accepted even when it lies
		// less than a second ahead.
		now := time.Now().Unix()
		if expiry <= now {
			return nil, fmt.Errorf("%w: GTD expiry %d is not in the future (now=%d)", ErrInvalidParams, expiry, now)
		}
		e := expiry
		expPtr = &e
	}

	return &Params{
		side:     side,
		price:    priceDec,
		quantity: qtyDec,
		tif:      tif,
		expiry:   expPtr,
	}, nil
}
