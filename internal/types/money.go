// README: Common money value object used across modules. Amounts are minor units.
package types

type Money struct {
	Amount   int64
	Currency string
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}
