// README: Static fare quotes: pure function of the requested vehicle model.
package pricing

import "fleetbook/internal/types"

const currency = "USD"

// taxPermille is applied to the base fare.
const taxPermille = 100

// baseByModel is the static rate table, minor units. Model names not listed
// fall back to defaultBase.
var baseByModel = map[string]int64{
	"Windsor": 2500,
	"Meteor":  3200,
	"Sunbeam": 1800,
}

const defaultBase = 2000

type Service struct{}

func NewService() *Service { return &Service{} }

func (s *Service) Quote(vehicleModel string) (base, tax, total types.Money) {
	amount, ok := baseByModel[vehicleModel]
	if !ok {
		amount = defaultBase
	}
	base = types.Money{Amount: amount, Currency: currency}
	tax = types.Money{Amount: amount * taxPermille / 1000, Currency: currency}
	total = base.Add(tax)
	return base, tax, total
}
