package eligibility

import (
	"fmt"
	"strings"
)

// ValueKind identifies which record field supplied a displayable value.
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValuePercent
	ValueMoney
	ValueRemaining
	ValueQuantity
	ValueInsuranceType
	ValueDeliveries
)

var valueKindNames = [...]string{"empty", "percent", "money", "remaining", "quantity", "insurance_type", "deliveries"}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is the single displayable value of a record. Only the fields that
// belong to Kind are set.
type Value struct {
	Kind       ValueKind
	Amount     float64    // percent fraction, money, remaining or quantity
	Unit       string     // quantity qualifier for ValueQuantity
	Text       string     // insurance type for ValueInsuranceType
	Deliveries []Delivery // for ValueDeliveries
}

// ValueOf picks the first present value field in the order percent,
// monetary amount, quantity amount, quantity, insurance type, deliveries.
func ValueOf(r Record) Value {
	switch {
	case r.Percent.Valid():
		return Value{Kind: ValuePercent, Amount: r.Percent.Or(0)}
	case r.MonetaryAmount.Valid():
		return Value{Kind: ValueMoney, Amount: r.MonetaryAmount.Or(0)}
	case r.QuantityAmount.Valid():
		return Value{Kind: ValueRemaining, Amount: r.QuantityAmount.Or(0)}
	case r.Quantity.Valid():
		return Value{Kind: ValueQuantity, Amount: r.Quantity.Or(0), Unit: r.QuantityQualifier}
	case r.InsuranceType != "":
		return Value{Kind: ValueInsuranceType, Text: r.InsuranceType}
	case len(r.Deliveries) > 0:
		return Value{Kind: ValueDeliveries, Deliveries: r.Deliveries}
	}
	return Value{}
}

// String renders the value as the grid shows it.
func (v Value) String() string {
	switch v.Kind {
	case ValuePercent:
		return formatFloat(v.Amount*100) + "%"
	case ValueMoney:
		return fmt.Sprintf("$%.2f", v.Amount)
	case ValueRemaining:
		return formatFloat(v.Amount)
	case ValueQuantity:
		return strings.TrimSpace(formatFloat(v.Amount) + " " + v.Unit)
	case ValueInsuranceType:
		return v.Text
	case ValueDeliveries:
		parts := make([]string, 0, len(v.Deliveries))
		for _, d := range v.Deliveries {
			parts = append(parts, d.String())
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// String renders a delivery as "2 Visits / 1 Years", or its frequency text
// when neither the quantity nor the period count is given.
func (d Delivery) String() string {
	if !d.TotalQuantity.Valid() && !d.TotalNumberOfPeriods.Valid() && d.DeliveryFrequency != "" {
		return d.DeliveryFrequency
	}
	left := strings.TrimSpace(d.TotalQuantity.String() + " " + d.QuantityQualifier)
	right := strings.TrimSpace(d.TotalNumberOfPeriods.String() + " " + d.TimePeriodQualifier)
	switch {
	case right == "":
		return left
	case left == "":
		return "/ " + right
	}
	return left + " / " + right
}

// ExtractValue returns the displayable value of r, or "" when r has none.
func ExtractValue(r Record) string {
	return ValueOf(r).String()
}
