package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
)

// Денежные суммы хранятся как NUMERIC(12, 2).
const MoneyScale = 2

// MaxMoney первая сумма, не помещающаяся в NUMERIC(12, 2).
var MaxMoney = decimal.New(1, 12-MoneyScale)

// ValidateMoney проверяет, что сумма положительна, имеет не больше двух знаков
// после запятой и помещается в колонку хранилища.
func ValidateMoney(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return apperr.Validation(field + " must be greater than zero")
	}
	if !d.Equal(d.Round(MoneyScale)) {
		return apperr.Validation(fmt.Sprintf("%s must have at most %d decimal places", field, MoneyScale))
	}
	if d.GreaterThanOrEqual(MaxMoney) {
		return apperr.Validation(fmt.Sprintf("%s must be less than %s", field, MaxMoney.String()))
	}
	return nil
}
