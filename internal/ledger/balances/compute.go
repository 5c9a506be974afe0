package balances

import (
	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/accounts"
)

// Side is the column a displayed amount falls in.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Ending applies the sign rule: debit-normal accounts grow with debits,
// credit-normal accounts with credits. A negative result means the account
// sits on its abnormal side.
func Ending(nb accounts.NormalBalance, opening, debit, credit decimal.Decimal) decimal.Decimal {
	if nb == accounts.NormalBalanceDebit {
		return opening.Add(debit).Sub(credit)
	}
	return opening.Add(credit).Sub(debit)
}

// Display converts an internal ending balance into a non-negative amount and
// the column it belongs in. Abnormal balances flip to the opposite column
// instead of printing a minus sign.
func Display(nb accounts.NormalBalance, ending decimal.Decimal) (decimal.Decimal, Side) {
	side := SideDebit
	if nb == accounts.NormalBalanceCredit {
		side = SideCredit
	}
	if ending.IsNegative() {
		if side == SideDebit {
			side = SideCredit
		} else {
			side = SideDebit
		}
		return ending.Neg(), side
	}
	return ending, side
}
