package mappings

import "time"

// AccountMapping binds a source module event key to a ledger account so
// integration hooks never hard-code account IDs.
type AccountMapping struct {
	ID        int64
	Module    string
	Key       string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Well-known mapping modules and keys used by the built-in hooks.
const (
	ModuleInventory = "inventory"
	ModuleExpense   = "expense"
	ModulePurchase  = "purchase"
	ModuleSales     = "sales"
	ModuleClosing   = "closing"

	KeyInventoryStock    = "stock"
	KeyCash              = "cash"
	KeyAccountsPayable   = "accounts_payable"
	KeyInventoryShortage = "shortage"
	KeyOpnameSurplus     = "opname_surplus"
	KeyCOGS              = "cogs"
	KeySalesRevenue      = "revenue"
	KeySalesReturns      = "returns"
	KeyRetainedEarnings  = "retained_earnings"
)
