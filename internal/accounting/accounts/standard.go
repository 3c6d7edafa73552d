package accounts

// Codes of the standard chart every tenant receives on first use.
const (
	CodeEquipment             = "0200"
	CodeEquipmentDepreciation = "0210"
	CodeVehicles              = "0300"
	CodeVehiclesDepreciation  = "0310"
	CodeCash                  = "1000"
	CodeBank                  = "1100"
	CodeReceivables           = "1300"
	CodeVATReceivable         = "1510"
	CodePayables              = "1600"
	CodeVATPayable            = "1500"
	CodeInventory             = "3000"
	CodePayrollCost           = "4000"
	CodeProjectCost           = "4500"
	CodeDepreciationCost      = "4800"
	CodeOtherCost             = "4900"
	CodePurchaseCost          = "7000"
	CodeInventoryCost         = "7100"
	CodeSalesRevenue          = "8000"
	CodeServiceRevenue        = "8100"
)

// Template is a chart entry created by the bootstrap.
type Template struct {
	Code string
	Name string
	Kind Kind
}

// StandardChart returns the fixed chart of accounts bootstrapped per tenant.
// Accumulated depreciation stays an asset account carrying a credit (negative) balance.
func StandardChart() []Template {
	return []Template{
		{Code: CodeEquipment, Name: "Equipment", Kind: KindAsset},
		{Code: CodeEquipmentDepreciation, Name: "Accumulated depreciation equipment", Kind: KindAsset},
		{Code: CodeVehicles, Name: "Vehicles", Kind: KindAsset},
		{Code: CodeVehiclesDepreciation, Name: "Accumulated depreciation vehicles", Kind: KindAsset},
		{Code: CodeCash, Name: "Cash", Kind: KindAsset},
		{Code: CodeBank, Name: "Bank", Kind: KindAsset},
		{Code: CodeReceivables, Name: "Accounts receivable", Kind: KindAsset},
		{Code: CodeVATPayable, Name: "VAT payable", Kind: KindLiability},
		{Code: CodeVATReceivable, Name: "VAT receivable", Kind: KindAsset},
		{Code: CodePayables, Name: "Accounts payable", Kind: KindLiability},
		{Code: CodeInventory, Name: "Inventory", Kind: KindAsset},
		{Code: CodePayrollCost, Name: "Payroll cost", Kind: KindExpense},
		{Code: CodeProjectCost, Name: "Project cost", Kind: KindExpense},
		{Code: CodeDepreciationCost, Name: "Depreciation cost", Kind: KindExpense},
		{Code: CodeOtherCost, Name: "Other cost", Kind: KindExpense},
		{Code: CodePurchaseCost, Name: "Purchase cost", Kind: KindExpense},
		{Code: CodeInventoryCost, Name: "Inventory cost", Kind: KindExpense},
		{Code: CodeSalesRevenue, Name: "Sales revenue", Kind: KindRevenue},
		{Code: CodeServiceRevenue, Name: "Service revenue", Kind: KindRevenue},
	}
}
