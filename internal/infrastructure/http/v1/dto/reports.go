package dto

// StockBalanceQuery holds the query parameters of GET /reports/stock-balances.
type StockBalanceQuery struct {
	PageQuery
	PartnerID   string `form:"partnerId" binding:"omitempty,uuid"`
	Search      string `form:"search"`
	ExcludeZero bool   `form:"excludeZero"`
}

// ShipmentHistoryQuery holds the query parameters of GET /reports/shipments.
// Unbilled is "true", "false" or empty for all.
type ShipmentHistoryQuery struct {
	PageQuery
	PartnerID string `form:"partnerId" binding:"omitempty,uuid"`
	FromDate  string `form:"fromDate"`
	ToDate    string `form:"toDate"`
	Unbilled  string `form:"unbilled" binding:"omitempty,oneof=true false"`
}
