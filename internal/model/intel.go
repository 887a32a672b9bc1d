package model

// Compliance check statuses.
const (
	CompliancePass           = "pass"
	ComplianceWarn           = "warn"
	ComplianceActionRequired = "action_required"
)

// Insight is a short market or compliance signal.
type Insight struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ShippingOption describes one way to move the shipment.
type ShippingOption struct {
	Mode             string  `json:"mode"`
	Route            string  `json:"route"`
	RiskLevel        string  `json:"risk_level"`
	Notes            string  `json:"notes"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	ETADays          int     `json:"eta_days"`
}

// ComplianceCheck is one item on the clearance checklist.
type ComplianceCheck struct {
	Item   string `json:"item"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

// TradeIntel bundles the post-analysis intelligence blocks.
type TradeIntel struct {
	RecentInsights   []Insight         `json:"recent_insights"`
	ShippingOptions  []ShippingOption  `json:"shipping_options"`
	ComplianceChecks []ComplianceCheck `json:"compliance_checks"`
}

// MapFlowEntry is one endpoint of a shipment flow drawn on the globe.
type MapFlowEntry struct {
	Country  string `json:"country"`
	Role     string `json:"role"`
	Material string `json:"material"`
	HSCode   string `json:"hs_code"`
}
