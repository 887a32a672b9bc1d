package model

// TariffEntry holds the duty rates for one HS code, in percent.
type TariffEntry struct {
	BaseDuty       float64 `json:"base_duty"`
	AdditionalDuty float64 `json:"additional_duty"`
}

// TariffSummary is the resolved duty for a shipment.
// TradeAgreementDiscount is negative when a discount applies.
type TariffSummary struct {
	Explanation            string  `json:"explanation"`
	BaseDuty               float64 `json:"base_duty"`
	AdditionalDuty         float64 `json:"additional_duty"`
	TradeAgreementDiscount float64 `json:"trade_agreement_discount"`
	TotalDutyPercent       float64 `json:"total_duty_percent"`
	EstimatedDutyAmount    float64 `json:"estimated_duty_amount"`
}
