package domain

import "time"

// ============================================================
// Report views returned to the dashboard
// ============================================================

// Degradation records which upstream reads fell back to empty data.
// An empty Sources list means every figure came from a successful fetch.
type Degradation struct {
	Degraded bool     `json:"degraded"`
	Sources  []string `json:"sources,omitempty"`
}

// Add marks the given source as degraded.
func (d *Degradation) Add(source string) {
	d.Degraded = true
	d.Sources = append(d.Sources, source)
}

// AccountSummary backs the summary cards of the loan and saving screens.
type AccountSummary struct {
	Account               AccountSnapshot `json:"account"`
	Range                 DateRange       `json:"range"`
	CollectionCount       int             `json:"collection_count"`
	TotalCollected        float64         `json:"total_collected"`
	TotalPenalty          float64         `json:"total_penalty"`
	RemainingInstallments *int64          `json:"remaining_installments"`
	RemainingDisplay      string          `json:"remaining_display"`
	ProjectedMaturity     *float64        `json:"projected_maturity,omitempty"`
	Degradation
}

// BucketView is one period group as rendered in tables and charts.
type BucketView struct {
	Key     string             `json:"key"`
	Count   int                `json:"count"`
	Amount  float64            `json:"amount"`
	Penalty float64            `json:"penalty"`
	Records []CollectionRecord `json:"records,omitempty"`
}

// CollectionReport is the grouped collection history of one account or officer.
type CollectionReport struct {
	Subject      string       `json:"subject"`
	GroupBy      string       `json:"group_by"`
	Range        DateRange    `json:"range"`
	Buckets      []BucketView `json:"buckets"`
	TotalAmount  float64      `json:"total_amount"`
	TotalPenalty float64      `json:"total_penalty"`
	Count        int          `json:"count"`
	Degradation
}

// OfficerTotal is one officer's line in the daily digest.
type OfficerTotal struct {
	OfficerID   string  `json:"officer_id"`
	OfficerName string  `json:"officer_name"`
	Count       int     `json:"count"`
	Amount      float64 `json:"amount"`
	Penalty     float64 `json:"penalty"`
}

// DailyDigest summarizes one day of collections across all officers.
type DailyDigest struct {
	Date         string         `json:"date"`
	Officers     []OfficerTotal `json:"officers"`
	TotalAmount  float64        `json:"total_amount"`
	TotalPenalty float64        `json:"total_penalty"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Degradation
}

// ReportMetrics is returned by GET /v1/metrics/reports.
type ReportMetrics struct {
	StatementsGenerated float64 `json:"statementsGenerated"`
	DegradedFallbacks   float64 `json:"degradedFallbacks"`
	ExternalErrors      float64 `json:"externalErrors"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	Period              string  `json:"period"`
}
