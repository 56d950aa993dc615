package model

import "time"

// Risk levels as stored on compliance areas.
const (
	RiskHigh   = "wysoki"
	RiskMedium = "średni"
	RiskLow    = "niski"
)

type Report struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ReportType  string    `json:"reportType"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ComplianceArea struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"-"`
	OwnerID     string    `json:"-"` // user id of the owning report
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Risk        string    `json:"risk"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Recommendation struct {
	ID       string     `json:"id"`
	ReportID string     `json:"-"`
	Text     string     `json:"text"`
	Priority string     `json:"priority"`
	Status   string     `json:"status"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
}
