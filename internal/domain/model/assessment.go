package model

import "time"

type AssessmentStatus string

const (
	AssessmentInProgress AssessmentStatus = "W TRAKCIE"
	AssessmentCompleted  AssessmentStatus = "ZAKOŃCZONA"
	AssessmentDraft      AssessmentStatus = "DRAFT"
)

type AreaScore string

const (
	ScorePositive      AreaScore = "POZYTYWNA"
	ScoreWarning       AreaScore = "ZASTRZEŻENIA"
	ScoreNegative      AreaScore = "NEGATYWNA"
	ScoreInProgress    AreaScore = "W REALIZACJI"
	ScoreNotApplicable AreaScore = "NIE DOTYCZY"
)

type RequirementValue string

const (
	RequirementYes           RequirementValue = "TAK"
	RequirementNo            RequirementValue = "NIE"
	RequirementInProgress    RequirementValue = "W REALIZACJI"
	RequirementNotApplicable RequirementValue = "ND"
)

type Assessment struct {
	ID          string           `json:"id"`
	UserID      string           `json:"-"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Status      AssessmentStatus `json:"status"`
	Chapters    []Chapter        `json:"chapters"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type Chapter struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Areas       []Area `json:"areas"`
}

type Area struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Score        AreaScore     `json:"score"`
	Comment      string        `json:"comment"`
	Requirements []Requirement `json:"requirements"`
}

type Requirement struct {
	ID      string           `json:"id,omitempty"`
	Text    string           `json:"text"`
	Value   RequirementValue `json:"value"`
	Comment string           `json:"comment"`
}

// AssessmentSummary is the list view of an assessment.
type AssessmentSummary struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Status            AssessmentStatus `json:"status"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	ChaptersCount     int              `json:"chaptersCount"`
	AreasCount        int              `json:"areasCount"`
	RequirementsCount int              `json:"requirementsCount"`
}

// Summarize counts the nested elements of a.
func (a *Assessment) Summarize() AssessmentSummary {
	s := AssessmentSummary{
		ID:            a.ID,
		Name:          a.Name,
		Description:   a.Description,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		ChaptersCount: len(a.Chapters),
	}
	for _, ch := range a.Chapters {
		s.AreasCount += len(ch.Areas)
		for _, ar := range ch.Areas {
			s.RequirementsCount += len(ar.Requirements)
		}
	}
	return s
}
