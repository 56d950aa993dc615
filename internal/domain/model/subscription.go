package model

import "time"

type SubscriptionPlan string

const (
	PlanBasic   SubscriptionPlan = "basic"
	PlanPremium SubscriptionPlan = "premium"
)

func (p SubscriptionPlan) Valid() bool {
	return p == PlanBasic || p == PlanPremium
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

const PaymentMethodCard = "card"

type Subscription struct {
	ID              string             `json:"id"`
	UserID          string             `json:"-"`
	Plan            SubscriptionPlan   `json:"plan"`
	Status          SubscriptionStatus `json:"status"`
	NextBillingDate time.Time          `json:"nextBillingDate"`
	// BillingDay is the day of month billing is anchored to; short months clamp it.
	BillingDay      int                `json:"-"`
	PaymentMethod   string             `json:"paymentMethod"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// PlanOffer is an entry of the static plan catalog.
type PlanOffer struct {
	ID       SubscriptionPlan `json:"id"`
	Name     string           `json:"name"`
	Price    int              `json:"price"`
	Currency string           `json:"currency"`
	Period   string           `json:"period"`
	Features []string         `json:"features"`
}
