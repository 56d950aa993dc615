package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"rodo_assess/internal/domain/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var planCatalog = []model.PlanOffer{
	{
		ID:       model.PlanBasic,
		Name:     "Plan Podstawowy",
		Price:    99,
		Currency: "PLN",
		Period:   "month",
		Features: []string{
			"Dostęp do podstawowych ocen RODO",
			"Maksymalnie 3 oceny",
			"Podstawowe raporty",
			"Wsparcie e-mail",
		},
	},
	{
		ID:       model.PlanPremium,
		Name:     "Plan Premium",
		Price:    299,
		Currency: "PLN",
		Period:   "month",
		Features: []string{
			"Dostęp do wszystkich ocen RODO",
			"Nieograniczona liczba ocen",
			"Zaawansowane raporty i analizy",
			"Eksport do różnych formatów",
			"Priorytetowe wsparcie 24/7",
			"Dedykowany opiekun klienta",
		},
	},
}

type SubscriptionService struct {
	db      *sql.DB
	subRepo repository.SubscriptionRepository
	log     *zap.Logger
	now     func() time.Time
}

func NewSubscriptionService(db *sql.DB, subRepo repository.SubscriptionRepository, log *zap.Logger) *SubscriptionService {
	return &SubscriptionService{db: db, subRepo: subRepo, log: log.Named("subscription_service"), now: time.Now}
}

type ChangePlanRequest struct {
	Plan string `json:"plan"`
}

type PlanChangeResult struct {
	Message         string                 `json:"message"`
	Plan            model.SubscriptionPlan `json:"plan"`
	NextBillingDate time.Time              `json:"nextBillingDate"`
}

type CancelResult struct {
	Message    string    `json:"message"`
	ValidUntil time.Time `json:"validUntil"`
}

// RolloverResult counts the subscriptions touched by one billing sweep.
type RolloverResult struct {
	Renewed int
	Expired int
}

func (s *SubscriptionService) today() time.Time {
	return truncateDay(s.now())
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonths adds n calendar months, clamping to the last day of the target
// month instead of overflowing into the next one.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// onBillingDay moves t to day within its own month, clamped to the month's last day.
func onBillingDay(t time.Time, day int) time.Time {
	y, m, _ := t.Date()
	if last := time.Date(y, m+1, 0, 0, 0, 0, 0, t.Location()).Day(); day > last {
		day = last
	}
	return time.Date(y, m, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (s *SubscriptionService) Plans() []model.PlanOffer {
	return planCatalog
}

// Get returns the subscription of userID, creating a basic one on first access.
func (s *SubscriptionService) Get(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.subRepo.FindByUserID(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	sub = s.newSubscription(userID, model.PlanBasic)
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	s.log.Info("default subscription created", zap.String("user_id", userID))
	return sub, nil
}

func (s *SubscriptionService) newSubscription(userID string, plan model.SubscriptionPlan) *model.Subscription {
	now := s.now()
	return &model.Subscription{
		ID:              uuid.NewString(),
		UserID:          userID,
		Plan:            plan,
		Status:          model.SubscriptionActive,
		NextBillingDate: addMonths(s.today(), 1),
		BillingDay:      s.today().Day(),
		PaymentMethod:   model.PaymentMethodCard,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *SubscriptionService) ChangePlan(ctx context.Context, userID string, req ChangePlanRequest) (*PlanChangeResult, error) {
	plan := model.SubscriptionPlan(strings.ToLower(strings.TrimSpace(req.Plan)))
	if plan == "" {
		return nil, common.NewValidationError("Plan subskrypcji jest wymagany")
	}
	if !plan.Valid() {
		return nil, common.NewValidationError("Nieprawidłowy plan subskrypcji. Dozwolone wartości: basic, premium")
	}

	sub, err := s.subRepo.FindByUserID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		sub = s.newSubscription(userID, plan)
		if err := s.subRepo.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
		return &PlanChangeResult{
			Message:         "Plan subskrypcji został zmieniony na " + string(plan),
			Plan:            plan,
			NextBillingDate: sub.NextBillingDate,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	if sub.Plan == plan && sub.Status == model.SubscriptionActive {
		return &PlanChangeResult{
			Message:         "Plan subskrypcji nie został zmieniony (wybrany ten sam plan)",
			Plan:            plan,
			NextBillingDate: sub.NextBillingDate,
		}, nil
	}

	sub.Plan = plan
	sub.Status = model.SubscriptionActive
	sub.NextBillingDate = addMonths(s.today(), 1)
	sub.BillingDay = s.today().Day()
	sub.UpdatedAt = s.now()
	if err := s.subRepo.Update(ctx, nil, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	s.log.Info("subscription plan changed", zap.String("user_id", userID), zap.String("plan", string(plan)))
	return &PlanChangeResult{
		Message:         "Plan subskrypcji został zmieniony na " + string(plan),
		Plan:            plan,
		NextBillingDate: sub.NextBillingDate,
	}, nil
}

func (s *SubscriptionService) Cancel(ctx context.Context, userID string) (*CancelResult, error) {
	sub, err := s.subRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewPublicError(common.ErrNotFound, "Nie znaleziono aktywnej subskrypcji")
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	switch sub.Status {
	case model.SubscriptionCanceled:
		return &CancelResult{Message: "Subskrypcja jest już anulowana", ValidUntil: sub.NextBillingDate}, nil
	case model.SubscriptionExpired:
		return nil, common.NewPublicError(common.ErrNotFound, "Nie znaleziono aktywnej subskrypcji")
	}

	sub.Status = model.SubscriptionCanceled
	sub.UpdatedAt = s.now()
	if err := s.subRepo.Update(ctx, nil, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	s.log.Info("subscription canceled", zap.String("user_id", userID))
	return &CancelResult{Message: "Subskrypcja została anulowana", ValidUntil: sub.NextBillingDate}, nil
}

// RollOver processes up to limit subscriptions whose billing date has passed.
// Active ones move to their next billing date after asOf; canceled ones expire.
func (s *SubscriptionService) RollOver(ctx context.Context, asOf time.Time, limit int) (RolloverResult, error) {
	var res RolloverResult
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		due, err := s.subRepo.FindDue(ctx, tx, asOf, []model.SubscriptionStatus{model.SubscriptionActive, model.SubscriptionCanceled}, limit)
		if err != nil {
			return err
		}
		for i := range due {
			sub := &due[i]
			if !rollSubscription(sub, asOf) {
				continue
			}
			sub.UpdatedAt = s.now()
			if err := s.subRepo.Update(ctx, tx, sub); err != nil {
				return err
			}
			if sub.Status == model.SubscriptionExpired {
				res.Expired++
			} else {
				res.Renewed++
			}
		}
		return nil
	})
	if err != nil {
		return RolloverResult{}, fmt.Errorf("failed to roll over subscriptions: %w", err)
	}
	return res, nil
}

// rollSubscription applies one billing step to sub and reports whether it changed.
func rollSubscription(sub *model.Subscription, asOf time.Time) bool {
	if sub.NextBillingDate.After(asOf) {
		return false
	}
	switch sub.Status {
	case model.SubscriptionActive:
		if sub.BillingDay <= 0 {
			sub.BillingDay = sub.NextBillingDate.Day()
		}
		for !sub.NextBillingDate.After(asOf) {
			sub.NextBillingDate = onBillingDay(addMonths(sub.NextBillingDate, 1), sub.BillingDay)
		}
		return true
	case model.SubscriptionCanceled:
		sub.Status = model.SubscriptionExpired
		return true
	}
	return false
}
