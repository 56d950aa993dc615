package service

import (
	"context"
	"database/sql"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"sort"
	"sync"
	"time"
)

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]model.UserProfile
}

func (m *memProfiles) FindByUserID(_ context.Context, userID string) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) Upsert(_ context.Context, _ *sql.Tx, p *model.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = map[string]model.UserProfile{}
	}
	m.profiles[p.UserID] = *p
	return nil
}

type memCompanies struct {
	companies map[string]model.Company
}

func (m *memCompanies) FindByUserID(_ context.Context, userID string) (*model.Company, error) {
	c, ok := m.companies[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (m *memCompanies) Upsert(_ context.Context, c *model.Company) error {
	if m.companies == nil {
		m.companies = map[string]model.Company{}
	}
	if existing, ok := m.companies[c.UserID]; ok {
		c.ID = existing.ID
	} else {
		c.ID = "company-" + c.UserID
	}
	m.companies[c.UserID] = *c
	return nil
}

type memSubscriptions struct {
	subs map[string]model.Subscription
}

func (m *memSubscriptions) FindByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	s, ok := m.subs[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (m *memSubscriptions) Create(_ context.Context, s *model.Subscription) error {
	if m.subs == nil {
		m.subs = map[string]model.Subscription{}
	}
	if _, ok := m.subs[s.UserID]; ok {
		return common.ErrConflict
	}
	m.subs[s.UserID] = *s
	return nil
}

func (m *memSubscriptions) Update(_ context.Context, _ *sql.Tx, s *model.Subscription) error {
	if _, ok := m.subs[s.UserID]; !ok {
		return common.ErrNotFound
	}
	m.subs[s.UserID] = *s
	return nil
}

func (m *memSubscriptions) FindDue(_ context.Context, _ *sql.Tx, asOf time.Time, statuses []model.SubscriptionStatus, limit int) ([]model.Subscription, error) {
	var out []model.Subscription
	for _, s := range m.subs {
		if s.NextBillingDate.After(asOf) {
			continue
		}
		for _, st := range statuses {
			if s.Status == st {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memAssessments struct {
	items map[string]model.Assessment
}

func (m *memAssessments) ListSummariesByUser(_ context.Context, userID string) ([]model.AssessmentSummary, error) {
	var out []model.AssessmentSummary
	for _, a := range m.items {
		if a.UserID == userID {
			out = append(out, a.Summarize())
		}
	}
	return out, nil
}

func (m *memAssessments) FindByID(_ context.Context, id string) (*model.Assessment, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &a, nil
}

func (m *memAssessments) Create(_ context.Context, _ *sql.Tx, a *model.Assessment) error {
	if m.items == nil {
		m.items = map[string]model.Assessment{}
	}
	m.items[a.ID] = *a
	return nil
}

func (m *memAssessments) Update(_ context.Context, _ *sql.Tx, a *model.Assessment) error {
	if _, ok := m.items[a.ID]; !ok {
		return common.ErrNotFound
	}
	m.items[a.ID] = *a
	return nil
}

func (m *memAssessments) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memAssessments) CountAreaScoresByUser(_ context.Context, userID string) (map[model.AreaScore]int, error) {
	out := map[model.AreaScore]int{}
	for _, a := range m.items {
		if a.UserID != userID {
			continue
		}
		for _, ch := range a.Chapters {
			for _, ar := range ch.Areas {
				out[ar.Score]++
			}
		}
	}
	return out, nil
}

type memReports struct {
	areas []model.ComplianceArea
	recs  []model.Recommendation
}

func (m *memReports) ListAreasByUser(_ context.Context, userID string) ([]model.ComplianceArea, error) {
	var out []model.ComplianceArea
	for _, a := range m.areas {
		if a.OwnerID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memReports) ListRecommendationsByUser(_ context.Context, _ string) ([]model.Recommendation, error) {
	return append([]model.Recommendation(nil), m.recs...), nil
}

func (m *memReports) FindArea(_ context.Context, id string) (*model.ComplianceArea, error) {
	for _, a := range m.areas {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}
