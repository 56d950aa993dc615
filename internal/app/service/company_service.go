package service

import (
	"context"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"rodo_assess/internal/domain/repository"
	"strings"

	"github.com/google/uuid"
)

type CompanyService struct {
	companyRepo repository.CompanyRepository
}

func NewCompanyService(companyRepo repository.CompanyRepository) *CompanyService {
	return &CompanyService{companyRepo: companyRepo}
}

type CompanyRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	NIP        string `json:"nip"`
	REGON      string `json:"regon"`
	Industry   string `json:"industry"`
}

var companyLimits = []struct {
	field   func(*CompanyRequest) string
	max     int
	message string
}{
	{func(r *CompanyRequest) string { return r.Name }, 255, "Nazwa firmy nie może przekraczać 255 znaków"},
	{func(r *CompanyRequest) string { return r.Address }, 255, "Adres nie może przekraczać 255 znaków"},
	{func(r *CompanyRequest) string { return r.City }, 100, "Miasto nie może przekraczać 100 znaków"},
	{func(r *CompanyRequest) string { return r.PostalCode }, 20, "Kod pocztowy nie może przekraczać 20 znaków"},
	{func(r *CompanyRequest) string { return r.NIP }, 20, "NIP nie może przekraczać 20 znaków"},
	{func(r *CompanyRequest) string { return r.REGON }, 20, "REGON nie może przekraczać 20 znaków"},
	{func(r *CompanyRequest) string { return r.Industry }, 100, "Branża nie może przekraczać 100 znaków"},
}

// Get returns the company of userID, or an empty company when none is stored.
func (s *CompanyService) Get(ctx context.Context, userID string) (*model.Company, error) {
	c, err := s.companyRepo.FindByUserID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return &model.Company{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	return c, nil
}

func (s *CompanyService) Update(ctx context.Context, userID string, req CompanyRequest) (*model.Company, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, common.NewValidationError("Nazwa firmy jest wymagana")
	}
	for _, l := range companyLimits {
		if tooLong(l.field(&req), l.max) {
			return nil, common.NewValidationError(l.message)
		}
	}

	c := &model.Company{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       req.Name,
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		PostalCode: strings.TrimSpace(req.PostalCode),
		NIP:        strings.TrimSpace(req.NIP),
		REGON:      strings.TrimSpace(req.REGON),
		Industry:   strings.TrimSpace(req.Industry),
	}
	if err := s.companyRepo.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save company: %w", err)
	}
	return c, nil
}
