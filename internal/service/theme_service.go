package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
	"github.com/sodiqdevpython/quizcore-backend/internal/repository"
)

type ThemeService struct {
	themeRepo *repository.ThemeRepository
	log       zerolog.Logger
}

func NewThemeService(themeRepo *repository.ThemeRepository, log zerolog.Logger) *ThemeService {
	return &ThemeService{
		themeRepo: themeRepo,
		log:       log.With().Str("component", "theme_service").Logger(),
	}
}

func (s *ThemeService) GetAll(ctx context.Context) ([]model.Theme, error) {
	return s.themeRepo.GetAll(ctx)
}

func (s *ThemeService) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]model.Theme, error) {
	return s.themeRepo.ListBySubject(ctx, subjectID)
}

func (s *ThemeService) GetByID(ctx context.Context, id uuid.UUID) (*model.Theme, error) {
	theme, err := s.themeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get theme: %w", err)
	}
	return theme, nil
}

func (s *ThemeService) Create(ctx context.Context, t *model.Theme) error {
	return s.themeRepo.Create(ctx, t)
}
