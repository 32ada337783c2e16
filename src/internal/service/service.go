package service

import (
	"errors"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/auth"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"

	"go.uber.org/zap"
)

type Service struct {
	repo   store.Repository
	tokens *auth.Tokens
	log    *zap.Logger
	now    func() time.Time
}

func NewService(repos store.Repository, tokens *auth.Tokens, logger *zap.Logger) *Service {
	return &Service{
		repo:   repos,
		tokens: tokens,
		log:    logger,
		now:    time.Now,
	}
}

// repoError converts store sentinels into API errors. Anything else is
// returned unchanged and ends up as an internal error.
func repoError(err error, notFound, conflict string) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return apiErrors.NewNotFound(notFound)
	case errors.Is(err, model.ErrConflict):
		return apiErrors.NewConflict(conflict)
	case errors.Is(err, model.ErrInvalidReference):
		return apiErrors.NewValidation("referenced user or project does not exist")
	}
	return err
}
