package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/google/uuid"
)

const tagNameTaken = "tag name already exists"

func (s *Service) ListTags(ctx context.Context) ([]model.Tag, error) {
	return s.repo.ListTags(ctx)
}

func (s *Service) CreateTag(ctx context.Context, name, color string) (model.Tag, error) {
	name, color = strings.TrimSpace(name), strings.TrimSpace(color)
	if name == "" {
		return model.Tag{}, apiErrors.NewValidation("tag name is required")
	}
	if color == "" {
		color = model.DefaultTagColor
	}
	t, err := s.repo.CreateTag(ctx, model.Tag{ID: uuid.NewString(), Name: name, Color: color})
	if err != nil {
		return model.Tag{}, repoError(err, "tag not found", tagNameTaken)
	}
	return t, nil
}

func (s *Service) UpdateTag(ctx context.Context, tagID string, name, color *string) (model.Tag, error) {
	if name != nil {
		v := strings.TrimSpace(*name)
		if v == "" {
			return model.Tag{}, apiErrors.NewValidation("tag name is required")
		}
		name = &v
	}
	if color != nil {
		v := strings.TrimSpace(*color)
		color = &v
	}
	t, err := s.repo.UpdateTag(ctx, tagID, name, color)
	if err != nil {
		return model.Tag{}, repoError(err, "tag not found", tagNameTaken)
	}
	return t, nil
}

func (s *Service) DeleteTag(ctx context.Context, tagID string) error {
	if err := s.repo.DeleteTag(ctx, tagID); err != nil {
		return repoError(err, "tag not found", "")
	}
	return nil
}

// GetSLA returns the stored SLA targets, persisting the defaults on first use.
func (s *Service) GetSLA(ctx context.Context) (model.SLA, error) {
	var sla model.SLA
	err := s.repo.GetSetting(ctx, model.SettingSLA, &sla)
	if err == nil {
		return sla, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.SLA{}, err
	}
	sla = model.DefaultSLA()
	if err := s.repo.PutSetting(ctx, model.SettingSLA, sla); err != nil {
		return model.SLA{}, err
	}
	return sla, nil
}

// UpdateSLA starts from the defaults and takes every non-negative number
// present in incoming. Numeric strings are accepted too.
func (s *Service) UpdateSLA(ctx context.Context, incoming map[string]any) (model.SLA, error) {
	sla := model.DefaultSLA()
	targets := map[string]*float64{
		"Critical": &sla.Critical,
		"High":     &sla.High,
		"Medium":   &sla.Medium,
		"Low":      &sla.Low,
	}
	for key, dst := range targets {
		if v, ok := slaHours(incoming[key]); ok {
			*dst = v
		}
	}
	if err := s.repo.PutSetting(ctx, model.SettingSLA, sla); err != nil {
		return model.SLA{}, err
	}
	return sla, nil
}

func slaHours(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	return f, f >= 0 && !math.IsInf(f, 1)
}
