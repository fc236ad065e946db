package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/repositories"
)

type profileService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewProfileService(repo repositories.Repository, logger *slog.Logger) ProfileService {
	return &profileService{repo: repo, logger: logger}
}

func (s *profileService) Get(ctx context.Context, userID uint) (*models.ProfileEnvelope, error) {
	user, profile, err := s.repo.Profile().GetWithUser(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &models.ProfileEnvelope{
		OK: true,
		User: models.ProfileUser{
			ID:         user.ID,
			Username:   user.Username,
			Email:      user.Email,
			IsVerified: user.IsVerified,
			CreatedAt:  user.CreatedAt,
		},
		HasProfile: profile != nil,
		Profile:    models.NewProfileView(profile),
	}, nil
}

// Save replaces every whitelisted field with the submitted value; absent fields become
// null. Unknown keys are ignored.
func (s *profileService) Save(ctx context.Context, userID uint, fields map[string]any) (*models.ProfileEnvelope, error) {
	profile, err := profileFromFields(userID, fields)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.User().GetByID(ctx, nil, userID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := s.repo.Profile().Upsert(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	s.logger.InfoContext(ctx, "Profile saved", "user_id", userID)

	return s.Get(ctx, userID)
}

func profileFromFields(userID uint, fields map[string]any) (*models.Profile, error) {
	p := &models.Profile{UserID: userID}

	text := map[string]**string{
		"name":                &p.Name,
		"title":               &p.Title,
		"company":             &p.Company,
		"location":            &p.Location,
		"experience":          &p.Experience,
		"profile_picture_url": &p.ProfilePictureURL,
		"phone":               &p.Phone,
		"linkedin_url":        &p.LinkedInURL,
		"professional_bio":    &p.ProfessionalBio,
		"areas_of_interest":   &p.AreasOfInterest,
	}
	for _, name := range models.ProfileTextFields {
		v, err := coerceText(name, fields[name])
		if err != nil {
			return nil, err
		}
		*text[name] = v
	}

	counters := map[string]**int{
		"courses_enrolled":    &p.CoursesEnrolled,
		"certificates_earned": &p.CertificatesEarned,
		"study_hours":         &p.StudyHours,
	}
	for _, name := range models.ProfileCounterFields {
		v, err := coerceCounter(name, fields[name])
		if err != nil {
			return nil, err
		}
		*counters[name] = v
	}

	return p, nil
}

func coerceText(field string, raw any) (*string, error) {
	var s string
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return nil, invalidArgument(field, field+" must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

func coerceCounter(field string, raw any) (*int, error) {
	var n int
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, invalidArgument(field, field+" must be a whole number")
		}
		n = i
	case json.Number:
		i, err := strconv.Atoi(v.String())
		if err != nil {
			return nil, invalidArgument(field, field+" must be a whole number")
		}
		n = i
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return nil, invalidArgument(field, field+" must be a whole number")
		}
		n = int(v)
	case int:
		n = v
	default:
		return nil, invalidArgument(field, field+" must be a whole number")
	}
	if n < 0 {
		return nil, invalidArgument(field, field+" must not be negative")
	}
	return &n, nil
}
