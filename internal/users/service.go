// ABOUTME: User profile service: biometrics, goals, and computed daily targets.
// ABOUTME: Targets are derived, never hand-edited; recomputed on every update.

package users

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/macrolog/macro-gateway/internal/nutrition"
	"github.com/macrolog/macro-gateway/internal/store"
)

// ProfileView is the wire shape of a user profile. Targets is nil until the
// profile carries enough biometrics to compute one.
type ProfileView struct {
	Sex           *string            `json:"sex"`
	BirthDate     *string            `json:"birthDate"`
	HeightCm      *float64           `json:"heightCm"`
	WeightKg      *float64           `json:"weightKg"`
	ActivityLevel *string            `json:"activityLevel"`
	Goal          *string            `json:"goal"`
	CalorieDelta  *float64           `json:"calorieDelta,omitempty"`
	Targets       *nutrition.Targets `json:"targets"`
}

// UpdateInput carries the profile fields a caller may set. Nil fields are
// left unchanged; there is no way to unset a field once written.
type UpdateInput struct {
	Sex           *string
	BirthDate     *time.Time
	HeightCm      *float64
	WeightKg      *float64
	ActivityLevel *string
	Goal          *string
	CalorieDelta  *float64
}

// Service manages user profiles.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a profile service.
func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger.With("component", "users"), now: time.Now}
}

// GetProfile returns the caller's profile. A user who never saved one gets
// an empty profile rather than a not-found error.
func (s *Service) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &ProfileView{}, nil
	}
	if err != nil {
		return nil, err
	}
	return toView(profile), nil
}

// UpdateProfile merges the given fields into the stored profile and
// recomputes daily targets when sex, birth date, height and weight are all
// present afterwards.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateInput) (*ProfileView, error) {
	var out *ProfileView
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		profile, err := tx.GetProfile(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			profile = &store.UserProfile{UserID: userID}
		} else if err != nil {
			return err
		}

		if in.Sex != nil {
			profile.Sex = in.Sex
		}
		if in.BirthDate != nil {
			profile.BirthDate = in.BirthDate
		}
		if in.HeightCm != nil {
			profile.HeightCm = in.HeightCm
		}
		if in.WeightKg != nil {
			profile.WeightKg = in.WeightKg
		}
		if in.ActivityLevel != nil {
			profile.ActivityLevel = in.ActivityLevel
		}
		if in.Goal != nil {
			profile.Goal = in.Goal
		}
		if in.CalorieDelta != nil {
			profile.CalorieDelta = in.CalorieDelta
		}

		s.applyTargets(profile)
		if err := tx.UpsertProfile(ctx, profile); err != nil {
			return err
		}
		out = toView(profile)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", "user_id", userID)
	return out, nil
}

// applyTargets recomputes the stored target columns, clearing them when the
// biometrics are incomplete.
func (s *Service) applyTargets(p *store.UserProfile) {
	if p.Sex == nil || p.BirthDate == nil || p.HeightCm == nil || p.WeightKg == nil {
		p.TargetCalories, p.TargetProtein, p.TargetFat, p.TargetCarbs = nil, nil, nil, nil
		return
	}
	input := nutrition.Profile{
		Sex:          *p.Sex,
		BirthDate:    *p.BirthDate,
		HeightCm:     *p.HeightCm,
		WeightKg:     *p.WeightKg,
		CalorieDelta: p.CalorieDelta,
	}
	if p.ActivityLevel != nil {
		input.ActivityLevel = *p.ActivityLevel
	}
	if p.Goal != nil {
		input.Goal = *p.Goal
	}
	targets := nutrition.CalculateTargets(input, s.now())
	p.TargetCalories = &targets.Calories
	p.TargetProtein = &targets.Protein
	p.TargetFat = &targets.Fat
	p.TargetCarbs = &targets.Carbs
}

func toView(p *store.UserProfile) *ProfileView {
	view := &ProfileView{
		Sex:           p.Sex,
		HeightCm:      p.HeightCm,
		WeightKg:      p.WeightKg,
		ActivityLevel: p.ActivityLevel,
		Goal:          p.Goal,
		CalorieDelta:  p.CalorieDelta,
	}
	if p.BirthDate != nil {
		s := p.BirthDate.UTC().Format("2006-01-02")
		view.BirthDate = &s
	}
	if p.TargetCalories != nil && p.TargetProtein != nil && p.TargetFat != nil && p.TargetCarbs != nil {
		view.Targets = &nutrition.Targets{
			Calories: *p.TargetCalories,
			Protein:  *p.TargetProtein,
			Fat:      *p.TargetFat,
			Carbs:    *p.TargetCarbs,
		}
	}
	return view
}
