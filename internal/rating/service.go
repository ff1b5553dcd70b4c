package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/vaticano-chess/internal/domain"
	"github.com/park285/vaticano-chess/internal/obslog"
)

var (
	ErrRatingNotActive = errors.New("rating row is not active")
	ErrDuplicateActive = errors.New("active rating already exists")
	ErrSamePlayer      = errors.New("rating update needs two distinct players")
)

// Policy is the per-variant rating configuration.
type Policy struct {
	KFactor    float64
	DefaultElo int
	MinElo     int
}

// DefaultPolicy is used for variants without explicit settings.
var DefaultPolicy = Policy{KFactor: DefaultKFactor, DefaultElo: DefaultElo, MinElo: DefaultMinElo}

// Change is the before/after rating of one player.
type Change struct {
	UserID string
	Before int
	After  int
}

func (c Change) Delta() int { return c.After - c.Before }

// Service applies Elo updates with an append-only history.
type Service struct {
	repo     Repository
	policies map[string]Policy
	now      func() time.Time
}

func NewService(repo Repository, policies map[string]Policy) *Service {
	if policies == nil {
		policies = map[string]Policy{}
	}
	return &Service{repo: repo, policies: policies, now: time.Now}
}

func (s *Service) Policy(variant string) Policy {
	if p, ok := s.policies[variant]; ok {
		return p
	}
	return DefaultPolicy
}

// Current returns the active Elo of a player, or the variant default when
// the player has no rating yet.
func (s *Service) Current(ctx context.Context, userID, variant string) (int, error) {
	r, err := s.repo.Active(ctx, userID, variant)
	if err != nil {
		return 0, err
	}
	if r == nil {
		return s.Policy(variant).DefaultElo, nil
	}
	return r.Elo, nil
}

// Finish applies one game's results to both players inside one repository
// transaction. Ratings are created lazily with the variant default.
func (s *Service) Finish(ctx context.Context, variant, whiteID, blackID string, results Results, at time.Time) (Change, Change, error) {
	if whiteID == blackID {
		return Change{}, Change{}, ErrSamePlayer
	}
	if at.IsZero() {
		at = s.now()
	}
	policy := s.Policy(variant)
	var white, black Change
	err := s.repo.InTx(ctx, func(tx Tx) error {
		wr, err := activeOrDefault(ctx, tx, whiteID, variant, policy.DefaultElo, at)
		if err != nil {
			return err
		}
		br, err := activeOrDefault(ctx, tx, blackID, variant, policy.DefaultElo, at)
		if err != nil {
			return err
		}
		we, be := Apply(wr.Elo, br.Elo, results, policy.KFactor, policy.MinElo)
		for _, step := range []struct {
			old *domain.Rating
			elo int
		}{{wr, we}, {br, be}} {
			if err := tx.Archive(ctx, step.old.ID); err != nil {
				return err
			}
			if _, err := tx.Insert(ctx, &domain.Rating{UserID: step.old.UserID, Variant: variant, Elo: step.elo, IsActive: true, AchievedAt: at}); err != nil {
				return err
			}
		}
		white = Change{UserID: whiteID, Before: wr.Elo, After: we}
		black = Change{UserID: blackID, Before: br.Elo, After: be}
		return nil
	})
	if err != nil {
		return Change{}, Change{}, fmt.Errorf("finish ratings: %w", err)
	}
	obslog.L().Info("rating_update",
		zap.String("variant", variant),
		zap.String("white", whiteID),
		zap.Int("white_elo", white.After),
		zap.Int("white_delta", white.Delta()),
		zap.String("black", blackID),
		zap.Int("black_elo", black.After),
		zap.Int("black_delta", black.Delta()),
	)
	return white, black, nil
}

func activeOrDefault(ctx context.Context, tx Tx, userID, variant string, elo int, at time.Time) (*domain.Rating, error) {
	r, err := tx.Active(ctx, userID, variant)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return r, nil
	}
	r = &domain.Rating{UserID: userID, Variant: variant, Elo: elo, IsActive: true, AchievedAt: at}
	id, err := tx.Insert(ctx, r)
	if err != nil {
		return nil, err
	}
	r.ID = id
	return r, nil
}

func (s *Service) History(ctx context.Context, userID, variant string, limit int) ([]*domain.Rating, error) {
	return s.repo.History(ctx, userID, variant, limit)
}
