package gamebuilder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/park285/vaticano-chess/internal/config"
	"github.com/park285/vaticano-chess/internal/eventhook"
	"github.com/park285/vaticano-chess/internal/msgcat"
	"github.com/park285/vaticano-chess/internal/obslog"
	"github.com/park285/vaticano-chess/internal/pvpchan"
	"github.com/park285/vaticano-chess/internal/pvpchess"
	"github.com/park285/vaticano-chess/internal/rating"
	"github.com/park285/vaticano-chess/internal/wsapi"
)

type Deps struct {
	Games    *pvpchess.Manager
	Lobby    *pvpchan.Manager
	Ratings  *rating.Service
	Messages *msgcat.Catalog
	Server   *wsapi.Server
	DB       *sql.DB
}

// New wires the service from cfg. Without DATABASE_URL ratings live in
// memory and finished games are not archived.
func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	games, err := pvpchess.NewManager(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init game manager: %w", err)
	}
	games.SetGameTTL(cfg.GameTTL)
	d := &Deps{Games: games}

	var ratingRepo rating.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, db, err := rating.OpenRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init rating repository: %w", err)
		}
		d.DB = db
		ratingRepo = repo
		archive, err := pvpchess.NewRepository(ctx, db)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init game archive: %w", err)
		}
		games.AttachRepository(archive)
	} else {
		obslog.L().Warn("database_disabled", zap.String("reason", "DATABASE_URL empty; ratings kept in memory"))
		ratingRepo = rating.NewMemoryRepository()
	}
	d.Ratings = rating.NewService(ratingRepo, cfg.Variants.Policies())
	games.AttachRatings(d.Ratings)

	if u := strings.TrimSpace(cfg.EventWebhookURL); u != "" {
		games.AttachSink(eventhook.NewClient(u))
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Messages = msgs
	d.Lobby = pvpchan.NewManager(games.Client(), games, cfg.Variants, cfg.InviteTTL)
	d.Server = wsapi.NewServer(games, d.Lobby, msgs, cfg.DefaultVariant)
	return d, nil
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var err error
	if d.Games != nil {
		err = multierr.Append(err, d.Games.Close())
	}
	if d.DB != nil {
		err = multierr.Append(err, d.DB.Close())
	}
	return err
}
