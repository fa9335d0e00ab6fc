package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper-agent/internal/config"
	"github.com/vancomm/minesweeper-agent/internal/database"
	"github.com/vancomm/minesweeper-agent/internal/handlers"
	"github.com/vancomm/minesweeper-agent/internal/middleware"
	"github.com/vancomm/minesweeper-agent/internal/mines"
	"github.com/vancomm/minesweeper-agent/internal/repository"
)

type App struct {
	logger *slog.Logger
	router *http.ServeMux
	db     *pgxpool.Pool
	ws     *config.WebSocket
	board  mines.GameParams
	limits *config.Sessions
}

func New(
	logger *slog.Logger,
	ws *config.WebSocket,
	board mines.GameParams,
	limits *config.Sessions,
) *App {
	return &App{
		logger: logger,
		router: http.NewServeMux(),
		ws:     ws,
		board:  board,
		limits: limits,
	}
}

func (a *App) repo() handlers.RunRepository {
	if a.db == nil {
		return nil
	}
	return repository.New(a.db)
}

// Handler registers the routes, so it must be called only once.
func (a *App) Handler() http.Handler {
	a.loadRoutes()

	var h http.Handler = a.router
	if basePath := config.BasePath(); basePath != "" {
		h = http.StripPrefix(basePath, h)
	}
	return middleware.Wrap(
		h,
		middleware.Logging(a.logger),
		middleware.Cors(),
	)
}

/*
Start serves until ctx is done. Without a configured database the server
still runs, but finished games are not recorded.
*/
func (a *App) Start(ctx context.Context) error {
	db, _, err := database.ConnectAndMigrate(ctx)
	switch {
	case errors.Is(err, config.ErrNoDatabase):
		a.logger.Warn("no database configured, runs will not be recorded")
	case err != nil:
		return fmt.Errorf("unable to connect to db: %w", err)
	default:
		a.db = db
		defer db.Close()
	}

	port := config.Port()
	server := &http.Server{
		Addr:    port,
		Handler: a.Handler(),
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	a.logger.Info(
		"server listening",
		slog.String("addr", port),
		slog.String("basePath", config.BasePath()),
		slog.String("board", a.board.String()),
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		sCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(sCtx)
	})

	return g.Wait()
}
