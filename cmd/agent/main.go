package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"hash/maphash"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"

	"github.com/vancomm/minesweeper-agent/internal/agent"
	"github.com/vancomm/minesweeper-agent/internal/config"
	"github.com/vancomm/minesweeper-agent/internal/database"
	"github.com/vancomm/minesweeper-agent/internal/knowledge"
	"github.com/vancomm/minesweeper-agent/internal/mines"
	"github.com/vancomm/minesweeper-agent/internal/repository"
	"github.com/vancomm/minesweeper-agent/internal/store"
)

var log = logrus.New()

type options struct {
	games     int
	params    mines.GameParams
	seed      uint64
	workers   int
	safeStart bool
	dbPath    string
	list      bool
	rerun     bool
	verbose   bool
}

func parseFlags() options {
	board, err := config.Board()
	if err != nil {
		log.Fatal("invalid board config: ", err)
	}

	var o options
	flag.IntVar(&o.games, "games", 1, "number of games to play")
	flag.IntVar(&o.params.Height, "height", board.Height, "board height")
	flag.IntVar(&o.params.Width, "width", board.Width, "board width")
	flag.IntVar(&o.params.MineCount, "mines", board.MineCount, "number of mines")
	flag.Uint64Var(&o.seed, "seed", 0, "seed of the first game, random if 0")
	flag.IntVar(&o.workers, "workers", runtime.NumCPU(), "games played concurrently")
	flag.BoolVar(&o.safeStart, "safe-start", false, "keep mines away from the first move")
	flag.StringVar(&o.dbPath, "db", "", "sqlite file caching finished games")
	flag.BoolVar(&o.list, "list", false, "print the games cached in -db and exit")
	flag.BoolVar(&o.rerun, "rerun", false, "replay games even if they are cached in -db")
	flag.BoolVar(&o.verbose, "v", false, "log every move")
	flag.Parse()

	if err := o.params.Validate(); err != nil {
		log.Fatal(err)
	}
	if (o.list || o.rerun) && o.dbPath == "" {
		log.Fatal("-list and -rerun need -db")
	}
	if o.games < 1 || o.workers < 1 {
		log.Fatal("-games and -workers must be positive")
	}
	if o.seed == 0 {
		o.seed = new(maphash.Hash).Sum64()
	}
	return o
}

func setupLogging(verbose bool) {
	logLevel := logrus.InfoLevel
	if verbose || config.Development() {
		logLevel = logrus.DebugLevel
	}
	log.SetLevel(logLevel)
	log.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	// engine tracing is very chatty, only -v turns it on
	knowledge.Log.SetLevel(logrus.WarnLevel)
	if verbose {
		knowledge.Log.SetLevel(logrus.DebugLevel)
	}

	logFile := config.LogFile()
	if logFile == "" {
		return
	}
	hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
		Filename:   logFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Level:      logLevel,
		Formatter:  &logrus.JSONFormatter{},
	})
	if err != nil {
		log.Fatal("unable to open log file: ", err)
	}
	log.AddHook(hook)
	knowledge.Log.AddHook(hook)
}

func openCache(path string) (*store.Store[agent.Result], func()) {
	if path == "" {
		return nil, func() {}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Fatal("unable to open sqlite db: ", err)
	}
	// workers share the file; one connection keeps sqlite from reporting busy
	db.SetMaxOpenConns(1)
	cache, err := store.New[agent.Result](db, "agent_results")
	if err != nil {
		log.Fatal("unable to create result store: ", err)
	}
	return cache, func() { db.Close() }
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	opts := parseFlags()
	setupLogging(opts.verbose)

	log.WithFields(logrus.Fields{
		"board":   opts.params.String(),
		"games":   opts.games,
		"seed":    opts.seed,
		"workers": opts.workers,
	}).Info("starting up")

	cache, closeCache := openCache(opts.dbPath)
	defer closeCache()

	if cache != nil {
		n, err := cache.Count()
		if err != nil {
			log.Fatal("unable to count cached games: ", err)
		}
		log.WithField("cached", n).Debug("opened ", opts.dbPath)
	}
	if opts.list {
		if err := listCached(log, cache); err != nil {
			log.Fatal("unable to list cached games: ", err)
		}
		return
	}

	r := &runner{opts: opts, cache: cache}

	pool, _, err := database.ConnectAndMigrate(ctx)
	switch {
	case errors.Is(err, config.ErrNoDatabase):
		log.Debug("no database configured, runs will not be recorded")
	case err != nil:
		log.Fatal("unable to connect to db: ", err)
	default:
		defer pool.Close()
		r.repo = repository.New(pool)
	}

	results, err := r.run(ctx)
	summarize(opts.params, results).log(log)
	if err != nil {
		log.Error("exit reason: ", err)
		os.Exit(1)
	}
}
