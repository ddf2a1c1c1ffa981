package utils

import (
	"database/sql"
	"log/slog"
	"os"
	"sync"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config *Config
	RawDb  *sql.DB
	BunDB  *bun.DB
	When   *when.Parser

	EventGenerator *EventGenerator

	MetricChans        *Metric
	AppCloseSignalChan chan os.Signal

	gracefulShutdownChans []chan struct{}
	gracefulShutdownMutex sync.Mutex
}

func NewAppState() *AppState {
	as := &AppState{}

	as.MetricChans = NewMetric()
	as.AppCloseSignalChan = make(chan os.Signal, 1)

	// date parser
	as.When = when.New(nil)
	as.When.Add(en.All...)
	as.When.Add(common.All...)

	// env
	as.Config = NewConfig()

	// LLM event generator
	var err error
	as.EventGenerator, err = NewEventGenerator(as.Config.GetOpenaiApiKey(), as.When)
	if err != nil {
		slog.Error("cannot init event generator", "error", err)
		os.Exit(1)
	}

	// database
	as.RawDb, err = sql.Open(sqliteshim.ShimName, "./sqlite.db?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDb.SetMaxIdleConns(8)

	as.BunDB = bun.NewDB(as.RawDb, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))

	return as
}

// Channel closed when the app is shutting down; metric collectors and the
// scheduler select on it.
func (as *AppState) CreateGracefulShutdownChan() chan struct{} {
	as.gracefulShutdownMutex.Lock()
	defer as.gracefulShutdownMutex.Unlock()
	ch := make(chan struct{})
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, ch)
	return ch
}

func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownMutex.Lock()
	defer as.gracefulShutdownMutex.Unlock()
	for _, ch := range as.gracefulShutdownChans {
		close(ch)
	}
	as.gracefulShutdownChans = nil
	if as.RawDb != nil {
		if err := as.RawDb.Close(); err != nil {
			slog.Warn("can't close database", "error", err)
		}
	}
}
