package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"multistrat/internal/config"
	"multistrat/internal/engine"
	"multistrat/internal/report"
	"multistrat/internal/repository"
	"multistrat/internal/store"
	"multistrat/strategies/leveragedsma"
	"multistrat/strategies/orb"
	"multistrat/strategies/wheel"

	"github.com/shopspring/decimal"
)

func main() {
	path := "config.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	logger := newLogger(cfg.Backtest.LogLevel)

	db, err := repository.NewDatabase(cfg.Database.URL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	initialCash, err := decimal.NewFromString(cfg.Backtest.InitialCash)
	if err != nil {
		log.Fatalf("initial cash: %v", err)
	}
	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()

	eng, err := engine.NewEngine(
		engine.NewConfig(
			initialCash,
			engine.AllocationMethod(cfg.Backtest.AllocationMethod),
			cfg.Backtest.ReferenceSymbol,
			cfg.Backtest.LookbackDays,
		),
		&db,
		logger,
		buildStrategies(cfg)...,
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Run(context.Background(), start, end)
	if err != nil {
		log.Fatal(err)
	}

	report.PrintSummary(os.Stdout, res.Summary)

	if p := cfg.Report.JSONPath; p != "" {
		if err := report.SaveJSON(p, res.Summary, res.Trades, res.Equity, res.Allocations); err != nil {
			logger.Error("save json result", "path", p, "err", err)
		}
	}
	if p := cfg.Report.ChartPath; p != "" {
		if err := report.SaveEquityChart(p, res.Equity); err != nil {
			logger.Error("save equity chart", "path", p, "err", err)
		}
	}
	if p := cfg.Report.StorePath; p != "" {
		saveRun(p, cfg, res, logger)
	}
}

func buildStrategies(cfg *config.Config) []engine.Strategy {
	var strats []engine.Strategy
	if s := cfg.Strategies.LeveragedSMA; s.Enabled {
		strats = append(strats, leveragedsma.New(s.SignalSymbol, s.TradeSymbol, s.SMAPeriod, s.StopLossPct))
	}
	if s := cfg.Strategies.ORB; s.Enabled {
		strats = append(strats, orb.New(s.Symbol, s.OpeningMinutes))
	}
	if s := cfg.Strategies.Wheel; s.Enabled {
		strats = append(strats, wheel.New(s.Symbol, s.TakeProfitPct))
	}
	return strats
}

func saveRun(path string, cfg *config.Config, res *engine.Result, logger *slog.Logger) {
	st, err := store.Open(path)
	if err != nil {
		logger.Error("open results store", "path", path, "err", err)
		return
	}
	defer st.Close()

	id, err := st.SaveRun(context.Background(), store.Run{
		StartDate: res.Summary.StartDate,
		EndDate:   res.Summary.EndDate,
		Method:    cfg.Backtest.AllocationMethod,
		Summary:   res.Summary,
		Trades:    res.Trades,
	})
	if err != nil {
		logger.Error("save run", "err", err)
		return
	}
	logger.Info("run saved", "id", id)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
