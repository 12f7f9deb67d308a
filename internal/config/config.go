// Package config loads the YAML run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingDatabaseURL = errors.New("database url is required")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
)

type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Backtest struct {
		InitialCash      string `yaml:"initialCash"`
		Start            string `yaml:"start"`
		End              string `yaml:"end"`
		AllocationMethod string `yaml:"allocationMethod"`
		ReferenceSymbol  string `yaml:"referenceSymbol"`
		LookbackDays     int    `yaml:"lookbackDays"`
		LogLevel         string `yaml:"logLevel"`
	} `yaml:"backtest"`

	Report struct {
		JSONPath  string `yaml:"jsonPath"`
		ChartPath string `yaml:"chartPath"`
		StorePath string `yaml:"storePath"`
	} `yaml:"report"`

	Strategies struct {
		LeveragedSMA struct {
			Enabled      bool    `yaml:"enabled"`
			SignalSymbol string  `yaml:"signalSymbol"`
			TradeSymbol  string  `yaml:"tradeSymbol"`
			SMAPeriod    int     `yaml:"smaPeriod"`
			StopLossPct  float64 `yaml:"stopLossPct"`
		} `yaml:"leveragedSma"`
		ORB struct {
			Enabled        bool   `yaml:"enabled"`
			Symbol         string `yaml:"symbol"`
			OpeningMinutes int    `yaml:"openingMinutes"`
		} `yaml:"orb"`
		Wheel struct {
			Enabled       bool    `yaml:"enabled"`
			Symbol        string  `yaml:"symbol"`
			TakeProfitPct float64 `yaml:"takeProfitPct"`
		} `yaml:"wheel"`
	} `yaml:"strategies"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	start, err := c.StartDate()
	if err != nil {
		return err
	}
	end, err := c.EndDate()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return ErrInvalidDateRange
	}
	return nil
}

func (c *Config) StartDate() (time.Time, error) {
	return parseDate(c.Backtest.Start)
}

func (c *Config) EndDate() (time.Time, error) {
	return parseDate(c.Backtest.End)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
