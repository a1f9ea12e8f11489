package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BusinessConfig seeds one business with its calendar and service catalog.
type BusinessConfig struct {
	Slug               string          `yaml:"slug"`
	Name               string          `yaml:"name"`
	RequiresMembership bool            `yaml:"requires_membership"`
	IsActive           bool            `yaml:"is_active"`
	Hours              []HourConfig    `yaml:"hours"`
	Breaks             []HourConfig    `yaml:"breaks"`
	Closures           []ClosureConfig `yaml:"closures"`
	Services           []ServiceConfig `yaml:"services"`
}

// HourConfig is a weekly time range. Day 0 is Sunday.
type HourConfig struct {
	Day   int    `yaml:"day"`
	Start string `yaml:"start"` // "09:00"
	End   string `yaml:"end"`   // "18:00"
}

// ClosureConfig is an inclusive date range when the business is closed.
type ClosureConfig struct {
	StartDate string `yaml:"start_date"` // "2026-08-01"
	EndDate   string `yaml:"end_date"`
	Reason    string `yaml:"reason"`
}

// ServiceConfig seeds one bookable service. A zero price is hidden from
// clients, not free.
type ServiceConfig struct {
	Name            string `yaml:"name"`
	DurationMinutes int    `yaml:"duration_minutes"`
	Price           int64  `yaml:"price"`
}

// BusinessesConfig is the root of businesses.yaml.
type BusinessesConfig struct {
	Businesses []BusinessConfig `yaml:"businesses"`
}

// LoadBusinessesConfig loads and validates the seed file.
func LoadBusinessesConfig(path string) (*BusinessesConfig, error) {
	if path == "" {
		path = "configs/businesses.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read businesses config: %w", err)
	}

	var cfg BusinessesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse businesses config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate businesses config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *BusinessesConfig) Validate() error {
	if len(c.Businesses) == 0 {
		return fmt.Errorf("no businesses defined")
	}

	slugs := make(map[string]bool)
	for i, biz := range c.Businesses {
		if biz.Slug == "" {
			return fmt.Errorf("business[%d]: slug is required", i)
		}
		if slugs[biz.Slug] {
			return fmt.Errorf("business[%d]: duplicate slug '%s'", i, biz.Slug)
		}
		slugs[biz.Slug] = true

		if biz.Name == "" {
			return fmt.Errorf("business[%d]: name is required", i)
		}

		seenDays := make(map[int]bool)
		for j, h := range biz.Hours {
			if err := validateHourRange(h, fmt.Sprintf("business[%d].hours[%d]", i, j)); err != nil {
				return err
			}
			if seenDays[h.Day] {
				return fmt.Errorf("business[%d].hours[%d]: duplicate day %d", i, j, h.Day)
			}
			seenDays[h.Day] = true
		}

		for j, b := range biz.Breaks {
			if err := validateHourRange(b, fmt.Sprintf("business[%d].breaks[%d]", i, j)); err != nil {
				return err
			}
		}

		for j, cl := range biz.Closures {
			start, err := time.Parse("2006-01-02", cl.StartDate)
			if err != nil {
				return fmt.Errorf("business[%d].closures[%d]: bad start_date '%s'", i, j, cl.StartDate)
			}
			end, err := time.Parse("2006-01-02", cl.EndDate)
			if err != nil {
				return fmt.Errorf("business[%d].closures[%d]: bad end_date '%s'", i, j, cl.EndDate)
			}
			if end.Before(start) {
				return fmt.Errorf("business[%d].closures[%d]: end_date before start_date", i, j)
			}
		}

		names := make(map[string]bool)
		for j, svc := range biz.Services {
			if svc.Name == "" {
				return fmt.Errorf("business[%d].services[%d]: name is required", i, j)
			}
			if names[svc.Name] {
				return fmt.Errorf("business[%d].services[%d]: duplicate name '%s'", i, j, svc.Name)
			}
			names[svc.Name] = true

			if svc.DurationMinutes <= 0 {
				return fmt.Errorf("business[%d].services[%d]: duration_minutes must be positive", i, j)
			}
			if svc.Price < 0 {
				return fmt.Errorf("business[%d].services[%d]: price cannot be negative", i, j)
			}
		}
	}

	return nil
}

func validateHourRange(h HourConfig, where string) error {
	if h.Day < 0 || h.Day > 6 {
		return fmt.Errorf("%s: day must be 0-6 (0=Sunday), got %d", where, h.Day)
	}
	start, err := time.Parse("15:04", h.Start)
	if err != nil {
		return fmt.Errorf("%s: bad start time '%s'", where, h.Start)
	}
	end, err := time.Parse("15:04", h.End)
	if err != nil {
		return fmt.Errorf("%s: bad end time '%s'", where, h.End)
	}
	if !end.After(start) {
		return fmt.Errorf("%s: end must be after start", where)
	}
	return nil
}
