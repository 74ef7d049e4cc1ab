package holiday

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"
)

type fileHoliday struct {
	Name       string  `yaml:"name" validate:"required"`
	Date       string  `yaml:"date" validate:"required,datetime=2006-01-02"`
	Type       Type    `yaml:"type" validate:"omitempty,oneof=official religious custom"`
	Multiplier float64 `yaml:"multiplier" validate:"gte=0"`
}

type fileRule struct {
	Name       string  `yaml:"name" validate:"required"`
	Month      int     `yaml:"month" validate:"required,min=1,max=12"`
	Day        int     `yaml:"day" validate:"required,min=1,max=31"`
	Type       Type    `yaml:"type" validate:"omitempty,oneof=official religious custom"`
	Multiplier float64 `yaml:"multiplier" validate:"gte=0"`
}

type fileConfig struct {
	WeekendMultiplier float64       `yaml:"weekend_multiplier" validate:"gte=0"`
	Holidays          []fileHoliday `yaml:"holidays" validate:"dive"`
	Recurring         []fileRule    `yaml:"recurring" validate:"dive"`
}

// LoadFile reads a YAML holiday overlay, for example:
//
//	weekend_multiplier: 1.05
//	holidays:
//	  - {name: Ramazan Bayramı, date: "2027-03-10", type: religious, multiplier: 1.05}
//	recurring:
//	  - {name: Yılbaşı, month: 1, day: 1, type: official, multiplier: 1.05}
//
// Entries without a type are custom; entries without a multiplier use 1.0.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading holiday file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing holiday file: %w", err)
	}
	if err := validator.New().Struct(fc); err != nil {
		return Config{}, fmt.Errorf("invalid holiday file: %w", err)
	}

	cfg := Config{WeekendMultiplier: fc.WeekendMultiplier}
	for _, h := range fc.Holidays {
		date, _ := time.Parse(DateLayout, h.Date)
		cfg.Dated = append(cfg.Dated, Holiday{
			Name:              h.Name,
			Date:              date,
			Type:              typeOrCustom(h.Type),
			TrafficMultiplier: multiplierOrNeutral(h.Multiplier),
		})
	}
	for _, r := range fc.Recurring {
		cfg.Recurring = append(cfg.Recurring, Rule{
			Month:      time.Month(r.Month),
			Day:        r.Day,
			Name:       r.Name,
			Type:       typeOrCustom(r.Type),
			Multiplier: multiplierOrNeutral(r.Multiplier),
		})
	}
	return cfg, nil
}

// Querier is the subset of pgxpool.Pool used to read holidays.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads dated holidays from the holidays table.
type PostgresSource struct {
	db Querier
}

// NewPostgresSource creates a PostgresSource.
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

const selectHolidays = `
	SELECT name, holiday_date, kind, traffic_multiplier
	FROM holidays
	ORDER BY holiday_date
`

// Load returns every dated holiday in the table.
func (s *PostgresSource) Load(ctx context.Context) (Config, error) {
	rows, err := s.db.Query(ctx, selectHolidays)
	if err != nil {
		return Config{}, fmt.Errorf("query holidays: %w", err)
	}
	defer rows.Close()

	var cfg Config
	for rows.Next() {
		var (
			h    Holiday
			kind string
		)
		if err := rows.Scan(&h.Name, &h.Date, &kind, &h.TrafficMultiplier); err != nil {
			return Config{}, fmt.Errorf("scan holiday: %w", err)
		}
		h.Type = typeOrCustom(Type(kind))
		h.TrafficMultiplier = multiplierOrNeutral(h.TrafficMultiplier)
		cfg.Dated = append(cfg.Dated, h)
	}
	if err := rows.Err(); err != nil {
		return Config{}, fmt.Errorf("iterate holidays: %w", err)
	}
	return cfg, nil
}

func typeOrCustom(t Type) Type {
	switch t {
	case TypeOfficial, TypeReligious, TypeCustom:
		return t
	default:
		return TypeCustom
	}
}

func multiplierOrNeutral(m float64) float64 {
	if m <= 0 {
		return 1.0
	}
	return m
}
