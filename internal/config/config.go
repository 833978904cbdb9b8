// FILE: internal/config/config.go

// Package config loads tournament definitions. The same structure is read
// from YAML files by the CLI and from JSON bodies by the control API.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"reflect"
	"strings"
	"time"

	"enginearena/internal/tournament"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMoveTime     = time.Second
	DefaultMoveDelay    = 300 * time.Millisecond
	DefaultEvalTime     = 150 * time.Millisecond
	DefaultMaxBookPlies = 20
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// Duration is a time.Duration written as a string ("1s", "300ms")
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalJSON accepts "1.5s" or a bare number of milliseconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %s", b)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Engine is one participant
type Engine struct {
	Name string   `yaml:"name" json:"name" validate:"required,max=64"`
	Path string   `yaml:"path" json:"path" validate:"required"`
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// Tournament is a complete tournament definition
type Tournament struct {
	Name             string   `yaml:"name" json:"name" validate:"required,max=128"`
	Format           string   `yaml:"format" json:"format" validate:"required,format"`
	Rounds           int      `yaml:"rounds,omitempty" json:"rounds,omitempty" validate:"min=0,max=100"`
	DoubleRoundRobin bool     `yaml:"double_round_robin,omitempty" json:"double_round_robin,omitempty"`
	MoveTime         Duration `yaml:"move_time,omitempty" json:"move_time,omitempty" validate:"min=0"`
	MoveDelay        Duration `yaml:"move_delay,omitempty" json:"move_delay,omitempty" validate:"min=0"`
	Book             string   `yaml:"book,omitempty" json:"book,omitempty"`
	MaxBookPlies     int      `yaml:"max_book_plies,omitempty" json:"max_book_plies,omitempty" validate:"min=0"`
	Analyzer         string   `yaml:"analyzer,omitempty" json:"analyzer,omitempty"`
	EvalTime         Duration `yaml:"eval_time,omitempty" json:"eval_time,omitempty" validate:"min=0"`
	// Seed makes colour flips and tie breaks reproducible; zero is random
	Seed    uint64   `yaml:"seed,omitempty" json:"seed,omitempty"`
	Engines []Engine `yaml:"engines" json:"engines" validate:"required,min=2,unique=Name,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("format", func(fl validator.FieldLevel) bool {
		_, err := tournament.ParseFormat(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads, defaults and validates a YAML tournament file
func Load(path string) (*Tournament, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Tournament, error) {
	var cfg Tournament
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Prepare fills defaults and validates; callers decoding the struct
// themselves must call it before use
func (c *Tournament) Prepare() error {
	c.ApplyDefaults()
	return c.Validate()
}

func (c *Tournament) ApplyDefaults() {
	if c.MoveTime == 0 {
		c.MoveTime = Duration(DefaultMoveTime)
	}
	if c.MoveDelay == 0 {
		c.MoveDelay = Duration(DefaultMoveDelay)
	}
	if c.EvalTime == 0 {
		c.EvalTime = Duration(DefaultEvalTime)
	}
	if c.MaxBookPlies == 0 {
		c.MaxBookPlies = DefaultMaxBookPlies
	}
	c.Format = strings.TrimSpace(c.Format)
}

// Validate checks the struct tags and reports every violation in one error
func (c *Tournament) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	return fmt.Errorf("%w: %s", ErrInvalid, Describe(errs))
}

// Describe renders validation errors the way API clients see them
func Describe(errs validator.ValidationErrors) string {
	var details strings.Builder
	for _, err := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch err.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", err.Namespace()))
		case "format":
			details.WriteString(fmt.Sprintf("%s must be swiss, round-robin or knockout", err.Namespace()))
		case "unique":
			details.WriteString(fmt.Sprintf("%s must have unique %s values", err.Namespace(), err.Param()))
		case "min":
			if err.Kind() == reflect.Slice {
				details.WriteString(fmt.Sprintf("%s needs at least %s entries", err.Namespace(), err.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", err.Namespace(), err.Param()))
			}
		case "max":
			if err.Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", err.Namespace(), err.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", err.Namespace(), err.Param()))
			}
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", err.Namespace(), err.Tag()))
		}
	}
	return details.String()
}

// TournamentConfig converts the definition into controller settings
func (c *Tournament) TournamentConfig() (tournament.Config, error) {
	format, err := tournament.ParseFormat(c.Format)
	if err != nil {
		return tournament.Config{}, err
	}
	cfg := tournament.Config{
		Name:             c.Name,
		Format:           format,
		Rounds:           c.Rounds,
		DoubleRoundRobin: c.DoubleRoundRobin,
	}
	if c.Seed != 0 {
		cfg.Rand = rand.New(rand.NewPCG(c.Seed, c.Seed^0x9e3779b97f4a7c15))
	}
	return cfg, nil
}

// Players builds the roster in file order, which is also the seeding
func (c *Tournament) Players() []*tournament.Player {
	players := make([]*tournament.Player, 0, len(c.Engines))
	for i, e := range c.Engines {
		p := tournament.NewPlayer(e.Name, e.Path, e.Args...)
		p.Seed = i + 1
		players = append(players, p)
	}
	return players
}

// Build creates an unstarted tournament from the definition
func (c *Tournament) Build() (*tournament.Tournament, error) {
	cfg, err := c.TournamentConfig()
	if err != nil {
		return nil, err
	}
	return tournament.New(cfg, c.Players()...)
}
