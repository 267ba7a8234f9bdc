// Package source turns provider CSV exports into ingestion records.
//
// Each provider gets a Profile naming its timestamp column, timestamp
// layout and any OHLCV column renames. Profiles live in a YAML registry
// file validated against an embedded CUE schema before use, so a
// misconfigured registry fails at load time rather than mid-batch. A
// built-in profile covers TradingView exports.
package source

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/grayfold/archivist/internal/session"
)

//go:embed schema.cue
var profileSchema string

// Profile describes how one provider's CSV maps onto bar records.
type Profile struct {
	Name       string            `yaml:"name"`
	TimeColumn string            `yaml:"time_column"`
	TimeLayout string            `yaml:"time_layout,omitempty"`
	Zone       string            `yaml:"zone,omitempty"`
	Columns    map[string]string `yaml:"columns,omitempty"`
}

// TradingView is the built-in profile for TradingView CSV exports:
// an ISO "time" column (offset-qualified or naive in the exchange zone)
// and lowercase OHLCV columns.
var TradingView = Profile{
	Name:       "tradingview",
	TimeColumn: "time",
	TimeLayout: "2006-01-02 15:04:05",
	Zone:       session.DefaultZoneName,
}

// Registry holds profiles by name.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry creates a registry preloaded with the built-in profiles.
func NewRegistry() *Registry {
	return &Registry{profiles: map[string]Profile{
		TradingView.Name: TradingView,
	}}
}

// Lookup returns the profile registered under name.
func (r *Registry) Lookup(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("no profile registered for source %q", name)
	}
	return p, nil
}

// LoadFile reads a YAML profile registry, validates it against the profile
// schema, and merges its profiles over the registry (file entries win).
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profiles: %w", err)
	}

	if err := validateProfiles(path, data); err != nil {
		return err
	}

	var file struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse profiles %s: %w", path, err)
	}

	for _, p := range file.Profiles {
		r.profiles[p.Name] = p
	}
	return nil
}

// validateProfiles unifies the YAML document with the embedded CUE schema.
// Catches missing required fields, empty strings and unknown column names
// before any profile is used.
func validateProfiles(path string, data []byte) error {
	cuectx := cuecontext.New()

	schema := cuectx.CompileString(profileSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile profile schema: %w", err)
	}

	doc, err := cueyaml.Extract(path, data)
	if err != nil {
		return fmt.Errorf("parse profiles %s: %w", path, err)
	}
	value := cuectx.BuildFile(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("build profiles %s: %w", path, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid profiles %s: %w", path, err)
	}
	return nil
}

// zone resolves the profile's zone hint, falling back to the given default.
func (p Profile) zone(fallback *time.Location) (*time.Location, error) {
	if p.Zone == "" {
		return fallback, nil
	}
	loc, err := time.LoadLocation(p.Zone)
	if err != nil {
		return nil, fmt.Errorf("profile %s: load zone %q: %w", p.Name, p.Zone, err)
	}
	return loc, nil
}
