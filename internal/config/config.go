// Package config loads CLI connection profiles from a YAML or JSON file and
// the PETROVISOR_* environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"petrovisor/pkg/petrovisor"
)

// DefaultFileName is the profile file looked up in the home directory.
const DefaultFileName = ".petrovisor.yaml"

// DefaultProfile is used when neither the flag nor the file names one.
const DefaultProfile = "default"

// Profile is one set of connection settings.
type Profile struct {
	DiscoveryURL string `json:"discovery_url,omitempty" yaml:"discovery_url,omitempty"`
	API          string `json:"api,omitempty" yaml:"api,omitempty"`
	Workspace    string `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Key          string `json:"key,omitempty" yaml:"key,omitempty"`
	Username     string `json:"username,omitempty" yaml:"username,omitempty"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty"`
	Token        string `json:"token,omitempty" yaml:"token,omitempty"`
	// Errors is an error policy name: raise, coerce or ignore.
	Errors  string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "5m"
	HTTP2   bool   `json:"http2,omitempty" yaml:"http2,omitempty"`
}

// File is the parsed profile file.
type File struct {
	// Default names the profile used when none is selected.
	Default  string             `json:"default,omitempty" yaml:"default,omitempty"`
	Profiles map[string]Profile `json:"profiles" yaml:"profiles"`
}

// ErrNoProfile is returned when the selected profile is not in the file.
var ErrNoProfile = errors.New("config: profile not found")

// DefaultPath returns ~/.petrovisor.yaml, or "" if the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultFileName)
}

// LoadFromPath reads a profile file (YAML or JSON).
// Format is detected by extension (.yaml/.yml → YAML, .json → JSON) or by content (first non-whitespace char).
func LoadFromPath(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses a profile file from bytes. ext is the file extension for format hint; empty = detect from content.
func Load(data []byte, ext string) (*File, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		ext = ".json"
	}
	var f File
	if ext == ".json" {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &f, nil
}

// Profile returns the named profile. An empty name selects the file's
// default, then "default". A nil file yields an empty profile.
func (f *File) Profile(name string) (Profile, error) {
	if f == nil || len(f.Profiles) == 0 {
		if name != "" && name != DefaultProfile {
			return Profile{}, fmt.Errorf("%w: %q", ErrNoProfile, name)
		}
		return Profile{}, nil
	}
	if name == "" {
		name = f.Default
	}
	if name == "" {
		name = DefaultProfile
	}
	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (have %s)", ErrNoProfile, name, strings.Join(f.Names(), ", "))
	}
	return p, nil
}

// Names returns the sorted profile names.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Profiles))
	for n := range f.Profiles {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// env maps variable suffixes to profile fields.
var env = []struct {
	name  string
	field func(*Profile) *string
}{
	{"DISCOVERY_URL", func(p *Profile) *string { return &p.DiscoveryURL }},
	{"API", func(p *Profile) *string { return &p.API }},
	{"WORKSPACE", func(p *Profile) *string { return &p.Workspace }},
	{"KEY", func(p *Profile) *string { return &p.Key }},
	{"USERNAME", func(p *Profile) *string { return &p.Username }},
	{"PASSWORD", func(p *Profile) *string { return &p.Password }},
	{"TOKEN", func(p *Profile) *string { return &p.Token }},
}

// ApplyEnv overrides p with the non-empty PETROVISOR_* variables returned by
// lookup, which is usually os.LookupEnv.
func (p Profile) ApplyEnv(lookup func(string) (string, bool)) Profile {
	for _, e := range env {
		if v, ok := lookup("PETROVISOR_" + e.name); ok && v != "" {
			*e.field(&p) = v
		}
	}
	return p
}

// ClientOptions converts the profile into client options. Credentials are
// passed in order token, key, username and password; the client picks the
// first usable one.
func (p Profile) ClientOptions() ([]petrovisor.Option, error) {
	var opts []petrovisor.Option
	add := func(v string, o func(string) petrovisor.Option) {
		if v != "" {
			opts = append(opts, o(v))
		}
	}
	add(p.DiscoveryURL, petrovisor.WithDiscoveryURL)
	add(p.API, petrovisor.WithAPI)
	add(p.Token, petrovisor.WithToken)
	add(p.Key, petrovisor.WithKey)
	if p.Username != "" || p.Password != "" {
		opts = append(opts, petrovisor.WithCredentials(p.Username, p.Password))
	}
	if p.Errors != "" {
		policy, err := petrovisor.ParseErrorPolicy(p.Errors)
		if err != nil {
			return nil, err
		}
		opts = append(opts, petrovisor.WithErrorPolicy(policy))
	}
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: timeout: %w", err)
		}
		opts = append(opts, petrovisor.WithTimeout(d))
	}
	if p.HTTP2 {
		opts = append(opts, petrovisor.WithHTTP2())
	}
	return opts, nil
}
