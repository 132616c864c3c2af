package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Lookup for unknown persona ids.
var ErrNotFound = errors.New("persona not found")

// Persona is one configured identity. Dossier and Policy are loaded from
// the files referenced by the record and never change after Load.
type Persona struct {
	ID          string `yaml:"id" validate:"required"`
	Code        string `yaml:"code" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	PersonaType string `yaml:"persona_type" validate:"required"`
	Tagline     string `yaml:"tagline"`
	DossierFile string `yaml:"dossier_file" validate:"required"`
	PolicyFile  string `yaml:"policy_file" validate:"required"`
	APIKeyEnv   string `yaml:"api_key_env" validate:"required"`
	ModelEnv    string `yaml:"model_env"`
	Provider    string `yaml:"provider" validate:"omitempty,oneof=anthropic openai"`

	Dossier string `yaml:"-"`
	Policy  string `yaml:"-"`
}

// PublicInfo is the persona metadata safe to expose over the API.
// Dossier and policy content never leave the server.
type PublicInfo struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	PersonaType string `json:"persona_type"`
	Tagline     string `json:"tagline"`
}

// Registry is an immutable persona lookup table built once at startup.
type Registry struct {
	byID  map[string]*Persona
	order []*Persona
}

type personaFile struct {
	Personas []*Persona `yaml:"personas"`
}

// Load reads the persona list and every referenced dossier/policy file.
// expectedCount > 0 enforces an exact record count. Any failure here is
// fatal to startup; there is no partial load.
func Load(path string, expectedCount int) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona config: %w", err)
	}

	var file personaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse persona config: %w", err)
	}

	if expectedCount > 0 && len(file.Personas) != expectedCount {
		return nil, fmt.Errorf("persona config has %d records, expected %d", len(file.Personas), expectedCount)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("persona config %s contains no personas", path)
	}

	validate := validator.New()
	baseDir := filepath.Dir(path)

	reg := &Registry{byID: make(map[string]*Persona, len(file.Personas))}
	for _, p := range file.Personas {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("invalid persona record %q: %w", p.ID, err)
		}
		if _, dup := reg.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}

		dossier, err := os.ReadFile(resolve(baseDir, p.DossierFile))
		if err != nil {
			return nil, fmt.Errorf("persona %q: failed to read dossier: %w", p.ID, err)
		}
		p.Dossier = strings.TrimSpace(string(dossier))
		if p.Dossier == "" {
			return nil, fmt.Errorf("persona %q: dossier %s is empty", p.ID, p.DossierFile)
		}

		policy, err := os.ReadFile(resolve(baseDir, p.PolicyFile))
		if err != nil {
			return nil, fmt.Errorf("persona %q: failed to read policy: %w", p.ID, err)
		}
		if !json.Valid(policy) {
			return nil, fmt.Errorf("persona %q: policy %s is not valid JSON", p.ID, p.PolicyFile)
		}
		p.Policy = strings.TrimSpace(string(policy))

		reg.byID[p.ID] = p
		reg.order = append(reg.order, p)
	}

	return reg, nil
}

// Paths in persona records are relative to the persona config file.
func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func (r *Registry) Lookup(id string) (*Persona, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// All returns personas in config file order.
func (r *Registry) All() []*Persona {
	return r.order
}

// Public returns API-safe metadata for every persona, in config order.
func (r *Registry) Public() []PublicInfo {
	out := make([]PublicInfo, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, PublicInfo{
			ID:          p.ID,
			Code:        p.Code,
			Name:        p.Name,
			PersonaType: p.PersonaType,
			Tagline:     p.Tagline,
		})
	}
	return out
}
