package model

import (
	"fmt"
	"strings"

	"github.com/okian/territory/internal/domain/geo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Team is a competing entity with a fixed home location.
type Team struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name,omitempty" yaml:"name"`
	ShortName  string     `json:"short_name,omitempty" yaml:"short_name"`
	FullName   string     `json:"full_name,omitempty" yaml:"full_name"`
	Conference string     `json:"conference,omitempty" yaml:"conference"`
	Home       *geo.Point `json:"home,omitempty" yaml:"home"`
	Colors     []string   `json:"colors,omitempty" yaml:"colors"`
	LogoURL    string     `json:"logo_url,omitempty" yaml:"logo_url"`
}

// DisplayName picks the first non-empty of short name, name and full name,
// falling back to a title-cased id.
func (t Team) DisplayName() string {
	for _, s := range []string{t.ShortName, t.Name, t.FullName} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(t.ID))
}

// Validate checks that the team can take part in baseline assignment.
func (t Team) Validate() error {
	if t.Home == nil || !t.Home.Valid() {
		return fmt.Errorf("%w: %s", ErrMissingHome, t.ID)
	}
	return nil
}

// IndexTeams maps teams by id, rejecting duplicates.
func IndexTeams(teams []Team) (map[string]Team, error) {
	out := make(map[string]Team, len(teams))
	for _, t := range teams {
		if _, ok := out[t.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTeam, t.ID)
		}
		out[t.ID] = t
	}
	return out, nil
}
