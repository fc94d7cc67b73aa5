package source

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/okian/territory/internal/domain/geo"
	"github.com/okian/territory/internal/domain/model"
)

// teamRow accepts both a nested home point and flat lat/lon fields.
type teamRow struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	ShortName  string     `json:"short_name" yaml:"short_name"`
	FullName   string     `json:"full_name" yaml:"full_name"`
	School     string     `json:"school" yaml:"school"`
	Conference string     `json:"conference" yaml:"conference"`
	Home       *geo.Point `json:"home" yaml:"home"`
	Lat        *float64   `json:"lat" yaml:"lat"`
	Lon        *float64   `json:"lon" yaml:"lon"`
	Colors     []string   `json:"colors" yaml:"colors"`
	LogoURL    string     `json:"logo_url" yaml:"logo_url"`
}

func (r teamRow) team() model.Team {
	t := model.Team{
		ID:         strings.TrimSpace(r.ID),
		Name:       r.Name,
		ShortName:  r.ShortName,
		FullName:   r.FullName,
		Conference: r.Conference,
		Home:       r.Home,
		Colors:     r.Colors,
		LogoURL:    r.LogoURL,
	}
	if t.ID == "" {
		t.ID = Slug(r.School)
	}
	if t.ShortName == "" {
		t.ShortName = r.School
	}
	if t.Home == nil && r.Lat != nil && r.Lon != nil {
		t.Home = &geo.Point{Lat: *r.Lat, Lon: *r.Lon}
	}
	return t
}

// ParseTeams decodes a team table. The format is chosen by the extension of
// name: .yaml, .yml, .json or .csv.
func ParseTeams(name string, raw []byte) ([]model.Team, error) {
	var rows []teamRow
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case ".csv":
		return parseTeamsCSV(raw)
	default:
		return nil, fmt.Errorf("%w: teams file %q", ErrUnsupportedFormat, ext)
	}

	out := make([]model.Team, 0, len(rows))
	for i, row := range rows {
		t := row.team()
		if t.ID == "" {
			return nil, fmt.Errorf("%w: team %d has no id", ErrMalformed, i)
		}
		out = append(out, t)
	}
	return out, nil
}

// parseTeamsCSV reads the School, Team_Name, Latitude, Longitude table.
// Conference, Logo and Id columns are optional.
func parseTeamsCSV(raw []byte) ([]model.Team, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte("\ufeff"))))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: csv header: %v", ErrMalformed, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"school", "latitude", "longitude"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: csv is missing column %q", ErrMalformed, required)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []model.Team
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %v", ErrMalformed, line, err)
		}
		school := field(rec, "school")
		lat, latErr := strconv.ParseFloat(field(rec, "latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field(rec, "longitude"), 64)
		t := model.Team{
			ID:         field(rec, "id"),
			Name:       field(rec, "team_name"),
			ShortName:  school,
			Conference: field(rec, "conference"),
			LogoURL:    field(rec, "logo"),
		}
		if t.ID == "" {
			t.ID = Slug(school)
		}
		if t.ID == "" {
			return nil, fmt.Errorf("%w: csv line %d has no school", ErrMalformed, line)
		}
		if latErr == nil && lonErr == nil {
			t.Home = &geo.Point{Lat: lat, Lon: lon}
		}
		if t.Name != "" && school != "" {
			t.FullName = school + " " + t.Name
		}
		out = append(out, t)
	}
	return out, nil
}

// Slug derives a team id from a school name: lower case, spaces to hyphens,
// apostrophes dropped.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "'", "")
	return strings.Join(strings.Fields(s), "-")
}
