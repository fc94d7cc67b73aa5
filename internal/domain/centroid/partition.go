package centroid

import (
	"sort"
	"strings"
)

// Cluster keys that are not region discriminators.
const (
	DefaultPrimary = "mainland"
	HomeCluster    = "home"
)

// Partitioner maps a region's cluster discriminator to the marker cluster it
// belongs to. Discriminators not listed as outlying fall into the primary
// cluster; excluded ones belong to no cluster.
type Partitioner struct {
	primary  string
	outlying map[string]string
	excluded map[string]struct{}
}

// NewPartitioner builds a partitioner. outlying maps a discriminator to its
// cluster key.
func NewPartitioner(primary string, outlying map[string]string, excluded []string) Partitioner {
	p := Partitioner{
		primary:  strings.TrimSpace(primary),
		outlying: make(map[string]string, len(outlying)),
		excluded: make(map[string]struct{}, len(excluded)),
	}
	if p.primary == "" {
		p.primary = DefaultPrimary
	}
	for code, key := range outlying {
		if key = strings.TrimSpace(key); key == "" {
			key = code
		}
		p.outlying[strings.TrimSpace(code)] = key
	}
	for _, code := range excluded {
		p.excluded[strings.TrimSpace(code)] = struct{}{}
	}
	return p
}

// DefaultPartitioner splits US counties by state FIPS code: Alaska and Hawaii
// are their own clusters and Puerto Rico is left out.
func DefaultPartitioner() Partitioner {
	return NewPartitioner(DefaultPrimary, map[string]string{"02": "alaska", "15": "hawaii"}, []string{"72"})
}

// Key returns the cluster key for a discriminator and false when the region
// is excluded from markers.
func (p Partitioner) Key(discriminator string) (string, bool) {
	d := strings.TrimSpace(discriminator)
	if _, ok := p.excluded[d]; ok {
		return "", false
	}
	if key, ok := p.outlying[d]; ok {
		return key, true
	}
	return p.primary, true
}

// Primary returns the primary cluster key.
func (p Partitioner) Primary() string { return p.primary }

// Excluded returns the sorted excluded discriminators.
func (p Partitioner) Excluded() []string {
	out := make([]string, 0, len(p.excluded))
	for d := range p.excluded {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
