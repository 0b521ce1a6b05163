package dynamock

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/nisimpson/dynacrud"
	"gopkg.in/yaml.v3"
)

// Fixture maps logical table names to the attribute sets of the records to seed.
// JSON documents are valid YAML, so fixtures may be written in either format:
//
//	countries:
//	  - {id: can, name: Canada, countryCode: CAN}
//	  - {id: mex, name: Mexico, countryCode: MEX}
type Fixture map[string][]dynacrud.Attributes

// ParseFixture decodes a YAML or JSON fixture document.
func ParseFixture(r io.Reader) (Fixture, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return fx, nil
}

// Seeder writes fixture records through a Service, so defaults, generators and
// validation apply exactly as they do for application writes.
type Seeder struct {
	svc *dynacrud.Service
}

// NewSeeder creates a seeder writing through svc.
func NewSeeder(svc *dynacrud.Service) *Seeder {
	return &Seeder{svc: svc}
}

// Seed creates every record of fx. Tables are seeded in name order and records in
// document order. It returns the created records by table and stops at the first
// failure.
func (s *Seeder) Seed(ctx context.Context, fx Fixture) (map[string][]*dynacrud.Record, error) {
	tables := make([]string, 0, len(fx))
	for table := range fx {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	seeded := make(map[string][]*dynacrud.Record, len(fx))
	for _, table := range tables {
		for i, attrs := range fx[table] {
			rec, err := s.svc.Create(ctx, table, attrs)
			if err != nil {
				return seeded, fmt.Errorf("failed to seed %s[%d]: %w", table, i, err)
			}
			seeded[table] = append(seeded[table], rec)
		}
	}
	return seeded, nil
}

// SeedFrom parses a fixture from r and seeds it. It returns the number of records
// created.
func (s *Seeder) SeedFrom(ctx context.Context, r io.Reader) (int, error) {
	fx, err := ParseFixture(r)
	if err != nil {
		return 0, err
	}
	seeded, err := s.Seed(ctx, fx)
	count := 0
	for _, records := range seeded {
		count += len(records)
	}
	return count, err
}
