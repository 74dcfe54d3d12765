package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"childcare/internal/core"
	"childcare/internal/store"
)

// Store keeps everything in process memory. It backs local runs and tests.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	centres   []core.Centre
	occupancy []core.Occupancy
	budgets   []core.BudgetLine
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewFromFiles seeds centre names from seed_centres.txt in base, one per
// line. Lines may carry the Discover id after a comma.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_centres.txt")) {
		name, apiID, _ := strings.Cut(line, ",")
		_, _ = s.EnsureCentre(context.Background(), core.Centre{
			Name:  strings.TrimSpace(name),
			APIID: strings.TrimSpace(apiID),
		})
	}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) ListCentres(_ context.Context) ([]core.Centre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Centre(nil), s.centres...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCentre(_ context.Context, id int64) (core.Centre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.centres {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Centre{}, fmt.Errorf("centre %d: %w", id, store.ErrNotFound)
}

func (s *Store) EnsureCentre(_ context.Context, c core.Centre) (core.Centre, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Centre{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.centres {
		if existing.Name != c.Name {
			continue
		}
		merged := mergeCentre(existing, c)
		s.centres[i] = merged
		return merged, nil
	}
	c.ID = s.id()
	s.centres = append(s.centres, c)
	return c, nil
}

func (s *Store) SetOverdueInvoiceAmount(_ context.Context, centreID int64, amount string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.centres {
		if s.centres[i].ID == centreID {
			s.centres[i].OverdueInvoiceAmount = amount
			return nil
		}
	}
	return fmt.Errorf("centre %d: %w", centreID, store.ErrNotFound)
}

func (s *Store) ListOccupancy(_ context.Context, monthYear string) ([]core.Occupancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Occupancy
	for _, o := range s.occupancy {
		if o.MonthYear != monthYear {
			continue
		}
		c := s.centreLocked(o.CentreID)
		o.CentreName = c.Name
		o.DiscoverAPI = c.APIID
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CentreName < out[j].CentreName })
	return out, nil
}

func (s *Store) UpsertOccupancy(_ context.Context, o core.Occupancy) (core.Occupancy, error) {
	if err := o.Validate(); err != nil {
		return core.Occupancy{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.centreLocked(o.CentreID).ID == 0 {
		return core.Occupancy{}, fmt.Errorf("centre %d: %w", o.CentreID, store.ErrNotFound)
	}
	for i, existing := range s.occupancy {
		if existing.CentreID == o.CentreID && existing.MonthYear == o.MonthYear {
			o.ID = existing.ID
			s.occupancy[i] = o
			return o, nil
		}
	}
	o.ID = s.id()
	s.occupancy = append(s.occupancy, o)
	return o, nil
}

func (s *Store) ListBudgets(_ context.Context, f store.BudgetFilter) ([]core.BudgetLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetLine
	for _, b := range s.budgets {
		c := s.centreLocked(b.CentreID)
		if f.CentreID != nil && b.CentreID != *f.CentreID {
			continue
		}
		if f.CentreName != "" && c.Name != f.CentreName {
			continue
		}
		if f.Year != 0 && b.Year != f.Year {
			continue
		}
		b.CentreName = c.Name
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].CentreName < out[j].CentreName
	})
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.BudgetLine) (core.BudgetLine, error) {
	if err := b.Validate(); err != nil {
		return core.BudgetLine{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.centreLocked(b.CentreID)
	if c.ID == 0 {
		return core.BudgetLine{}, fmt.Errorf("centre %d: %w", b.CentreID, store.ErrNotFound)
	}
	b.CentreName = c.Name
	for i, existing := range s.budgets {
		if existing.CentreID == b.CentreID && existing.Category == b.Category && existing.Year == b.Year {
			b.ID = existing.ID
			s.budgets[i] = b
			return b, nil
		}
	}
	b.ID = s.id()
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) centreLocked(id int64) core.Centre {
	for _, c := range s.centres {
		if c.ID == id {
			return c
		}
	}
	return core.Centre{}
}

func mergeCentre(dst, src core.Centre) core.Centre {
	if src.APIID != "" {
		dst.APIID = src.APIID
	}
	if src.MOENumber != "" {
		dst.MOENumber = src.MOENumber
	}
	if src.U2Licensed != 0 {
		dst.U2Licensed = src.U2Licensed
	}
	if src.TotalLicensed != 0 {
		dst.TotalLicensed = src.TotalLicensed
	}
	if src.NZBN != "" {
		dst.NZBN = src.NZBN
	}
	return dst
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
