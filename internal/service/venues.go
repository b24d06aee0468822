package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/octobees/tablemate/internal/dto"
	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/repository"
	"github.com/octobees/tablemate/internal/service/ranking"
)

const defaultRankTopK = 5

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

// Error implements the error interface.
func (e CSVValidationError) Error() string {
	return e.Message
}

// UploadSummary reports how many rows were inserted or updated during import.
type UploadSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
}

// Catalogue is the in-memory venue snapshot every conversation ranks against.
// The slice handed out by Venues must be treated as read-only.
type Catalogue struct {
	mu     sync.RWMutex
	venues []entity.Venue
}

// NewCatalogue builds a catalogue from an initial venue list.
func NewCatalogue(venues []entity.Venue) *Catalogue {
	return &Catalogue{venues: venues}
}

// Venues returns the current snapshot.
func (c *Catalogue) Venues() []entity.Venue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.venues
}

// Replace swaps in a new snapshot.
func (c *Catalogue) Replace(venues []entity.Venue) {
	c.mu.Lock()
	c.venues = venues
	c.mu.Unlock()
}

// Len returns the number of venues in the snapshot.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.venues)
}

// VenuesService exposes read/write operations for the venue catalogue.
type VenuesService struct {
	repo      repository.VenuesRepository
	catalogue *Catalogue
}

// NewVenuesService creates a new instance of VenuesService. repo may be nil,
// in which case imports only update the in-memory catalogue.
func NewVenuesService(repo repository.VenuesRepository, catalogue *Catalogue) *VenuesService {
	if catalogue == nil {
		catalogue = NewCatalogue(nil)
	}
	return &VenuesService{repo: repo, catalogue: catalogue}
}

// Catalogue returns the snapshot the service keeps current.
func (s *VenuesService) Catalogue() *Catalogue {
	return s.catalogue
}

// List returns venues respecting pagination defaults.
func (s *VenuesService) List(ctx context.Context, filter dto.VenueFilter) ([]entity.Venue, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
	if s.repo == nil {
		return pageVenues(s.catalogue.Venues(), filter), nil
	}
	return s.repo.List(ctx, filter)
}

// Refresh reloads the catalogue snapshot from the repository.
func (s *VenuesService) Refresh(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	venues, err := s.repo.All(ctx)
	if err != nil {
		return err
	}
	s.catalogue.Replace(venues)
	return nil
}

// ImportCSV ingests venues from a CSV reader, upserting by id, and then
// refreshes the catalogue.
func (s *VenuesService) ImportCSV(ctx context.Context, r io.Reader) (UploadSummary, error) {
	venues, err := ParseVenuesCSV(r)
	if err != nil {
		return UploadSummary{}, err
	}

	if s.repo == nil {
		s.catalogue.Replace(venues)
		return UploadSummary{Inserted: len(venues), Total: len(venues)}, nil
	}

	result, err := s.repo.BulkUpsert(ctx, venues)
	if err != nil {
		return UploadSummary{}, err
	}
	if err := s.Refresh(ctx); err != nil {
		return UploadSummary{}, fmt.Errorf("refresh catalogue: %w", err)
	}

	return UploadSummary{
		Inserted: result.Inserted,
		Updated:  result.Updated,
		Total:    result.Total,
	}, nil
}

// Rank runs the ranking directly against the catalogue without a conversation.
func (s *VenuesService) Rank(req dto.RankRequest) []ranking.Result {
	prefs := entity.UserPreferences{
		City:    strings.TrimSpace(req.City),
		Cuisine: strings.ToLower(strings.TrimSpace(req.Cuisine)),
	}
	setNeed(&prefs, entity.AccessWheelchair, req.Accessibility.Wheelchair)
	setNeed(&prefs, entity.AccessStepFree, req.Accessibility.StepFree)
	setNeed(&prefs, entity.AccessRestroom, req.Accessibility.Restroom)

	topK := req.TopK
	if topK <= 0 {
		topK = defaultRankTopK
	}
	return ranking.FilterAndRank(s.catalogue.Venues(), prefs, topK)
}

func setNeed(prefs *entity.UserPreferences, flag entity.AccessFlag, value *bool) {
	if value != nil {
		prefs.Accessibility.Set(flag, *value)
	}
}

func pageVenues(venues []entity.Venue, filter dto.VenueFilter) []entity.Venue {
	var matched []entity.Venue
	for _, v := range venues {
		if filter.City != "" && !strings.EqualFold(v.City, filter.City) {
			continue
		}
		if filter.Cuisine != "" && !strings.EqualFold(v.Cuisine, filter.Cuisine) {
			continue
		}
		if filter.MinRating != nil && v.Rating < *filter.MinRating {
			continue
		}
		matched = append(matched, v)
	}

	start := (filter.Page - 1) * filter.PerPage
	if start >= len(matched) {
		return nil
	}
	end := start + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end]
}

// LoadVenuesFile parses a venue CSV from disk.
func LoadVenuesFile(path string) ([]entity.Venue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ParseVenuesCSV(f)
}

var requiredCSVHeaders = []string{"id", "name", "city", "cuisine", "price", "rating"}

var accessColumns = map[entity.AccessFlag]string{
	entity.AccessWheelchair: "access_wheelchair",
	entity.AccessStepFree:   "access_step_free",
	entity.AccessRestroom:   "access_restroom",
}

var truthyTokens = map[string]struct{}{"true": {}, "1": {}, "yes": {}, "y": {}, "t": {}}

// ParseVenuesCSV reads a header-indexed venue CSV. Rows without id or name
// are skipped; a bad rating or rating_count fails the whole file.
func ParseVenuesCSV(r io.Reader) ([]entity.Venue, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, CSVValidationError{Message: "csv file is empty"}
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index, valErr := buildHeaderIndex(header)
	if valErr != nil {
		return nil, valErr
	}

	var (
		venues []entity.Venue
		rowNum = 1
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		rowNum++
		col := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		id := col("id")
		name := col("name")
		if id == "" || name == "" {
			continue
		}

		rating, parseErr := parseOptionalFloat(col("rating"))
		if parseErr != nil {
			return nil, CSVValidationError{Message: fmt.Sprintf("invalid rating value on row %d", rowNum)}
		}
		count, parseCountErr := parseOptionalInt(col("rating_count"))
		if parseCountErr != nil {
			return nil, CSVValidationError{Message: fmt.Sprintf("invalid rating_count value on row %d", rowNum)}
		}

		v := entity.Venue{
			ID:          id,
			Name:        name,
			City:        col("city"),
			Cuisine:     col("cuisine"),
			Price:       col("price"),
			RatingCount: count,
		}
		if rating != nil {
			v.Rating = *rating
		}
		v.AccessWheelchair = parseFlag(col(accessColumns[entity.AccessWheelchair]))
		v.AccessStepFree = parseFlag(col(accessColumns[entity.AccessStepFree]))
		v.AccessRestroom = parseFlag(col(accessColumns[entity.AccessRestroom]))

		venues = append(venues, v)
	}

	return venues, nil
}

func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	missing := make([]string, 0)
	for _, required := range requiredCSVHeaders {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return index, nil
}

// parseFlag treats anything outside the truthy tokens as false.
func parseFlag(value string) bool {
	_, ok := truthyTokens[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

func parseOptionalFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite value %q", value)
	}
	return &f, nil
}

func parseOptionalInt(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
