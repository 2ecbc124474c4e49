package scenario

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/foxxcyber/meal-basket/internal/models"
)

var (
	ErrScenarioNotFound  = errors.New("scenario not found")
	ErrEmptyLibrary      = errors.New("scenario library is empty")
	ErrDuplicateScenario = errors.New("duplicate scenario id")
	ErrInvalidScenario   = errors.New("invalid scenario")
)

//go:embed data/scenarios.json
var defaultLibrary []byte

// ObjectSource reads objects from blob storage
type ObjectSource interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// Library holds the read-only scenario templates. It is safe for concurrent
// use because it is never modified after construction.
type Library struct {
	templates []models.ScenarioTemplate
	byID      map[string]int
}

// NewLibrary validates templates and builds a library.
func NewLibrary(templates []models.ScenarioTemplate) (*Library, error) {
	if len(templates) == 0 {
		return nil, ErrEmptyLibrary
	}

	lib := &Library{
		templates: make([]models.ScenarioTemplate, len(templates)),
		byID:      make(map[string]int, len(templates)),
	}
	copy(lib.templates, templates)

	for i, t := range lib.templates {
		if err := validateTemplate(t); err != nil {
			return nil, err
		}
		if _, ok := lib.byID[t.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScenario, t.ID)
		}
		lib.byID[t.ID] = i
	}

	return lib, nil
}

// Parse decodes a library from its JSON form.
func Parse(r io.Reader) (*Library, error) {
	var file models.ScenarioLibraryFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("unable to decode scenario library: %w", err)
	}
	return NewLibrary(file.Scenarios)
}

// Default returns the library compiled into the binary.
func Default() (*Library, error) {
	var file models.ScenarioLibraryFile
	if err := json.Unmarshal(defaultLibrary, &file); err != nil {
		return nil, fmt.Errorf("unable to decode built-in scenarios: %w", err)
	}
	return NewLibrary(file.Scenarios)
}

// LoadFile reads a library from a JSON file.
func LoadFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open scenario library: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// LoadObject reads a library from object storage.
func LoadObject(ctx context.Context, src ObjectSource, key string) (*Library, error) {
	rc, err := src.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("unable to download scenario library: %w", err)
	}
	defer rc.Close()
	return Parse(rc)
}

// Templates returns a copy of all templates in library order.
func (l *Library) Templates() []models.ScenarioTemplate {
	out := make([]models.ScenarioTemplate, len(l.templates))
	copy(out, l.templates)
	return out
}

// ByMealType returns templates for one meal type, or all when mealType is empty.
func (l *Library) ByMealType(mealType string) []models.ScenarioTemplate {
	if mealType == "" {
		return l.Templates()
	}
	var out []models.ScenarioTemplate
	for _, t := range l.templates {
		if t.MealType == mealType {
			out = append(out, t)
		}
	}
	return out
}

// ByID looks up a template.
func (l *Library) ByID(id string) (models.ScenarioTemplate, error) {
	i, ok := l.byID[id]
	if !ok {
		return models.ScenarioTemplate{}, ErrScenarioNotFound
	}
	return l.templates[i], nil
}

// Len returns the number of templates.
func (l *Library) Len() int {
	return len(l.templates)
}

func validateTemplate(t models.ScenarioTemplate) error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidScenario)
	}
	if t.MealType == "" {
		return fmt.Errorf("%w: %s has no meal type", ErrInvalidScenario, t.ID)
	}
	if len(t.Slots) == 0 {
		return fmt.Errorf("%w: %s has no components", ErrInvalidScenario, t.ID)
	}
	for _, slot := range t.Slots {
		if slot.Ingredient == "" || slot.QuantityPerPerson <= 0 {
			return fmt.Errorf("%w: %s has a malformed component", ErrInvalidScenario, t.ID)
		}
	}
	return nil
}
