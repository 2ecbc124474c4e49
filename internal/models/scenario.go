package models

// Slot is one ingredient role inside a scenario template
type Slot struct {
	Ingredient        string  `json:"ingredient"`
	SearchQuery       string  `json:"search_query"`
	Unit              Unit    `json:"unit"`
	QuantityPerPerson float64 `json:"quantity_per_person"`
	Required          bool    `json:"required"`
	MealRole          string  `json:"meal_component,omitempty"`
}

// ScenarioTemplate is a read-only meal template
type ScenarioTemplate struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	MealType             string `json:"meal_type"`
	EstimatedTimeMinutes *int   `json:"estimated_time_min,omitempty"`
	ServesBase           int    `json:"serves_base"`
	Slots                []Slot `json:"components"`
}

// TimeOrDefault returns the estimated cooking time, 60 minutes when unknown.
func (t *ScenarioTemplate) TimeOrDefault() int {
	if t.EstimatedTimeMinutes == nil {
		return 60
	}
	return *t.EstimatedTimeMinutes
}

// ScenarioLibraryFile is the on-disk shape of a scenario library
type ScenarioLibraryFile struct {
	Scenarios []ScenarioTemplate `json:"scenarios"`
}

// ScaledSlot is a slot with its quantity scaled to the party size
type ScaledSlot struct {
	Slot
	QuantityScaled float64 `json:"quantity_scaled"`
}

// ScaledScenario is a template scaled for a specific number of people
type ScaledScenario struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	MealType             string       `json:"meal_type"`
	EstimatedTimeMinutes int          `json:"estimated_time_min"`
	People               int          `json:"people"`
	ScaleFactor          float64      `json:"scale_factor"`
	Slots                []ScaledSlot `json:"components"`
}

// ScenarioSummary is the short description returned alongside a basket
type ScenarioSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	MealType      string  `json:"meal_type"`
	TimeMinutes   int     `json:"time_min"`
	People        int     `json:"people"`
	ScaleFactor   float64 `json:"scale_factor"`
	SlotsTotal    int     `json:"components_total"`
	SlotsRequired int     `json:"components_required"`
	SlotsOptional int     `json:"components_optional"`
}

// Summary condenses the scaled scenario for reports.
func (s *ScaledScenario) Summary() ScenarioSummary {
	summary := ScenarioSummary{
		ID:          s.ID,
		Name:        s.Name,
		MealType:    s.MealType,
		TimeMinutes: s.EstimatedTimeMinutes,
		People:      s.People,
		ScaleFactor: s.ScaleFactor,
		SlotsTotal:  len(s.Slots),
	}
	for _, slot := range s.Slots {
		if slot.Required {
			summary.SlotsRequired++
		} else {
			summary.SlotsOptional++
		}
	}
	return summary
}
