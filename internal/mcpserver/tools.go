package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/scenario"
)

var ErrInvalidParams = errors.New("invalid parameters")

type BuildBasketParams struct {
	MealTypes      []string `json:"meal_types,omitempty" description:"Meal types to plan: breakfast, lunch, dinner, snack (defaults to dinner)"`
	People         int      `json:"people,omitempty" description:"Number of people to feed (defaults to 2)"`
	Budget         *float64 `json:"budget,omitempty" description:"Budget in rubles (defaults to 3000)"`
	ExcludeTags    []string `json:"exclude_tags,omitempty" description:"Product tags to avoid, e.g. meat, dairy, gluten"`
	IncludeTags    []string `json:"include_tags,omitempty" description:"Product tags to prefer, e.g. vegan"`
	MaxTimeMinutes *int     `json:"max_time_min,omitempty" description:"Maximum cooking time in minutes"`
	PreferQuick    bool     `json:"prefer_quick,omitempty" description:"Prefer quick recipes"`
	PreferCheap    *bool    `json:"prefer_cheap,omitempty" description:"Prefer cheap recipes"`
	Strategy       string   `json:"strategy,omitempty" description:"Assembly strategy: scenario or sequential"`
}

type ListScenariosParams struct {
	MealType string `json:"meal_type,omitempty" description:"Only list scenarios for this meal type"`
}

type GetScenarioParams struct {
	ID     string `json:"id" description:"Scenario id"`
	People int    `json:"people,omitempty" description:"Scale quantities for this many people (defaults to 2)"`
}

// extractParams decodes the request arguments into target
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	return nil
}

func (s *Server) registerTools() {
	s.tools = map[string]toolHandler{
		"build_basket":   s.handleBuildBasket,
		"list_scenarios": s.handleListScenarios,
		"get_scenario":   s.handleGetScenario,
	}
}

// handleBuildBasket runs the basket pipeline
func (s *Server) handleBuildBasket(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params BuildBasketParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	request := models.BuildBasketRequest{
		MealTypes:      params.MealTypes,
		People:         params.People,
		Budget:         params.Budget,
		ExcludeTags:    params.ExcludeTags,
		IncludeTags:    params.IncludeTags,
		MaxTimeMinutes: params.MaxTimeMinutes,
		PreferQuick:    params.PreferQuick,
		PreferCheap:    params.PreferCheap,
		Strategy:       params.Strategy,
	}
	if err := s.validate.Struct(request); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	result, err := s.planner.Plan(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to build basket: %w", err)
	}

	return createJSONResponse(result)
}

// handleListScenarios lists the scenario library
func (s *Server) handleListScenarios(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ListScenariosParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	templates := s.library.Templates()
	if params.MealType != "" {
		templates = s.library.ByMealType(params.MealType)
	}

	summaries := make([]models.ScenarioSummary, 0, len(templates))
	for _, t := range templates {
		summaries = append(summaries, scenario.Scale(t, t.ServesBase).Summary())
	}
	return createJSONResponse(summaries)
}

// handleGetScenario returns one scenario scaled to the party size
func (s *Server) handleGetScenario(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetScenarioParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: scenario id is required", ErrInvalidParams)
	}
	if params.People <= 0 {
		params.People = 2
	}

	t, err := s.library.ByID(params.ID)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(scenario.Scale(t, params.People))
}
