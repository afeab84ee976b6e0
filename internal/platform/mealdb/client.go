// Package mealdb is a read-only client for the TheMealDB JSON API.
package mealdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/goccy/go-json"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/platform/metrics"
	"recipe_hub/internal/platform/telemetry"
)

const (
	endpointCategories = "categories"
	endpointSearch     = "search"
	endpointFilter     = "filter"
	endpointLookup     = "lookup"

	maxIngredients = 20
	maxBodyBytes   = 4 << 20
)

// errCallerGone marks a fetch abandoned because the caller's context ended.
// The catalog may be healthy, so the breaker does not count it.
var errCallerGone = errors.New("caller gave up")

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport defaults to an otelhttp-wrapped http.DefaultTransport.
	Transport http.RoundTripper
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker circuitbreaker.CircuitBreaker[[]byte]
	metrics *metrics.Metrics
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = telemetry.Transport(http.DefaultTransport)
	}
	log := cfg.Logger

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout, Transport: transport},
		metrics: cfg.Metrics,
		breaker: circuitbreaker.New[[]byte](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errCallerGone)
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("recipe catalog circuit breaker state change")
			},
		}),
	}
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var resp struct {
		Categories []categoryDTO `json:"categories"`
	}
	if err := c.get(ctx, endpointCategories, "categories.php", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(resp.Categories))
	for _, dto := range resp.Categories {
		out = append(out, dto.toModel())
	}
	return out, nil
}

// Search dispatches by mode: by_ingredient uses filter.php?i=, everything
// else uses search.php?s=.
func (c *Client) Search(ctx context.Context, query string, mode model.SearchMode) ([]model.RecipeSummary, error) {
	var resp mealsResponse
	var err error
	if mode == model.SearchByIngredient {
		err = c.get(ctx, endpointFilter, "filter.php", url.Values{"i": {query}}, &resp)
	} else {
		err = c.get(ctx, endpointSearch, "search.php", url.Values{"s": {query}}, &resp)
	}
	if err != nil {
		return nil, err
	}
	return resp.summaries(), nil
}

func (c *Client) ListByCategory(ctx context.Context, category string) ([]model.RecipeSummary, error) {
	var resp mealsResponse
	if err := c.get(ctx, endpointFilter, "filter.php", url.Values{"c": {category}}, &resp); err != nil {
		return nil, err
	}
	return resp.summaries(), nil
}

// Lookup returns common.ErrNotFound when the catalog has no meal with id.
func (c *Client) Lookup(ctx context.Context, id string) (*model.Recipe, error) {
	var resp mealsResponse
	if err := c.get(ctx, endpointLookup, "lookup.php", url.Values{"i": {id}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Meals) == 0 {
		return nil, fmt.Errorf("recipe %s: %w", id, common.ErrNotFound)
	}
	recipe := resp.Meals[0].toRecipe()
	return &recipe, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, dst any) error {
	body, err := c.breaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		body, err := c.fetch(ctx, path, params)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return body, err
	})
	if err == nil {
		if derr := json.Unmarshal(body, dst); derr != nil {
			err = fmt.Errorf("decode response: %w", derr)
		}
	}
	c.metrics.ObserveUpstream(endpoint, err)
	if err != nil {
		return fmt.Errorf("mealdb %s: %w: %w", endpoint, common.ErrUpstream, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	return body, nil
}

type categoryDTO struct {
	ID          string `json:"idCategory"`
	Name        string `json:"strCategory"`
	Thumbnail   string `json:"strCategoryThumb"`
	Description string `json:"strCategoryDescription"`
}

func (d categoryDTO) toModel() model.Category {
	return model.Category{ID: d.ID, Name: d.Name, Thumbnail: d.Thumbnail, Description: d.Description}
}

// mealsResponse covers search, filter and lookup. A null or missing "meals"
// decodes to an empty slice.
type mealsResponse struct {
	Meals []mealDTO `json:"meals"`
}

func (r mealsResponse) summaries() []model.RecipeSummary {
	out := make([]model.RecipeSummary, 0, len(r.Meals))
	for _, m := range r.Meals {
		out = append(out, model.RecipeSummary{
			ID:        m.str("idMeal"),
			Name:      m.str("strMeal"),
			Slug:      slug.Make(m.str("strMeal")),
			Thumbnail: m.str("strMealThumb"),
		})
	}
	return out
}

// mealDTO is kept as a map because ingredients arrive as strIngredient1..20
// and strMeasure1..20 with nulls and blanks mixed in.
type mealDTO map[string]*string

func (m mealDTO) str(key string) string {
	if v := m[key]; v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

func (m mealDTO) toRecipe() model.Recipe {
	name := m.str("strMeal")
	recipe := model.Recipe{
		ID:           m.str("idMeal"),
		Name:         name,
		Slug:         slug.Make(name),
		Category:     m.str("strCategory"),
		Area:         m.str("strArea"),
		Instructions: m.str("strInstructions"),
		Thumbnail:    m.str("strMealThumb"),
		Tags:         []string{},
		YouTube:      m.str("strYoutube"),
		Source:       m.str("strSource"),
		Ingredients:  []model.Ingredient{},
	}
	for _, tag := range strings.Split(m.str("strTags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			recipe.Tags = append(recipe.Tags, tag)
		}
	}
	for i := 1; i <= maxIngredients; i++ {
		ingredient := m.str(fmt.Sprintf("strIngredient%d", i))
		if ingredient == "" {
			continue
		}
		recipe.Ingredients = append(recipe.Ingredients, model.Ingredient{
			Name:    ingredient,
			Measure: m.str(fmt.Sprintf("strMeasure%d", i)),
		})
	}
	return recipe
}
