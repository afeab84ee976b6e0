package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository/memory"
	"recipe_hub/internal/platform/mealdb"
	"recipe_hub/internal/platform/metrics"
	"recipe_hub/internal/platform/session"
)

const lookupTeriyaki = `{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole","strCategory":"Chicken",
	"strMealThumb":"https://img/teriyaki.jpg","strIngredient1":"soy sauce","strMeasure1":"3/4 cup"}]}`

func fakeMealDB(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/categories.php":
			_, _ = io.WriteString(w, `{"categories":[{"idCategory":"1","strCategory":"Chicken"}]}`)
		case r.URL.Path == "/lookup.php" && r.URL.Query().Get("i") == "52772":
			_, _ = io.WriteString(w, lookupTeriyaki)
		case r.URL.Path == "/lookup.php" && r.URL.Query().Get("i") == "99999":
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		default:
			_, _ = io.WriteString(w, `{"meals":null}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// countingRatings records whether the handler reached the store.
type countingRatings struct {
	*memory.RatingRepository
	upserts atomic.Int32
}

func (c *countingRatings) Upsert(ctx context.Context, r *model.Rating) error {
	c.upserts.Add(1)
	return c.RatingRepository.Upsert(ctx, r)
}

// flakySessions fails Delete on demand.
type flakySessions struct {
	*session.MemoryStore
	failDelete atomic.Bool
}

func (f *flakySessions) Delete(ctx context.Context, id string) error {
	if f.failDelete.Load() {
		return common.StoreErrorf("flaky.Delete", errors.New("redis down"))
	}
	return f.MemoryStore.Delete(ctx, id)
}

type testEnv struct {
	srv       *httptest.Server
	client    *http.Client
	ratings   *countingRatings
	favorites *memory.FavoriteRepository
	sessions  *flakySessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	upstream := fakeMealDB(t)
	m := metrics.New()

	users := memory.NewUserRepository()
	env := &testEnv{
		ratings:   &countingRatings{RatingRepository: memory.NewRatingRepository(users)},
		favorites: memory.NewFavoriteRepository(),
		sessions:  &flakySessions{MemoryStore: session.NewMemoryStore()},
	}
	catalog := mealdb.NewClient(mealdb.Config{
		BaseURL:   upstream.URL,
		Timeout:   100 * time.Millisecond,
		Transport: http.DefaultTransport,
		Metrics:   m,
		Logger:    zerolog.Nop(),
	})

	router := NewRouter(RouterDeps{
		Auth:           service.NewAuthService(users, m),
		Sessions:       service.NewSessionService(env.sessions, security.NewTokenAuth([]byte("test-secret")), time.Hour),
		Interactions:   service.NewInteractionService(catalog, env.ratings, env.favorites, zerolog.Nop(), m),
		Metrics:        m,
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"http://localhost:3000"},
		LoginRateLimit: 100,
	})
	env.srv = httptest.NewServer(router)
	t.Cleanup(env.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return env
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get("Location"))
}

func (e *testEnv) registerAndLogin(t *testing.T, username, password string) {
	t.Helper()
	requireRedirect(t, e.postForm(t, "/register", url.Values{
		"username": {username}, "email": {username + "@example.com"},
		"password": {password}, "confirmPassword": {password},
	}), "/login")
	requireRedirect(t, e.postForm(t, "/login", url.Values{
		"username": {username}, "password": {password},
	}), "/")
}

func TestUnauthenticatedRateNeverReachesStore(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/recipe/52772/rate", url.Values{"rating": {"4"}})
	requireRedirect(t, resp, "/login")
	assert.EqualValues(t, 0, env.ratings.upserts.Load())
	assert.Equal(t, 0, env.ratings.Len())

	requireRedirect(t, env.postForm(t, "/recipe/52772/favorite", url.Values{"recipe_name": {"x"}}), "/login")
	requireRedirect(t, env.get(t, "/profile"), "/login")
}

func TestAliceScenario(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "alice", "Abcdef1!")

	requireRedirect(t, env.postForm(t, "/recipe/52772/rate", url.Values{"rating": {"4"}, "comment": {"Lovely"}}), "/recipe/52772")
	assert.Equal(t, 1, env.ratings.Len())

	profile := decode[service.ProfileView](t, env.get(t, "/profile"))
	assert.Equal(t, "alice", profile.User.Username)
	assert.Empty(t, profile.Favorites)

	resp := env.postForm(t, "/recipe/52772/favorite", url.Values{
		"recipe_name":      {"Teriyaki Chicken Casserole"},
		"recipe_thumbnail": {"https://img/teriyaki.jpg"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile = decode[service.ProfileView](t, resp)
	require.Len(t, profile.Favorites, 1)
	assert.Equal(t, "Teriyaki Chicken Casserole", profile.Favorites[0].RecipeName)

	favorites, err := env.favorites.ListByUser(context.Background(), profile.User.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Teriyaki Chicken Casserole", favorites[0].RecipeName)

	resp = env.get(t, "/recipe/52772-teriyaki-chicken-casserole")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode[service.RecipeView](t, resp)
	require.NotNil(t, detail.Recipe)
	assert.Equal(t, "Teriyaki Chicken Casserole", detail.Recipe.Name)
	require.Len(t, detail.Ratings, 1)
	assert.Equal(t, "alice", detail.Ratings[0].Username)
	require.NotNil(t, detail.UserRating)
	assert.Equal(t, 4, detail.UserRating.Score)

	// Re-rating replaces the score.
	requireRedirect(t, env.postForm(t, "/recipe/52772/rate", url.Values{"rating": {"2"}}), "/recipe/52772")
	assert.Equal(t, 1, env.ratings.Len())

	requireRedirect(t, env.get(t, "/logout"), "/login")
	requireRedirect(t, env.get(t, "/profile"), "/login")
}

func TestRecipeLookupTimeoutIsDegradedView(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/recipe/99999")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	v, present := raw["recipe"]
	require.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, "Failed to load recipe", raw["error"])
	assert.Equal(t, []any{}, raw["ratings"])
}

func TestRecipeNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/recipe/1")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Recipe not found", decode[service.RecipeView](t, resp).Error)
}

func TestBrowseRoutes(t *testing.T) {
	env := newTestEnv(t)

	categories := decode[service.CategoriesView](t, env.get(t, "/"))
	require.Len(t, categories.Categories, 1)
	assert.Equal(t, "Chicken", categories.Categories[0].Name)

	search := decode[service.SearchView](t, env.get(t, "/search?query=nothing&type=ingredient"))
	assert.Equal(t, model.SearchByIngredient, search.Type)
	assert.Empty(t, search.Meals)
	assert.Empty(t, search.Error)

	category := decode[service.CategoryView](t, env.get(t, "/category/Chicken"))
	assert.Equal(t, "Chicken", category.Category)
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "alice", "Abcdef1!")
	requireRedirect(t, env.get(t, "/logout"), "/login")

	for _, form := range []url.Values{
		{"username": {"alice"}, "password": {"wrong-Pass1!"}},
		{"username": {"nobody"}, "password": {"Abcdef1!"}},
	} {
		resp := env.postForm(t, "/login", form)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid username or password", decode[handlerFormView](t, resp).Error)
	}
}

type handlerFormView struct {
	Error string `json:"error"`
}

func TestRegisterValidationMessages(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/register", url.Values{
		"username": {"alice"}, "email": {"a@example.com"}, "password": {"abc"}, "confirmPassword": {"abc"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(decode[handlerFormView](t, resp).Error, "Password must be at least 8 characters"))

	resp = env.postForm(t, "/register", url.Values{
		"username": {"alice"}, "email": {"a@example.com"}, "password": {"Abcdef1!"}, "confirmPassword": {"Abcdef1?"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Passwords do not match", decode[handlerFormView](t, resp).Error)

	requireRedirect(t, env.postForm(t, "/register", url.Values{
		"username": {"alice"}, "email": {"a@example.com"}, "password": {"Abcdef1!"}, "confirmPassword": {"Abcdef1!"},
	}), "/login")

	resp = env.postForm(t, "/register", url.Values{
		"username": {"alice"}, "email": {"b@example.com"}, "password": {"Abcdef1!"}, "confirmPassword": {"Abcdef1!"},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Username or email already exists", decode[handlerFormView](t, resp).Error)
}

func TestRegisterAcceptsJSON(t *testing.T) {
	env := newTestEnv(t)

	body := `{"username":"carol","email":"c@example.com","password":"Abcdef1!","confirmPassword":"Abcdef1!"}`
	resp, err := env.client.Post(env.srv.URL+"/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	requireRedirect(t, resp, "/login")
}

func TestLoginTrimsUsernameLikeRegister(t *testing.T) {
	env := newTestEnv(t)

	requireRedirect(t, env.postForm(t, "/register", url.Values{
		"username": {" dave "}, "email": {"d@example.com"},
		"password": {"Abcdef1!"}, "confirmPassword": {"Abcdef1!"},
	}), "/login")
	requireRedirect(t, env.postForm(t, "/login", url.Values{
		"username": {" dave "}, "password": {"Abcdef1!"},
	}), "/")
	requireRedirect(t, env.get(t, "/login"), "/")
}

func TestAuthenticatedUserIsRedirectedFromLogin(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "alice", "Abcdef1!")

	requireRedirect(t, env.get(t, "/login"), "/")
	requireRedirect(t, env.get(t, "/register"), "/")
}

func TestInvalidRatingRedirectsWithoutWriting(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "alice", "Abcdef1!")

	requireRedirect(t, env.postForm(t, "/recipe/52772/rate", url.Values{"rating": {"7"}}), "/recipe/52772")
	requireRedirect(t, env.postForm(t, "/recipe/52772/rate", url.Values{"rating": {"four"}}), "/recipe/52772")
	assert.Equal(t, 0, env.ratings.Len())
}

func TestLogoutStoreFailureStillClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "alice", "Abcdef1!")
	env.sessions.failDelete.Store(true)

	resp := env.get(t, "/logout")
	requireRedirect(t, resp, "/")

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == security.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie must be cleared")
	requireRedirect(t, env.get(t, "/profile"), "/login")
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))

	env.get(t, "/")
	resp = env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `recipe_hub_upstream_requests_total{endpoint="categories",outcome="ok"} 1`)
}
