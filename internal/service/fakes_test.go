package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/rating"
	"github.com/sakif/recipe-share/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory fakes. Each has an err field per operation group to
// simulate storage failures.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu         sync.Mutex
	users      map[string]*model.User
	byGoogleID map[string]*model.User
	nextID     int

	createErr error
	getErr    error
	// conflictOnce makes the next CreateUser act as if a concurrent login
	// inserted the same account first.
	conflictOnce bool
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:      make(map[string]*model.User),
		byGoogleID: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) insert(u *model.User) {
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	u.IsAdmin = len(f.users) == 0
	stored := *u
	f.users[u.ID] = &stored
	f.byGoogleID[u.GoogleID] = &stored
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.conflictOnce {
		f.conflictOnce = false
		winner := *u
		f.insert(&winner)
		return apperror.Conflict("user", u.GoogleID)
	}
	if _, ok := f.byGoogleID[u.GoogleID]; ok {
		return apperror.Conflict("user", u.GoogleID)
	}
	f.insert(u)
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) GetUserByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byGoogleID[googleID]
	if !ok {
		return nil, apperror.NotFound("user", googleID)
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) CountUsers(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeUserRepo) RecentUsers(_ context.Context, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for i := f.nextID; i > 0 && len(out) < limit; i-- {
		if u, ok := f.users[fmt.Sprintf("user-%d", i)]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

// fakeRecipeRepo records the arguments it was called with and keeps recipes
// in a map. Listing returns whatever listResult holds.
type fakeRecipeRepo struct {
	mu      sync.Mutex
	recipes map[string]*model.Recipe
	nextID  int

	lastFilter repository.RecipeFilter
	lastSort   repository.RecipeSort
	lastOpts   repository.ListOptions
	listResult []model.Recipe
	listTotal  int

	lastFeaturedAt    time.Time
	lastFeaturedLimit int
	lastUntil         *time.Time

	err error
}

var _ repository.RecipeRepository = (*fakeRecipeRepo)(nil)

func newFakeRecipeRepo() *fakeRecipeRepo {
	return &fakeRecipeRepo{recipes: make(map[string]*model.Recipe)}
}

func (f *fakeRecipeRepo) CreateRecipe(_ context.Context, r *model.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	r.ID = fmt.Sprintf("recipe-%d", f.nextID)
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	r.Ratings = []model.Rating{}
	stored := *r
	f.recipes[r.ID] = &stored
	return nil
}

func (f *fakeRecipeRepo) GetRecipe(_ context.Context, id string) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", id)
	}
	c := *r
	return &c, nil
}

func (f *fakeRecipeRepo) ListRecipes(_ context.Context, filter repository.RecipeFilter, sort repository.RecipeSort, opts repository.ListOptions) ([]model.Recipe, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter, f.lastSort, f.lastOpts = filter, sort, opts
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.listResult, f.listTotal, nil
}

func (f *fakeRecipeRepo) FeaturedRecipes(_ context.Context, now time.Time, limit int) ([]model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFeaturedAt, f.lastFeaturedLimit = now, limit
	if f.err != nil {
		return nil, f.err
	}
	return []model.Recipe{}, nil
}

// RateRecipe applies the rating under the fake's lock, the in-memory
// equivalent of the SQLite transaction.
func (f *fakeRecipeRepo) RateRecipe(_ context.Context, id string, rater model.UserSummary, value int, now time.Time) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", id)
	}
	if err := rating.Apply(r, rater, value, now); err != nil {
		return nil, err
	}
	c := *r
	return &c, nil
}

func (f *fakeRecipeRepo) SetFeatured(_ context.Context, id string, featured bool, until *time.Time) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUntil = until
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", id)
	}
	r.Featured = featured
	r.FeaturedUntil = until
	c := *r
	return &c, nil
}

// fakeStatsRepo returns canned aggregates; failOn names the query to fail.
type fakeStatsRepo struct {
	users   int
	recipes int
	failOn  string
}

var _ repository.StatsRepository = (*fakeStatsRepo)(nil)

func (f *fakeStatsRepo) fail(op string) error {
	if f.failOn == op {
		return fmt.Errorf("%s: database is locked", op)
	}
	return nil
}

func (f *fakeStatsRepo) CountUsers(context.Context) (int, error) {
	return f.users, f.fail("CountUsers")
}

func (f *fakeStatsRepo) CountRecipes(context.Context) (int, error) {
	return f.recipes, f.fail("CountRecipes")
}

func (f *fakeStatsRepo) TopRatedRecipes(_ context.Context, limit int) ([]model.Recipe, error) {
	return make([]model.Recipe, min(limit, f.recipes)), f.fail("TopRatedRecipes")
}

func (f *fakeStatsRepo) RecentUsers(_ context.Context, limit int) ([]model.User, error) {
	return make([]model.User, min(limit, f.users)), f.fail("RecentUsers")
}

func (f *fakeStatsRepo) RecipesByCategory(context.Context) ([]model.CategoryStat, error) {
	return []model.CategoryStat{{Category: model.CategoryLunch, Count: f.recipes, AvgRating: 4}}, f.fail("RecipesByCategory")
}

type fakeChatRepo struct {
	chats       map[string][]model.ChatMessage
	lastActive  map[string]time.Time
	activeSince time.Time
	recent      int
	err         error
}

var _ repository.ChatRepository = (*fakeChatRepo)(nil)

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: map[string][]model.ChatMessage{}, lastActive: map[string]time.Time{}}
}

func (f *fakeChatRepo) GetChat(_ context.Context, userID string) ([]model.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.chats[userID]; ok {
		return m, nil
	}
	return []model.ChatMessage{}, nil
}

func (f *fakeChatRepo) SaveChat(_ context.Context, userID string, messages []model.ChatMessage, now time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.chats[userID] = append([]model.ChatMessage(nil), messages...)
	f.lastActive[userID] = now
	return nil
}

func (f *fakeChatRepo) ChatSummary(_ context.Context, activeSince time.Time, recent int) (*model.ChatSummary, error) {
	f.activeSince, f.recent = activeSince, recent
	if f.err != nil {
		return nil, f.err
	}
	s := &model.ChatSummary{TotalChats: len(f.chats), RecentChats: []model.ChatActivity{}}
	for _, t := range f.lastActive {
		if !t.Before(activeSince) {
			s.ActiveChats++
		}
	}
	return s, nil
}
