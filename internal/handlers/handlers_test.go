package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"habitloop/internal/middleware/ratelimit"
	"habitloop/internal/models"
	"habitloop/internal/services"
)

var testNow = time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return testNow.AddDate(0, 0, -offset)
}

type fakeHabits struct {
	habits  []models.Habit
	created *models.Habit
}

func (f *fakeHabits) Create(_ context.Context, userID string, req models.CreateHabitRequest) (*models.Habit, error) {
	f.created = models.NewHabit(userID, req)
	return f.created, nil
}

func (f *fakeHabits) List(_ context.Context, _ string, includeArchived bool) ([]models.Habit, error) {
	if includeArchived {
		return f.habits, nil
	}
	var out []models.Habit
	for _, h := range f.habits {
		if !h.Archived {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHabits) Get(_ context.Context, userID, id string) (*models.Habit, error) {
	for i := range f.habits {
		if f.habits[i].ID == id && f.habits[i].UserID == userID {
			return &f.habits[i], nil
		}
	}
	return nil, fmt.Errorf("habit %s: %w", id, services.ErrNotFound)
}

func (f *fakeHabits) Update(ctx context.Context, userID, id string, req models.UpdateHabitRequest) (*models.Habit, error) {
	h, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	h.Title = req.Title
	return h, nil
}

func (f *fakeHabits) Archive(ctx context.Context, userID, id string) error {
	h, err := f.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	h.Archived = true
	return nil
}

func (f *fakeHabits) Delete(ctx context.Context, userID, id string) error {
	_, err := f.Get(ctx, userID, id)
	return err
}

type fakeCompletions struct {
	completions []models.Completion
	toggledOn   bool
}

func (f *fakeCompletions) Toggle(_ context.Context, userID, habitID string, day time.Time) (bool, error) {
	target := day.Format(models.DayFormat)
	for i, c := range f.completions {
		if c.HabitID == habitID && c.Day() == target {
			f.completions = append(f.completions[:i], f.completions[i+1:]...)
			return false, nil
		}
	}
	f.completions = append(f.completions, *models.NewCompletion(userID, habitID, day))
	f.toggledOn = true
	return true, nil
}

func (f *fakeCompletions) ListDays(_ context.Context, _, habitID string) ([]time.Time, error) {
	var days []time.Time
	for _, c := range f.completions {
		if c.HabitID == habitID {
			days = append(days, c.CompletedOn)
		}
	}
	return days, nil
}

func (f *fakeCompletions) ListByUser(_ context.Context, userID string) ([]models.Completion, error) {
	var out []models.Completion
	for _, c := range f.completions {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeStats struct {
	stats         models.UserStats
	xpAdds        int
	streakUpdates []int
}

func (f *fakeStats) GetOrCreate(_ context.Context, userID string) (*models.UserStats, error) {
	s := f.stats
	s.UserID = userID
	return &s, nil
}

func (f *fakeStats) AddCompletionXP(_ context.Context, _ string, _ models.Habit) error {
	f.xpAdds++
	return nil
}

func (f *fakeStats) UpdateLongestStreak(_ context.Context, _ string, current int) error {
	f.streakUpdates = append(f.streakUpdates, current)
	return nil
}

type fakeAchievements struct {
	earned    []models.UserAchievement
	available []models.Achievement
	progress  map[string]models.Progress
}

func (f *fakeAchievements) Earned(_ context.Context, _ string) ([]models.UserAchievement, error) {
	return f.earned, nil
}

func (f *fakeAchievements) Available(_ context.Context, _ string) ([]models.Achievement, error) {
	return f.available, nil
}

func (f *fakeAchievements) Progress(_ context.Context, _, achievementID string, _ time.Time) (*models.Progress, error) {
	p, ok := f.progress[achievementID]
	if !ok {
		return nil, fmt.Errorf("achievement %s: %w", achievementID, services.ErrNotFound)
	}
	return &p, nil
}

type fakeAwarder struct {
	award  []models.UserAchievement
	err    error
	checks int
}

func (f *fakeAwarder) CheckAndAward(_ context.Context, _ string, _ time.Time) ([]models.UserAchievement, error) {
	f.checks++
	return f.award, f.err
}

type fakeFeed struct {
	friends []models.FriendWithStats
	feed    []models.FeedActivity
}

func (f *fakeFeed) AddFriend(_ context.Context, userID, friendID string) (*models.Friendship, error) {
	if friendID == "" {
		return nil, fmt.Errorf("friend id is required")
	}
	if friendID == userID {
		return nil, fmt.Errorf("cannot befriend yourself")
	}
	return &models.Friendship{ID: "f1", UserID: userID, FriendID: friendID}, nil
}

func (f *fakeFeed) Friends(_ context.Context, _ string) ([]models.FriendWithStats, error) {
	return f.friends, nil
}

func (f *fakeFeed) Feed(_ context.Context, _ string, limit int, _ time.Time) ([]models.FeedActivity, error) {
	if limit < len(f.feed) {
		return f.feed[:limit], nil
	}
	return f.feed, nil
}

type testEnv struct {
	handler      *Handler
	habits       *fakeHabits
	completions  *fakeCompletions
	stats        *fakeStats
	achievements *fakeAchievements
	awarder      *fakeAwarder
	feed         *fakeFeed
}

func newTestEnv(limit int) *testEnv {
	env := &testEnv{
		habits:       &fakeHabits{},
		completions:  &fakeCompletions{},
		stats:        &fakeStats{stats: models.UserStats{Level: 1}},
		achievements: &fakeAchievements{progress: map[string]models.Progress{}},
		awarder:      &fakeAwarder{},
		feed:         &fakeFeed{},
	}
	env.handler = NewHandler(
		env.habits, env.completions, env.stats, env.achievements,
		env.awarder, env.feed, ratelimit.NewRateLimiter(limit), nil,
	)
	env.handler.now = func() time.Time { return testNow }
	return env
}

func doRequest(t *testing.T, h *Handler, method, path, body, user string, route echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Route through the scope middleware the way the server wires it.
	if err := h.UserScope(route)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func withParam(route echo.HandlerFunc, name, value string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.SetParamNames(name)
		c.SetParamValues(value)
		return route(c)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestUserScopeRequiresHeader(t *testing.T) {
	env := newTestEnv(10)
	rec := doRequest(t, env.handler, http.MethodGet, "/habits", "", "", env.handler.GetHabits)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without X-User-Id, got %d", rec.Code)
	}
}

func TestUserScopeRateLimits(t *testing.T) {
	env := newTestEnv(2)
	for i := 0; i < 2; i++ {
		rec := doRequest(t, env.handler, http.MethodGet, "/habits", "", "alice", env.handler.GetHabits)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := doRequest(t, env.handler, http.MethodGet, "/habits", "", "alice", env.handler.GetHabits)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 over the limit, got %d", rec.Code)
	}

	// Other users keep their own budget.
	rec = doRequest(t, env.handler, http.MethodGet, "/habits", "", "bob", env.handler.GetHabits)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for a different user, got %d", rec.Code)
	}
}

func TestCreateHabitValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid binary", `{"title":"Read","category":"learning","habit_type":"binary"}`, http.StatusCreated},
		{"valid count", `{"title":"Pushups","category":"health","habit_type":"count","target_value":20}`, http.StatusCreated},
		{"missing title", `{"category":"health","habit_type":"binary"}`, http.StatusBadRequest},
		{"bad category", `{"title":"X","category":"sports","habit_type":"binary"}`, http.StatusBadRequest},
		{"count without target", `{"title":"X","category":"health","habit_type":"count"}`, http.StatusBadRequest},
		{"binary with target", `{"title":"X","category":"health","habit_type":"binary","target_value":5}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(100)
			rec := doRequest(t, env.handler, http.MethodPost, "/habits", tt.body, "alice", env.handler.CreateHabit)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetHabitsEnrichment(t *testing.T) {
	env := newTestEnv(100)
	env.habits.habits = []models.Habit{
		{ID: "h1", UserID: "alice", Title: "Meditate"},
		{ID: "h2", UserID: "alice", Title: "Run"},
		{ID: "h3", UserID: "alice", Title: "Old", Archived: true},
	}
	// h1 completed today and yesterday, h2 only two days ago.
	env.completions.completions = []models.Completion{
		*models.NewCompletion("alice", "h1", day(0)),
		*models.NewCompletion("alice", "h1", day(1)),
		*models.NewCompletion("alice", "h2", day(2)),
	}

	rec := doRequest(t, env.handler, http.MethodGet, "/habits", "", "alice", env.handler.GetHabits)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	habits := decode[[]models.HabitWithStatus](t, rec)
	if len(habits) != 2 {
		t.Fatalf("expected 2 active habits, got %d", len(habits))
	}

	h1 := habits[0]
	if !h1.CompletedToday || h1.CurrentStreak != 2 || h1.TotalCompletions != 2 {
		t.Errorf("h1: got completedToday=%v streak=%d total=%d, want true/2/2",
			h1.CompletedToday, h1.CurrentStreak, h1.TotalCompletions)
	}
	h2 := habits[1]
	if h2.CompletedToday || h2.CurrentStreak != 0 || h2.TotalCompletions != 1 {
		t.Errorf("h2: got completedToday=%v streak=%d total=%d, want false/0/1",
			h2.CompletedToday, h2.CurrentStreak, h2.TotalCompletions)
	}
}

func TestGetHabitNotFound(t *testing.T) {
	env := newTestEnv(100)
	rec := doRequest(t, env.handler, http.MethodGet, "/habits/nope", "", "alice",
		withParam(env.handler.GetHabit, "id", "nope"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestToggleHabitOn(t *testing.T) {
	env := newTestEnv(100)
	env.habits.habits = []models.Habit{{ID: "h1", UserID: "alice", Title: "Meditate"}}
	env.completions.completions = []models.Completion{
		*models.NewCompletion("alice", "h1", day(1)),
	}
	env.awarder.award = []models.UserAchievement{{ID: "ua1", AchievementID: "a1"}}

	rec := doRequest(t, env.handler, http.MethodPost, "/habits/h1/toggle", "", "alice",
		withParam(env.handler.ToggleHabit, "id", "h1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[models.ToggleResponse](t, rec)
	if !resp.Completed {
		t.Error("expected completed=true after toggling on")
	}
	if resp.CurrentStreak != 2 {
		t.Errorf("expected streak 2 (yesterday + today), got %d", resp.CurrentStreak)
	}
	if len(resp.NewAchievements) != 1 || resp.NewAchievements[0].ID != "ua1" {
		t.Errorf("expected the awarded achievement in the response, got %+v", resp.NewAchievements)
	}
	if env.stats.xpAdds != 1 {
		t.Errorf("expected 1 XP credit, got %d", env.stats.xpAdds)
	}
	if len(env.stats.streakUpdates) != 1 || env.stats.streakUpdates[0] != 2 {
		t.Errorf("expected longest-streak update with 2, got %v", env.stats.streakUpdates)
	}
	if env.awarder.checks != 1 {
		t.Errorf("expected 1 achievement check, got %d", env.awarder.checks)
	}
}

func TestToggleHabitOff(t *testing.T) {
	env := newTestEnv(100)
	env.habits.habits = []models.Habit{{ID: "h1", UserID: "alice", Title: "Meditate"}}
	env.completions.completions = []models.Completion{
		*models.NewCompletion("alice", "h1", day(0)),
	}

	rec := doRequest(t, env.handler, http.MethodPost, "/habits/h1/toggle", "", "alice",
		withParam(env.handler.ToggleHabit, "id", "h1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode[models.ToggleResponse](t, rec)
	if resp.Completed {
		t.Error("expected completed=false after toggling off")
	}
	if resp.CurrentStreak != 0 {
		t.Errorf("expected streak 0 after removing today, got %d", resp.CurrentStreak)
	}
	if env.stats.xpAdds != 0 {
		t.Errorf("toggling off must not credit XP, got %d credits", env.stats.xpAdds)
	}
	if env.awarder.checks != 0 {
		t.Errorf("toggling off must not run the achievement check, got %d", env.awarder.checks)
	}
}

func TestToggleHabitSurvivesAwardFailure(t *testing.T) {
	env := newTestEnv(100)
	env.habits.habits = []models.Habit{{ID: "h1", UserID: "alice", Title: "Meditate"}}
	env.awarder.err = fmt.Errorf("award store down")

	rec := doRequest(t, env.handler, http.MethodPost, "/habits/h1/toggle", "", "alice",
		withParam(env.handler.ToggleHabit, "id", "h1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite award failure, got %d", rec.Code)
	}
	resp := decode[models.ToggleResponse](t, rec)
	if !resp.Completed {
		t.Error("expected the completion to stick")
	}
	if len(resp.NewAchievements) != 0 {
		t.Errorf("expected no achievements on failure, got %+v", resp.NewAchievements)
	}
}

func TestGetAnalytics(t *testing.T) {
	env := newTestEnv(100)
	env.habits.habits = []models.Habit{
		{ID: "h1", UserID: "alice", Title: "Meditate"},
		{ID: "h2", UserID: "alice", Title: "Run"},
	}
	// This week: 3 completions (h1 today and yesterday, h2 today).
	// Last week: 1 completion (h2, 8 days ago).
	env.completions.completions = []models.Completion{
		*models.NewCompletion("alice", "h1", day(0)),
		*models.NewCompletion("alice", "h1", day(1)),
		*models.NewCompletion("alice", "h2", day(0)),
		*models.NewCompletion("alice", "h2", day(8)),
	}

	rec := doRequest(t, env.handler, http.MethodGet, "/analytics", "", "alice", env.handler.GetAnalytics)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[models.AnalyticsSummary](t, rec)

	wantWeekly := []int{0, 0, 0, 0, 0, 1, 2}
	if len(got.WeeklySeries) != 7 {
		t.Fatalf("expected 7-day series, got %d entries", len(got.WeeklySeries))
	}
	for i, n := range wantWeekly {
		if got.WeeklySeries[i] != n {
			t.Errorf("weekly[%d] = %d, want %d (full series %v)", i, got.WeeklySeries[i], n, got.WeeklySeries)
		}
	}
	if got.WeeklyTotal != 3 {
		t.Errorf("weekly total = %d, want 3", got.WeeklyTotal)
	}
	if got.MonthlyTotal != 4 {
		t.Errorf("monthly total = %d, want 4", got.MonthlyTotal)
	}
	if got.CurrentStreak != 2 {
		t.Errorf("current streak = %d, want 2 (h1 today+yesterday)", got.CurrentStreak)
	}
	if got.BestHabit != "Meditate" {
		t.Errorf("best habit = %q, want Meditate", got.BestHabit)
	}
	if got.ImprovementRate != 200 {
		t.Errorf("improvement rate = %v, want 200 (3 vs 1)", got.ImprovementRate)
	}
}

func TestGetUserStatsLevelProgress(t *testing.T) {
	env := newTestEnv(100)
	env.stats.stats = models.UserStats{Level: 2, ExperiencePoints: 150}

	rec := doRequest(t, env.handler, http.MethodGet, "/user/stats", "", "alice", env.handler.GetUserStats)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[userStatsResponse](t, rec)
	if got.LevelCurrentXP != 50 || got.LevelRequiredXP != 100 {
		t.Errorf("level progress = %d/%d, want 50/100", got.LevelCurrentXP, got.LevelRequiredXP)
	}
	if got.LevelPercentage != 50 {
		t.Errorf("level percentage = %v, want 50", got.LevelPercentage)
	}
}

func TestGetAchievementProgress(t *testing.T) {
	env := newTestEnv(100)
	env.achievements.progress["a1"] = models.Progress{Progress: 3, Total: 7, Percentage: 43}

	rec := doRequest(t, env.handler, http.MethodGet, "/achievements/a1/progress", "", "alice",
		withParam(env.handler.GetAchievementProgress, "id", "a1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[models.Progress](t, rec)
	if got.Progress != 3 || got.Total != 7 || got.Percentage != 43 {
		t.Errorf("got %+v, want 3/7/43%%", got)
	}

	rec = doRequest(t, env.handler, http.MethodGet, "/achievements/nope/progress", "", "alice",
		withParam(env.handler.GetAchievementProgress, "id", "nope"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown achievement, got %d", rec.Code)
	}
}

func TestCheckAchievementsEmpty(t *testing.T) {
	env := newTestEnv(100)
	rec := doRequest(t, env.handler, http.MethodPost, "/achievements/check", "", "alice", env.handler.CheckAchievements)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestAddFriendRejectsSelf(t *testing.T) {
	env := newTestEnv(100)
	rec := doRequest(t, env.handler, http.MethodPost, "/friends", `{"friend_id":"alice"}`, "alice", env.handler.AddFriend)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for self-friendship, got %d", rec.Code)
	}

	rec = doRequest(t, env.handler, http.MethodPost, "/friends", `{"friend_id":"bob"}`, "alice", env.handler.AddFriend)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetFeedLimit(t *testing.T) {
	env := newTestEnv(100)
	for i := 0; i < 5; i++ {
		env.feed.feed = append(env.feed.feed, models.FeedActivity{ID: fmt.Sprintf("c%d", i)})
	}

	rec := doRequest(t, env.handler, http.MethodGet, "/feed?limit=3", "", "alice", env.handler.GetFeed)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[[]models.FeedActivity](t, rec)
	if len(got) != 3 {
		t.Errorf("expected 3 entries with limit=3, got %d", len(got))
	}
}
