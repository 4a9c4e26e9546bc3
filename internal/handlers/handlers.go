package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	appmetrics "habitloop/internal/metrics"
	"habitloop/internal/middleware/ratelimit"
	"habitloop/internal/models"
	"habitloop/internal/services"
	"habitloop/internal/streak"
)

const cacheTTL = 5 * time.Minute

// Store interfaces are defined here, on the consumer side, so handler
// tests can inject fakes without a database.

type HabitStore interface {
	Create(ctx context.Context, userID string, req models.CreateHabitRequest) (*models.Habit, error)
	List(ctx context.Context, userID string, includeArchived bool) ([]models.Habit, error)
	Get(ctx context.Context, userID, id string) (*models.Habit, error)
	Update(ctx context.Context, userID, id string, req models.UpdateHabitRequest) (*models.Habit, error)
	Archive(ctx context.Context, userID, id string) error
	Delete(ctx context.Context, userID, id string) error
}

type CompletionStore interface {
	Toggle(ctx context.Context, userID, habitID string, day time.Time) (bool, error)
	ListDays(ctx context.Context, userID, habitID string) ([]time.Time, error)
	ListByUser(ctx context.Context, userID string) ([]models.Completion, error)
}

type StatsStore interface {
	GetOrCreate(ctx context.Context, userID string) (*models.UserStats, error)
	AddCompletionXP(ctx context.Context, userID string, habit models.Habit) error
	UpdateLongestStreak(ctx context.Context, userID string, current int) error
}

type AchievementStore interface {
	Earned(ctx context.Context, userID string) ([]models.UserAchievement, error)
	Available(ctx context.Context, userID string) ([]models.Achievement, error)
	Progress(ctx context.Context, userID, achievementID string, asOf time.Time) (*models.Progress, error)
}

// Awarder is the achievement-award procedure. Awarding is a side-effecting
// black box from the handler's point of view; a failed check is logged and
// never retried.
type Awarder interface {
	CheckAndAward(ctx context.Context, userID string, asOf time.Time) ([]models.UserAchievement, error)
}

type FeedStore interface {
	AddFriend(ctx context.Context, userID, friendID string) (*models.Friendship, error)
	Friends(ctx context.Context, userID string) ([]models.FriendWithStats, error)
	Feed(ctx context.Context, userID string, limit int, asOf time.Time) ([]models.FeedActivity, error)
}

type Handler struct {
	habits       HabitStore
	completions  CompletionStore
	stats        StatsStore
	achievements AchievementStore
	awarder      Awarder
	feed         FeedStore
	rateLimiter  *ratelimit.RateLimiter
	redisClient  *redis.Client
	now          func() time.Time
}

func NewHandler(
	habits HabitStore,
	completions CompletionStore,
	stats StatsStore,
	achievements AchievementStore,
	awarder Awarder,
	feed FeedStore,
	rateLimiter *ratelimit.RateLimiter,
	redisClient *redis.Client,
) *Handler {
	return &Handler{
		habits:       habits,
		completions:  completions,
		stats:        stats,
		achievements: achievements,
		awarder:      awarder,
		feed:         feed,
		rateLimiter:  rateLimiter,
		redisClient:  redisClient,
		now:          time.Now,
	}
}

// UserScope authenticates the request scope from the X-User-Id header,
// applies the per-user rate limit, and records request metrics.
func (h *Handler) UserScope(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		appmetrics.RequestsTotal.Inc()

		userID := c.Request().Header.Get("X-User-Id")
		if userID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "X-User-Id header is required")
		}
		if !h.rateLimiter.IsAllowed(userID) {
			appmetrics.RateLimitDroppedTotal.Inc()
			return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
		}
		c.Set("userID", userID)

		appmetrics.ActiveRequests.Inc()
		start := time.Now()
		defer func() {
			appmetrics.RequestDurationSeconds.Observe(time.Since(start).Seconds())
			appmetrics.ActiveRequests.Dec()
		}()

		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get("userID").(string)
	return id
}

// storeError hides store failures behind generic HTTP errors, logging the
// real cause.
func storeError(err error, msg string) error {
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	log.Printf("%s: %v", msg, err)
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

func (h *Handler) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()

	dbStatus := "healthy"
	status := "healthy"
	if _, err := h.stats.GetOrCreate(ctx, "healthcheck-probe"); err != nil {
		dbStatus = "unhealthy"
		status = "degraded"
	}

	redisStatus := "healthy"
	if h.redisClient == nil {
		redisStatus = "disabled"
	} else if err := h.redisClient.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
		status = "degraded"
	}

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Database:  dbStatus,
		Redis:     redisStatus,
	})
}

func (h *Handler) CreateHabit(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateHabitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	habit, err := h.habits.Create(ctx, userID(c), req)
	if err != nil {
		return storeError(err, "Failed to create habit")
	}
	appmetrics.DBWriteDurationSeconds.Observe(time.Since(start).Seconds())

	h.cacheDel(ctx, "analytics:"+userID(c))
	return c.JSON(http.StatusCreated, habit)
}

// GetHabits lists active habits with the derived fields the home screen
// shows: completed-today, current streak, and total completions.
func (h *Handler) GetHabits(c echo.Context) error {
	ctx := c.Request().Context()
	uid := userID(c)
	today := h.now()

	habits, err := h.habits.List(ctx, uid, false)
	if err != nil {
		return storeError(err, "Failed to list habits")
	}
	completions, err := h.completions.ListByUser(ctx, uid)
	if err != nil {
		return storeError(err, "Failed to list completions")
	}

	byHabit := make(map[string][]time.Time)
	for _, comp := range completions {
		byHabit[comp.HabitID] = append(byHabit[comp.HabitID], comp.CompletedOn)
	}

	todayStr := today.Format(models.DayFormat)
	out := make([]models.HabitWithStatus, 0, len(habits))
	for _, habit := range habits {
		days := byHabit[habit.ID]
		status := models.HabitWithStatus{
			Habit:            habit,
			CurrentStreak:    streak.CurrentStreak(days, today),
			TotalCompletions: len(days),
		}
		for _, d := range days {
			if d.Format(models.DayFormat) == todayStr {
				status.CompletedToday = true
				break
			}
		}
		out = append(out, status)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetHabit(c echo.Context) error {
	habit, err := h.habits.Get(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return storeError(err, "Failed to get habit")
	}
	return c.JSON(http.StatusOK, habit)
}

func (h *Handler) UpdateHabit(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.UpdateHabitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	habit, err := h.habits.Update(ctx, userID(c), c.Param("id"), req)
	if err != nil {
		return storeError(err, "Failed to update habit")
	}

	h.cacheDel(ctx, "analytics:"+userID(c))
	return c.JSON(http.StatusOK, habit)
}

func (h *Handler) ArchiveHabit(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.habits.Archive(ctx, userID(c), c.Param("id")); err != nil {
		return storeError(err, "Failed to archive habit")
	}
	h.cacheDel(ctx, "analytics:"+userID(c))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteHabit(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.habits.Delete(ctx, userID(c), c.Param("id")); err != nil {
		return storeError(err, "Failed to delete habit")
	}
	h.cacheDel(ctx, "analytics:"+userID(c), "user_stats:"+userID(c))
	return c.NoContent(http.StatusNoContent)
}

// ToggleHabit flips today's completion for a habit. Toggling on earns XP,
// refreshes the recorded longest streak, and runs the achievement check;
// a failed check only loses the notification, never the completion.
func (h *Handler) ToggleHabit(c echo.Context) error {
	ctx := c.Request().Context()
	uid := userID(c)
	today := h.now()

	habit, err := h.habits.Get(ctx, uid, c.Param("id"))
	if err != nil {
		return storeError(err, "Failed to get habit")
	}

	start := time.Now()
	completed, err := h.completions.Toggle(ctx, uid, habit.ID, today)
	if err != nil {
		return storeError(err, "Failed to toggle habit")
	}
	appmetrics.DBWriteDurationSeconds.Observe(time.Since(start).Seconds())

	resp := models.ToggleResponse{
		Completed:       completed,
		NewAchievements: []models.UserAchievement{},
	}

	days, err := h.completions.ListDays(ctx, uid, habit.ID)
	if err != nil {
		return storeError(err, "Failed to list completions")
	}
	resp.CurrentStreak = streak.CurrentStreak(days, today)

	if completed {
		appmetrics.TogglesTotal.WithLabelValues("on").Inc()

		if err := h.stats.AddCompletionXP(ctx, uid, *habit); err != nil {
			log.Printf("Failed to add completion XP for user %s: %v", uid, err)
		}
		if err := h.stats.UpdateLongestStreak(ctx, uid, resp.CurrentStreak); err != nil {
			log.Printf("Failed to update longest streak for user %s: %v", uid, err)
		}

		awarded, err := h.awarder.CheckAndAward(ctx, uid, today)
		if err != nil {
			log.Printf("Achievement check failed for user %s: %v", uid, err)
		} else if len(awarded) > 0 {
			appmetrics.AchievementsAwardedTotal.Add(float64(len(awarded)))
			resp.NewAchievements = awarded
		}
	} else {
		appmetrics.TogglesTotal.WithLabelValues("off").Inc()
	}

	h.cacheDel(ctx, "analytics:"+uid, "user_stats:"+uid)
	return c.JSON(http.StatusOK, resp)
}

// GetAnalytics derives the profile analytics from the user's full habit
// and completion sets, recomputed from scratch on every cache miss.
func (h *Handler) GetAnalytics(c echo.Context) error {
	ctx := c.Request().Context()
	uid := userID(c)

	cacheKey := "analytics:" + uid
	if cached, ok := h.cacheGet(ctx, cacheKey); ok {
		return c.JSONBlob(http.StatusOK, []byte(cached))
	}

	habits, err := h.habits.List(ctx, uid, false)
	if err != nil {
		return storeError(err, "Failed to list habits")
	}
	completions, err := h.completions.ListByUser(ctx, uid)
	if err != nil {
		return storeError(err, "Failed to list completions")
	}

	today := h.now()
	dates := make([]time.Time, len(completions))
	byHabit := make(map[string][]time.Time)
	for i, comp := range completions {
		dates[i] = comp.CompletedOn
		byHabit[comp.HabitID] = append(byHabit[comp.HabitID], comp.CompletedOn)
	}

	weekly, err := streak.DailySeries(dates, 7, today)
	if err != nil {
		return storeError(err, "Failed to compute weekly series")
	}
	monthly, err := streak.DailySeries(dates, 30, today)
	if err != nil {
		return storeError(err, "Failed to compute monthly series")
	}

	summary := models.AnalyticsSummary{
		WeeklySeries:    weekly,
		BestHabit:       streak.BestPerformingHabit(habits, completions),
		ImprovementRate: streak.ImprovementRate(dates, today),
	}
	for _, n := range weekly {
		summary.WeeklyTotal += n
	}
	for _, n := range monthly {
		summary.MonthlyTotal += n
	}
	for _, habit := range habits {
		days := byHabit[habit.ID]
		if s := streak.CurrentStreak(days, today); s > summary.CurrentStreak {
			summary.CurrentStreak = s
		}
		if l := streak.LongestStreak(days); l > summary.LongestStreak {
			summary.LongestStreak = l
		}
	}

	if data, err := json.Marshal(summary); err == nil {
		h.cacheSet(ctx, cacheKey, string(data))
	}
	return c.JSON(http.StatusOK, summary)
}

type userStatsResponse struct {
	models.UserStats
	LevelCurrentXP  int     `json:"level_current_xp"`
	LevelRequiredXP int     `json:"level_required_xp"`
	LevelPercentage float64 `json:"level_percentage"`
}

func (h *Handler) GetUserStats(c echo.Context) error {
	ctx := c.Request().Context()
	uid := userID(c)

	cacheKey := "user_stats:" + uid
	if cached, ok := h.cacheGet(ctx, cacheKey); ok {
		return c.JSONBlob(http.StatusOK, []byte(cached))
	}

	stats, err := h.stats.GetOrCreate(ctx, uid)
	if err != nil {
		return storeError(err, "Failed to get user stats")
	}

	current, required, pct := streak.LevelProgress(*stats)
	resp := userStatsResponse{
		UserStats:       *stats,
		LevelCurrentXP:  current,
		LevelRequiredXP: required,
		LevelPercentage: pct,
	}

	if data, err := json.Marshal(resp); err == nil {
		h.cacheSet(ctx, cacheKey, string(data))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetEarnedAchievements(c echo.Context) error {
	earned, err := h.achievements.Earned(c.Request().Context(), userID(c))
	if err != nil {
		return storeError(err, "Failed to list earned achievements")
	}
	if earned == nil {
		earned = []models.UserAchievement{}
	}
	return c.JSON(http.StatusOK, earned)
}

func (h *Handler) GetAvailableAchievements(c echo.Context) error {
	available, err := h.achievements.Available(c.Request().Context(), userID(c))
	if err != nil {
		return storeError(err, "Failed to list available achievements")
	}
	if available == nil {
		available = []models.Achievement{}
	}
	return c.JSON(http.StatusOK, available)
}

func (h *Handler) GetAchievementProgress(c echo.Context) error {
	progress, err := h.achievements.Progress(c.Request().Context(), userID(c), c.Param("id"), h.now())
	if err != nil {
		return storeError(err, "Failed to compute achievement progress")
	}
	return c.JSON(http.StatusOK, progress)
}

// CheckAchievements runs the award procedure on demand and returns any
// newly unlocked achievements.
func (h *Handler) CheckAchievements(c echo.Context) error {
	ctx := c.Request().Context()
	uid := userID(c)

	awarded, err := h.awarder.CheckAndAward(ctx, uid, h.now())
	if err != nil {
		return storeError(err, "Failed to check achievements")
	}
	if awarded == nil {
		awarded = []models.UserAchievement{}
	}
	if len(awarded) > 0 {
		appmetrics.AchievementsAwardedTotal.Add(float64(len(awarded)))
		h.cacheDel(ctx, "user_stats:"+uid)
	}
	return c.JSON(http.StatusOK, awarded)
}

func (h *Handler) GetFriends(c echo.Context) error {
	friends, err := h.feed.Friends(c.Request().Context(), userID(c))
	if err != nil {
		return storeError(err, "Failed to list friends")
	}
	if friends == nil {
		friends = []models.FriendWithStats{}
	}
	return c.JSON(http.StatusOK, friends)
}

func (h *Handler) AddFriend(c echo.Context) error {
	var req models.AddFriendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	friendship, err := h.feed.AddFriend(c.Request().Context(), userID(c), req.FriendID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, friendship)
}

func (h *Handler) GetFeed(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	feed, err := h.feed.Feed(c.Request().Context(), userID(c), limit, h.now())
	if err != nil {
		return storeError(err, "Failed to load feed")
	}
	if feed == nil {
		feed = []models.FeedActivity{}
	}
	return c.JSON(http.StatusOK, feed)
}

// Cache helpers are best-effort: a dead Redis degrades to direct reads.

func (h *Handler) cacheGet(ctx context.Context, key string) (string, bool) {
	if h.redisClient == nil {
		return "", false
	}
	cached, err := h.redisClient.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return cached, true
}

func (h *Handler) cacheSet(ctx context.Context, key, value string) {
	if h.redisClient == nil {
		return
	}
	_ = h.redisClient.Set(ctx, key, value, cacheTTL).Err()
}

func (h *Handler) cacheDel(ctx context.Context, keys ...string) {
	if h.redisClient == nil {
		return
	}
	_ = h.redisClient.Del(ctx, keys...).Err()
}
