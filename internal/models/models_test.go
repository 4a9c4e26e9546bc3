package models

import (
	"testing"
	"time"
)

func intp(n int) *int { return &n }

func TestCreateHabitRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateHabitRequest
		wantErr bool
	}{
		{
			name: "valid binary",
			req:  CreateHabitRequest{Title: "Meditate", Category: CategoryMindfulness, HabitType: HabitBinary},
		},
		{
			name: "valid count with target",
			req:  CreateHabitRequest{Title: "Pushups", Category: CategoryHealth, HabitType: HabitCount, TargetValue: intp(20)},
		},
		{
			name: "valid time with target",
			req:  CreateHabitRequest{Title: "Read", Category: CategoryLearning, HabitType: HabitTime, TargetValue: intp(30)},
		},
		{
			name:    "empty title",
			req:     CreateHabitRequest{Category: CategoryHealth, HabitType: HabitBinary},
			wantErr: true,
		},
		{
			name:    "unknown category",
			req:     CreateHabitRequest{Title: "X", Category: "sports", HabitType: HabitBinary},
			wantErr: true,
		},
		{
			name:    "unknown habit type",
			req:     CreateHabitRequest{Title: "X", Category: CategoryHealth, HabitType: "streaky"},
			wantErr: true,
		},
		{
			name:    "count missing target",
			req:     CreateHabitRequest{Title: "X", Category: CategoryHealth, HabitType: HabitCount},
			wantErr: true,
		},
		{
			name:    "count with zero target",
			req:     CreateHabitRequest{Title: "X", Category: CategoryHealth, HabitType: HabitCount, TargetValue: intp(0)},
			wantErr: true,
		},
		{
			name:    "binary with target",
			req:     CreateHabitRequest{Title: "X", Category: CategoryHealth, HabitType: HabitBinary, TargetValue: intp(5)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRarityPointsCoverAllTiers(t *testing.T) {
	for _, r := range []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary} {
		if RarityPoints[r] <= 0 {
			t.Errorf("rarity %q has no point value", r)
		}
	}
	if RarityPoints[RarityCommon] >= RarityPoints[RarityLegendary] {
		t.Error("legendary must be worth more than common")
	}
}

func TestAchievementPoints(t *testing.T) {
	a := Achievement{Rarity: RarityEpic}
	if got := a.Points(); got != 70 {
		t.Errorf("epic achievement worth %d points, want 70", got)
	}
	unknown := Achievement{Rarity: "mythic"}
	if got := unknown.Points(); got != 0 {
		t.Errorf("unknown rarity worth %d points, want 0", got)
	}
}

func TestCompletionDay(t *testing.T) {
	c := Completion{CompletedOn: time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)}
	if got := c.Day(); got != "2026-08-31" {
		t.Errorf("Day() = %q, want 2026-08-31", got)
	}
}

func TestNewHabitCopiesRequest(t *testing.T) {
	req := CreateHabitRequest{
		Title:       "Pushups",
		Description: "Morning set",
		Category:    CategoryHealth,
		HabitType:   HabitCount,
		TargetValue: intp(20),
		TargetUnit:  "reps",
	}
	h := NewHabit("alice", req)
	if h.ID == "" {
		t.Error("expected a generated id")
	}
	if h.UserID != "alice" || h.Title != req.Title || h.Category != req.Category {
		t.Errorf("habit fields not copied: %+v", h)
	}
	if h.TargetValue == nil || *h.TargetValue != 20 || h.TargetUnit != "reps" {
		t.Errorf("target not copied: %+v", h)
	}
	if h.Archived {
		t.Error("new habits must start unarchived")
	}
}
