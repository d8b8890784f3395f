package audit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRepositoryRecordAndList(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	seed := []Entry{
		{Action: ActionUserRegister, EntityType: EntityUser, EntityID: "usr-1", Source: SourceHTTP, CreatedAt: base},
		{Action: ActionUserLogin, EntityType: EntityUser, EntityID: "usr-1", UserID: "usr-1", Source: SourceHTTP, CreatedAt: base.Add(time.Minute)},
		{Action: ActionDeviceRegister, EntityType: EntityDevice, EntityID: "meter-7", Source: SourceMQTT, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		if err := repo.Record(ctx, &seed[i]); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if seed[i].ID == "" {
			t.Fatal("Record() did not assign an ID")
		}
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}
	if len(result.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(result.Entries))
	}
	// Most recent first.
	if result.Entries[0].Action != ActionDeviceRegister {
		t.Errorf("Entries[0].Action = %q, want %q", result.Entries[0].Action, ActionDeviceRegister)
	}
}

func TestMemoryRepositoryFilters(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	entries := []Entry{
		{Action: ActionUserLogin, EntityType: EntityUser, EntityID: "usr-1", Source: SourceHTTP},
		{Action: ActionUserLogin, EntityType: EntityUser, EntityID: "usr-2", Source: SourceHTTP},
		{Action: ActionDeviceRegister, EntityType: EntityDevice, EntityID: "plug-1", Source: SourceHTTP},
		{Action: ActionStatusChange, EntityType: EntityDevice, EntityID: "plug-1", Source: SourceMQTT},
	}
	for i := range entries {
		if err := repo.Record(ctx, &entries[i]); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by action", Filter{Action: ActionUserLogin}, 2},
		{"by entity type", Filter{EntityType: EntityDevice}, 2},
		{"by entity id", Filter{EntityID: "plug-1"}, 2},
		{"action and entity", Filter{Action: ActionStatusChange, EntityID: "plug-1"}, 1},
		{"no match", Filter{Action: ActionUserRegister}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.want {
				t.Errorf("Total = %d, want %d", result.Total, tt.want)
			}
		})
	}
}

func TestMemoryRepositoryPagination(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := Entry{
			Action:     ActionUserLogin,
			EntityType: EntityUser,
			EntityID:   "usr-1",
			Source:     SourceHTTP,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Record(ctx, &entry); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 5 {
		t.Errorf("Total = %d, want 5", result.Total)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(result.Entries))
	}
	// Offset 1 skips the newest entry (minute 4), so page starts at minute 3.
	want := base.Add(3 * time.Minute)
	if !result.Entries[0].CreatedAt.Equal(want) {
		t.Errorf("Entries[0].CreatedAt = %v, want %v", result.Entries[0].CreatedAt, want)
	}

	// Offset past the end returns an empty page, not an error.
	result, err = repo.List(ctx, Filter{Offset: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("len(Entries) = %d, want 0", len(result.Entries))
	}
}

func TestClampFilter(t *testing.T) {
	f := clampFilter(Filter{Limit: -1, Offset: -5})
	if f.Limit != 50 || f.Offset != 0 {
		t.Errorf("clampFilter defaults = (%d, %d), want (50, 0)", f.Limit, f.Offset)
	}

	f = clampFilter(Filter{Limit: 1000})
	if f.Limit != 200 {
		t.Errorf("clampFilter max limit = %d, want 200", f.Limit)
	}
}
