package override

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"zone_controller/internal/audit"
	"zone_controller/internal/models"
)

// fakeJournal records appended entries.
type fakeJournal struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (f *fakeJournal) Append(e audit.Entry) (models.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.AuditEvent{}, f.err
	}
	f.entries = append(f.entries, e)
	return models.AuditEvent{Mode: e.Mode, DurationMinutes: e.DurationMinutes, Source: e.Source, InitiatedBy: e.InitiatedBy, Hash: "h"}, nil
}

// failingStore fails Get.
type failingStore struct{ MemoryStore }

func (f *failingStore) Get(context.Context) (*models.OverrideRecord, error) {
	return nil, errors.New("disk gone")
}

// Monday 2025-01-06 08:30 UTC.
var monday0830 = time.Date(2025, time.January, 6, 8, 30, 0, 0, time.UTC)

func newTestResolver(store Store, sched ScheduleSource, j AuditLog, def models.Mode) *Resolver {
	return NewResolver(store, sched, j, Options{
		DefaultMode: def,
		Location:    time.UTC,
		Now:         func() time.Time { return monday0830 },
	})
}

func TestResolve_Priority(t *testing.T) {
	ctx := context.Background()
	sched := StaticSchedule{{Weekday: 0, Hour: 8, Mode: "COOL_ON"}}

	tests := []struct {
		name     string
		manual   *models.OverrideRecord
		schedule ScheduleSource
		def      models.Mode
		want     Resolution
	}{
		{
			name:     "manual beats matching schedule",
			manual:   &models.OverrideRecord{Mode: models.ModeHeatOn, ExpiresAt: monday0830.Add(time.Hour).Format(models.ExpiryLayout)},
			schedule: sched,
			def:      models.ModeOff,
			want:     Resolution{Active: true, Mode: models.ModeHeatOn, Source: SourceManual},
		},
		{
			name:     "manual without expiry stays active",
			manual:   &models.OverrideRecord{Mode: models.ModeFanOnly},
			schedule: sched,
			want:     Resolution{Active: true, Mode: models.ModeFanOnly, Source: SourceManual},
		},
		{
			name:     "expired manual falls through to schedule",
			manual:   &models.OverrideRecord{Mode: models.ModeHeatOn, ExpiresAt: monday0830.Add(-time.Minute).Format(models.ExpiryLayout)},
			schedule: sched,
			want:     Resolution{Active: true, Mode: models.ModeCoolOn, Source: SourceSchedule},
		},
		{
			name:     "unparsable expiry is not active",
			manual:   &models.OverrideRecord{Mode: models.ModeHeatOn, ExpiresAt: "tomorrow-ish"},
			schedule: sched,
			want:     Resolution{Active: true, Mode: models.ModeCoolOn, Source: SourceSchedule},
		},
		{
			name:     "expiry exactly now is not active",
			manual:   &models.OverrideRecord{Mode: models.ModeHeatOn, ExpiresAt: monday0830.Format(models.ExpiryLayout)},
			schedule: StaticSchedule{},
			want:     Resolution{},
		},
		{
			name:     "schedule beats default",
			schedule: sched,
			def:      models.ModeOff,
			want:     Resolution{Active: true, Mode: models.ModeCoolOn, Source: SourceSchedule},
		},
		{
			name:     "default when nothing matches",
			schedule: StaticSchedule{{Weekday: 1, Hour: 8, Mode: "COOL_ON"}},
			def:      models.ModeFanOnly,
			want:     Resolution{Active: true, Mode: models.ModeFanOnly, Source: SourceDefault},
		},
		{
			name: "no sources means inactive",
			want: Resolution{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			if tt.manual != nil {
				_ = store.Set(ctx, *tt.manual)
			}
			r := newTestResolver(store, tt.schedule, &fakeJournal{}, tt.def)
			if got := r.Resolve(ctx, monday0830); got != tt.want {
				t.Fatalf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_StoreErrorFallsThrough(t *testing.T) {
	r := newTestResolver(&failingStore{}, StaticSchedule{{Weekday: 0, Hour: 8, Mode: "HEAT_ON"}}, &fakeJournal{}, "")
	got := r.Resolve(context.Background(), monday0830)
	if got.Source != SourceSchedule || got.Mode != models.ModeHeatOn {
		t.Fatalf("Resolve() = %+v, want schedule HEAT_ON", got)
	}
}

func TestNewResolver_InvalidDefaultDisabled(t *testing.T) {
	r := newTestResolver(NewMemoryStore(), nil, &fakeJournal{}, models.Mode("auto"))
	if got := r.Resolve(context.Background(), monday0830); got.Active {
		t.Fatalf("invalid default should be ignored, got %+v", got)
	}
}

func TestApply_StoresAndJournals(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := &fakeJournal{}
	r := newTestResolver(store, nil, j, "")

	applied, err := r.Apply(ctx, Request{Mode: "COOL_ON", DurationMinutes: 45, Source: "api", InitiatedBy: "user:1@127.0.0.1"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantUntil := monday0830.Add(45 * time.Minute)
	if !applied.Until.Equal(wantUntil) {
		t.Fatalf("until = %v, want %v", applied.Until, wantUntil)
	}

	rec, _ := store.Get(ctx)
	if rec == nil || rec.Mode != models.ModeCoolOn || rec.Source != "api" || rec.InitiatedBy != "user:1@127.0.0.1" {
		t.Fatalf("stored record = %+v", rec)
	}
	if exp, ok, err := rec.Expiry(); err != nil || !ok || !exp.Equal(wantUntil) {
		t.Fatalf("expiry = %v %v %v", exp, ok, err)
	}

	if len(j.entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(j.entries))
	}
	e := j.entries[0]
	if e.Mode != "COOL_ON" || e.DurationMinutes != 45 || e.Source != "api" || !e.At.Equal(monday0830) {
		t.Fatalf("journal entry = %+v", e)
	}

	if got := r.Resolve(ctx, monday0830.Add(44*time.Minute)); got.Mode != models.ModeCoolOn || got.Source != SourceManual {
		t.Fatalf("Resolve during override = %+v", got)
	}
	if got := r.Resolve(ctx, monday0830.Add(45*time.Minute)); got.Active {
		t.Fatalf("Resolve after expiry = %+v", got)
	}
}

func TestApply_InvalidInputDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	existing := models.OverrideRecord{Mode: models.ModeHeatOn, Source: "api", InitiatedBy: "a"}

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "unknown mode", req: Request{Mode: "AUTO", DurationMinutes: 10}, wantErr: models.ErrInvalidMode},
		{name: "lowercase mode", req: Request{Mode: "heat_on", DurationMinutes: 10}, wantErr: models.ErrInvalidMode},
		{name: "legacy intent", req: Request{Mode: "manual_on", DurationMinutes: 10}, wantErr: models.ErrInvalidMode},
		{name: "zero duration", req: Request{Mode: "OFF", DurationMinutes: 0}, wantErr: ErrInvalidDuration},
		{name: "negative duration", req: Request{Mode: "OFF", DurationMinutes: -5}, wantErr: ErrInvalidDuration},
		{name: "duration over a year", req: Request{Mode: "HEAT_ON", DurationMinutes: MaxDurationMinutes + 1}, wantErr: ErrInvalidDuration},
		{name: "duration overflowing time.Duration", req: Request{Mode: "HEAT_ON", DurationMinutes: 200_000_000}, wantErr: ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			_ = store.Set(ctx, existing)
			j := &fakeJournal{}
			r := newTestResolver(store, nil, j, "")

			_, err := r.Apply(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			rec, _ := store.Get(ctx)
			if rec == nil || *rec != existing {
				t.Fatalf("record mutated: %+v", rec)
			}
			if len(j.entries) != 0 {
				t.Fatalf("journal written on invalid input")
			}
		})
	}
}

func TestApply_MaxDurationIsActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := &fakeJournal{}
	r := newTestResolver(store, nil, j, "")

	got, err := r.Apply(ctx, Request{Mode: "COOL_ON", DurationMinutes: MaxDurationMinutes, Source: "api", InitiatedBy: "op"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	now := r.now().UTC()
	if !got.Until.After(now) {
		t.Fatalf("until %v is not after now %v", got.Until, now)
	}
	res := r.Resolve(ctx, now.Add(364*24*time.Hour))
	if !res.Active || res.Mode != models.ModeCoolOn || res.Source != SourceManual {
		t.Fatalf("Resolve = %+v, want active manual COOL_ON", res)
	}
	if len(j.entries) != 1 || j.entries[0].DurationMinutes != MaxDurationMinutes {
		t.Fatalf("journal entries = %+v", j.entries)
	}
}

func TestApply_JournalFailureRestoresPrevious(t *testing.T) {
	ctx := context.Background()

	t.Run("restores prior record", func(t *testing.T) {
		store := NewMemoryStore()
		prior := models.OverrideRecord{Mode: models.ModeFanOnly, Source: "button", InitiatedBy: "button"}
		_ = store.Set(ctx, prior)
		r := newTestResolver(store, nil, &fakeJournal{err: errors.New("disk full")}, "")

		if _, err := r.Apply(ctx, Request{Mode: "HEAT_ON", DurationMinutes: 5}); err == nil {
			t.Fatalf("expected error")
		}
		rec, _ := store.Get(ctx)
		if rec == nil || *rec != prior {
			t.Fatalf("record = %+v, want %+v", rec, prior)
		}
	})

	t.Run("clears when there was none", func(t *testing.T) {
		store := NewMemoryStore()
		r := newTestResolver(store, nil, &fakeJournal{err: errors.New("disk full")}, "")

		if _, err := r.Apply(ctx, Request{Mode: "HEAT_ON", DurationMinutes: 5}); err == nil {
			t.Fatalf("expected error")
		}
		if rec, _ := store.Get(ctx); rec != nil {
			t.Fatalf("record = %+v, want none", rec)
		}
	})
}

func TestApply_Toggle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := newTestResolver(store, nil, &fakeJournal{}, "")

	steps := []models.Mode{models.ModeFanOnly, models.ModeOff, models.ModeFanOnly}
	for i, want := range steps {
		a, err := r.Apply(ctx, Request{Toggle: true, DurationMinutes: 30, Source: "button", InitiatedBy: "button"})
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if a.Record.Mode != want {
			t.Fatalf("toggle %d: mode = %s, want %s", i, a.Record.Mode, want)
		}
	}
}

func TestClearIfExpired(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		expiresAt string
		wantClear bool
	}{
		{name: "future kept", expiresAt: monday0830.Add(time.Minute).Format(models.ExpiryLayout), wantClear: false},
		{name: "past cleared", expiresAt: monday0830.Add(-time.Minute).Format(models.ExpiryLayout), wantClear: true},
		{name: "exactly now cleared", expiresAt: monday0830.Format(models.ExpiryLayout), wantClear: true},
		{name: "unparsable cleared", expiresAt: "31/12/2099", wantClear: true},
		{name: "no expiry kept", expiresAt: "", wantClear: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			_ = store.Set(ctx, models.OverrideRecord{Mode: models.ModeHeatOn, ExpiresAt: tt.expiresAt})
			r := newTestResolver(store, nil, &fakeJournal{}, "")

			cleared, err := r.ClearIfExpired(ctx, monday0830)
			if err != nil {
				t.Fatalf("ClearIfExpired: %v", err)
			}
			if cleared != tt.wantClear {
				t.Fatalf("cleared = %v, want %v", cleared, tt.wantClear)
			}
			rec, _ := store.Get(ctx)
			if (rec == nil) != tt.wantClear {
				t.Fatalf("record after = %+v", rec)
			}
		})
	}

	r := newTestResolver(NewMemoryStore(), nil, &fakeJournal{}, "")
	if cleared, err := r.ClearIfExpired(ctx, monday0830); cleared || err != nil {
		t.Fatalf("empty store: cleared=%v err=%v", cleared, err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := &fakeJournal{}
	r := newTestResolver(store, nil, j, "")

	if ok, err := r.Cancel(ctx, "ops"); ok || err != nil {
		t.Fatalf("cancel with nothing active: ok=%v err=%v", ok, err)
	}

	if _, err := r.Apply(ctx, Request{Mode: "HEAT_ON", DurationMinutes: 10, Source: "api", InitiatedBy: "ops"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	ok, err := r.Cancel(ctx, "ops")
	if err != nil || !ok {
		t.Fatalf("Cancel: ok=%v err=%v", ok, err)
	}
	if rec, _ := store.Get(ctx); rec != nil {
		t.Fatalf("record still present: %+v", rec)
	}
	last := j.entries[len(j.entries)-1]
	if last.Source != "cancel" || last.DurationMinutes != 0 || last.Mode != "HEAT_ON" {
		t.Fatalf("cancel entry = %+v", last)
	}
}

func TestApply_ConcurrentWritersKeepChainValid(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "override_log.jsonl")
	j, err := audit.Open(path)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	r := NewResolver(NewMemoryStore(), nil, j, Options{Location: time.UTC})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mode := models.ValidModes[i%len(models.ValidModes)]
			if _, err := r.Apply(ctx, Request{Mode: string(mode), DurationMinutes: i + 1, Source: "api", InitiatedBy: "load"}); err != nil {
				t.Errorf("Apply %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	res, err := audit.VerifyFile(path)
	if err != nil {
		t.Fatalf("VerifyFile: %v", err)
	}
	if !res.Valid || res.Events != 20 {
		t.Fatalf("chain after concurrent writes = %+v", res)
	}
}
