package shortspublisher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"testing"
	"time"

	"shorts-agent/agents/shorts-publisher/uploader"
	"shorts-agent/internal/models"
	"shorts-agent/shared/config"
	"shorts-agent/shared/schedule"
	"shorts-agent/shared/scheduler"
	"shorts-agent/shared/selector"
	"shorts-agent/shared/statestore"
)

type fakeLister struct {
	assets []*models.Asset
	err    error
	calls  int
}

func (f *fakeLister) ListAllVideos(ctx context.Context, folderIDs []string) ([]*models.Asset, error) {
	f.calls++
	return f.assets, f.err
}

type fakeDownloader struct {
	err    error
	gotID  string
	gotDst string
}

func (f *fakeDownloader) Download(ctx context.Context, fileID, dest string) error {
	f.gotID = fileID
	f.gotDst = dest
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("video bytes"), 0644)
}

type fakePublisher struct {
	err      error
	calls    int
	gotPath  string
	gotTitle string
	gotDesc  string
	gotTags  []string
}

func (f *fakePublisher) Publish(ctx context.Context, filePath, title, description string, tags []string) error {
	f.calls++
	f.gotPath = filePath
	f.gotTitle = title
	f.gotDesc = description
	f.gotTags = tags
	return f.err
}

type recordedEvents struct {
	successSummary string
	partialErr     error
	criticalErr    error
	successCount   int
	partialCount   int
	criticalCount  int
}

func (r *recordedEvents) events() *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		OnSuccess: func(metrics scheduler.Metrics, duration time.Duration) {
			r.successCount++
			r.successSummary = metrics.GetSummary()
		},
		OnPartialFailure: func(err error, duration time.Duration) {
			r.partialCount++
			r.partialErr = err
		},
		OnCriticalFailure: func(err error, duration time.Duration) {
			r.criticalCount++
			r.criticalErr = err
		},
	}
}

// newTestAgent wires an agent around fakes, a temp-dir store, and a clock
// pinned to 2025-07-04 14:25 Paris time with an unposted 14:07 slot due.
func newTestAgent(t *testing.T, lister *fakeLister, downloader *fakeDownloader, publisher *fakePublisher) (*ShortsAgent, *statestore.Store) {
	t.Helper()

	cfg := &config.Config{
		Shorts: config.ShortsConfig{
			FolderIDs:    []string{"folder-1"},
			Timezone:     "Europe/Paris",
			SlotHours:    []int{8, 11, 14, 17, 20},
			MinuteStep:   5,
			GraceMinutes: 20,
		},
	}

	store := statestore.New(t.TempDir())

	manager, err := schedule.NewManager(store, &cfg.Shorts)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatal(err)
	}
	manager.Now = func() time.Time { return time.Date(2025, 7, 4, 14, 25, 0, 0, loc) }
	manager.Rand = rand.New(rand.NewSource(1))

	if err := store.Save("schedule", &models.DailySchedule{
		Date: "2025-07-04",
		Slots: []models.Slot{
			{Hour: 8, Minute: 10, Posted: true},
			{Hour: 11, Minute: 45, Posted: true},
			{Hour: 14, Minute: 7},
			{Hour: 17, Minute: 30},
			{Hour: 20, Minute: 0},
		},
	}); err != nil {
		t.Fatal(err)
	}

	agent := NewShortsAgent(cfg)
	agent.store = store
	agent.schedule = manager
	agent.selector = selector.New()
	agent.lister = lister
	agent.downloader = downloader
	agent.publisher = publisher
	agent.rand = rand.New(rand.NewSource(1))

	return agent, store
}

func TestShortsAgentName(t *testing.T) {
	agent := NewShortsAgent(&config.Config{})
	expected := "Shorts Publisher"
	if name := agent.Name(); name != expected {
		t.Errorf("Agent.Name() = %s, want %s", name, expected)
	}

	// Test that agent implements the scheduler.Agent interface
	var _ scheduler.Agent = agent
}

func TestShortsMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  ShortsMetrics
		expected string
	}{
		{
			name:     "No slot due",
			metrics:  ShortsMetrics{},
			expected: "no slot due, nothing to post",
		},
		{
			name:     "Slot due but empty pool",
			metrics:  ShortsMetrics{SlotDue: true, SlotHour: 14, SlotMinute: 7},
			expected: "slot due but no videos available",
		},
		{
			name: "Published",
			metrics: ShortsMetrics{
				SlotDue: true, SlotHour: 14, SlotMinute: 7,
				PoolSize: 12, AssetName: "clip.mp4", Published: true,
			},
			expected: `published "clip.mp4" for slot 14:07 from pool of 12`,
		},
		{
			name: "Force published",
			metrics: ShortsMetrics{
				SlotDue: true, Forced: true,
				PoolSize: 3, AssetName: "clip.mp4", Published: true,
			},
			expected: `force-published "clip.mp4" from pool of 3`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.metrics.GetSummary()
			if result != tt.expected {
				t.Errorf("GetSummary() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestRunOncePublishesAndCommitsState(t *testing.T) {
	lister := &fakeLister{assets: []*models.Asset{
		{ID: "vid-1", Name: "2025-07-04 - LE PROFESSEUR FRINK [xYz123].mp4"},
	}}
	downloader := &fakeDownloader{}
	publisher := &fakePublisher{}
	agent, store := newTestAgent(t, lister, downloader, publisher)
	rec := &recordedEvents{}

	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}

	if publisher.calls != 1 {
		t.Fatalf("publisher called %d times, want 1", publisher.calls)
	}
	if publisher.gotTitle != "Simpsons Short - LE PROFESSEUR FRINK" {
		t.Errorf("title = %q", publisher.gotTitle)
	}
	if publisher.gotDesc == "" {
		t.Error("no description chosen")
	}
	if len(publisher.gotTags) != 50 {
		t.Errorf("got %d tags, want 50", len(publisher.gotTags))
	}
	if downloader.gotID != "vid-1" {
		t.Errorf("downloaded %q, want vid-1", downloader.gotID)
	}

	var reg models.UsedRegistry
	if err := store.Load("used", &reg); err != nil {
		t.Fatal(err)
	}
	if len(reg.UsedIDs) != 1 || reg.UsedIDs[0] != "vid-1" {
		t.Errorf("used registry = %v, want [vid-1]", reg.UsedIDs)
	}

	var sch models.DailySchedule
	if err := store.Load("schedule", &sch); err != nil {
		t.Fatal(err)
	}
	if !sch.Slots[2].Posted {
		t.Error("14:07 slot not marked posted")
	}

	if rec.successCount != 1 {
		t.Errorf("success recorded %d times, want 1", rec.successCount)
	}
}

func TestRunOncePostedSlotNotDueAgain(t *testing.T) {
	lister := &fakeLister{assets: []*models.Asset{{ID: "vid-1", Name: "a.mp4"}}}
	publisher := &fakePublisher{}
	agent, _ := newTestAgent(t, lister, &fakeDownloader{}, publisher)
	rec := &recordedEvents{}

	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatal(err)
	}
	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatal(err)
	}

	if publisher.calls != 1 {
		t.Errorf("publisher called %d times across two passes, want 1", publisher.calls)
	}
	if rec.successSummary != "no slot due, nothing to post" {
		t.Errorf("second pass summary = %q", rec.successSummary)
	}
}

func TestRunOncePublishFailureLeavesStateUntouched(t *testing.T) {
	lister := &fakeLister{assets: []*models.Asset{{ID: "vid-1", Name: "a.mp4"}}}
	publisher := &fakePublisher{err: &uploader.PublishError{ExitCode: 1, Stderr: "quota exceeded"}}
	agent, store := newTestAgent(t, lister, &fakeDownloader{}, publisher)
	rec := &recordedEvents{}

	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce() returned error for publish failure: %v", err)
	}

	if rec.partialCount != 1 {
		t.Errorf("partial failure recorded %d times, want 1", rec.partialCount)
	}
	if rec.partialErr == nil || !strings.Contains(rec.partialErr.Error(), "quota exceeded") {
		t.Errorf("partial failure error = %v, want uploader stderr preserved", rec.partialErr)
	}

	var reg models.UsedRegistry
	if err := store.Load("used", &reg); err != nil {
		t.Fatal(err)
	}
	if len(reg.UsedIDs) != 0 {
		t.Errorf("used registry mutated on failed publish: %v", reg.UsedIDs)
	}

	var sch models.DailySchedule
	if err := store.Load("schedule", &sch); err != nil {
		t.Fatal(err)
	}
	if sch.Slots[2].Posted {
		t.Error("slot marked posted despite failed publish")
	}

	// Same slot is still eligible, so the next pass retries.
	publisher.err = nil
	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatal(err)
	}
	if publisher.calls != 2 {
		t.Errorf("publisher called %d times, want 2", publisher.calls)
	}
}

func TestRunOnceExhaustionResetNotPersistedOnFailure(t *testing.T) {
	lister := &fakeLister{assets: []*models.Asset{{ID: "vid-1", Name: "a.mp4"}}}
	publisher := &fakePublisher{err: errors.New("network down")}
	agent, store := newTestAgent(t, lister, &fakeDownloader{}, publisher)

	// Every pool asset already used: the selector resets in memory only.
	if err := store.Save("used", &models.UsedRegistry{UsedIDs: []string{"vid-1"}}); err != nil {
		t.Fatal(err)
	}

	if err := agent.RunOnce(context.Background(), (&recordedEvents{}).events()); err != nil {
		t.Fatal(err)
	}

	var reg models.UsedRegistry
	if err := store.Load("used", &reg); err != nil {
		t.Fatal(err)
	}
	if len(reg.UsedIDs) != 1 || reg.UsedIDs[0] != "vid-1" {
		t.Errorf("dedup history lost on failed cycle restart: %v", reg.UsedIDs)
	}
}

func TestRunOnceNoSlotDue(t *testing.T) {
	lister := &fakeLister{assets: []*models.Asset{{ID: "vid-1", Name: "a.mp4"}}}
	agent, _ := newTestAgent(t, lister, &fakeDownloader{}, &fakePublisher{})
	rec := &recordedEvents{}

	// Move the clock past every slot's grace window.
	loc, _ := time.LoadLocation("Europe/Paris")
	agent.schedule.Now = func() time.Time { return time.Date(2025, 7, 4, 23, 50, 0, 0, loc) }

	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatal(err)
	}

	if lister.calls != 0 {
		t.Error("pool fetched although no slot was due")
	}
	if rec.successSummary != "no slot due, nothing to post" {
		t.Errorf("summary = %q", rec.successSummary)
	}
}

func TestRunOnceForcePost(t *testing.T) {
	lister := &fakeLister{assets: []*models.Asset{{ID: "vid-1", Name: "a.mp4"}}}
	publisher := &fakePublisher{}
	agent, store := newTestAgent(t, lister, &fakeDownloader{}, publisher)
	rec := &recordedEvents{}

	loc, _ := time.LoadLocation("Europe/Paris")
	agent.schedule.Now = func() time.Time { return time.Date(2025, 7, 4, 23, 50, 0, 0, loc) }
	agent.config.Shorts.ForcePost = true

	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatal(err)
	}

	if publisher.calls != 1 {
		t.Fatalf("publisher called %d times, want 1", publisher.calls)
	}

	// A forced run must not consume any real slot.
	var sch models.DailySchedule
	if err := store.Load("schedule", &sch); err != nil {
		t.Fatal(err)
	}
	for i, slot := range sch.Slots[2:] {
		if slot.Posted {
			t.Errorf("real slot %d marked posted by forced run", i+2)
		}
	}

	if rec.successSummary != `force-published "a.mp4" from pool of 1` {
		t.Errorf("summary = %q", rec.successSummary)
	}
}

func TestRunOnceEmptyPool(t *testing.T) {
	lister := &fakeLister{}
	publisher := &fakePublisher{}
	agent, _ := newTestAgent(t, lister, &fakeDownloader{}, publisher)
	rec := &recordedEvents{}

	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce() error for empty pool: %v", err)
	}

	if publisher.calls != 0 {
		t.Error("publisher called with empty pool")
	}
	if rec.successSummary != "slot due but no videos available" {
		t.Errorf("summary = %q", rec.successSummary)
	}
}

func TestRunOnceListFailureIsCritical(t *testing.T) {
	lister := &fakeLister{err: fmt.Errorf("drive unreachable")}
	agent, store := newTestAgent(t, lister, &fakeDownloader{}, &fakePublisher{})
	rec := &recordedEvents{}

	err := agent.RunOnce(context.Background(), rec.events())
	if err == nil {
		t.Fatal("RunOnce() = nil, want error")
	}
	if rec.criticalCount != 1 {
		t.Errorf("critical failure recorded %d times, want 1", rec.criticalCount)
	}
	if rec.criticalErr == nil || !strings.Contains(rec.criticalErr.Error(), "drive unreachable") {
		t.Errorf("critical failure error = %v, want fetch error preserved", rec.criticalErr)
	}

	var sch models.DailySchedule
	if err := store.Load("schedule", &sch); err != nil {
		t.Fatal(err)
	}
	if sch.Slots[2].Posted {
		t.Error("state mutated by failed fetch")
	}
}

func TestRunOnceDownloadFailureIsCritical(t *testing.T) {
	lister := &fakeLister{assets: []*models.Asset{{ID: "vid-1", Name: "a.mp4"}}}
	downloader := &fakeDownloader{err: errors.New("stream interrupted")}
	publisher := &fakePublisher{}
	agent, store := newTestAgent(t, lister, downloader, publisher)
	rec := &recordedEvents{}

	if err := agent.RunOnce(context.Background(), rec.events()); err == nil {
		t.Fatal("RunOnce() = nil, want error")
	}

	if publisher.calls != 0 {
		t.Error("publisher called after failed download")
	}

	var reg models.UsedRegistry
	if err := store.Load("used", &reg); err != nil {
		t.Fatal(err)
	}
	if len(reg.UsedIDs) != 0 {
		t.Errorf("used registry mutated by failed download: %v", reg.UsedIDs)
	}
}
