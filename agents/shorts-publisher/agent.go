package shortspublisher

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"shorts-agent/agents/shorts-publisher/drive"
	"shorts-agent/agents/shorts-publisher/uploader"
	"shorts-agent/internal/models"
	"shorts-agent/shared/config"
	"shorts-agent/shared/schedule"
	"shorts-agent/shared/scheduler"
	"shorts-agent/shared/selector"
	"shorts-agent/shared/statestore"
)

const usedDocument = "used"

// ShortsMetrics represents the outcome of one publishing run
type ShortsMetrics struct {
	SlotDue    bool   `json:"slot_due"`
	SlotHour   int    `json:"slot_hour"`
	SlotMinute int    `json:"slot_minute"`
	PoolSize   int    `json:"pool_size"`
	AssetName  string `json:"asset_name"`
	Published  bool   `json:"published"`
	Forced     bool   `json:"forced"`
}

// GetSummary implements the scheduler.Metrics interface
func (m ShortsMetrics) GetSummary() string {
	switch {
	case m.Published && m.Forced:
		return fmt.Sprintf("force-published %q from pool of %d", m.AssetName, m.PoolSize)
	case m.Published:
		return fmt.Sprintf("published %q for slot %02d:%02d from pool of %d",
			m.AssetName, m.SlotHour, m.SlotMinute, m.PoolSize)
	case !m.SlotDue:
		return "no slot due, nothing to post"
	case m.PoolSize == 0:
		return "slot due but no videos available"
	default:
		return "slot due but nothing selected"
	}
}

// Narrow collaborator surfaces so tests can substitute fakes for the Drive
// and upload calls.
type assetLister interface {
	ListAllVideos(ctx context.Context, folderIDs []string) ([]*models.Asset, error)
}

type assetDownloader interface {
	Download(ctx context.Context, fileID, dest string) error
}

type videoPublisher interface {
	Publish(ctx context.Context, filePath, title, description string, tags []string) error
}

// ShortsAgent implements the scheduler.Agent interface
type ShortsAgent struct {
	config     *config.Config
	store      *statestore.Store
	schedule   *schedule.Manager
	selector   *selector.Selector
	lister     assetLister
	downloader assetDownloader
	publisher  videoPublisher
	rand       *rand.Rand
}

func NewShortsAgent(cfg *config.Config) *ShortsAgent {
	return &ShortsAgent{
		config: cfg,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (a *ShortsAgent) Name() string {
	return "Shorts Publisher"
}

func (a *ShortsAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())

	if a.store == nil {
		a.store = statestore.New(a.config.Shorts.StateDir)
		log.Printf("State store initialized (dir: %s)", a.config.Shorts.StateDir)
	}

	if a.schedule == nil {
		manager, err := schedule.NewManager(a.store, &a.config.Shorts)
		if err != nil {
			return fmt.Errorf("failed to create schedule manager: %w", err)
		}
		a.schedule = manager
		log.Println("Schedule manager initialized")
	}

	if a.selector == nil {
		a.selector = selector.New()
	}

	if a.lister == nil || a.downloader == nil {
		client, err := drive.NewClient(context.Background(), &a.config.Shorts)
		if err != nil {
			return fmt.Errorf("failed to create Drive client: %w", err)
		}
		a.lister = client
		a.downloader = client
		log.Println("Drive client initialized")
	}

	if a.publisher == nil {
		a.publisher = uploader.New(&a.config.Shorts)
		log.Println("Uploader initialized")
	}

	return nil
}

// RunOnce performs at most one publish. It checks whether a slot is due,
// picks an unused video, stages and uploads it, and commits the used
// registry and the slot's posted flag only after the upload succeeded.
func (a *ShortsAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := ShortsMetrics{}

	sch, err := a.schedule.EnsureToday()
	if err != nil {
		return a.critical(events, startTime, fmt.Errorf("failed to prepare today's schedule: %w", err))
	}

	slot := a.schedule.DueSlot(sch)
	if slot == nil && a.config.Shorts.ForcePost {
		log.Println("No slot due but force post is set, publishing anyway")
		slot = &models.Slot{Hour: 99, Minute: 99}
		metrics.Forced = true
	}
	if slot == nil {
		log.Println("No slot due, waiting for the next pass")
		a.success(events, metrics, startTime)
		return nil
	}
	metrics.SlotDue = true
	metrics.SlotHour = slot.Hour
	metrics.SlotMinute = slot.Minute

	reg := &models.UsedRegistry{}
	if err := a.store.Load(usedDocument, reg); err != nil {
		return a.critical(events, startTime, fmt.Errorf("failed to load used registry: %w", err))
	}

	pool, err := a.lister.ListAllVideos(ctx, a.config.Shorts.FolderIDs)
	if err != nil {
		return a.critical(events, startTime, fmt.Errorf("failed to list videos: %w", err))
	}
	metrics.PoolSize = len(pool)

	if len(pool) == 0 {
		log.Println("No videos found in configured folders")
		a.success(events, metrics, startTime)
		return nil
	}

	chosen := a.selector.Pick(pool, reg)
	if chosen == nil {
		a.success(events, metrics, startTime)
		return nil
	}
	log.Printf("Selected video: %s (%s)", chosen.Name, chosen.ID)

	runDir, err := os.MkdirTemp("", "shorts-publisher-")
	if err != nil {
		return a.critical(events, startTime, fmt.Errorf("failed to create staging directory: %w", err))
	}
	defer os.RemoveAll(runDir)

	localPath := filepath.Join(runDir, chosen.Name)
	log.Println("Downloading...")
	if err := a.downloader.Download(ctx, chosen.ID, localPath); err != nil {
		return a.critical(events, startTime, fmt.Errorf("failed to download %s: %w", chosen.Name, err))
	}

	title := formatTitle(chosen.Name)
	description := defaultDescriptions[a.rand.Intn(len(defaultDescriptions))]
	log.Printf("Title: %s", title)
	log.Printf("Description: %s", description)

	if err := a.publisher.Publish(ctx, localPath, title, description, defaultTags); err != nil {
		// State stays untouched so the slot remains due within its grace
		// window and the next pass retries.
		log.Printf("Upload failed, slot stays eligible for retry: %v", err)
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(fmt.Errorf("failed to publish %s: %w", chosen.Name, err), time.Since(startTime))
		}
		return nil
	}

	// Upload confirmed. Commit both documents; each persist is idempotent
	// on its own, so a crash between them only costs a log warning.
	reg.UsedIDs = append(reg.UsedIDs, chosen.ID)
	if err := a.store.Save(usedDocument, reg); err != nil {
		log.Printf("Warning: failed to persist used registry: %v", err)
	}
	if err := a.schedule.MarkPosted(sch, slot); err != nil {
		log.Printf("Warning: failed to persist posted slot: %v", err)
	}

	metrics.Published = true
	metrics.AssetName = chosen.Name
	log.Println("Upload OK, used registry and daily plan updated")
	a.success(events, metrics, startTime)
	return nil
}

func (a *ShortsAgent) success(events *scheduler.AgentEvents, metrics ShortsMetrics, startTime time.Time) {
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}
}

func (a *ShortsAgent) critical(events *scheduler.AgentEvents, startTime time.Time, err error) error {
	if events != nil && events.OnCriticalFailure != nil {
		events.OnCriticalFailure(err, time.Since(startTime))
	}
	return err
}
