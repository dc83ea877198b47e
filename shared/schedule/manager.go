// Package schedule decides whether the current invocation falls inside one
// of today's posting slots. Each configured hour gets a randomly drawn
// minute once per day; a slot stays eligible for a grace window after its
// nominal time and is forfeited for the day once that window has passed.
package schedule

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"shorts-agent/internal/models"
	"shorts-agent/shared/config"
)

const documentName = "schedule"

// Store is the persistence surface the manager needs. Satisfied by
// statestore.Store; tests substitute in-memory fakes.
type Store interface {
	Load(name string, v any) error
	Save(name string, v any) error
}

type Manager struct {
	store      Store
	location   *time.Location
	slotHours  []int
	minuteStep int
	grace      time.Duration

	// Now and Rand are swappable so tests can pin the clock and the
	// minute draw.
	Now  func() time.Time
	Rand *rand.Rand
}

func NewManager(store Store, cfg *config.ShortsConfig) (*Manager, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", cfg.Timezone, err)
	}

	return &Manager{
		store:      store,
		location:   loc,
		slotHours:  cfg.SlotHours,
		minuteStep: cfg.MinuteStep,
		grace:      time.Duration(cfg.GraceMinutes) * time.Minute,
		Now:        time.Now,
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// EnsureToday returns the schedule for the current calendar day, generating
// and persisting a fresh one when the stored schedule is for another date
// or has no slots.
func (m *Manager) EnsureToday() (*models.DailySchedule, error) {
	today := m.Now().In(m.location).Format("2006-01-02")

	sch := &models.DailySchedule{}
	if err := m.store.Load(documentName, sch); err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	if sch.Date != today || len(sch.Slots) == 0 {
		sch = m.generate(today)
		if err := m.store.Save(documentName, sch); err != nil {
			return nil, fmt.Errorf("failed to save schedule: %w", err)
		}
	}

	var times []string
	for _, slot := range sch.Slots {
		times = append(times, fmt.Sprintf("%02d:%02d", slot.Hour, slot.Minute))
	}
	log.Printf("Posting plan for %s (%s): %s", today, m.location, strings.Join(times, ", "))

	return sch, nil
}

func (m *Manager) generate(date string) *models.DailySchedule {
	slots := make([]models.Slot, 0, len(m.slotHours))
	for _, hour := range m.slotHours {
		minute := m.Rand.Intn(60/m.minuteStep) * m.minuteStep
		slots = append(slots, models.Slot{Hour: hour, Minute: minute})
	}
	return &models.DailySchedule{Date: date, Slots: slots}
}

// DueSlot returns the first unposted slot whose grace window contains the
// current time, or nil. Slots whose window already elapsed stay unposted
// and are skipped for the rest of the day.
func (m *Manager) DueSlot(sch *models.DailySchedule) *models.Slot {
	now := m.Now().In(m.location)

	for i := range sch.Slots {
		slot := &sch.Slots[i]
		if slot.Posted {
			continue
		}
		slotTime := time.Date(now.Year(), now.Month(), now.Day(), slot.Hour, slot.Minute, 0, 0, m.location)
		if !now.Before(slotTime) && now.Before(slotTime.Add(m.grace)) {
			if delay := now.Sub(slotTime); delay >= time.Minute {
				log.Printf("Slot %02d:%02d caught up %d min late (grace %d min)",
					slot.Hour, slot.Minute, int(delay.Minutes()), int(m.grace.Minutes()))
			}
			return slot
		}
	}
	return nil
}

// MarkPosted flips the slot's posted flag and persists the whole schedule
// immediately, so a retried invocation never sees the slot as due again.
func (m *Manager) MarkPosted(sch *models.DailySchedule, slot *models.Slot) error {
	slot.Posted = true
	if err := m.store.Save(documentName, sch); err != nil {
		return fmt.Errorf("failed to persist posted slot: %w", err)
	}
	return nil
}
