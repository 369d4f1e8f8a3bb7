// Package savestate persists battery saves and numbered save-state slots.
//
// All store failures stop here: they are logged, counted, and turned into
// a false result, the emulation is never interrupted by them.
package savestate

import (
	"context"
	"errors"
	"image"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giongto35/retrorun/pkg/core"
	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/giongto35/retrorun/pkg/monitoring"
	"github.com/giongto35/retrorun/pkg/store"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/blake2b"
)

// Store keys inside a namespace.
const (
	LegacyName  = "sav"
	BatteryDir  = "battery"
	BatteryName = "sav"
	SlotsDir    = "slots"
)

// Core is the part of the core bridge the saves need.
type Core interface {
	PathExists(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	SerializeBattery()
	Freeze()
	Unfreeze()
}

type Options struct {
	Slots           int
	ThumbnailWidth  int
	ThumbnailHeight int
}

type SlotInfo struct {
	Index        int       `json:"index"`
	Time         time.Time `json:"time"`
	Size         int       `json:"size"`
	HasThumbnail bool      `json:"thumbnail"`
}

type Manager struct {
	core    Core
	st      store.Store
	opts    Options
	log     *logger.Logger
	metrics *monitoring.Metrics

	started atomic.Bool

	// the hash of the last persisted battery save per namespace
	mu    sync.Mutex
	saved map[string][blake2b.Size256]byte

	onStatus func(Event)
}

func New(c Core, st store.Store, opts Options, metrics *monitoring.Metrics, log *logger.Logger) *Manager {
	if opts.Slots <= 0 {
		opts.Slots = 10
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	return &Manager{
		core:    c,
		st:      st,
		opts:    opts,
		log:     log.Module("saves"),
		metrics: metrics,
		saved:   make(map[string][blake2b.Size256]byte),
	}
}

// OnStatus sets the status indicator callback.
func (m *Manager) OnStatus(fn func(Event)) { m.onStatus = fn }

// SetStarted allows the battery flushes.
func (m *Manager) SetStarted(v bool) { m.started.Store(v) }

func (m *Manager) Slots() int { return m.opts.Slots }

func (m *Manager) status(s Status, slot int, err error) {
	if m.onStatus != nil {
		m.onStatus(Event{Status: s, Slot: slot, Err: err})
	}
}

func (m *Manager) fail(op, key string, err error, slot int) {
	e := &SaveIOError{Op: op, Key: key, Err: err}
	m.metrics.SaveErrors.WithLabelValues(op).Inc()
	m.log.Error().Err(e).Msg("save failed")
	m.status(Failed, slot, e)
}

// MigrateLegacySave moves the battery save from the old single-key layout.
// It is a no-op when there is nothing to migrate.
// An existing battery save is never replaced, only the legacy keys are removed then.
func (m *Manager) MigrateLegacySave(ctx context.Context, ns store.Namespace) bool {
	legacy := ns.Key(LegacyName)
	data, err := m.st.Get(ctx, legacy)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		m.fail("migrate", legacy, err, -1)
		return false
	}

	key := ns.Key(BatteryDir, BatteryName)
	moved := false
	switch _, err = m.st.Get(ctx, key); {
	case err == nil:
		// a previous migration stopped before the cleanup
		m.log.Info().Str(logger.NamespaceField, ns.String()).Msg("Removing migrated local saves")
	case errors.Is(err, store.ErrNotFound):
		m.log.Info().Str(logger.NamespaceField, ns.String()).Msg("Migrating local saves")
		if err = m.st.Put(ctx, key, data); err != nil {
			m.fail("migrate", key, err, -1)
			return false
		}
		moved = true
	default:
		m.fail("migrate", key, err, -1)
		return false
	}

	var errs *multierror.Error
	errs = multierror.Append(errs,
		m.st.Remove(ctx, legacy),
		m.st.Remove(ctx, ns.Key(LegacyName, "info")),
	)
	if err = errs.ErrorOrNil(); err != nil {
		m.fail("migrate", legacy, err, -1)
	}
	return moved
}

// LoadBatterySave puts the stored battery save into the core namespace,
// unless the core already has one.
func (m *Manager) LoadBatterySave(ctx context.Context, ns store.Namespace) bool {
	if m.core.PathExists(core.BatteryPath) {
		m.log.Debug().Msg("Battery file exists, skip loading")
		return false
	}
	key := ns.Key(BatteryDir, BatteryName)
	data, err := m.st.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	m.status(Loading, -1, nil)
	if err != nil {
		m.fail("load", key, err, -1)
		return false
	}
	if err = m.core.WriteFile(core.BatteryPath, data); err != nil {
		m.fail("load", core.BatteryPath, err, -1)
		return false
	}
	m.remember(ns, data)
	m.log.Info().Msgf("Battery save loaded: %v bytes", len(data))
	m.status(Loaded, -1, nil)
	return true
}

// FlushBatterySave persists the live battery save if it has changed.
// Returns true only if the store was written.
func (m *Manager) FlushBatterySave(ctx context.Context, ns store.Namespace) bool {
	if !m.started.Load() || ns.IsZero() {
		return false
	}
	m.core.SerializeBattery()
	if !m.core.PathExists(core.BatteryPath) {
		return false
	}
	data, err := m.core.ReadFile(core.BatteryPath)
	if err != nil {
		m.fail("flush", core.BatteryPath, err, -1)
		return false
	}
	if len(data) == 0 {
		return false
	}

	sum := blake2b.Sum256(data)
	if m.same(ns, sum) {
		m.metrics.BatteryElided.Inc()
		m.log.Debug().Msg("Battery save is unchanged")
		return false
	}

	key := ns.Key(BatteryDir, BatteryName)
	m.status(Saving, -1, nil)
	if err = m.st.Put(ctx, key, data); err != nil {
		m.fail("flush", key, err, -1)
		return false
	}
	m.mu.Lock()
	m.saved[ns.Key()] = sum
	m.mu.Unlock()
	m.metrics.BatteryWrites.Inc()
	m.log.Info().Msgf("Battery save persisted: %v bytes", len(data))
	m.status(Saved, -1, nil)
	return true
}

func (m *Manager) remember(ns store.Namespace, data []byte) {
	m.mu.Lock()
	m.saved[ns.Key()] = blake2b.Sum256(data)
	m.mu.Unlock()
}

func (m *Manager) same(ns store.Namespace, sum [blake2b.Size256]byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.saved[ns.Key()]
	return ok && last == sum
}

func (m *Manager) slotKey(ns store.Namespace, index int, ext string) string {
	return ns.Key(SlotsDir, strconv.Itoa(index)+ext)
}

func (m *Manager) checkSlot(index int) error {
	if index < 0 || index >= m.opts.Slots {
		return ErrBadSlot
	}
	return nil
}

// SaveSlot snapshots the whole core state into the slot.
// The thumbnail may be nil.
func (m *Manager) SaveSlot(ctx context.Context, ns store.Namespace, index int, thumb image.Image) bool {
	if err := m.checkSlot(index); err != nil {
		m.log.Warn().Err(err).Int("slot", index).Msg("save slot")
		return false
	}
	m.status(Saving, index, nil)

	m.core.Freeze()
	data, err := m.core.ReadFile(core.SnapshotPath)
	if err != nil {
		m.fail("slot save", core.SnapshotPath, err, index)
		return false
	}

	key := m.slotKey(ns, index, "")
	if err = m.st.Put(ctx, key, data); err != nil {
		m.fail("slot save", key, err, index)
		return false
	}

	info := SlotInfo{Index: index, Time: time.Now().UTC(), Size: len(data)}
	pngKey := m.slotKey(ns, index, ".png")
	if thumb != nil {
		if pic, err := thumbnail(thumb, m.opts.ThumbnailWidth, m.opts.ThumbnailHeight); err != nil {
			m.log.Warn().Err(err).Msg("thumbnail")
		} else if err = m.st.Put(ctx, pngKey, pic); err != nil {
			m.log.Warn().Err(err).Msg("thumbnail")
		} else {
			info.HasThumbnail = true
		}
	}
	if !info.HasThumbnail {
		_ = m.st.Remove(ctx, pngKey)
	}

	meta, err := json.Marshal(info)
	if err != nil {
		m.fail("slot save", key, err, index)
		return false
	}
	infoKey := m.slotKey(ns, index, ".info")
	if err = m.st.Put(ctx, infoKey, meta); err != nil {
		m.fail("slot save", infoKey, err, index)
		return false
	}

	m.metrics.SlotSaves.Inc()
	m.log.Info().Msgf("State saved to slot %d", index)
	m.status(Saved, index, nil)
	return true
}

// LoadSlot restores the core state from the slot.
// A missing slot gives false without touching the core.
func (m *Manager) LoadSlot(ctx context.Context, ns store.Namespace, index int) bool {
	if err := m.checkSlot(index); err != nil {
		m.log.Debug().Err(err).Int("slot", index).Msg("load slot")
		return false
	}
	key := m.slotKey(ns, index, "")
	data, err := m.st.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		m.log.Debug().Err(ErrSlotNotFound).Int("slot", index).Msg("load slot")
		return false
	}
	if err != nil {
		m.fail("slot load", key, err, index)
		return false
	}
	m.status(Loading, index, nil)
	if err = m.core.WriteFile(core.SnapshotPath, data); err != nil {
		m.fail("slot load", core.SnapshotPath, err, index)
		return false
	}
	m.core.Unfreeze()

	m.metrics.SlotLoads.Inc()
	m.log.Info().Msgf("State loaded from slot %d", index)
	m.status(Loaded, index, nil)
	return true
}

// DeleteSlot removes the slot, the info goes first so a partly removed slot is not listed.
func (m *Manager) DeleteSlot(ctx context.Context, ns store.Namespace, index int) bool {
	if err := m.checkSlot(index); err != nil {
		return false
	}
	var errs *multierror.Error
	for _, ext := range []string{".info", "", ".png"} {
		errs = multierror.Append(errs, m.st.Remove(ctx, m.slotKey(ns, index, ext)))
	}
	if err := errs.ErrorOrNil(); err != nil {
		m.fail("slot delete", m.slotKey(ns, index, ""), err, index)
		return false
	}
	m.status(Deleted, index, nil)
	return true
}

// ListSlots returns the info of all the saved slots ordered by index.
func (m *Manager) ListSlots(ctx context.Context, ns store.Namespace) []SlotInfo {
	var slots []SlotInfo
	for i := 0; i < m.opts.Slots; i++ {
		key := m.slotKey(ns, i, ".info")
		data, err := m.st.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			m.fail("slot list", key, err, i)
			continue
		}
		var info SlotInfo
		if err = json.Unmarshal(data, &info); err != nil {
			m.log.Warn().Err(err).Str("key", key).Msg("bad slot info")
			continue
		}
		info.Index = i
		slots = append(slots, info)
	}
	return slots
}

// Thumbnail returns the PNG picture of the slot.
func (m *Manager) Thumbnail(ctx context.Context, ns store.Namespace, index int) ([]byte, bool) {
	if m.checkSlot(index) != nil {
		return nil, false
	}
	data, err := m.st.Get(ctx, m.slotKey(ns, index, ".png"))
	if err != nil {
		return nil, false
	}
	return data, true
}
