package savestate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/giongto35/retrorun/pkg/core"
	"github.com/giongto35/retrorun/pkg/core/coretest"
	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/giongto35/retrorun/pkg/monitoring"
	"github.com/giongto35/retrorun/pkg/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var errBroken = errors.New("broken")

// flaky is a memory store that fails on demand.
type flaky struct {
	*store.Memory
	fail       bool
	failRemove bool
}

func (f *flaky) Remove(ctx context.Context, key string) error {
	if f.fail || f.failRemove {
		return errBroken
	}
	return f.Memory.Remove(ctx, key)
}

func (f *flaky) Put(ctx context.Context, key string, data []byte) error {
	if f.fail {
		return errBroken
	}
	return f.Memory.Put(ctx, key, data)
}

func (f *flaky) Get(ctx context.Context, key string) ([]byte, error) {
	if f.fail {
		return nil, errBroken
	}
	return f.Memory.Get(ctx, key)
}

type env struct {
	fake    *coretest.Fake
	bridge  *core.Bridge
	st      *flaky
	m       *Manager
	metrics *monitoring.Metrics
	ns      store.Namespace
	events  []Event
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fake := coretest.New()
	b, err := core.Initialize(context.Background(), fake.Loader(), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ns, _ := store.NewNamespace("retrorun", "5eed")
	e := &env{fake: fake, bridge: b, st: &flaky{Memory: store.NewMemory()}, metrics: monitoring.NewMetrics(), ns: ns}
	e.m = New(b, e.st, Options{Slots: 10, ThumbnailWidth: 64, ThumbnailHeight: 56}, e.metrics, logger.Nop())
	e.m.OnStatus(func(ev Event) { e.events = append(e.events, ev) })
	return e
}

func (e *env) get(t *testing.T, key string) []byte {
	t.Helper()
	b, err := e.st.Memory.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%v) = %v", key, err)
	}
	return b
}

func TestFlushElision(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.fake.SetSRAM([]byte{1, 2, 3})

	if e.m.FlushBatterySave(ctx, e.ns) {
		t.Errorf("flush before start")
	}
	if e.st.Puts() != 0 {
		t.Fatalf("store written before start")
	}

	e.m.SetStarted(true)
	if !e.m.FlushBatterySave(ctx, e.ns) {
		t.Errorf("first flush not written")
	}
	if e.m.FlushBatterySave(ctx, e.ns) {
		t.Errorf("unchanged flush written")
	}
	if e.st.Puts() != 1 {
		t.Errorf("Puts() = %v, want 1", e.st.Puts())
	}
	if got := testutil.ToFloat64(e.metrics.BatteryElided); got != 1 {
		t.Errorf("elided = %v", got)
	}

	e.fake.SetSRAM([]byte{1, 2, 4})
	if !e.m.FlushBatterySave(ctx, e.ns) {
		t.Errorf("changed flush not written")
	}
	if got := e.get(t, e.ns.Key(BatteryDir, BatteryName)); !bytes.Equal(got, []byte{1, 2, 4}) {
		t.Errorf("stored %v", got)
	}
}

func TestFlushFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.m.SetStarted(true)
	e.fake.SetSRAM([]byte{7})

	e.st.fail = true
	if e.m.FlushBatterySave(ctx, e.ns) {
		t.Errorf("failed flush reported as written")
	}
	if got := testutil.ToFloat64(e.metrics.SaveErrors.WithLabelValues("flush")); got != 1 {
		t.Errorf("flush errors = %v", got)
	}
	last := e.events[len(e.events)-1]
	var sie *SaveIOError
	if last.Status != Failed || !errors.As(last.Err, &sie) || !errors.Is(sie, errBroken) {
		t.Errorf("last event %+v", last)
	}

	e.st.fail = false
	if !e.m.FlushBatterySave(ctx, e.ns) {
		t.Errorf("retry after a failure is elided")
	}
}

func TestMigrateLegacySave(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_ = e.st.Put(ctx, e.ns.Key(LegacyName), []byte("old sram"))
	_ = e.st.Put(ctx, e.ns.Key(LegacyName, "info"), []byte("{}"))

	if !e.m.MigrateLegacySave(ctx, e.ns) {
		t.Fatalf("nothing migrated")
	}
	if got := e.get(t, e.ns.Key(BatteryDir, BatteryName)); string(got) != "old sram" {
		t.Errorf("battery = %q", got)
	}
	for _, k := range []string{e.ns.Key(LegacyName), e.ns.Key(LegacyName, "info")} {
		if _, err := e.st.Memory.Get(ctx, k); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("legacy key %v is left", k)
		}
	}

	puts := e.st.Puts()
	if e.m.MigrateLegacySave(ctx, e.ns) {
		t.Errorf("second migration is not a no-op")
	}
	if e.st.Puts() != puts {
		t.Errorf("second migration wrote the store")
	}
	for _, ev := range e.events {
		if ev.Status == Failed {
			t.Errorf("unexpected failure %v", ev.Err)
		}
	}
}

func TestMigrateAfterFailedCleanup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_ = e.st.Put(ctx, e.ns.Key(LegacyName), []byte("old sram"))

	e.st.failRemove = true
	if !e.m.MigrateLegacySave(ctx, e.ns) {
		t.Fatalf("nothing migrated")
	}
	e.st.failRemove = false

	// the game was played and saved before the next boot
	_ = e.st.Put(ctx, e.ns.Key(BatteryDir, BatteryName), []byte("new sram"))

	if e.m.MigrateLegacySave(ctx, e.ns) {
		t.Errorf("migrated again")
	}
	if got := e.get(t, e.ns.Key(BatteryDir, BatteryName)); string(got) != "new sram" {
		t.Errorf("battery = %q", got)
	}
	if _, err := e.st.Memory.Get(ctx, e.ns.Key(LegacyName)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("legacy key is left: %v", err)
	}
}

func TestLoadBatterySave(t *testing.T) {
	ctx := context.Background()

	t.Run("restores and seeds the cache", func(t *testing.T) {
		e := newEnv(t)
		_ = e.st.Put(ctx, e.ns.Key(BatteryDir, BatteryName), []byte{9, 9})
		if !e.m.LoadBatterySave(ctx, e.ns) {
			t.Fatalf("not loaded")
		}
		got, _ := e.bridge.ReadFile(core.BatteryPath)
		if !bytes.Equal(got, []byte{9, 9}) {
			t.Errorf("battery file %v", got)
		}
		// the core boots with the loaded battery and flushes it back unchanged
		_ = e.bridge.InstallCartridge([]byte{1}, 0)
		e.m.SetStarted(true)
		puts := e.st.Puts()
		if e.m.FlushBatterySave(ctx, e.ns) || e.st.Puts() != puts {
			t.Errorf("the loaded battery was written back")
		}
	})

	t.Run("core file wins", func(t *testing.T) {
		e := newEnv(t)
		_ = e.st.Put(ctx, e.ns.Key(BatteryDir, BatteryName), []byte{9, 9})
		_ = e.bridge.WriteFile(core.BatteryPath, []byte{5})
		if e.m.LoadBatterySave(ctx, e.ns) {
			t.Errorf("loaded over the core file")
		}
		got, _ := e.bridge.ReadFile(core.BatteryPath)
		if !bytes.Equal(got, []byte{5}) {
			t.Errorf("battery file %v", got)
		}
	})

	t.Run("nothing stored", func(t *testing.T) {
		e := newEnv(t)
		if e.m.LoadBatterySave(ctx, e.ns) {
			t.Errorf("loaded from nothing")
		}
		if e.bridge.PathExists(core.BatteryPath) {
			t.Errorf("battery file created")
		}
		if len(e.events) != 0 {
			t.Errorf("status events without a save: %v", e.events)
		}
	})
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

func TestSlots(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	state := []byte("full machine state")
	e.fake.SetState(state)

	if !e.m.SaveSlot(ctx, e.ns, 3, testImage(256, 224)) {
		t.Fatalf("SaveSlot() = false")
	}
	e.fake.SetState([]byte("something else"))

	if !e.m.LoadSlot(ctx, e.ns, 3) {
		t.Fatalf("LoadSlot() = false")
	}
	if !bytes.Equal(e.fake.GetState(), state) {
		t.Errorf("state = %q, want %q", e.fake.GetState(), state)
	}

	slots := e.m.ListSlots(ctx, e.ns)
	if len(slots) != 1 || slots[0].Index != 3 || !slots[0].HasThumbnail || slots[0].Size != len(state) {
		t.Errorf("ListSlots() = %+v", slots)
	}
	if slots[0].Time.IsZero() {
		t.Errorf("no slot time")
	}

	pic, ok := e.m.Thumbnail(ctx, e.ns, 3)
	if !ok {
		t.Fatalf("no thumbnail")
	}
	img, err := png.Decode(bytes.NewReader(pic))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 56 {
		t.Errorf("thumbnail %vx%v, want 64x56", b.Dx(), b.Dy())
	}

	// overwrite without a picture
	if !e.m.SaveSlot(ctx, e.ns, 3, nil) {
		t.Fatalf("SaveSlot() = false")
	}
	if slots = e.m.ListSlots(ctx, e.ns); len(slots) != 1 || slots[0].HasThumbnail {
		t.Errorf("ListSlots() = %+v", slots)
	}
	if _, ok = e.m.Thumbnail(ctx, e.ns, 3); ok {
		t.Errorf("old thumbnail is left")
	}

	if !e.m.DeleteSlot(ctx, e.ns, 3) {
		t.Errorf("DeleteSlot() = false")
	}
	if slots = e.m.ListSlots(ctx, e.ns); len(slots) != 0 {
		t.Errorf("ListSlots() after delete = %+v", slots)
	}
	if e.m.LoadSlot(ctx, e.ns, 3) {
		t.Errorf("deleted slot loaded")
	}
}

func TestLoadMissingSlot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.fake.SetState([]byte("live"))

	for _, i := range []int{99, -1, 5} {
		if e.m.LoadSlot(ctx, e.ns, i) {
			t.Errorf("LoadSlot(%v) = true", i)
		}
	}
	if string(e.fake.GetState()) != "live" {
		t.Errorf("state changed")
	}
	if e.bridge.PathExists(core.SnapshotPath) {
		t.Errorf("snapshot file written")
	}
	if e.st.Puts() != 0 || len(e.events) != 0 {
		t.Errorf("side effects: %v puts, %v events", e.st.Puts(), e.events)
	}
}

func TestNamespacesAreApart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other, _ := store.NewNamespace("retrorun", "0ther")

	e.fake.SetState([]byte("a"))
	e.m.SaveSlot(ctx, e.ns, 1, nil)
	if e.m.LoadSlot(ctx, other, 1) {
		t.Errorf("slot leaked into another namespace")
	}
	if len(e.m.ListSlots(ctx, other)) != 0 {
		t.Errorf("slot listed in another namespace")
	}
}

func TestThumbnailFit(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		box  [2]int
		want [2]int
	}{
		{name: "snes", w: 256, h: 224, box: [2]int{128, 112}, want: [2]int{128, 112}},
		{name: "wide", w: 512, h: 224, box: [2]int{128, 112}, want: [2]int{128, 56}},
		{name: "tall", w: 256, h: 448, box: [2]int{128, 112}, want: [2]int{64, 112}},
		{name: "small", w: 32, h: 32, box: [2]int{128, 112}, want: [2]int{32, 32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pic, err := thumbnail(testImage(tt.w, tt.h), tt.box[0], tt.box[1])
			if err != nil {
				t.Fatal(err)
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(pic))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Width != tt.want[0] || cfg.Height != tt.want[1] {
				t.Errorf("%vx%v, want %vx%v", cfg.Width, cfg.Height, tt.want[0], tt.want[1])
			}
		})
	}
}
