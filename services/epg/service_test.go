package epg_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"telecast/config"
	"telecast/internal/events"
	"telecast/models"
	"telecast/services/epg"
)

const guideDoc = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <programme start="20250105100000 +0000" stop="20250105103000 +0000" channel="News.UK">
    <title lang="en">Morning News</title>
    <desc lang="en">Headlines and weather outlook.</desc>
  </programme>
  <programme start="20250105103000 +0000" stop="20250105110000 +0000" channel="News.UK">
    <title lang="en">Weather</title>
  </programme>
  <programme start="20250105120000 +0000" stop="20250105130000 +0000" channel="News.UK">
    <title lang="en">Midday Report</title>
  </programme>
</tv>`

type fakeGuide struct {
	mu   sync.Mutex
	docs map[string]string
	errs map[string]error
}

func (f *fakeGuide) Guide(ctx context.Context, src models.Source) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[src.ID]; err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(f.docs[src.ID])), nil
}

type fakeCatalog struct {
	mu         sync.Mutex
	channels   map[models.ChannelIdentity]models.Channel
	version    uint64
	bumpOnFind bool
}

func (f *fakeCatalog) FindChannel(identity models.ChannelIdentity) (models.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bumpOnFind {
		f.version++
	}
	ch, ok := f.channels[identity]
	return ch, ok
}

func (f *fakeCatalog) Version() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

type fakeResolver struct {
	sources []models.Source
}

func (f *fakeResolver) EnabledSources(filterType string) []models.Source {
	return f.sources
}

func newsChannel() models.Channel {
	return models.Channel{ID: "a", SourceID: "1", StreamID: "100", Name: "News Central", EPGChannelID: "news.uk"}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func at(hour, min int) time.Time {
	return time.Date(2025, 1, 5, hour, min, 0, 0, time.UTC)
}

func newEPGService(t *testing.T, fetcher *fakeGuide, cat *fakeCatalog) *epg.Service {
	t.Helper()
	cfg := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	resolver := &fakeResolver{sources: []models.Source{{ID: "1", Type: models.SourceTypeXtream, Enabled: true, Name: "One"}}}
	svc := epg.NewService(cfg, fetcher, cat, resolver, events.NewBus())
	svc.SetClock(fixedClock(at(10, 15)))
	return svc
}

func loadGuide(t *testing.T, svc *epg.Service, channels ...models.Channel) {
	t.Helper()
	if err := svc.LoadPrograms(context.Background(), channels); err != nil {
		t.Fatalf("load programs: %v", err)
	}
}

func TestNowPlayingBoundaryBelongsToLaterProgram(t *testing.T) {
	ch := newsChannel()
	svc := newEPGService(t, &fakeGuide{docs: map[string]string{"1": guideDoc}}, &fakeCatalog{})
	loadGuide(t, svc, ch)

	cases := []struct {
		at    time.Time
		title string
		ok    bool
	}{
		{at(9, 59), "", false},
		{at(10, 0), "Morning News", true},
		{at(10, 15), "Morning News", true},
		{at(10, 30), "Weather", true}, // boundary instant belongs to the later program
		{at(10, 59), "Weather", true},
		{at(11, 0), "", false}, // gap until midday
		{at(12, 30), "Midday Report", true},
		{at(13, 0), "", false},
	}
	for _, tc := range cases {
		prog, ok := svc.NowPlayingAt(ch.Key(), tc.at)
		if ok != tc.ok {
			t.Fatalf("at %s: expected ok=%v, got %v", tc.at.Format("15:04"), tc.ok, ok)
		}
		if ok && prog.Title != tc.title {
			t.Fatalf("at %s: expected %q, got %q", tc.at.Format("15:04"), tc.title, prog.Title)
		}
	}

	if _, ok := svc.NowPlayingAt("9:unknown", at(10, 15)); ok {
		t.Fatal("unknown channel key must report no program")
	}
}

func TestNowNextAcrossGap(t *testing.T) {
	ch := newsChannel()
	svc := newEPGService(t, &fakeGuide{docs: map[string]string{"1": guideDoc}}, &fakeCatalog{})
	loadGuide(t, svc, ch)

	nn := svc.NowNext(ch.Key(), at(10, 15))
	if nn.Current == nil || nn.Current.Title != "Morning News" {
		t.Fatalf("expected Morning News current, got %+v", nn.Current)
	}
	if nn.Next == nil || nn.Next.Title != "Weather" {
		t.Fatalf("expected Weather next, got %+v", nn.Next)
	}

	// Inside the 11:00-12:00 gap there is no current program; the next one
	// is the midday slot.
	nn = svc.NowNext(ch.Key(), at(11, 30))
	if nn.Current != nil {
		t.Fatalf("expected no current program in a gap, got %+v", nn.Current)
	}
	if nn.Next == nil || nn.Next.Title != "Midday Report" {
		t.Fatalf("expected Midday Report next, got %+v", nn.Next)
	}

	nn = svc.NowNext(ch.Key(), at(14, 0))
	if nn.Current != nil || nn.Next != nil {
		t.Fatal("expected empty now/next after the schedule ends")
	}
}

func TestScheduleWindow(t *testing.T) {
	ch := newsChannel()
	svc := newEPGService(t, &fakeGuide{docs: map[string]string{"1": guideDoc}}, &fakeCatalog{})
	loadGuide(t, svc, ch)

	progs := svc.Schedule(ch.Key(), at(10, 15), at(11, 30))
	if len(progs) != 2 {
		t.Fatalf("expected 2 overlapping programs, got %d", len(progs))
	}
	if progs[0].Title != "Morning News" || progs[1].Title != "Weather" {
		t.Fatalf("unexpected schedule order: %q, %q", progs[0].Title, progs[1].Title)
	}
}

func TestLoadProgramsAllSourcesFailedRetainsPrevious(t *testing.T) {
	ch := newsChannel()
	fetcher := &fakeGuide{docs: map[string]string{"1": guideDoc}, errs: map[string]error{}}
	svc := newEPGService(t, fetcher, &fakeCatalog{})
	loadGuide(t, svc, ch)

	fetcher.mu.Lock()
	fetcher.errs["1"] = errors.New("guide endpoint unreachable")
	fetcher.mu.Unlock()

	err := svc.LoadPrograms(context.Background(), []models.Channel{ch})
	if !errors.Is(err, epg.ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}

	// Stale guide data beats no guide data.
	if _, ok := svc.NowPlayingAt(ch.Key(), at(10, 15)); !ok {
		t.Fatal("previous programs must survive a fully failed refresh")
	}
	status := svc.Status()
	if status.LastError == "" {
		t.Fatal("expected last error to be recorded")
	}
}

func TestLoadProgramsDisabled(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "settings.json")
	cfg := config.NewManager(cfgPath)
	settings := config.DefaultSettings()
	settings.Live.EPG.Enabled = false
	if err := cfg.Save(settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	svc := epg.NewService(cfg, &fakeGuide{}, &fakeCatalog{}, &fakeResolver{}, events.NewBus())
	if err := svc.LoadPrograms(context.Background(), []models.Channel{newsChannel()}); err == nil {
		t.Fatal("expected error when EPG is disabled")
	}
}

func TestLoadProgramsDropsOverlaps(t *testing.T) {
	// Second programme overlaps the first; the earlier one wins.
	doc := `<tv>
  <programme start="20250105100000 +0000" stop="20250105110000 +0000" channel="news.uk">
    <title>Long Feature</title>
  </programme>
  <programme start="20250105103000 +0000" stop="20250105113000 +0000" channel="news.uk">
    <title>Overlapping Slot</title>
  </programme>
</tv>`
	ch := newsChannel()
	svc := newEPGService(t, &fakeGuide{docs: map[string]string{"1": doc}}, &fakeCatalog{})
	loadGuide(t, svc, ch)

	progs := svc.Schedule(ch.Key(), at(9, 0), at(13, 0))
	if len(progs) != 1 || progs[0].Title != "Long Feature" {
		t.Fatalf("expected only the earlier program to survive, got %+v", progs)
	}
}

func TestRefreshDisplayIndex(t *testing.T) {
	ch := newsChannel()
	cat := &fakeCatalog{channels: map[models.ChannelIdentity]models.Channel{
		ch.Identity(): ch,
	}}
	svc := newEPGService(t, &fakeGuide{docs: map[string]string{"1": guideDoc}}, cat)
	loadGuide(t, svc, ch)

	identities := []models.ChannelIdentity{
		ch.Identity(),
		{SourceID: "9", ItemID: "ghost"}, // not in the catalog, skipped
	}
	svc.RefreshDisplayIndex(identities, 10)
	svc.WaitDisplayRefresh()

	entry, ok := svc.DisplayEntry(ch.Key())
	if !ok {
		t.Fatal("expected a display entry for the known channel")
	}
	if entry.Title != "Morning News" {
		t.Fatalf("expected Morning News in display entry, got %q", entry.Title)
	}
	if _, ok := svc.DisplayEntry("9:ghost"); ok {
		t.Fatal("unresolvable identity must not produce an entry")
	}
	if len(svc.DisplayIndex()) != 1 {
		t.Fatalf("expected exactly 1 display entry, got %d", len(svc.DisplayIndex()))
	}
}

func TestRefreshDisplayIndexDiscardsStaleCatalog(t *testing.T) {
	ch := newsChannel()
	// Every catalog lookup bumps the version, simulating a reload landing
	// while a batch is being computed.
	cat := &fakeCatalog{
		channels:   map[models.ChannelIdentity]models.Channel{ch.Identity(): ch},
		bumpOnFind: true,
	}
	svc := newEPGService(t, &fakeGuide{docs: map[string]string{"1": guideDoc}}, cat)
	loadGuide(t, svc, ch)

	svc.RefreshDisplayIndex([]models.ChannelIdentity{ch.Identity()}, 10)
	svc.WaitDisplayRefresh()

	if _, ok := svc.DisplayEntry(ch.Key()); ok {
		t.Fatal("batch computed against a stale catalog must be discarded")
	}
}

func TestLoadProgramsRefreshNotification(t *testing.T) {
	ch := newsChannel()
	cfg := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	bus := events.NewBus()
	resolver := &fakeResolver{sources: []models.Source{{ID: "1", Type: models.SourceTypeXtream, Enabled: true, Name: "One"}}}
	svc := epg.NewService(cfg, &fakeGuide{docs: map[string]string{"1": guideDoc}}, &fakeCatalog{}, resolver, bus)
	svc.SetClock(fixedClock(at(10, 15)))

	var published int
	bus.Subscribe(events.EPGRefreshed, func(payload any) {
		if _, ok := payload.(time.Time); !ok {
			t.Errorf("expected time.Time payload, got %T", payload)
		}
		published++
	})

	loadGuide(t, svc, ch)
	if published != 1 {
		t.Fatalf("expected 1 refresh notification, got %d", published)
	}

	status := svc.Status()
	if status.LastRefresh == nil {
		t.Fatal("expected last refresh timestamp in status")
	}
	if status.ProgramCount != 3 {
		t.Fatalf("expected 3 programs in status, got %d", status.ProgramCount)
	}
}
