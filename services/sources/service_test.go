package sources_test

import (
	"context"
	"errors"
	"testing"

	"telecast/models"
	"telecast/services/sources"
)

type fakeStore struct {
	sources []models.Source
	listErr error
}

func (f *fakeStore) Sources(ctx context.Context) ([]models.Source, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Source, len(f.sources))
	copy(out, f.sources)
	return out, nil
}

func (f *fakeStore) InsertSource(ctx context.Context, src models.Source) error {
	f.sources = append(f.sources, src)
	return nil
}

func (f *fakeStore) UpdateSource(ctx context.Context, src models.Source) error {
	for i, existing := range f.sources {
		if existing.ID == src.ID {
			f.sources[i] = src
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) DeleteSource(ctx context.Context, id string) error {
	for i, existing := range f.sources {
		if existing.ID == id {
			f.sources = append(f.sources[:i], f.sources[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func TestLoadSourcesFailureKeepsSnapshot(t *testing.T) {
	store := &fakeStore{sources: []models.Source{
		{ID: "1", Type: models.SourceTypeXtream, Enabled: true, Name: "One", Host: "http://one"},
	}}
	svc := sources.NewService(store)

	if _, err := svc.LoadSources(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !svc.Loaded() {
		t.Fatal("expected registry to report loaded")
	}

	store.listErr = errors.New("database locked")
	_, err := svc.LoadSources(context.Background())
	var transport *models.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	// Registry state is unchanged, not cleared.
	if got := svc.All(); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected previous snapshot retained, got %+v", got)
	}
}

func TestEnabledSourcesFilters(t *testing.T) {
	store := &fakeStore{sources: []models.Source{
		{ID: "1", Type: models.SourceTypeXtream, Enabled: true, Name: "One", Host: "http://one"},
		{ID: "2", Type: models.SourceTypeXtream, Enabled: false, Name: "Two", Host: "http://two"},
		{ID: "3", Type: models.SourceTypeXtream, Enabled: true, Name: "Three", Host: "http://three"},
	}}
	svc := sources.NewService(store)
	if _, err := svc.LoadSources(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	enabled := svc.EnabledSources("")
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled sources, got %d", len(enabled))
	}
	if enabled[0].ID != "1" || enabled[1].ID != "3" {
		t.Fatalf("expected stored order preserved, got %s, %s", enabled[0].ID, enabled[1].ID)
	}

	if got := svc.EnabledSources("m3u"); len(got) != 0 {
		t.Fatalf("unknown type filter must match nothing, got %d", len(got))
	}
	if got := svc.EnabledSources(models.SourceTypeXtream); len(got) != 2 {
		t.Fatalf("expected type filter to match both enabled sources, got %d", len(got))
	}
}

func TestCreateValidates(t *testing.T) {
	svc := sources.NewService(&fakeStore{})

	cases := []struct {
		name string
		in   models.SourceUpsert
		want error
	}{
		{"missing name", models.SourceUpsert{Host: "http://x"}, sources.ErrNameRequired},
		{"missing host", models.SourceUpsert{Name: "X"}, sources.ErrHostRequired},
		{"unknown type", models.SourceUpsert{Name: "X", Host: "http://x", Type: "m3u"}, sources.ErrUnknownType},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateNormalizes(t *testing.T) {
	store := &fakeStore{}
	svc := sources.NewService(store)

	src, err := svc.Create(context.Background(), models.SourceUpsert{
		Name:     "  Provider  ",
		Host:     "http://provider.example/",
		Username: " user ",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if src.ID == "" {
		t.Fatal("expected a generated id")
	}
	if src.Name != "Provider" {
		t.Fatalf("expected trimmed name, got %q", src.Name)
	}
	if src.Host != "http://provider.example" {
		t.Fatalf("expected trailing slash stripped, got %q", src.Host)
	}
	if src.Type != models.SourceTypeXtream {
		t.Fatalf("expected xtream default type, got %q", src.Type)
	}
	if !src.Enabled {
		t.Fatal("expected new sources enabled by default")
	}
	if len(store.sources) != 1 {
		t.Fatalf("expected source persisted, got %d", len(store.sources))
	}
}

func TestUpdatePreservesPasswordAndEnabled(t *testing.T) {
	store := &fakeStore{}
	svc := sources.NewService(store)

	created, err := svc.Create(context.Background(), models.SourceUpsert{
		Name: "Provider", Host: "http://provider", Password: "secret",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetEnabled(context.Background(), created.ID, false); err != nil {
		t.Fatalf("set enabled: %v", err)
	}

	// Update without password or enabled flag keeps both.
	updated, err := svc.Update(context.Background(), created.ID, models.SourceUpsert{
		Name: "Renamed", Host: "http://provider",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("expected renamed source, got %q", updated.Name)
	}
	if updated.Password != "secret" {
		t.Fatal("blank password on update must keep the stored one")
	}
	if updated.Enabled {
		t.Fatal("update without enabled flag must keep the disabled state")
	}
}

func TestUpdateMissingSource(t *testing.T) {
	svc := sources.NewService(&fakeStore{})
	if _, err := svc.Update(context.Background(), "nope", models.SourceUpsert{Name: "X", Host: "http://x"}); !errors.Is(err, sources.ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}
	if err := svc.Delete(context.Background(), "nope"); !errors.Is(err, sources.ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}
}

func TestDeleteRemovesAndReloads(t *testing.T) {
	store := &fakeStore{}
	svc := sources.NewService(store)

	created, err := svc.Create(context.Background(), models.SourceUpsert{Name: "Provider", Host: "http://provider"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(svc.All()) != 0 {
		t.Fatal("expected registry snapshot refreshed after delete")
	}
}
