package epg

import (
	"strings"
	"testing"
	"time"

	"telecast/models"
)

func TestParseXMLTVTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		err  bool
	}{
		{"20250105103000 +0000", time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC), false},
		{"20250105103000", time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC), false},
		{"20250105103000 +0100", time.Date(2025, 1, 5, 9, 30, 0, 0, time.UTC), false},
		{"20250105103000 -0530", time.Date(2025, 1, 5, 16, 0, 0, 0, time.UTC), false},
		{"  20250105103000 +0000  ", time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC), false},
		{"2025-01-05 10:30", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tc := range cases {
		got, err := parseXMLTVTime(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestParseXMLTVFiltersAndMaps(t *testing.T) {
	doc := `<tv>
  <programme start="20250105100000 +0000" stop="20250105103000 +0000" channel="News.UK">
    <title lang="en">Morning News</title>
  </programme>
  <programme start="20250105100000 +0000" stop="20250105103000 +0000" channel="unmapped.chan">
    <title>Ignored</title>
  </programme>
  <programme start="20250105103000 +0000" stop="20250105103000 +0000" channel="news.uk">
    <title>Zero Length</title>
  </programme>
  <programme start="garbage" stop="20250105110000 +0000" channel="news.uk">
    <title>Bad Time</title>
  </programme>
</tv>`

	// Two catalog channels share one guide channel id.
	chA := models.Channel{ID: "a", SourceID: "1", EPGChannelID: "news.uk"}
	chB := models.Channel{ID: "b", SourceID: "1", EPGChannelID: "NEWS.uk"}
	epgMap := map[string][]models.Channel{
		"news.uk": {chA, chB},
	}

	out := make(map[string][]models.Program)
	if err := parseXMLTV(strings.NewReader(doc), "1", epgMap, out); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("expected programs for 2 channel keys, got %d", len(out))
	}
	for _, key := range []string{chA.Key(), chB.Key()} {
		progs := out[key]
		if len(progs) != 1 {
			t.Fatalf("%s: expected 1 program, got %d", key, len(progs))
		}
		if progs[0].Title != "Morning News" {
			t.Fatalf("%s: expected Morning News, got %q", key, progs[0].Title)
		}
		if !progs[0].End.After(progs[0].Start) {
			t.Fatalf("%s: program interval is not half-open forward", key)
		}
	}
	if out[chA.Key()][0].ChannelID != "a" {
		t.Fatalf("expected per-channel id on the program, got %q", out[chA.Key()][0].ChannelID)
	}
}
