package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestBuildStatsEmpty(t *testing.T) {
	got := BuildStats(nil, nil)
	if got.TotalMinutes != 0 || got.TrackCount != 0 || got.ActivityPeriodDays != 0 {
		t.Fatalf("empty input: expected zero stats, got %+v", got)
	}
	if got.FirstListen != nil || got.LastListen != nil {
		t.Fatal("empty input: expected nil listen bounds")
	}
	if len(got.UniqueArtists) != 0 {
		t.Fatalf("empty input: expected no artists, got %v", got.UniqueArtists)
	}
}

func TestBuildStatsSingleEvent(t *testing.T) {
	at := time.Date(2026, 2, 18, 21, 30, 0, 0, time.UTC)
	got := BuildStats([]ListeningEvent{
		{TrackID: "t1", ArtistID: "a1", DurationMS: 210000, ListenedAt: at},
	}, nil)

	if got.TotalMinutes != 3 {
		t.Errorf("TotalMinutes = %d, want 3", got.TotalMinutes)
	}
	if got.TrackCount != 1 {
		t.Errorf("TrackCount = %d, want 1", got.TrackCount)
	}
	if got.ActivityPeriodDays != 1 {
		t.Errorf("ActivityPeriodDays = %d, want 1 for a single play", got.ActivityPeriodDays)
	}
	if got.FirstListen == nil || !got.FirstListen.Equal(at) {
		t.Errorf("FirstListen = %v, want %v", got.FirstListen, at)
	}
	if got.LastListen == nil || !got.LastListen.Equal(at) {
		t.Errorf("LastListen = %v, want %v", got.LastListen, at)
	}
}

func TestBuildStatsSpanAndBounds(t *testing.T) {
	first := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	last := first.Add(39*24*time.Hour + time.Hour)
	// Events arrive newest-first, the way pagination yields them.
	events := []ListeningEvent{
		{TrackID: "t3", ArtistID: "a2", DurationMS: 60000, ListenedAt: last},
		{TrackID: "t2", ArtistID: "a1", DurationMS: 60000, ListenedAt: first.Add(10 * 24 * time.Hour)},
		{TrackID: "t1", ArtistID: "a1", DurationMS: 60000, ListenedAt: first},
	}
	got := BuildStats(events, nil)

	if got.ActivityPeriodDays != 40 {
		t.Errorf("ActivityPeriodDays = %d, want 40", got.ActivityPeriodDays)
	}
	if got.FirstListen == nil || !got.FirstListen.Equal(first) {
		t.Errorf("FirstListen = %v, want %v", got.FirstListen, first)
	}
	if got.LastListen == nil || !got.LastListen.Equal(last) {
		t.Errorf("LastListen = %v, want %v", got.LastListen, last)
	}
	if got.TotalMinutes != 3 {
		t.Errorf("TotalMinutes = %d, want 3", got.TotalMinutes)
	}
}

func TestBuildStatsArtistMerge(t *testing.T) {
	at := time.Date(2026, 2, 18, 21, 30, 0, 0, time.UTC)
	events := []ListeningEvent{
		{TrackID: "t1", ArtistID: "charlie", DurationMS: 1000, ListenedAt: at},
		{TrackID: "t2", ArtistID: "alpha", DurationMS: 1000, ListenedAt: at},
		{TrackID: "t3", ArtistID: "", DurationMS: 1000, ListenedAt: at},
	}
	extra := []string{"bravo", "alpha", ""}

	got := BuildStats(events, extra)
	want := []string{"alpha", "bravo", "charlie"}
	if !reflect.DeepEqual(got.UniqueArtists, want) {
		t.Fatalf("UniqueArtists = %v, want %v", got.UniqueArtists, want)
	}
}

func TestBuildStatsNegativeDurationIgnored(t *testing.T) {
	at := time.Date(2026, 2, 18, 21, 30, 0, 0, time.UTC)
	got := BuildStats([]ListeningEvent{
		{TrackID: "t1", ArtistID: "a1", DurationMS: -5000, ListenedAt: at},
		{TrackID: "t2", ArtistID: "a1", DurationMS: 120000, ListenedAt: at},
	}, nil)
	if got.TotalMinutes != 2 {
		t.Errorf("TotalMinutes = %d, want 2", got.TotalMinutes)
	}
}

func TestRawViewShape(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	data := ContributionData{
		AccountIDHash: "abc123",
		Country:       "US",
		Product:       "premium",
		Stats: ListeningStats{
			TotalMinutes:       1200,
			TrackCount:         2,
			UniqueArtists:      []string{"a1", "a2"},
			ActivityPeriodDays: 40,
			FirstListen:        &first,
			LastListen:         &last,
		},
		Events: []ListeningEvent{
			{TrackID: "t1", ArtistID: "a1", DurationMS: 180000, ListenedAt: first},
			{TrackID: "t2", ArtistID: "a2", DurationMS: 240000, ListenedAt: last},
		},
	}

	view := data.RawView()
	if view.Version != RawViewVersion {
		t.Errorf("Version = %q, want %q", view.Version, RawViewVersion)
	}
	if view.User.IDHash != "abc123" || view.User.Country != "US" || view.User.Product != "premium" {
		t.Errorf("unexpected user block: %+v", view.User)
	}
	if view.Stats.UniqueArtistsCount != 2 {
		t.Errorf("UniqueArtistsCount = %d, want 2", view.Stats.UniqueArtistsCount)
	}
	if view.Stats.FirstListen != "2026-01-01T00:00:00Z" {
		t.Errorf("FirstListen = %q", view.Stats.FirstListen)
	}
	if len(view.Tracks) != 2 {
		t.Fatalf("Tracks = %d, want 2", len(view.Tracks))
	}
	if view.Tracks[0].TrackID != "t1" || view.Tracks[0].ListenedAt != "2026-01-01T00:00:00Z" {
		t.Errorf("unexpected first track: %+v", view.Tracks[0])
	}
}
