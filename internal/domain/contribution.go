package domain

import (
	"sort"
	"time"
)

// ListeningEvent is one anonymized play. Immutable once produced by the
// collector. ArtistID is the primary artist only; the full artist set for a
// run is tracked separately on FetchResult because a track can credit several.
type ListeningEvent struct {
	TrackID    string    `json:"track_id"`
	ArtistID   string    `json:"artist_id"`
	DurationMS int64     `json:"duration_ms"`
	ListenedAt time.Time `json:"listened_at"`
}

// ListeningStats aggregates the events of a single run.
type ListeningStats struct {
	TotalMinutes       int64
	TrackCount         int
	UniqueArtists      []string
	ActivityPeriodDays int
	FirstListen        *time.Time
	LastListen         *time.Time
}

// BuildStats folds events into run statistics. extraArtistIDs lets the
// collector contribute artists beyond each event's primary credit (secondary
// credits, top-artist snapshots). The activity period is inclusive of the
// first and last day and never below one day when any event exists.
func BuildStats(events []ListeningEvent, extraArtistIDs []string) ListeningStats {
	if len(events) == 0 && len(extraArtistIDs) == 0 {
		return ListeningStats{}
	}

	artistSet := make(map[string]struct{})
	for _, id := range extraArtistIDs {
		if id != "" {
			artistSet[id] = struct{}{}
		}
	}

	var totalDurationMS int64
	var first, last time.Time
	for i, ev := range events {
		if ev.ArtistID != "" {
			artistSet[ev.ArtistID] = struct{}{}
		}
		if ev.DurationMS > 0 {
			totalDurationMS += ev.DurationMS
		}
		if i == 0 || ev.ListenedAt.Before(first) {
			first = ev.ListenedAt
		}
		if i == 0 || ev.ListenedAt.After(last) {
			last = ev.ListenedAt
		}
	}

	artists := make([]string, 0, len(artistSet))
	for id := range artistSet {
		artists = append(artists, id)
	}
	sort.Strings(artists)

	stats := ListeningStats{
		TotalMinutes:  totalDurationMS / 60000,
		TrackCount:    len(events),
		UniqueArtists: artists,
	}
	if len(events) > 0 {
		f, l := first, last
		stats.FirstListen = &f
		stats.LastListen = &l
		days := int(l.Sub(f).Hours()/24) + 1
		if days < 1 {
			days = 1
		}
		stats.ActivityPeriodDays = days
	}
	return stats
}

// ContributionData is the complete package produced by one run: the
// pseudonymous account, its aggregated stats and the events behind them.
type ContributionData struct {
	AccountIDHash string
	Country       string
	Product       string
	Stats         ListeningStats
	Events        []ListeningEvent
}

// RawViewVersion tags the serialized raw-data shape so the stored blob can
// evolve without guessing.
const RawViewVersion = "1.0.0"

// RawView is the explicit serializable record uploaded as the encrypted
// artifact and stored on the contribution state.
type RawView struct {
	Version string         `json:"version"`
	User    RawViewUser    `json:"user"`
	Stats   RawViewStats   `json:"stats"`
	Tracks  []RawViewTrack `json:"tracks"`
}

type RawViewUser struct {
	IDHash  string `json:"id_hash"`
	Country string `json:"country,omitempty"`
	Product string `json:"product,omitempty"`
}

type RawViewStats struct {
	TotalMinutes       int64  `json:"total_minutes"`
	TrackCount         int    `json:"track_count"`
	UniqueArtistsCount int    `json:"unique_artists_count"`
	ActivityPeriodDays int    `json:"activity_period_days"`
	FirstListen        string `json:"first_listen,omitempty"`
	LastListen         string `json:"last_listen,omitempty"`
}

type RawViewTrack struct {
	TrackID    string `json:"track_id"`
	ArtistID   string `json:"artist_id"`
	DurationMS int64  `json:"duration_ms"`
	ListenedAt string `json:"listened_at"`
}

func (d ContributionData) RawView() RawView {
	view := RawView{
		Version: RawViewVersion,
		User: RawViewUser{
			IDHash:  d.AccountIDHash,
			Country: d.Country,
			Product: d.Product,
		},
		Stats: RawViewStats{
			TotalMinutes:       d.Stats.TotalMinutes,
			TrackCount:         d.Stats.TrackCount,
			UniqueArtistsCount: len(d.Stats.UniqueArtists),
			ActivityPeriodDays: d.Stats.ActivityPeriodDays,
		},
		Tracks: make([]RawViewTrack, 0, len(d.Events)),
	}
	if d.Stats.FirstListen != nil {
		view.Stats.FirstListen = d.Stats.FirstListen.UTC().Format(time.RFC3339)
	}
	if d.Stats.LastListen != nil {
		view.Stats.LastListen = d.Stats.LastListen.UTC().Format(time.RFC3339)
	}
	for _, ev := range d.Events {
		view.Tracks = append(view.Tracks, RawViewTrack{
			TrackID:    ev.TrackID,
			ArtistID:   ev.ArtistID,
			DurationMS: ev.DurationMS,
			ListenedAt: ev.ListenedAt.UTC().Format(time.RFC3339),
		})
	}
	return view
}
