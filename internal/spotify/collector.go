package spotify

import (
	"context"
	"time"

	"github.com/yungbote/unwrapped-proof/internal/domain"
	"github.com/yungbote/unwrapped-proof/internal/platform/logger"
)

// cursorEpsilonMS is subtracted from the last page timestamp so the boundary
// event is not fetched twice.
const cursorEpsilonMS = 1

// snapshotWindows are the "top items" ranges used to enrich diversity signal
// beyond recent plays.
var snapshotWindows = []string{"short_term", "medium_term", "long_term"}

// snapshotAge backdates synthetic play timestamps for snapshot items so they
// are distinct from real plays.
const snapshotAge = 30 * 24 * time.Hour

// Collector walks the recently-played history backward under a wall-clock
// budget, resuming from a persisted cursor when it is fresh enough. Budget
// checks happen only between requests and before sleeps; an in-flight request
// finishes on its own per-request timeout.
type Collector struct {
	client       *Client
	log          *logger.Logger
	budget       time.Duration
	maxPages     int
	pageLimit    int
	cursorMaxAge time.Duration

	// now is a test seam; production uses time.Now.
	now func() time.Time
}

type CollectorConfig struct {
	Budget       time.Duration
	MaxPages     int
	PageLimit    int
	CursorMaxAge time.Duration
}

func NewCollector(client *Client, cfg CollectorConfig, baseLog *logger.Logger) *Collector {
	return &Collector{
		client:       client,
		log:          baseLog.With("service", "HistoryCollector"),
		budget:       cfg.Budget,
		maxPages:     cfg.MaxPages,
		pageLimit:    cfg.PageLimit,
		cursorMaxAge: cfg.CursorMaxAge,
		now:          time.Now,
	}
}

// FetchResult is what one collection run produced. Cursor is the last
// pagination cursor that was used for a successful request, never the next
// candidate, so a partially complete run resumes safely and idempotently.
type FetchResult struct {
	Events    []domain.ListeningEvent
	ArtistIDs []string
	Cursor    *int64
}

// Fetch collects listening events. It never blocks past its budget: when the
// budget runs out it returns what it has accumulated together with the last
// successfully used cursor, rather than an error.
func (c *Collector) Fetch(ctx context.Context, resumeCursor *int64) (*FetchResult, error) {
	start := c.now()
	deadline := start.Add(c.budget)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	cursor := start.UnixMilli()
	if resumeCursor != nil {
		staleBefore := start.Add(-c.cursorMaxAge).UnixMilli()
		if *resumeCursor >= staleBefore {
			cursor = *resumeCursor
		} else {
			c.log.Info("resume cursor stale, restarting from now",
				"resume_cursor", *resumeCursor,
				"stale_before", staleBefore,
			)
		}
	}

	res := &FetchResult{Cursor: resumeCursor}
	seenTracks := make(map[string]struct{})
	artistSet := make(map[string]struct{})

	pagesDone := 0
	for page := 0; page < c.maxPages; page++ {
		if !c.now().Before(deadline) {
			c.log.Warn("fetch budget exhausted during pagination", "pages", pagesDone, "events", len(res.Events))
			return c.finish(res, artistSet), nil
		}

		items, err := c.client.RecentlyPlayed(ctx, c.pageLimit, &cursor)
		if err != nil {
			if IsBudgetExhausted(err) {
				c.log.Warn("fetch budget exhausted mid-retry", "pages", pagesDone, "error", err)
				return c.finish(res, artistSet), nil
			}
			return nil, err
		}
		used := cursor
		res.Cursor = &used
		pagesDone++

		if len(items) == 0 {
			break
		}

		for _, item := range items {
			c.appendItem(res, seenTracks, artistSet, item)
		}

		lastTS, ok := items[len(items)-1].PlayedAtTime()
		if !ok {
			// Cannot compute the next boundary; treat as end of usable
			// history for this cursor.
			break
		}
		cursor = lastTS.UnixMilli() - cursorEpsilonMS
	}

	if err := c.collectSnapshots(ctx, deadline, res, seenTracks, artistSet); err != nil {
		return nil, err
	}

	out := c.finish(res, artistSet)
	c.log.Info("history collected",
		"pages", pagesDone,
		"events", len(out.Events),
		"unique_artists", len(out.ArtistIDs),
		"elapsed", c.now().Sub(start).String(),
	)
	return out, nil
}

func (c *Collector) appendItem(res *FetchResult, seenTracks, artistSet map[string]struct{}, item PlayItem) {
	if item.Track.ID == "" {
		c.log.Debug("skipping malformed play item: missing track id")
		return
	}
	playedAt, ok := item.PlayedAtTime()
	if !ok {
		c.log.Debug("skipping malformed play item: bad timestamp", "track_id", item.Track.ID)
		return
	}
	for _, artist := range item.Track.Artists {
		if artist.ID != "" {
			artistSet[artist.ID] = struct{}{}
		}
	}
	if _, dup := seenTracks[item.Track.ID]; dup {
		return
	}
	seenTracks[item.Track.ID] = struct{}{}

	primaryArtist := ""
	if len(item.Track.Artists) > 0 {
		primaryArtist = item.Track.Artists[0].ID
	}
	res.Events = append(res.Events, domain.ListeningEvent{
		TrackID:    item.Track.ID,
		ArtistID:   primaryArtist,
		DurationMS: item.Track.DurationMS,
		ListenedAt: playedAt,
	})
}

// collectSnapshots supplements pagination with bounded top-item queries.
// Each window's items get a synthetic timestamp distinct from real plays and
// from the other windows, and are deduplicated against ids already seen.
func (c *Collector) collectSnapshots(ctx context.Context, deadline time.Time, res *FetchResult, seenTracks, artistSet map[string]struct{}) error {
	base := c.now().Add(-snapshotAge)

	for i, window := range snapshotWindows {
		if !c.now().Before(deadline) {
			c.log.Warn("fetch budget exhausted before snapshot", "window", window)
			return nil
		}
		tracks, err := c.client.TopTracks(ctx, window, c.pageLimit)
		if err != nil {
			if IsBudgetExhausted(err) {
				return nil
			}
			return err
		}
		synthetic := base.Add(time.Duration(i) * time.Second)
		for _, track := range tracks {
			if track.ID == "" {
				continue
			}
			for _, artist := range track.Artists {
				if artist.ID != "" {
					artistSet[artist.ID] = struct{}{}
				}
			}
			if _, dup := seenTracks[track.ID]; dup {
				continue
			}
			seenTracks[track.ID] = struct{}{}
			primaryArtist := ""
			if len(track.Artists) > 0 {
				primaryArtist = track.Artists[0].ID
			}
			res.Events = append(res.Events, domain.ListeningEvent{
				TrackID:    track.ID,
				ArtistID:   primaryArtist,
				DurationMS: track.DurationMS,
				ListenedAt: synthetic,
			})
		}
	}

	if !c.now().Before(deadline) {
		return nil
	}
	artists, err := c.client.TopArtists(ctx, "medium_term", c.pageLimit)
	if err != nil {
		if IsBudgetExhausted(err) {
			return nil
		}
		return err
	}
	for _, artist := range artists {
		if artist.ID != "" {
			artistSet[artist.ID] = struct{}{}
		}
	}
	return nil
}

func (c *Collector) finish(res *FetchResult, artistSet map[string]struct{}) *FetchResult {
	ids := make([]string, 0, len(artistSet))
	for id := range artistSet {
		ids = append(ids, id)
	}
	res.ArtistIDs = ids
	return res
}
