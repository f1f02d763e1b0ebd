package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ContributionState is the mutable per-account row: latest aggregated stats,
// the resume cursor and the encrypted refresh credential. One row per
// account_id_hash; upserted only by a positive-reward commit.
type ContributionState struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AccountIDHash         string         `gorm:"column:account_id_hash;uniqueIndex;not null" json:"account_id_hash"`
	TrackCount            int            `gorm:"column:track_count;not null" json:"track_count"`
	TotalMinutes          int64          `gorm:"column:total_minutes;not null" json:"total_minutes"`
	ActivityPeriodDays    int            `gorm:"column:activity_period_days;not null" json:"activity_period_days"`
	UniqueArtists         int            `gorm:"column:unique_artists;not null" json:"unique_artists"`
	LatestScore           float64        `gorm:"column:latest_score;not null" json:"latest_score"`
	TimesRewarded         int            `gorm:"column:times_rewarded;not null;default:0" json:"times_rewarded"`
	FirstContributionAt   time.Time      `gorm:"column:first_contribution_at;not null;default:now()" json:"first_contribution_at"`
	LatestContributionAt  time.Time      `gorm:"column:latest_contribution_at;not null;default:now()" json:"latest_contribution_at"`
	RawData               datatypes.JSON `gorm:"column:raw_data;type:jsonb" json:"raw_data"`
	EncryptedRefreshToken string         `gorm:"column:encrypted_refresh_token" json:"encrypted_refresh_token,omitempty"`
	// LastFetchCursor holds the "before" timestamp (epoch ms) the collector
	// last used successfully. Only ever written inside a rewarded commit.
	LastFetchCursor *int64 `gorm:"column:last_fetch_cursor" json:"last_fetch_cursor,omitempty"`
}

func (ContributionState) TableName() string { return "contribution_states" }

// ProofRecord is the append-only outcome of one proof run. Score is this
// run's differential reward, not the cumulative total; the cumulative value
// for an account is SUM(score) over its records.
type ProofRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AccountIDHash string    `gorm:"column:account_id_hash;not null;index" json:"account_id_hash"`
	FileID        int64     `gorm:"column:file_id;not null" json:"file_id"`
	FileURL       string    `gorm:"column:file_url;not null" json:"file_url"`
	JobID         string    `gorm:"column:job_id;not null" json:"job_id"`
	OwnerAddress  string    `gorm:"column:owner_address;not null" json:"owner_address"`
	Score         float64   `gorm:"column:score;not null" json:"score"`
	Authenticity  float64   `gorm:"column:authenticity;not null" json:"authenticity"`
	Ownership     float64   `gorm:"column:ownership;not null" json:"ownership"`
	Quality       float64   `gorm:"column:quality;not null" json:"quality"`
	Uniqueness    float64   `gorm:"column:uniqueness;not null" json:"uniqueness"`
	CreatedAt     time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (ProofRecord) TableName() string { return "proof_records" }

// ExistingContribution is the ledger read-side view of an account's prior
// activity. CumulativeScore is the plain running sum of all prior proof
// scores; it is never re-clamped.
type ExistingContribution struct {
	TimesRewarded      int
	TrackCount         int
	TotalMinutes       int64
	ActivityPeriodDays int
	UniqueArtists      int
	CumulativeScore    float64
	LastFetchCursor    *int64
}
