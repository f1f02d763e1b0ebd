package proof

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/yungbote/unwrapped-proof/internal/data/repos/contribution"
	"github.com/yungbote/unwrapped-proof/internal/domain"
	"github.com/yungbote/unwrapped-proof/internal/pkg/dbctx"
	"github.com/yungbote/unwrapped-proof/internal/pkg/faults"
	"github.com/yungbote/unwrapped-proof/internal/platform/logger"
	"github.com/yungbote/unwrapped-proof/internal/publish"
	"github.com/yungbote/unwrapped-proof/internal/scoring"
	"github.com/yungbote/unwrapped-proof/internal/spotify"
)

// proofVersion tags the response shape recorded on the proof metadata.
const proofVersion = "1.0.0"

// ProfileSource resolves the contributing account's upstream identity.
type ProfileSource interface {
	Profile(ctx context.Context) (*spotify.UserProfile, error)
}

// HistorySource collects listening events under the run's wall-clock budget.
type HistorySource interface {
	Fetch(ctx context.Context, resumeCursor *int64) (*spotify.FetchResult, error)
}

// ArtifactPublisher seals and uploads the run's raw view.
type ArtifactPublisher interface {
	Publish(ctx context.Context, view domain.RawView, destination, passphrase string) (*publish.Result, error)
}

// Params is the run context carried through to the proof record and response.
type Params struct {
	DLPID                 int
	FileID                int64
	FileURL               string
	JobID                 string
	OwnerAddress          string
	MaxPoints             int
	EncryptionKey         string
	EncryptedRefreshToken string
}

// Runner drives one complete proof run: read the ledger, collect history,
// score the full view, pay the differential, publish the artifact and commit
// iff the run rewarded anything.
type Runner struct {
	profiles  ProfileSource
	collector HistorySource
	ledger    contribution.LedgerRepo
	publisher ArtifactPublisher
	params    Params
	log       *logger.Logger
}

func NewRunner(
	profiles ProfileSource,
	collector HistorySource,
	ledger contribution.LedgerRepo,
	publisher ArtifactPublisher,
	params Params,
	baseLog *logger.Logger,
) *Runner {
	return &Runner{
		profiles:  profiles,
		collector: collector,
		ledger:    ledger,
		publisher: publisher,
		params:    params,
		log:       baseLog.With("service", "ProofRunner"),
	}
}

// Generate executes the pipeline once. The publish happens before the commit
// so the ledger never references an artifact that was not uploaded; a run
// whose reward is zero publishes but writes nothing.
func (r *Runner) Generate(ctx context.Context) (*domain.ProofResponse, error) {
	profile, err := r.profiles.Profile(ctx)
	if err != nil {
		return nil, err
	}
	accountIDHash := hashAccountID(profile.ID)
	log := r.log.With("account_id_hash", accountIDHash)

	existing, err := r.ledger.ReadExisting(dbctx.Context{Ctx: ctx}, accountIDHash)
	if err != nil {
		return nil, err
	}

	var resumeCursor *int64
	prevCumulative := 0.0
	timesRewarded := 0
	if existing != nil {
		resumeCursor = existing.LastFetchCursor
		prevCumulative = existing.CumulativeScore
		timesRewarded = existing.TimesRewarded
	}

	fetched, err := r.collector.Fetch(ctx, resumeCursor)
	if err != nil {
		return nil, err
	}

	stats := domain.BuildStats(fetched.Events, fetched.ArtistIDs)
	breakdown := scoring.CalculateScore(stats)
	reward, diffPoints := scoring.DifferentialReward(breakdown, r.params.MaxPoints, prevCumulative)

	log.Info("run scored",
		"events", len(fetched.Events),
		"total_minutes", stats.TotalMinutes,
		"unique_artists", len(stats.UniqueArtists),
		"activity_days", stats.ActivityPeriodDays,
		"total_points", breakdown.TotalPoints,
		"differential_points", diffPoints,
		"previous_cumulative", prevCumulative,
		"reward", reward,
	)

	data := domain.ContributionData{
		AccountIDHash: accountIDHash,
		Country:       profile.Country,
		Product:       profile.Product,
		Stats:         stats,
		Events:        fetched.Events,
	}
	view := data.RawView()

	published, err := r.publisher.Publish(ctx, view, r.params.FileURL, r.params.EncryptionKey)
	if err != nil {
		return nil, err
	}

	response := r.buildResponse(accountIDHash, stats, breakdown, published, reward, diffPoints, existing, timesRewarded)

	if reward > 0 {
		rawData, err := json.Marshal(view)
		if err != nil {
			return nil, faults.New(faults.KindValidation, 0, err)
		}
		record := &domain.ProofRecord{
			FileID:       r.params.FileID,
			FileURL:      r.params.FileURL,
			JobID:        r.params.JobID,
			OwnerAddress: r.params.OwnerAddress,
			Score:        reward,
			Authenticity: response.Authenticity,
			Ownership:    response.Ownership,
			Quality:      response.Quality,
			Uniqueness:   response.Uniqueness,
		}
		err = r.ledger.CommitRun(dbctx.Context{Ctx: ctx}, contribution.CommitParams{
			AccountIDHash:         accountIDHash,
			Stats:                 stats,
			RawData:               rawData,
			NewCursor:             fetched.Cursor,
			EncryptedRefreshToken: r.params.EncryptedRefreshToken,
			Proof:                 record,
		})
		if err != nil {
			return nil, err
		}
		response.Attributes.TimesRewarded = timesRewarded + 1
	} else {
		log.Info("zero reward, ledger untouched")
	}

	return response, nil
}

// buildResponse assembles the result document. Sub-scores are policy values,
// not measurements: the enclave vouches for authenticity and ownership, a run
// with no events is degraded quality, and any repeat contribution is slightly
// less unique than the first.
func (r *Runner) buildResponse(
	accountIDHash string,
	stats domain.ListeningStats,
	breakdown domain.PointsBreakdown,
	published *publish.Result,
	reward float64,
	diffPoints int,
	existing *domain.ExistingContribution,
	timesRewarded int,
) *domain.ProofResponse {
	quality := 1.0
	if stats.TrackCount == 0 {
		quality = 0.5
	}
	uniqueness := 1.0
	if existing != nil {
		uniqueness = 0.99
	}

	return &domain.ProofResponse{
		DLPID:        r.params.DLPID,
		Valid:        true,
		Score:        reward,
		Authenticity: 1.0,
		Ownership:    1.0,
		Quality:      quality,
		Uniqueness:   uniqueness,
		Attributes: domain.ProofAttributes{
			AccountIDHash:         accountIDHash,
			TrackCount:            stats.TrackCount,
			TotalMinutes:          stats.TotalMinutes,
			DataValidated:         true,
			ActivityPeriodDays:    stats.ActivityPeriodDays,
			UniqueArtists:         len(stats.UniqueArtists),
			PreviouslyContributed: existing != nil,
			PreviouslyRewarded:    timesRewarded > 0,
			TimesRewarded:         timesRewarded,
			TotalPoints:           breakdown.TotalPoints,
			DifferentialPoints:    diffPoints,
			PointsBreakdown:       breakdown,
		},
		Metadata: domain.ProofMetadata{
			DLPID:        r.params.DLPID,
			Version:      proofVersion,
			FileID:       r.params.FileID,
			JobID:        r.params.JobID,
			OwnerAddress: r.params.OwnerAddress,
			File: domain.FileInfo{
				ID:     r.params.FileID,
				Source: "TEE",
				URL:    r.params.FileURL,
				Checksums: domain.FileChecksums{
					Encrypted: published.EncryptedChecksum,
					Decrypted: published.DecryptedChecksum,
				},
			},
		},
	}
}

// hashAccountID pseudonymizes the upstream user id. The raw id never leaves
// this function's caller.
func hashAccountID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
