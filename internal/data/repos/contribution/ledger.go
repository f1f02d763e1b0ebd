package contribution

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/unwrapped-proof/internal/domain"
	"github.com/yungbote/unwrapped-proof/internal/pkg/dbctx"
	"github.com/yungbote/unwrapped-proof/internal/pkg/faults"
	"github.com/yungbote/unwrapped-proof/internal/platform/logger"
)

// LedgerRepo is the persistent contribution ledger: a mutable state row per
// account plus an append-only history of proof outcomes.
type LedgerRepo interface {
	// ReadExisting returns the account's prior contribution view, or nil when
	// the account has never been committed. CumulativeScore is the sum of all
	// prior proof scores.
	ReadExisting(dbc dbctx.Context, accountIDHash string) (*domain.ExistingContribution, error)
	// CommitRun upserts the contribution state and appends the proof record
	// as one transaction. Callers invoke it only for positive-reward runs;
	// on failure no partial state is visible.
	CommitRun(dbc dbctx.Context, params CommitParams) error
}

// CommitParams is everything a rewarded run persists.
type CommitParams struct {
	AccountIDHash         string
	Stats                 domain.ListeningStats
	RawData               []byte
	NewCursor             *int64
	EncryptedRefreshToken string
	Proof                 *domain.ProofRecord
}

type ledgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerRepo(db *gorm.DB, baseLog *logger.Logger) LedgerRepo {
	return &ledgerRepo{
		db:  db,
		log: baseLog.With("repo", "LedgerRepo"),
	}
}

func (r *ledgerRepo) ReadExisting(dbc dbctx.Context, accountIDHash string) (*domain.ExistingContribution, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if accountIDHash == "" {
		return nil, faults.Newf(faults.KindValidation, "account id hash is required")
	}

	var agg struct {
		Cumulative    float64
		TimesRewarded int
		Total         int
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&domain.ProofRecord{}).
		Select("COALESCE(SUM(score), 0) AS cumulative, COUNT(*) FILTER (WHERE score > 0) AS times_rewarded, COUNT(*) AS total").
		Where("account_id_hash = ?", accountIDHash).
		Scan(&agg).Error
	if err != nil {
		return nil, faults.New(faults.KindPersistence, 0, err)
	}

	var state domain.ContributionState
	err = transaction.WithContext(dbc.Ctx).
		Where("account_id_hash = ?", accountIDHash).
		Limit(1).
		Find(&state).Error
	if err != nil {
		return nil, faults.New(faults.KindPersistence, 0, err)
	}

	if agg.Total == 0 && state.ID == uuid.Nil {
		return nil, nil
	}

	return &domain.ExistingContribution{
		TimesRewarded:      agg.TimesRewarded,
		TrackCount:         state.TrackCount,
		TotalMinutes:       state.TotalMinutes,
		ActivityPeriodDays: state.ActivityPeriodDays,
		UniqueArtists:      state.UniqueArtists,
		CumulativeScore:    agg.Cumulative,
		LastFetchCursor:    state.LastFetchCursor,
	}, nil
}

func (r *ledgerRepo) CommitRun(dbc dbctx.Context, params CommitParams) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if params.AccountIDHash == "" {
		return faults.Newf(faults.KindValidation, "account id hash is required")
	}
	if params.Proof == nil {
		return faults.Newf(faults.KindValidation, "proof record is required")
	}

	now := time.Now().UTC()
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var state domain.ContributionState
		if err := txx.Where("account_id_hash = ?", params.AccountIDHash).
			Limit(1).
			Find(&state).Error; err != nil {
			return err
		}

		if state.ID == uuid.Nil {
			state = domain.ContributionState{
				ID:                  uuid.New(),
				AccountIDHash:       params.AccountIDHash,
				FirstContributionAt: now,
			}
		}
		state.TrackCount = params.Stats.TrackCount
		state.TotalMinutes = params.Stats.TotalMinutes
		state.ActivityPeriodDays = params.Stats.ActivityPeriodDays
		state.UniqueArtists = len(params.Stats.UniqueArtists)
		state.LatestScore = params.Proof.Score
		state.TimesRewarded = state.TimesRewarded + 1
		state.LatestContributionAt = now
		if len(params.RawData) > 0 {
			state.RawData = datatypes.JSON(params.RawData)
		}
		if params.EncryptedRefreshToken != "" {
			state.EncryptedRefreshToken = params.EncryptedRefreshToken
		}
		if params.NewCursor != nil {
			state.LastFetchCursor = params.NewCursor
		}
		if err := txx.Save(&state).Error; err != nil {
			return err
		}

		proof := *params.Proof
		if proof.ID == uuid.Nil {
			proof.ID = uuid.New()
		}
		proof.AccountIDHash = params.AccountIDHash
		proof.CreatedAt = now
		return txx.Create(&proof).Error
	})
	if err != nil {
		r.log.Error("commit run failed", "account_id_hash", params.AccountIDHash, "error", err)
		return faults.New(faults.KindPersistence, 0, err)
	}

	r.log.Info("contribution committed",
		"account_id_hash", params.AccountIDHash,
		"score", params.Proof.Score,
	)
	return nil
}
