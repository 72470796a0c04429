package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sodiqdevpython/quizcore-backend/internal/config"
)

const (
	StatsBatchSize    = 50
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

type statsPayload struct {
	UserID string `json:"user_id"`
}

// StatsQueue enqueues user stats recomputation jobs. The payload carries only
// the user id: the worker recomputes aggregates from the durable rows, so a
// lost or duplicated job never corrupts the totals.
type StatsQueue struct {
	rdb *redis.Client
}

func NewStatsQueue(rdb *redis.Client) *StatsQueue {
	return &StatsQueue{rdb: rdb}
}

func (q *StatsQueue) NotifyAttemptSealed(ctx context.Context, userID uuid.UUID) error {
	raw, err := json.Marshal(statsPayload{UserID: userID.String()})
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.UserStatsQueue, raw).Err()
}

// StatsWorker drains the user stats queue and recomputes the per-user
// aggregate columns in batches.
type StatsWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewStatsWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "stats_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	batch := make([]*statsPayload, 0, StatsBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.UserStatsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p statsPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch recompute wrapper
// ----------------------------------------------------------------

func (w *StatsWorker) flushSafe(ctx context.Context, batch []*statsPayload) {
	if len(batch) == 0 {
		return
	}

	userIDs, err := dedupeUserIDs(batch)
	if err != nil {
		w.log.Error().Err(err).Msg("Invalid user id in batch")
		return
	}

	if err := w.bulkRecompute(ctx, userIDs); err != nil {
		w.log.Warn().Err(err).Msg("bulk stats recompute failed, using fallback")

		for _, id := range userIDs {
			if err := w.recomputeSingle(ctx, id); err != nil {
				w.log.Error().Err(err).Msg("recomputeSingle failed — requeueing")
				raw, _ := json.Marshal(statsPayload{UserID: id.String()})
				w.rdb.RPush(ctx, config.WorkerKey.UserStatsQueue, raw)
			}
		}
	}
}

// dedupeUserIDs collapses a batch to unique user ids. Sealing several
// attempts of one user between flushes would otherwise recompute the same
// aggregates repeatedly.
func dedupeUserIDs(batch []*statsPayload) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(batch))
	ids := make([]uuid.UUID, 0, len(batch))
	for _, p := range batch {
		id, err := uuid.Parse(p.UserID)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// ----------------------------------------------------------------
// BULK PostgreSQL recompute using UNNEST + LATERAL
// ----------------------------------------------------------------

func (w *StatsWorker) bulkRecompute(ctx context.Context, userIDs []uuid.UUID) error {
	query := `
		UPDATE users AS u
		SET total_attempts = t.total_attempts,
		    total_correct  = t.total_correct,
		    total_wrong    = t.total_wrong,
		    average_score  = t.average_score
		FROM (
			SELECT
				ids.user_id,
				COUNT(ta.id)                                           AS total_attempts,
				COALESCE(SUM(agg.correct), 0)                          AS total_correct,
				COALESCE(SUM(agg.answered - agg.correct), 0)           AS total_wrong,
				COALESCE(ROUND(AVG(ta.score)::numeric, 2), 0)::float8  AS average_score
			FROM UNNEST($1::uuid[]) AS ids (user_id)
			LEFT JOIN test_attempts ta
			       ON ta.user_id = ids.user_id AND ta.finished_at IS NOT NULL
			LEFT JOIN LATERAL (
				SELECT COUNT(*) FILTER (WHERE a.selected_option_id IS NOT NULL) AS answered,
				       COUNT(*) FILTER (WHERE a.is_correct)                     AS correct
				FROM answers a
				WHERE a.attempt_id = ta.id
			) AS agg ON TRUE
			GROUP BY ids.user_id
		) AS t
		WHERE u.id = t.user_id
	`

	_, err := w.pool.Exec(ctx, query, userIDs)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single recompute
// ----------------------------------------------------------------

func (w *StatsWorker) recomputeSingle(ctx context.Context, userID uuid.UUID) error {
	_, err := w.pool.Exec(ctx,
		`UPDATE users AS u
		 SET total_attempts = t.total_attempts,
		     total_correct  = t.total_correct,
		     total_wrong    = t.total_wrong,
		     average_score  = t.average_score
		 FROM (
			SELECT
				COUNT(ta.id)                                           AS total_attempts,
				COALESCE(SUM(agg.correct), 0)                          AS total_correct,
				COALESCE(SUM(agg.answered - agg.correct), 0)           AS total_wrong,
				COALESCE(ROUND(AVG(ta.score)::numeric, 2), 0)::float8  AS average_score
			FROM test_attempts ta
			LEFT JOIN LATERAL (
				SELECT COUNT(*) FILTER (WHERE a.selected_option_id IS NOT NULL) AS answered,
				       COUNT(*) FILTER (WHERE a.is_correct)                     AS correct
				FROM answers a
				WHERE a.attempt_id = ta.id
			) AS agg ON TRUE
			WHERE ta.user_id = $1 AND ta.finished_at IS NOT NULL
		 ) AS t
		 WHERE u.id = $1`,
		userID,
	)
	return err
}
