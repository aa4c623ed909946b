package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cache-inspector/pkg/run"
)

const backendRedis = "redis"

// RedisStore stores runs and reports as JSON documents in Redis.
type RedisStore struct {
	redis     *redis.Client
	logger    zerolog.Logger
	retention time.Duration
}

// reportDoc is the stored form of a report; run ids live in a separate list
// so they can be appended atomically.
type reportDoc struct {
	ReportID  string    `json:"reportId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRedisStore creates a Redis-backed store. A zero retention keeps
// records forever.
func NewRedisStore(redisClient *redis.Client, logger zerolog.Logger, retention time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:     redisClient,
		logger:    logger,
		retention: retention,
	}
}

// SaveRun stores a run.
func (s *RedisStore) SaveRun(ctx context.Context, r *run.Run) (err error) {
	defer func() { observe(backendRedis, opSaveRun, err) }()

	if err := r.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	if err := s.redis.Set(ctx, RunKey(r.RunID).String(), data, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	s.logger.Debug().
		Str("run_id", r.RunID).
		Str("url", r.URL).
		Msg("Run saved")
	return nil
}

// GetRun retrieves a run by id.
func (s *RedisStore) GetRun(ctx context.Context, runID string) (_ *run.Run, err error) {
	defer func() { observe(backendRedis, opGetRun, err) }()

	data, err := s.redis.Get(ctx, RunKey(runID).String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var r run.Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return &r, nil
}

// CreateReport stores a report and its initial run ids in one transaction.
func (s *RedisStore) CreateReport(ctx context.Context, report *run.Report) (err error) {
	defer func() { observe(backendRedis, opCreateReport, err) }()

	if report == nil || report.ReportID == "" {
		return fmt.Errorf("report id cannot be empty")
	}

	data, err := json.Marshal(reportDoc{ReportID: report.ReportID, CreatedAt: report.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := ReportKey(report.ReportID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key.String(), data, s.retention)
		pipe.Del(ctx, key.RunsKey())
		if len(report.RunIDs) > 0 {
			pipe.RPush(ctx, key.RunsKey(), toArgs(report.RunIDs)...)
			if s.retention > 0 {
				pipe.Expire(ctx, key.RunsKey(), s.retention)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create report: %w", err)
	}

	s.logger.Debug().
		Str("report_id", report.ReportID).
		Int("runs", len(report.RunIDs)).
		Msg("Report created")
	return nil
}

// GetReport retrieves a report with its run ids.
func (s *RedisStore) GetReport(ctx context.Context, reportID string) (_ *run.Report, err error) {
	defer func() { observe(backendRedis, opGetReport, err) }()

	key := ReportKey(reportID)
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var doc reportDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	runIDs, err := s.redis.LRange(ctx, key.RunsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	return &run.Report{
		ReportID:  doc.ReportID,
		CreatedAt: doc.CreatedAt,
		RunIDs:    runIDs,
	}, nil
}

// AddRunToReport appends a run id to an existing report.
func (s *RedisStore) AddRunToReport(ctx context.Context, reportID, runID string) (err error) {
	defer func() { observe(backendRedis, opAddRunToReport, err) }()

	key := ReportKey(reportID)
	n, err := s.redis.Exists(ctx, key.String()).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key.RunsKey(), runID)
		if s.retention > 0 {
			pipe.Expire(ctx, key.String(), s.retention)
			pipe.Expire(ctx, key.RunsKey(), s.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis add run to report: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
