// Package redis implements jobs.Store on Redis. Each job is a Hash and a
// Sorted Set indexes job ids by start time for ordered scans.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

var _ jobs.Store = (*Store)(nil)

// maxFinishAttempts bounds optimistic transaction retries in Finish.
const maxFinishAttempts = 3

// Option configures the Store.
type Option func(*Store)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is a Redis-backed jobs.Store.
type Store struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
	owned  bool
}

// New creates a store on an existing client. The caller owns the client lifecycle.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultKeyPrefix, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config describes how Open connects to Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Open connects to Redis and verifies the connection. The store owns the
// client and closes it in Close.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s; %w", cfg.Addr, err)
	}

	s := New(client, opts...)
	s.owned = true
	return s, nil
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client when the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// Insert stores the record Hash and indexes it by start time.
func (s *Store) Insert(ctx context.Context, rec jobs.Record) error {
	key := s.jobKey(rec.ID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check job existence; %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("job id %s already exists", rec.ID)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, recordToMap(rec))
	pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: score(rec.StartTime), Member: rec.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert job; %w", err)
	}
	return nil
}

// Get retrieves a job by id.
func (s *Store) Get(ctx context.Context, id string) (jobs.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.jobKey(id)).Result()
	if err != nil {
		return jobs.Record{}, fmt.Errorf("failed to get job; %w", err)
	}
	if len(fields) == 0 {
		return jobs.Record{}, jobs.ErrUnknownJob
	}
	return recordFromMap(fields), nil
}

// Finish ends a running job inside a WATCH transaction on its key.
func (s *Store) Finish(ctx context.Context, id string, end time.Time, status jobs.Status) (jobs.Record, error) {
	key := s.jobKey(id)

	var rec jobs.Record
	txf := func(tx *goredis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return jobs.ErrUnknownJob
		}

		rec = recordFromMap(fields)
		if rec.Status != jobs.StatusRunning {
			return jobs.ErrAlreadyFinished
		}

		end = end.UTC()
		if end.Before(rec.StartTime) {
			end = rec.StartTime
		}
		rec.EndTime = &end
		rec.Status = status

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"end_time", strconv.FormatInt(end.UnixNano(), 10),
				"status", string(status),
			)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxFinishAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, jobs.ErrUnknownJob) || errors.Is(err, jobs.ErrAlreadyFinished) {
			return jobs.Record{}, err
		}
		if !errors.Is(err, goredis.TxFailedErr) {
			return jobs.Record{}, fmt.Errorf("failed to finish job; %w", err)
		}
		s.logger.Debug("finish transaction conflicted; retrying", "job_id", id, "attempt", attempt+1)
	}

	return jobs.Record{}, fmt.Errorf("failed to finish job %s; too many concurrent updates", id)
}

// List scans the start-time index and loads matching records.
func (s *Store) List(ctx context.Context, opts jobs.ListOptions) ([]jobs.Record, error) {
	ids, err := s.rangeIDs(ctx, opts.Since, opts.Until, opts.Descending)
	if err != nil {
		return nil, err
	}

	loaded, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	recs := make([]jobs.Record, 0, len(loaded))
	for _, rec := range loaded {
		if !opts.Match(rec) {
			continue
		}
		recs = append(recs, rec)
		if opts.Limit > 0 && len(recs) >= opts.Limit {
			break
		}
	}
	return recs, nil
}

// Prune deletes finished jobs that ended before the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	// A job ending before the cutoff also started before it.
	ids, err := s.rangeIDs(ctx, time.Time{}, before, false)
	if err != nil {
		return 0, err
	}

	loaded, err := s.load(ctx, ids)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, rec := range loaded {
		if rec.EndTime == nil || !rec.EndTime.Before(before) {
			continue
		}
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, s.jobKey(rec.ID))
		pipe.ZRem(ctx, s.indexKey(), rec.ID)
		if _, err := pipe.Exec(ctx); err != nil {
			return n, fmt.Errorf("failed to delete job %s; %w", rec.ID, err)
		}
		n++
	}
	return n, nil
}

// rangeIDs returns indexed ids whose microsecond score lies in [since, until].
// Scores are coarser than start times, so callers filter the loaded records
// exactly.
func (s *Store) rangeIDs(ctx context.Context, since, until time.Time, desc bool) ([]string, error) {
	by := &goredis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if !since.IsZero() {
		by.Min = strconv.FormatFloat(score(since), 'f', -1, 64)
	}
	if !until.IsZero() {
		by.Max = strconv.FormatFloat(score(until), 'f', -1, 64)
	}

	var (
		ids []string
		err error
	)
	if desc {
		ids, err = s.client.ZRevRangeByScore(ctx, s.indexKey(), by).Result()
	} else {
		ids, err = s.client.ZRangeByScore(ctx, s.indexKey(), by).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job index; %w", err)
	}
	return ids, nil
}

// load fetches the Hashes for ids in one pipeline, skipping ids whose Hash is gone.
func (s *Store) load(ctx context.Context, ids []string) ([]jobs.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load jobs; %w", err)
	}

	recs := make([]jobs.Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			s.logger.Debug("index references missing job", "job_id", ids[i])
			continue
		}
		recs = append(recs, recordFromMap(fields))
	}
	return recs, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func recordToMap(rec jobs.Record) map[string]any {
	m := map[string]any{
		"id":         rec.ID,
		"name":       rec.Name,
		"start_time": strconv.FormatInt(rec.StartTime.UnixNano(), 10),
		"status":     string(rec.Status),
	}
	if rec.EndTime != nil {
		m["end_time"] = strconv.FormatInt(rec.EndTime.UnixNano(), 10)
	}
	return m
}

// recordFromMap tolerates bad fields; the result fails Validate instead.
func recordFromMap(m map[string]string) jobs.Record {
	rec := jobs.Record{
		ID:     m["id"],
		Name:   m["name"],
		Status: jobs.Status(m["status"]),
	}
	if n, err := strconv.ParseInt(m["start_time"], 10, 64); err == nil {
		rec.StartTime = time.Unix(0, n).UTC()
	}
	if v, ok := m["end_time"]; ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.Unix(0, n).UTC()
			rec.EndTime = &t
		}
	}
	return rec
}
