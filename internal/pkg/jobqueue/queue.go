package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tubtip/tubtip/internal/pkg/logger"
	"github.com/tubtip/tubtip/internal/pkg/metrics"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"
	JobStatsKey      = "job_stats"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour // Jobs expire after 24 hours
)

// Processor handles one job type. A returned error hands the job back to
// the retry policy.
type Processor interface {
	Process(ctx context.Context, job *Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job *Job) error

func (f ProcessorFunc) Process(ctx context.Context, job *Job) error { return f(ctx, job) }

// Options tune worker behaviour. Zero values fall back to the defaults.
type Options struct {
	Workers       int
	RetryBackoff  time.Duration
	StuckAfter    time.Duration
	SweepInterval time.Duration
	PollTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Minute
	}
	if o.StuckAfter <= 0 {
		o.StuckAfter = 10 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = time.Second
	}
	return o
}

// Queue manages background jobs using Redis
type Queue struct {
	client     *redis.Client
	opts       Options
	processors map[JobType]Processor
	log        zerolog.Logger

	workerPool chan struct{}
	stopCh     chan struct{}
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a new job queue
func NewQueue(client *redis.Client, opts Options) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		client:     client,
		opts:       opts,
		processors: make(map[JobType]Processor),
		log:        logger.WithComponent("jobqueue"),
		workerPool: make(chan struct{}, opts.Workers),
		stopCh:     make(chan struct{}),
	}
}

// Register binds a processor to a job type. Call before Start.
func (q *Queue) Register(jobType JobType, p Processor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processors[jobType] = p
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	q.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.log.Info().Int("workers", q.opts.Workers).Msg("starting workers")

	// Initialize worker pool
	for i := 0; i < q.opts.Workers; i++ {
		q.workerPool <- struct{}{}
	}

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	// Recovers jobs left in processing by a crashed worker
	q.wg.Add(1)
	go q.stuckSweeper(ctx)
}

// Stop stops the job queue workers and waits for in-flight jobs.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	q.log.Info().Msg("stopping workers")
	close(q.stopCh)
	q.cancel()
	q.running = false
	q.wg.Wait()

	// drain the pool so a restart refills it from empty
	for len(q.workerPool) > 0 {
		<-q.workerPool
	}
	q.log.Info().Msg("all workers stopped")
}

func (q *Queue) stuckSweeper(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if n, err := q.RecoverStuck(ctx, time.Now()); err != nil {
				q.log.Error().Err(err).Msg("stuck sweep failed")
			} else if n > 0 {
				q.log.Warn().Int("count", n).Msg("recovered stuck jobs")
			}
		}
	}
}

// RecoverStuck moves jobs that have been processing for longer than
// StuckAfter back to the pending list and returns how many it moved.
func (q *Queue) RecoverStuck(ctx context.Context, now time.Time) (int, error) {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil {
			// job data expired or corrupt
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		if job.Status != JobStatusProcessing {
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		started := job.UpdatedAt
		if job.ProcessedAt != nil && !job.ProcessedAt.IsZero() {
			started = *job.ProcessedAt
		}
		if now.Sub(started) <= q.opts.StuckAfter {
			continue
		}
		q.log.Warn().Str("job_id", job.ID).Str("type", string(job.Type)).Dur("age", now.Sub(started)).Msg("recovering stuck job")
		job.Status = JobStatusPending
		job.ErrorMsg = "recovered by sweeper"
		job.UpdatedAt = now
		q.updateJob(ctx, job)
		_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
		_ = q.client.RPush(ctx, JobQueueKey, id).Err()
		recovered++
	}
	return recovered, nil
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	log := q.log.With().Int("worker", id).Logger()
	log.Debug().Msg("worker started")

	for {
		select {
		case <-q.stopCh:
			log.Debug().Msg("worker stopping")
			return
		case <-q.workerPool:
		}

		job, err := q.dequeueJob(ctx)
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Error().Err(err).Msg("dequeue failed")
			}
			q.workerPool <- struct{}{}
			continue
		}

		q.processJob(ctx, job)
		q.workerPool <- struct{}{}
	}
}

// EnqueueJob adds a new job to the queue. payload is stored as JSON.
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload interface{}) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    raw,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, jobData, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	q.log.Info().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("job enqueued")
	return job, nil
}

// EnqueueSendEmail queues a templated email.
func (q *Queue) EnqueueSendEmail(ctx context.Context, payload SendEmailJobPayload) (*Job, error) {
	return q.EnqueueJob(ctx, JobTypeSendEmail, payload)
}

// dequeueJob moves the next job id from pending to processing atomically
// and loads it.
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	jobID, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, q.opts.PollTimeout).Result()
	if err != nil {
		return nil, err
	}

	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job %s unreadable: %w", jobID, err)
	}
	return job, nil
}

// RunOnce processes a single pending job if one is available. It reports
// whether a job was taken.
func (q *Queue) RunOnce(ctx context.Context) (bool, error) {
	job, err := q.dequeueJob(ctx)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	q.processJob(ctx, job)
	return true, nil
}

func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	q.mu.Lock()
	p, ok := q.processors[job.Type]
	q.mu.Unlock()

	var err error
	if !ok {
		err = fmt.Errorf("unknown job type: %s", job.Type)
	} else {
		err = p.Process(ctx, job)
	}

	if err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Str("type", string(job.Type)).Msg("job failed")
		job.MarkAsFailed(err.Error())

		if job.IsRetryable() {
			metrics.JobsProcessedTotal.WithLabelValues(string(job.Type), string(JobStatusRetrying)).Inc()
			q.log.Info().Str("job_id", job.ID).Int("attempt", job.RetryCount).Int("max", job.MaxRetries).Msg("retrying job")
			job.MarkAsRetrying()
			q.updateJob(ctx, job)

			id := job.ID
			time.AfterFunc(q.opts.RetryBackoff*time.Duration(job.RetryCount), func() {
				q.client.LPush(context.Background(), JobQueueKey, id)
			})
		} else {
			metrics.JobsProcessedTotal.WithLabelValues(string(job.Type), string(JobStatusFailed)).Inc()
			q.log.Error().Str("job_id", job.ID).Int("retries", job.RetryCount).Msg("job permanently failed")
			q.updateJobStats(ctx, JobStatusFailed, 1)
			q.updateJob(ctx, job)
		}
	} else {
		metrics.JobsProcessedTotal.WithLabelValues(string(job.Type), string(JobStatusCompleted)).Inc()
		job.MarkAsCompleted()
		q.updateJobStats(ctx, JobStatusCompleted, 1)
		q.removeCompletedJob(ctx, job.ID)
	}

	q.removeFromProcessing(ctx, job.ID)
}

func (q *Queue) updateJob(ctx context.Context, job *Job) {
	jobData, err := json.Marshal(job)
	if err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Msg("marshal job")
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, jobData, JobTTL).Err(); err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Msg("update job")
	}
}

func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err(); err != nil {
		q.log.Error().Err(err).Str("job_id", jobID).Msg("remove from processing list")
	}
}

func (q *Queue) removeCompletedJob(ctx context.Context, jobID string) {
	if err := q.client.Del(ctx, JobKeyPrefix+jobID).Err(); err != nil {
		q.log.Error().Err(err).Str("job_id", jobID).Msg("remove completed job")
	}
}

func (q *Queue) updateJobStats(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), delta).Err(); err != nil {
		q.log.Error().Err(err).Msg("update job stats")
	}
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobData, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// GetJobStats returns statistics about job statuses
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	stats, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[JobStatus]int64)
	for status, count := range stats {
		if n, err := json.Number(count).Int64(); err == nil {
			result[JobStatus(status)] = n
		}
	}
	return result, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

// GetProcessingSize returns the number of jobs being processed
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}
