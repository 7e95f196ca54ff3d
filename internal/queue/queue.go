package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueAnalyzeSong  = "queue:analyze_song"
	QueuePlanClips    = "queue:plan_clips"
	QueueGenerateClip = "queue:generate_clip"
	QueueComposeVideo = "queue:compose_video"
)

type Queue struct {
	client *redis.Client
}

type Job struct {
	ID        uuid.UUID              `json:"id"`
	Type      string                 `json:"type"`
	SongID    uuid.UUID              `json:"song_id"`
	ClipID    *uuid.UUID             `json:"clip_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// EnqueueAnalyzeSong enqueues a song analysis job
func (q *Queue) EnqueueAnalyzeSong(ctx context.Context, songID, jobID uuid.UUID) error {
	job := &Job{
		ID:     jobID,
		Type:   "analyze_song",
		SongID: songID,
	}
	return q.Enqueue(ctx, QueueAnalyzeSong, job)
}

// EnqueuePlanClips enqueues a clip planning job
func (q *Queue) EnqueuePlanClips(ctx context.Context, songID, jobID uuid.UUID) error {
	job := &Job{
		ID:     jobID,
		Type:   "plan_clips",
		SongID: songID,
	}
	return q.Enqueue(ctx, QueuePlanClips, job)
}

// EnqueueGenerateClip enqueues a clip video generation job
func (q *Queue) EnqueueGenerateClip(ctx context.Context, songID, clipID, jobID uuid.UUID) error {
	job := &Job{
		ID:     jobID,
		Type:   "generate_clip",
		SongID: songID,
		ClipID: &clipID,
	}
	return q.Enqueue(ctx, QueueGenerateClip, job)
}

// EnqueueComposeVideo enqueues a final video composition job
func (q *Queue) EnqueueComposeVideo(ctx context.Context, songID, jobID uuid.UUID) error {
	job := &Job{
		ID:     jobID,
		Type:   "compose_video",
		SongID: songID,
	}
	return q.Enqueue(ctx, QueueComposeVideo, job)
}
