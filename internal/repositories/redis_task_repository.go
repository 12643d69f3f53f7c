package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/rueidis"

	"time-exchange.com/time-exchange/internal/constants"
	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
)

// updateTaskScript applies field writes only when the stored version matches.
// KEYS: task. ARGV: expected version, field/value pairs.
var updateTaskScript = rueidis.NewLuaScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if not current then
  return -1
end
if current ~= ARGV[1] then
  return 0
end
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
return redis.call('HINCRBY', KEYS[1], 'version', 1)
`)

type RedisTaskRepository struct {
	client rueidis.Client
	keys   keyspace
}

func NewRedisTaskRepository(client rueidis.Client, prefix string) *RedisTaskRepository {
	return &RedisTaskRepository{client: client, keys: keyspace{prefix: prefix}}
}

func (r *RedisTaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}

	args := append([]string{task.ID}, taskFields(task)...)
	args = append(args, "version", strconv.FormatUint(uint64(task.Version), 10))

	created, err := createRecordScript.Exec(ctx, r.client, []string{r.keys.task(task.ID), r.keys.tasks()}, args).AsInt64()
	if err != nil {
		return err
	}
	if created == 0 {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	return nil
}

func (r *RedisTaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	fields, err := r.client.Do(ctx, r.client.B().Hgetall().Key(r.keys.task(id)).Build()).AsStrMap()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrTaskNotFound
	}
	return decodeTask(fields)
}

func (r *RedisTaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	ids, err := r.client.Do(ctx, r.client.B().Smembers().Key(r.keys.tasks()).Build()).AsStrSlice()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Task{}, nil
	}

	cmds := make(rueidis.Commands, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, r.client.B().Hgetall().Key(r.keys.task(id)).Build())
	}

	tasks := make([]model.Task, 0, len(ids))
	for _, resp := range r.client.DoMulti(ctx, cmds...) {
		fields, err := resp.AsStrMap()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		task, err := decodeTask(fields)
		if err != nil {
			return nil, err
		}
		if filter.Matches(task) {
			tasks = append(tasks, *task)
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	return tasks, nil
}

func (r *RedisTaskRepository) Update(ctx context.Context, task *model.Task) error {
	args := append([]string{strconv.FormatUint(uint64(task.Version), 10)}, taskFields(task)...)

	version, err := updateTaskScript.Exec(ctx, r.client, []string{r.keys.task(task.ID)}, args).AsInt64()
	if err != nil {
		return err
	}

	switch version {
	case -1:
		return apperrors.ErrTaskNotFound
	case 0:
		return apperrors.ErrOptimisticLock
	}

	task.Version = uint(version)
	return nil
}

func (r *RedisTaskRepository) Ping(ctx context.Context) error {
	return r.client.Do(ctx, r.client.B().Ping().Build()).Error()
}

// taskFields lists every mutable and immutable attribute except version.
func taskFields(t *model.Task) []string {
	return []string{
		"id", t.ID,
		"title", t.Title,
		"description", t.Description,
		"requested_by_user_id", t.RequestedByUserID,
		"accepted_by_user_id", optional(t.AcceptedByUserID),
		"time_credit_offer", formatInt(t.TimeCreditOffer),
		"state", t.State.String(),
		"cancel_reason", optional(t.CancelReason),
		"created_at", formatTime(t.CreatedAt),
		"updated_at", formatTime(t.UpdatedAt),
	}
}

func decodeTask(fields map[string]string) (*model.Task, error) {
	state, err := constants.ParseTaskState(fields["state"])
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", fields["id"], err)
	}
	offer, err := parseInt(fields["time_credit_offer"])
	if err != nil {
		return nil, fmt.Errorf("task %s: bad offer: %w", fields["id"], err)
	}
	version, err := strconv.ParseUint(fields["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("task %s: bad version: %w", fields["id"], err)
	}
	createdAt, err := parseTime(fields["created_at"])
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime(fields["updated_at"])
	if err != nil {
		return nil, err
	}

	return &model.Task{
		ID:                fields["id"],
		Title:             fields["title"],
		Description:       fields["description"],
		RequestedByUserID: fields["requested_by_user_id"],
		AcceptedByUserID:  fromOptional(fields["accepted_by_user_id"]),
		TimeCreditOffer:   offer,
		State:             state,
		CancelReason:      fromOptional(fields["cancel_reason"]),
		Version:           uint(version),
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
	}, nil
}
