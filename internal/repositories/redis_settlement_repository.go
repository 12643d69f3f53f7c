package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"time-exchange.com/time-exchange/internal/constants"
	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
)

// Pending markers are indexed in a sorted set scored by their last update in
// unix milliseconds, so the reconciler can ask for the stale ones.

// KEYS: settlement, pending index. ARGV: task id, from, to, amount, now, now ms.
var beginSettlementScript = rueidis.NewLuaScript(`
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if attempts == 1 then
  redis.call('HSET', KEYS[1], 'created_at', ARGV[5])
end
redis.call('HSET', KEYS[1],
  'task_id', ARGV[1],
  'from_user_id', ARGV[2],
  'to_user_id', ARGV[3],
  'amount', ARGV[4],
  'status', 'pending',
  'last_error', '',
  'updated_at', ARGV[5])
redis.call('ZADD', KEYS[2], ARGV[6], ARGV[1])
return attempts
`)

// KEYS: settlement, pending index. ARGV: status, last error, now, now ms, task id.
var settlementStatusScript = rueidis.NewLuaScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'last_error', ARGV[2], 'updated_at', ARGV[3])
if ARGV[1] == 'pending' then
  redis.call('ZADD', KEYS[2], ARGV[4], ARGV[5])
else
  redis.call('ZREM', KEYS[2], ARGV[5])
end
return 1
`)

// KEYS: pending index. ARGV: max score, limit.
var stalePendingScript = rueidis.NewLuaScript(`
return redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
`)

type RedisSettlementRepository struct {
	client rueidis.Client
	keys   keyspace
}

func NewRedisSettlementRepository(client rueidis.Client, prefix string) *RedisSettlementRepository {
	return &RedisSettlementRepository{client: client, keys: keyspace{prefix: prefix}}
}

func (r *RedisSettlementRepository) BeginAttempt(ctx context.Context, s *model.Settlement) (*model.Settlement, error) {
	now := time.Now().UTC()

	keys := []string{r.keys.settlement(s.TaskID), r.keys.pendingSettlements()}
	args := []string{
		s.TaskID,
		s.FromUserID,
		s.ToUserID,
		formatInt(s.Amount),
		formatTime(now),
		formatInt(now.UnixMilli()),
	}

	if err := beginSettlementScript.Exec(ctx, r.client, keys, args).Error(); err != nil {
		return nil, err
	}

	return r.FindSettlement(ctx, s.TaskID)
}

func (r *RedisSettlementRepository) FindSettlement(ctx context.Context, taskID string) (*model.Settlement, error) {
	fields, err := r.client.Do(ctx, r.client.B().Hgetall().Key(r.keys.settlement(taskID)).Build()).AsStrMap()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrSettlementNotFound
	}
	return decodeSettlement(fields)
}

func (r *RedisSettlementRepository) MarkSettled(ctx context.Context, taskID string) error {
	return r.setStatus(ctx, taskID, constants.SettlementSettled, "")
}

func (r *RedisSettlementRepository) MarkRejected(ctx context.Context, taskID, reason string) error {
	return r.setStatus(ctx, taskID, constants.SettlementRejected, reason)
}

func (r *RedisSettlementRepository) RecordError(ctx context.Context, taskID, reason string) error {
	return r.setStatus(ctx, taskID, constants.SettlementPending, reason)
}

func (r *RedisSettlementRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Settlement, error) {
	if limit <= 0 {
		return nil, apperrors.ErrInvalidLimit
	}

	ids, err := stalePendingScript.Exec(
		ctx,
		r.client,
		[]string{r.keys.pendingSettlements()},
		[]string{formatInt(olderThan.UnixMilli()), strconv.Itoa(limit)},
	).AsStrSlice()
	if err != nil {
		return nil, err
	}

	settlements := make([]model.Settlement, 0, len(ids))
	for _, id := range ids {
		s, err := r.FindSettlement(ctx, id)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, *s)
	}
	return settlements, nil
}

func (r *RedisSettlementRepository) setStatus(ctx context.Context, taskID string, status constants.SettlementStatus, lastError string) error {
	now := time.Now().UTC()

	keys := []string{r.keys.settlement(taskID), r.keys.pendingSettlements()}
	args := []string{string(status), lastError, formatTime(now), formatInt(now.UnixMilli()), taskID}

	updated, err := settlementStatusScript.Exec(ctx, r.client, keys, args).AsInt64()
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrSettlementNotFound
	}
	return nil
}

func decodeSettlement(fields map[string]string) (*model.Settlement, error) {
	amount, err := parseInt(fields["amount"])
	if err != nil {
		return nil, err
	}
	attempts, err := parseInt(fields["attempts"])
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime(fields["created_at"])
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime(fields["updated_at"])
	if err != nil {
		return nil, err
	}

	return &model.Settlement{
		TaskID:     fields["task_id"],
		FromUserID: fields["from_user_id"],
		ToUserID:   fields["to_user_id"],
		Amount:     amount,
		Status:     constants.SettlementStatus(fields["status"]),
		Attempts:   int(attempts),
		LastError:  fields["last_error"],
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}
