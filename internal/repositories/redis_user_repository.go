package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
)

const (
	transferApplied = iota
	transferUserMissing
	transferInsufficient
	transferReferenceClash
	transferReplayed
)

// transferScript is the whole transfer: replay check, existence check,
// balance check, both balance changes and the ledger hash. Redis runs it
// without interleaving other commands.
// KEYS: from user, to user, transfer. ARGV: from id, to id, amount, created_at.
var transferScript = rueidis.NewLuaScript(`
local prior = redis.call('HMGET', KEYS[3], 'from_user_id', 'to_user_id', 'amount', 'from_balance', 'to_balance')
if prior[1] then
  if prior[1] ~= ARGV[1] or prior[2] ~= ARGV[2] or prior[3] ~= ARGV[3] then
    return {3, 0, 0}
  end
  return {4, tonumber(prior[4]), tonumber(prior[5])}
end
if redis.call('EXISTS', KEYS[1]) == 0 or redis.call('EXISTS', KEYS[2]) == 0 then
  return {1, 0, 0}
end
local amount = tonumber(ARGV[3])
local balance = tonumber(redis.call('HGET', KEYS[1], 'time_credits') or '0')
if balance < amount then
  return {2, balance, 0}
end
local fromBalance = redis.call('HINCRBY', KEYS[1], 'time_credits', -amount)
local toBalance = redis.call('HINCRBY', KEYS[2], 'time_credits', amount)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[4])
redis.call('HSET', KEYS[2], 'updated_at', ARGV[4])
redis.call('HSET', KEYS[3],
  'from_user_id', ARGV[1],
  'to_user_id', ARGV[2],
  'amount', ARGV[3],
  'from_balance', fromBalance,
  'to_balance', toBalance,
  'created_at', ARGV[4])
return {0, fromBalance, toBalance}
`)

type RedisUserRepository struct {
	client rueidis.Client
	keys   keyspace
}

func NewRedisUserRepository(client rueidis.Client, prefix string) *RedisUserRepository {
	return &RedisUserRepository{client: client, keys: keyspace{prefix: prefix}}
}

func (r *RedisUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	args := []string{
		user.ID,
		"id", user.ID,
		"name", user.Name,
		"email", user.Email,
		"description", user.Description,
		"time_credits", formatInt(user.TimeCredits),
		"created_at", formatTime(user.CreatedAt),
		"updated_at", formatTime(user.UpdatedAt),
	}

	created, err := createRecordScript.Exec(ctx, r.client, []string{r.keys.user(user.ID), r.keys.users()}, args).AsInt64()
	if err != nil {
		return err
	}
	if created == 0 {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	return nil
}

func (r *RedisUserRepository) FindUser(ctx context.Context, id string) (*model.User, error) {
	fields, err := r.client.Do(ctx, r.client.B().Hgetall().Key(r.keys.user(id)).Build()).AsStrMap()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrUserNotFound
	}

	credits, err := parseInt(fields["time_credits"])
	if err != nil {
		return nil, fmt.Errorf("user %s: bad balance: %w", id, err)
	}
	createdAt, err := parseTime(fields["created_at"])
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime(fields["updated_at"])
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:          fields["id"],
		Name:        fields["name"],
		Email:       fields["email"],
		Description: fields["description"],
		TimeCredits: credits,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

func (r *RedisUserRepository) UserExists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Do(ctx, r.client.B().Exists().Key(r.keys.user(id)).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisUserRepository) Transfer(ctx context.Context, reference, fromID, toID string, amount int64) (*model.Transfer, error) {
	now := time.Now().UTC()

	keys := []string{r.keys.user(fromID), r.keys.user(toID), r.keys.transfer(reference)}
	args := []string{fromID, toID, formatInt(amount), formatTime(now)}

	reply, err := transferScript.Exec(ctx, r.client, keys, args).ToArray()
	if err != nil {
		return nil, err
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("unexpected transfer reply of length %d", len(reply))
	}

	values := make([]int64, 3)
	for i, msg := range reply {
		if values[i], err = msg.AsInt64(); err != nil {
			return nil, err
		}
	}

	switch values[0] {
	case transferUserMissing:
		return nil, fmt.Errorf("%w: %s or %s", apperrors.ErrUserNotFound, fromID, toID)
	case transferInsufficient:
		return nil, fmt.Errorf("%w: user %s cannot cover %d credits", apperrors.ErrInsufficientFunds, fromID, amount)
	case transferReferenceClash:
		return nil, fmt.Errorf("%w: reference %s already used for a different transfer", apperrors.ErrBadRequest, reference)
	case transferApplied, transferReplayed:
	default:
		return nil, fmt.Errorf("unexpected transfer status %d", values[0])
	}

	if values[0] == transferReplayed {
		prior, err := r.FindTransfer(ctx, reference)
		if err != nil {
			return nil, err
		}
		prior.Replayed = true
		return prior, nil
	}

	return &model.Transfer{
		Reference:   reference,
		FromUserID:  fromID,
		ToUserID:    toID,
		Amount:      amount,
		FromBalance: values[1],
		ToBalance:   values[2],
		CreatedAt:   now,
	}, nil
}

func (r *RedisUserRepository) FindTransfer(ctx context.Context, reference string) (*model.Transfer, error) {
	fields, err := r.client.Do(ctx, r.client.B().Hgetall().Key(r.keys.transfer(reference)).Build()).AsStrMap()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrTransferNotFound
	}

	transfer := &model.Transfer{
		Reference:  reference,
		FromUserID: fields["from_user_id"],
		ToUserID:   fields["to_user_id"],
	}
	if transfer.Amount, err = parseInt(fields["amount"]); err != nil {
		return nil, err
	}
	if transfer.FromBalance, err = parseInt(fields["from_balance"]); err != nil {
		return nil, err
	}
	if transfer.ToBalance, err = parseInt(fields["to_balance"]); err != nil {
		return nil, err
	}
	if transfer.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return nil, err
	}
	return transfer, nil
}
