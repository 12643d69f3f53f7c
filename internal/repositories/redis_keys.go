package repository

import (
	"strconv"
	"time"

	"github.com/redis/rueidis"
)

// keyspace lays records out as flat hashes plus one index per record kind.
type keyspace struct {
	prefix string
}

func (k keyspace) task(id string) string       { return k.prefix + "task:" + id }
func (k keyspace) tasks() string               { return k.prefix + "tasks" }
func (k keyspace) user(id string) string       { return k.prefix + "user:" + id }
func (k keyspace) users() string               { return k.prefix + "users" }
func (k keyspace) transfer(ref string) string  { return k.prefix + "transfer:" + ref }
func (k keyspace) settlement(id string) string { return k.prefix + "settlement:" + id }
func (k keyspace) pendingSettlements() string  { return k.prefix + "settlements:pending" }

// createRecordScript writes a hash and adds its id to the index set, unless
// the hash already exists. KEYS: record, index. ARGV: id, field/value pairs.
var createRecordScript = rueidis.NewLuaScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func parseInt(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func optional(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func fromOptional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
