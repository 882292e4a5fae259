package client

import (
	"context"
	"time"

	"github.com/cachemir/steadyredis/pkg/protocol"
)

// Connection commands.

// Auth authenticates the current request connection. Prefer putting the
// password in the connection URL: a reopened connection only re-authenticates
// with the URL password.
func (c *Client) Auth(ctx context.Context, password string) error {
	return c.RunCommandEmpty(ctx, protocol.CmdAuth, password)
}

// Ping checks the server round-trip, reconnecting first when needed.
func (c *Client) Ping(ctx context.Context) error {
	return c.RunCommandEmpty(ctx, protocol.CmdPing)
}

func (c *Client) Echo(ctx context.Context, message string) (string, error) {
	return c.RunCommandString(ctx, protocol.CmdEcho, message)
}

// Publish posts message on channel and returns the number of receivers.
//
// Example:
//
//	receivers, err := c.Publish(ctx, "orders", `{"id":42}`)
func (c *Client) Publish(ctx context.Context, channel string, message any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdPublish, channel, message)
}

// String commands.

// Get returns the value of key. A missing key returns protocol.ErrNil.
//
// Example:
//
//	value, err := c.Get(ctx, "user:123")
//	if errors.Is(err, protocol.ErrNil) {
//		// key does not exist
//	}
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.RunCommandString(ctx, protocol.CmdGet, key)
}

// GetInt64 returns the value of key parsed as an integer.
func (c *Client) GetInt64(ctx context.Context, key string) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdGet, key)
}

// GetFloat64 returns the value of key parsed as a float.
func (c *Client) GetFloat64(ctx context.Context, key string) (float64, error) {
	return c.RunCommandFloat64(ctx, protocol.CmdGet, key)
}

// Set stores value under key without expiration. Values are formatted with
// protocol.FormatArg.
func (c *Client) Set(ctx context.Context, key string, value any) error {
	return c.RunCommandEmpty(ctx, protocol.CmdSet, key, value)
}

// SetEx stores value under key with a time to live in whole seconds.
//
// Example:
//
//	err := c.SetEx(ctx, "session:abc", 30*time.Minute, token)
func (c *Client) SetEx(ctx context.Context, key string, ttl time.Duration, value any) error {
	return c.RunCommandEmpty(ctx, protocol.CmdSetEx, key, seconds(ttl), value)
}

// SetNX stores value only if key does not exist and reports whether it did.
func (c *Client) SetNX(ctx context.Context, key string, value any) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdSetNX, key, value)
}

// GetSet stores value and returns the previous one.
func (c *Client) GetSet(ctx context.Context, key string, value any) (string, error) {
	return c.RunCommandString(ctx, protocol.CmdGetSet, key, value)
}

// Del removes keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdDel, strs(keys)...)
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdExists, key)
}

// Expire sets a time to live in whole seconds and reports whether key exists.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdExpire, key, seconds(ttl))
}

// PExpire sets a time to live in milliseconds.
func (c *Client) PExpire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdPExpire, key, ttl.Milliseconds())
}

// Persist removes the time to live of key.
func (c *Client) Persist(ctx context.Context, key string) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdPersist, key)
}

func (c *Client) Rename(ctx context.Context, key, newKey string) error {
	return c.RunCommandEmpty(ctx, protocol.CmdRename, key, newKey)
}

// RenameNX renames key only when newKey does not exist.
func (c *Client) RenameNX(ctx context.Context, key, newKey string) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdRenameNX, key, newKey)
}

// Append appends value and returns the new length.
func (c *Client) Append(ctx context.Context, key string, value any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdAppend, key, value)
}

// Incr atomically increments the integer stored at key.
//
// Example:
//
//	views, err := c.Incr(ctx, "page:home:views")
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdIncr, key)
}

func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdIncrBy, key, delta)
}

func (c *Client) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	return c.RunCommandFloat64(ctx, protocol.CmdIncrByFloat, key, delta)
}

func (c *Client) StrLen(ctx context.Context, key string) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdStrLen, key)
}

// Keys returns the keys matching a glob pattern. It scans the whole keyspace
// on the server.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	return c.RunCommandStrings(ctx, protocol.CmdKeys, pattern)
}

// Hash commands.

// HGet returns one field of a hash. A missing field returns protocol.ErrNil.
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	return c.RunCommandString(ctx, protocol.CmdHGet, key, field)
}

// HGetAll returns every field of a hash. A missing key returns an empty map.
//
// Example:
//
//	profile, err := c.HGetAll(ctx, "user:123:profile")
//	fmt.Println(profile["name"])
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.RunCommandStringMap(ctx, protocol.CmdHGetAll, key)
}

// HSet sets one field and reports whether the field is new.
func (c *Client) HSet(ctx context.Context, key, field string, value any) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdHSet, key, field, value)
}

func (c *Client) HSetNX(ctx context.Context, key, field string, value any) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdHSetNX, key, field, value)
}

// HDel removes fields and returns how many existed.
func (c *Client) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdHDel, withKey(key, strs(fields))...)
}

func (c *Client) HExists(ctx context.Context, key, field string) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdHExists, key, field)
}

func (c *Client) HKeys(ctx context.Context, key string) ([]string, error) {
	return c.RunCommandStrings(ctx, protocol.CmdHKeys, key)
}

func (c *Client) HVals(ctx context.Context, key string) ([]string, error) {
	return c.RunCommandStrings(ctx, protocol.CmdHVals, key)
}

// List commands.

func (c *Client) LSet(ctx context.Context, key string, index int64, value any) error {
	return c.RunCommandEmpty(ctx, protocol.CmdLSet, key, index, value)
}

// LIndex returns the element at index. Negative indexes count from the tail.
func (c *Client) LIndex(ctx context.Context, key string, index int64) (string, error) {
	return c.RunCommandString(ctx, protocol.CmdLIndex, key, index)
}

func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdLLen, key)
}

// LPop removes and returns the head of a list. An empty list returns
// protocol.ErrNil.
func (c *Client) LPop(ctx context.Context, key string) (string, error) {
	return c.RunCommandString(ctx, protocol.CmdLPop, key)
}

// LPush prepends values and returns the new length.
//
// Example:
//
//	length, err := c.LPush(ctx, "tasks", "task1", "task2")
func (c *Client) LPush(ctx context.Context, key string, values ...any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdLPush, withKey(key, values)...)
}

// LPushX prepends values only when the list exists.
func (c *Client) LPushX(ctx context.Context, key string, values ...any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdLPushX, withKey(key, values)...)
}

// LRange returns the elements between start and stop, both inclusive.
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.RunCommandStrings(ctx, protocol.CmdLRange, key, start, stop)
}

// LRem removes up to count occurrences of value and returns how many were removed.
func (c *Client) LRem(ctx context.Context, key string, count int64, value any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdLRem, key, count, value)
}

func (c *Client) LTrim(ctx context.Context, key string, start, stop int64) error {
	return c.RunCommandEmpty(ctx, protocol.CmdLTrim, key, start, stop)
}

func (c *Client) RPop(ctx context.Context, key string) (string, error) {
	return c.RunCommandString(ctx, protocol.CmdRPop, key)
}

func (c *Client) RPush(ctx context.Context, key string, values ...any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdRPush, withKey(key, values)...)
}

func (c *Client) RPushX(ctx context.Context, key string, values ...any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdRPushX, withKey(key, values)...)
}

// Set commands.

// SAdd adds members and returns how many were new.
func (c *Client) SAdd(ctx context.Context, key string, members ...any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdSAdd, withKey(key, members)...)
}

func (c *Client) SCard(ctx context.Context, key string) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdSCard, key)
}

// SDiff returns the members of the first set missing from all the others.
func (c *Client) SDiff(ctx context.Context, keys ...string) ([]string, error) {
	return c.RunCommandStrings(ctx, protocol.CmdSDiff, strs(keys)...)
}

func (c *Client) SIsMember(ctx context.Context, key string, member any) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdSIsMember, key, member)
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.RunCommandStrings(ctx, protocol.CmdSMembers, key)
}

// SMove moves member from source to destination and reports whether it was
// present in source.
func (c *Client) SMove(ctx context.Context, source, destination string, member any) (bool, error) {
	return c.RunCommandBool(ctx, protocol.CmdSMove, source, destination, member)
}

func (c *Client) SRem(ctx context.Context, key string, members ...any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdSRem, withKey(key, members)...)
}

// Sorted set commands.

// ZAdd adds member with score and returns 1 when the member is new.
func (c *Client) ZAdd(ctx context.Context, key string, score float64, member any) (int64, error) {
	return c.RunCommandInt64(ctx, protocol.CmdZAdd, key, score, member)
}

// ZRange returns members ordered by score between ranks start and stop.
func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.RunCommandStrings(ctx, protocol.CmdZRange, key, start, stop)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func strs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func withKey(key string, values []any) []any {
	return append([]any{key}, values...)
}
