// Package protocol defines the command, reply and message model shared by the
// SteadyRedis transport, connection guardian, subscription registry and client.
//
// The wire format itself belongs to the transport. This package only describes
// what is sent (a command name plus string arguments) and how replies are
// converted into Go values.
//
// Example usage:
//
//	// Build a command with mixed argument types
//	cmd, err := protocol.NewCommand(protocol.CmdSetEx, "session:abc", 30, "payload")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Or parse one typed by a human
//	cmd, err = protocol.ParseTextCommand(`SET greeting "hello world"`)
//
// Supported argument types are strings, byte slices, all integer kinds,
// floats, booleans and fmt.Stringer values.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// Command names used by the client wrappers and the connection guardian.
const (
	CmdPing        = "PING"
	CmdQuit        = "QUIT"
	CmdAuth        = "AUTH"
	CmdEcho        = "ECHO"
	CmdPublish     = "PUBLISH"
	CmdGet         = "GET"
	CmdSet         = "SET"
	CmdSetEx       = "SETEX"
	CmdSetNX       = "SETNX"
	CmdGetSet      = "GETSET"
	CmdDel         = "DEL"
	CmdExists      = "EXISTS"
	CmdExpire      = "EXPIRE"
	CmdPExpire     = "PEXPIRE"
	CmdPersist     = "PERSIST"
	CmdRename      = "RENAME"
	CmdRenameNX    = "RENAMENX"
	CmdAppend      = "APPEND"
	CmdIncr        = "INCR"
	CmdIncrBy      = "INCRBY"
	CmdIncrByFloat = "INCRBYFLOAT"
	CmdStrLen      = "STRLEN"
	CmdKeys        = "KEYS"
	CmdHGet        = "HGET"
	CmdHGetAll     = "HGETALL"
	CmdHSet        = "HSET"
	CmdHSetNX      = "HSETNX"
	CmdHDel        = "HDEL"
	CmdHExists     = "HEXISTS"
	CmdHKeys       = "HKEYS"
	CmdHVals       = "HVALS"
	CmdLSet        = "LSET"
	CmdLIndex      = "LINDEX"
	CmdLLen        = "LLEN"
	CmdLPop        = "LPOP"
	CmdLPush       = "LPUSH"
	CmdLPushX      = "LPUSHX"
	CmdLRange      = "LRANGE"
	CmdLRem        = "LREM"
	CmdLTrim       = "LTRIM"
	CmdRPop        = "RPOP"
	CmdRPush       = "RPUSH"
	CmdRPushX      = "RPUSHX"
	CmdSAdd        = "SADD"
	CmdSCard       = "SCARD"
	CmdSDiff       = "SDIFF"
	CmdSIsMember   = "SISMEMBER"
	CmdSMembers    = "SMEMBERS"
	CmdSMove       = "SMOVE"
	CmdSRem        = "SREM"
	CmdZAdd        = "ZADD"
	CmdZRange      = "ZRANGE"
)

// Command is a single request sent over a request connection.
//
// Example:
//
//	cmd := &Command{
//		Name: CmdHSet,
//		Args: []string{"user:123", "name", "John Doe"},
//	}
type Command struct {
	Name string   // Command verb, e.g. "GET"
	Args []string // Already formatted arguments
}

// NewCommand builds a Command, formatting every argument with FormatArg.
//
// Returns an error if the name is empty or an argument has an unsupported type.
func NewCommand(name string, args ...any) (*Command, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty command name")
	}

	formatted := make([]string, 0, len(args))
	for i, arg := range args {
		s, err := FormatArg(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, name, err)
		}
		formatted = append(formatted, s)
	}

	return &Command{Name: name, Args: formatted}, nil
}

// Interface returns the command as the variadic slice expected by the transport.
func (c *Command) Interface() []any {
	out := make([]any, 0, len(c.Args)+1)
	out = append(out, c.Name)
	for _, arg := range c.Args {
		out = append(out, arg)
	}
	return out
}

// String renders the command name and argument count. Arguments are left out
// so that secrets passed to AUTH never reach a log line.
func (c *Command) String() string {
	return fmt.Sprintf("%s (%d args)", strings.ToUpper(c.Name), len(c.Args))
}

// FormatArg converts a Go value into its command argument representation.
//
// Floats use the shortest representation that round-trips, booleans are
// written as "true"/"false" and nil is rejected.
func FormatArg(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case fmt.Stringer:
		return x.String(), nil
	case nil:
		return "", fmt.Errorf("nil argument")
	default:
		return "", fmt.Errorf("unsupported argument type %T", v)
	}
}

// ParseTextCommand parses a human-entered command line such as
// `SET greeting "hello world"`. Quoting follows shell rules, so arguments may
// contain spaces.
//
// Example:
//
//	cmd, err := protocol.ParseTextCommand(`HSET user:1 name "John Doe"`)
//	// cmd.Name == "HSET", cmd.Args == []string{"user:1", "name", "John Doe"}
func ParseTextCommand(line string) (*Command, error) {
	parts, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command line: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	return &Command{
		Name: strings.ToUpper(parts[0]),
		Args: parts[1:],
	}, nil
}
