package protocol

import (
	"fmt"
	"strconv"
)

// ToString converts a reply into a string.
func ToString(reply any) (string, error) {
	switch v := reply.(type) {
	case nil:
		return "", ErrNil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", parseError(reply, "string")
	}
}

// ToInt64 converts an integer reply, or a bulk string holding an integer.
func ToInt64(reply any) (int64, error) {
	switch v := reply.(type) {
	case nil:
		return 0, ErrNil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, &Error{Kind: KindDescription, Description: ErrParse.Description, Cause: err}
		}
		return n, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, parseError(reply, "int64")
	}
}

// ToFloat64 converts a float reply or a bulk string holding a float.
func ToFloat64(reply any) (float64, error) {
	switch v := reply.(type) {
	case nil:
		return 0, ErrNil
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &Error{Kind: KindDescription, Description: ErrParse.Description, Cause: err}
		}
		return f, nil
	default:
		return 0, parseError(reply, "float64")
	}
}

// ToBool treats integer 1, "1", "OK" and true as true.
func ToBool(reply any) (bool, error) {
	switch v := reply.(type) {
	case nil:
		return false, ErrNil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case string:
		switch v {
		case "1", "OK", "true":
			return true, nil
		case "0", "false", "":
			return false, nil
		}
		return false, parseError(reply, "bool")
	default:
		return false, parseError(reply, "bool")
	}
}

// ToStringSlice converts an array reply. Nil elements become empty strings.
func ToStringSlice(reply any) ([]string, error) {
	switch v := reply.(type) {
	case nil:
		return nil, ErrNil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				out = append(out, "")
				continue
			}
			s, err := ToString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, parseError(reply, "[]string")
	}
}

// ToStringMap converts a flat field/value array (RESP2) or a map reply (RESP3).
func ToStringMap(reply any) (map[string]string, error) {
	switch v := reply.(type) {
	case nil:
		return nil, ErrNil
	case map[any]any:
		out := make(map[string]string, len(v))
		for key, val := range v {
			k, err := ToString(key)
			if err != nil {
				return nil, err
			}
			s, err := ToString(val)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	case []any:
		if len(v)%2 != 0 {
			return nil, fmt.Errorf("%w: odd number of elements (%d)", ErrParse, len(v))
		}
		flat, err := ToStringSlice(v)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(flat)/2)
		for i := 0; i < len(flat); i += 2 {
			out[flat[i]] = flat[i+1]
		}
		return out, nil
	default:
		return nil, parseError(reply, "map[string]string")
	}
}

func parseError(reply any, target string) error {
	return &Error{
		Kind:        KindDescription,
		Description: ErrParse.Description,
		Cause:       fmt.Errorf("cannot convert %T to %s", reply, target),
	}
}
