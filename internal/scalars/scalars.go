// Package scalars defines the custom GraphQL scalars that column annotations
// can resolve to, alongside the built-in Int, Float, String and Boolean.
package scalars

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"sqlmodel-graphql/internal/annotation"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

var (
	customOnce sync.Once
	custom     map[annotation.Scalar]*graphql.Scalar
)

// For returns the GraphQL scalar type for an annotation scalar. Custom scalar
// instances are shared so one schema never holds two types of the same name.
func For(s annotation.Scalar) (*graphql.Scalar, error) {
	switch s {
	case annotation.ScalarInt:
		return graphql.Int, nil
	case annotation.ScalarFloat:
		return graphql.Float, nil
	case annotation.ScalarString:
		return graphql.String, nil
	case annotation.ScalarBoolean:
		return graphql.Boolean, nil
	}
	customOnce.Do(func() {
		custom = map[annotation.Scalar]*graphql.Scalar{
			annotation.ScalarDate:     Date(),
			annotation.ScalarDateTime: DateTime(),
			annotation.ScalarTime:     Time(),
			annotation.ScalarDecimal:  Decimal(),
			annotation.ScalarBytes:    Bytes(),
		}
	})
	if scalar, ok := custom[s]; ok {
		return scalar, nil
	}
	return nil, fmt.Errorf("no GraphQL scalar for %q", s)
}

func Decimal() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Decimal",
		Description: "Fixed-point decimal value serialized as a string.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case []byte:
				return string(v)
			case string:
				return v
			case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
				return fmt.Sprintf("%v", v)
			case float32, float64:
				return fmt.Sprintf("%v", v)
			default:
				return nil
			}
		},
		ParseValue: func(value interface{}) interface{} {
			switch v := value.(type) {
			case string:
				return parseDecimal(v)
			case []byte:
				return parseDecimal(string(v))
			case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
				return fmt.Sprintf("%v", v)
			case float32, float64:
				return fmt.Sprintf("%v", v)
			default:
				return nil
			}
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			switch v := valueAST.(type) {
			case *ast.StringValue:
				return parseDecimal(v.Value)
			case *ast.IntValue:
				return v.Value
			case *ast.FloatValue:
				return v.Value
			default:
				return nil
			}
		},
	})
}

func parseDecimal(s string) interface{} {
	if !decimalPattern.MatchString(s) {
		return nil
	}
	return s
}

func Date() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Date",
		Description: "Date value serialized as YYYY-MM-DD.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v.UTC().Format(dateLayout)
			case *time.Time:
				if v == nil {
					return nil
				}
				return v.UTC().Format(dateLayout)
			case string:
				if parsed, ok := parseDate(v); ok {
					return parsed.Format(dateLayout)
				}
				return nil
			default:
				return nil
			}
		},
		ParseValue: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v
			case string:
				if parsed, ok := parseDate(v); ok {
					return parsed
				}
				return nil
			default:
				return nil
			}
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				if parsed, ok := parseDate(sv.Value); ok {
					return parsed
				}
			}
			return nil
		},
	})
}

func parseDate(s string) (time.Time, bool) {
	if parsed, err := time.Parse(dateLayout, s); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func DateTime() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "DateTime",
		Description: "Timestamp serialized as RFC 3339.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v.Format(time.RFC3339Nano)
			case *time.Time:
				if v == nil {
					return nil
				}
				return v.Format(time.RFC3339Nano)
			case string:
				if parsed, ok := parseDateTime(v); ok {
					return parsed.Format(time.RFC3339Nano)
				}
				return nil
			default:
				return nil
			}
		},
		ParseValue: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v
			case string:
				if parsed, ok := parseDateTime(v); ok {
					return parsed
				}
				return nil
			default:
				return nil
			}
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				if parsed, ok := parseDateTime(sv.Value); ok {
					return parsed
				}
			}
			return nil
		},
	})
}

// parseDateTime accepts RFC 3339 and the space-separated form databases
// return, which is read as UTC.
func parseDateTime(s string) (time.Time, bool) {
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return parsed, true
	}
	if parsed, err := time.ParseInLocation("2006-01-02 15:04:05.999999999", s, time.UTC); err == nil {
		return parsed, true
	}
	return time.Time{}, false
}

func Time() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Time",
		Description: "Time of day serialized as HH:MM:SS.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v.Format(timeLayout)
			case time.Duration:
				if v < 0 || v >= 24*time.Hour {
					return nil
				}
				return time.Time{}.Add(v).Format(timeLayout)
			case []byte:
				return parseTimeOfDay(string(v))
			case string:
				return parseTimeOfDay(v)
			default:
				return nil
			}
		},
		ParseValue: func(value interface{}) interface{} {
			if s, ok := value.(string); ok {
				return parseTimeOfDay(s)
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				return parseTimeOfDay(sv.Value)
			}
			return nil
		},
	})
}

func parseTimeOfDay(s string) interface{} {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05.999999999", timeLayout, "15:04"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.Format(timeLayout)
		}
	}
	return nil
}

func Bytes() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Bytes",
		Description: "Binary data serialized as standard base64.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case []byte:
				return base64.StdEncoding.EncodeToString(v)
			case string:
				return base64.StdEncoding.EncodeToString([]byte(v))
			default:
				return nil
			}
		},
		ParseValue: func(value interface{}) interface{} {
			if s, ok := value.(string); ok {
				return decodeBytes(s)
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				return decodeBytes(sv.Value)
			}
			return nil
		},
	})
}

func decodeBytes(s string) interface{} {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return decoded
}
