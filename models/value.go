package models

import (
	"strconv"
	"time"
)

// ValueKind identifies the type held by a Value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindString
	KindNumber
	KindTime
)

// TimeLayout is the canonical textual form for time cells. It is used both
// for CSV serialization and for identity keys, so reloaded rows render the
// same strings as freshly normalized ones.
const TimeLayout = "2006-01-02 15:04:05"

// Value is a single typed cell in a disclosure row. The upstream feed mixes
// strings, numbers and missing markers per field, so cells carry their own
// kind instead of relying on a fixed schema.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Time time.Time
}

// Absent is the canonical missing-value marker.
func Absent() Value {
	return Value{Kind: KindAbsent}
}

func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

func TimeValue(t time.Time) Value {
	return Value{Kind: KindTime, Time: t}
}

// IsAbsent reports whether the cell holds no value.
func (v Value) IsAbsent() bool {
	return v.Kind == KindAbsent
}

// String returns the canonical textual form of the cell. Absent cells render
// as an empty string. The representation must stay deterministic: identity
// keys and CSV cells are both derived from it.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindTime:
		return v.Time.Format(TimeLayout)
	default:
		return ""
	}
}
