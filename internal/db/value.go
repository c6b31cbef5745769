package db

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the scalar types a Value can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single column value. Only the field selected by Kind is
// meaningful; the zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

func Null() Value { return Value{} }
func Int(v int64) Value { return Value{kind: KindInteger, i: v} }
func Real(v float64) Value { return Value{kind: KindReal, f: v} }
func Text(v string) Value { return Value{kind: KindText, s: v} }
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInteger
}

func (v Value) AsReal() (float64, bool) {
	return v.f, v.kind == KindReal
}

func (v Value) AsText() (string, bool) {
	return v.s, v.kind == KindText
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Any returns the held scalar as a plain Go value (nil for NULL).
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// String renders the value for display. NULL renders as "NULL".
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindText:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "NULL"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// FromDriver converts a value scanned into an `any` destination.
// dbType is the column's declared type as reported by the driver and is
// only consulted to recover booleans that the engine stores as integers.
func FromDriver(v any, dbType string) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int64:
		if isBoolType(dbType) {
			return Bool(x != 0)
		}
		return Int(x)
	case int:
		return FromDriver(int64(x), dbType)
	case int32:
		return FromDriver(int64(x), dbType)
	case int16:
		return FromDriver(int64(x), dbType)
	case int8:
		return FromDriver(int64(x), dbType)
	case uint8:
		return FromDriver(int64(x), dbType)
	case uint16:
		return FromDriver(int64(x), dbType)
	case uint32:
		return FromDriver(int64(x), dbType)
	case uint64:
		// values past MaxInt64 do not fit the integer variant
		if x > 1<<63-1 {
			return Text(strconv.FormatUint(x, 10))
		}
		return FromDriver(int64(x), dbType)
	case float64:
		return Real(x)
	case float32:
		return Real(float64(x))
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case time.Time:
		return Text(x.Format(time.RFC3339Nano))
	default:
		return Text(fmt.Sprint(x))
	}
}

func isBoolType(dbType string) bool {
	switch strings.ToUpper(strings.TrimSpace(dbType)) {
	case "BOOL", "BOOLEAN":
		return true
	}
	return false
}
