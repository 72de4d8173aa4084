/*
 * Copyright 2025 ChronoDB Project Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package chronodb

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// DataType is the declared type of a value in the read/write protocol.
type DataType string

const (
	DataTypeNull      DataType = "null"
	DataTypeTimestamp DataType = "timestamp"
	DataTypeDouble    DataType = "double"
	DataTypeFloat     DataType = "float"
	DataTypeVarbinary DataType = "varbinary"
	DataTypeString    DataType = "string"
	DataTypeUInt64    DataType = "uint64"
	DataTypeUInt32    DataType = "uint32"
	DataTypeUInt16    DataType = "uint16"
	DataTypeUInt8     DataType = "uint8"
	DataTypeInt64     DataType = "int64"
	DataTypeInt32     DataType = "int32"
	DataTypeInt16     DataType = "int16"
	DataTypeInt8      DataType = "int8"
	DataTypeBoolean   DataType = "boolean"
)

// TypeMismatchError reports an accessor called against a value of a
// different declared type.
type TypeMismatchError struct {
	Requested DataType
	Actual    DataType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("chronodb: value is %s, not %s", e.Actual, e.Requested)
}

// Value is an immutable tagged union of the wire data types. The zero Value
// is the null value.
//
// A Value carries its declared DataType; typed accessors fail with a
// TypeMismatchError rather than silently converting.
type Value struct {
	typ DataType

	// exactly one of the below is meaningful, selected by typ
	num  uint64 // integer kinds, boolean (0/1), timestamp millis
	fnum float64
	str  string
	bin  []byte
}

func NullValue() Value { return Value{typ: DataTypeNull} }

// TimestampValue builds a timestamp value from epoch milliseconds.
func TimestampValue(ms int64) Value {
	return Value{typ: DataTypeTimestamp, num: uint64(ms)}
}

func DoubleValue(v float64) Value { return Value{typ: DataTypeDouble, fnum: v} }

func FloatValue(v float32) Value { return Value{typ: DataTypeFloat, fnum: float64(v)} }

func VarbinaryValue(v []byte) Value {
	b := make([]byte, len(v))
	copy(b, v)
	return Value{typ: DataTypeVarbinary, bin: b}
}

func StringValue(v string) Value { return Value{typ: DataTypeString, str: v} }

func UInt64Value(v uint64) Value { return Value{typ: DataTypeUInt64, num: v} }

func UInt32Value(v uint32) Value { return Value{typ: DataTypeUInt32, num: uint64(v)} }

func UInt16Value(v uint16) Value { return Value{typ: DataTypeUInt16, num: uint64(v)} }

func UInt8Value(v uint8) Value { return Value{typ: DataTypeUInt8, num: uint64(v)} }

func Int64Value(v int64) Value { return Value{typ: DataTypeInt64, num: uint64(v)} }

func Int32Value(v int32) Value { return Value{typ: DataTypeInt32, num: uint64(int64(v))} }

func Int16Value(v int16) Value { return Value{typ: DataTypeInt16, num: uint64(int64(v))} }

func Int8Value(v int8) Value { return Value{typ: DataTypeInt8, num: uint64(int64(v))} }

func BoolValue(v bool) Value {
	var n uint64
	if v {
		n = 1
	}
	return Value{typ: DataTypeBoolean, num: n}
}

// DataType returns the declared type of the value. The zero Value reports
// DataTypeNull.
func (v Value) DataType() DataType {
	if v.typ == "" {
		return DataTypeNull
	}
	return v.typ
}

func (v Value) IsNull() bool { return v.DataType() == DataTypeNull }

func (v Value) check(want DataType) error {
	if got := v.DataType(); got != want {
		return &TypeMismatchError{Requested: want, Actual: got}
	}
	return nil
}

// Timestamp returns the value as epoch milliseconds.
func (v Value) Timestamp() (int64, error) {
	if err := v.check(DataTypeTimestamp); err != nil {
		return 0, err
	}
	return int64(v.num), nil
}

func (v Value) Double() (float64, error) {
	if err := v.check(DataTypeDouble); err != nil {
		return 0, err
	}
	return v.fnum, nil
}

func (v Value) Float() (float32, error) {
	if err := v.check(DataTypeFloat); err != nil {
		return 0, err
	}
	return float32(v.fnum), nil
}

func (v Value) Varbinary() ([]byte, error) {
	if err := v.check(DataTypeVarbinary); err != nil {
		return nil, err
	}
	return v.bin, nil
}

// Str returns the value as a string. Named so because String is taken by
// fmt.Stringer.
func (v Value) Str() (string, error) {
	if err := v.check(DataTypeString); err != nil {
		return "", err
	}
	return v.str, nil
}

func (v Value) UInt64() (uint64, error) {
	if err := v.check(DataTypeUInt64); err != nil {
		return 0, err
	}
	return v.num, nil
}

func (v Value) UInt32() (uint32, error) {
	if err := v.check(DataTypeUInt32); err != nil {
		return 0, err
	}
	return uint32(v.num), nil
}

func (v Value) UInt16() (uint16, error) {
	if err := v.check(DataTypeUInt16); err != nil {
		return 0, err
	}
	return uint16(v.num), nil
}

func (v Value) UInt8() (uint8, error) {
	if err := v.check(DataTypeUInt8); err != nil {
		return 0, err
	}
	return uint8(v.num), nil
}

func (v Value) Int64() (int64, error) {
	if err := v.check(DataTypeInt64); err != nil {
		return 0, err
	}
	return int64(v.num), nil
}

func (v Value) Int32() (int32, error) {
	if err := v.check(DataTypeInt32); err != nil {
		return 0, err
	}
	return int32(int64(v.num)), nil
}

func (v Value) Int16() (int16, error) {
	if err := v.check(DataTypeInt16); err != nil {
		return 0, err
	}
	return int16(int64(v.num)), nil
}

func (v Value) Int8() (int8, error) {
	if err := v.check(DataTypeInt8); err != nil {
		return 0, err
	}
	return int8(int64(v.num)), nil
}

func (v Value) Bool() (bool, error) {
	if err := v.check(DataTypeBoolean); err != nil {
		return false, err
	}
	return v.num != 0, nil
}

// Any returns the underlying value without a type check: nil, int64, uint64,
// float64, float32, string, []byte, or bool depending on the declared type.
func (v Value) Any() any {
	switch v.DataType() {
	case DataTypeNull:
		return nil
	case DataTypeTimestamp, DataTypeInt64:
		return int64(v.num)
	case DataTypeInt32:
		return int32(int64(v.num))
	case DataTypeInt16:
		return int16(int64(v.num))
	case DataTypeInt8:
		return int8(int64(v.num))
	case DataTypeUInt64:
		return v.num
	case DataTypeUInt32:
		return uint32(v.num)
	case DataTypeUInt16:
		return uint16(v.num)
	case DataTypeUInt8:
		return uint8(v.num)
	case DataTypeDouble:
		return v.fnum
	case DataTypeFloat:
		return float32(v.fnum)
	case DataTypeString:
		return v.str
	case DataTypeVarbinary:
		return v.bin
	case DataTypeBoolean:
		return v.num != 0
	default:
		return nil
	}
}

func (v Value) String() string {
	if v.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%v", v.Any())
}

// wireValue is the JSON envelope for a typed value in write requests.
type wireValue struct {
	Type  DataType        `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	wv := wireValue{Type: v.DataType()}
	if !v.IsNull() {
		raw, err := json.Marshal(v.Any())
		if err != nil {
			return nil, err
		}
		wv.Value = raw
	}
	return json.Marshal(wv)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var wv wireValue
	if err := json.Unmarshal(data, &wv); err != nil {
		return err
	}
	if wv.Type == DataTypeNull || wv.Type == "" {
		*v = NullValue()
		return nil
	}
	parsed, err := decodeStringValue(wv.Type, trimJSONString(wv.Value))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func trimJSONString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// decodeStringValue parses the string encoding the server uses for rows in
// the JSON result format, according to the declared column type.
func decodeStringValue(typ DataType, s string) (Value, error) {
	switch typ {
	case DataTypeString:
		return StringValue(s), nil
	case DataTypeTimestamp:
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return TimestampValue(ms), nil
	case DataTypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return DoubleValue(f), nil
	case DataTypeFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(float32(f)), nil
	case DataTypeVarbinary:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, err
		}
		return VarbinaryValue(b), nil
	case DataTypeUInt64, DataTypeUInt32, DataTypeUInt16, DataTypeUInt8:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		switch typ {
		case DataTypeUInt64:
			return UInt64Value(u), nil
		case DataTypeUInt32:
			return UInt32Value(uint32(u)), nil
		case DataTypeUInt16:
			return UInt16Value(uint16(u)), nil
		default:
			return UInt8Value(uint8(u)), nil
		}
	case DataTypeInt64, DataTypeInt32, DataTypeInt16, DataTypeInt8:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		switch typ {
		case DataTypeInt64:
			return Int64Value(i), nil
		case DataTypeInt32:
			return Int32Value(int32(i)), nil
		case DataTypeInt16:
			return Int16Value(int16(i)), nil
		default:
			return Int8Value(int8(i)), nil
		}
	case DataTypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	default:
		return Value{}, fmt.Errorf("unrecognized type: %s", typ)
	}
}
