package chronodb

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
)

// encodeArrowBatches encodes the given record batches into a base64 encoded byte slice.
func encodeArrowBatches(schema *arrow.Schema, batches []arrow.Record) (payload []byte, err error) {
	if len(batches) == 0 {
		return nil, errors.New("cannot encode empty batches")
	}

	var buf bytes.Buffer
	defer func() {
		if err == nil {
			payload = buf.Bytes()
		}
	}()

	encoder := base64.NewEncoder(base64.StdEncoding, &buf)
	defer func() {
		err = errors.Join(err, encoder.Close())
	}()

	writer := ipc.NewWriter(encoder, ipc.WithSchema(schema))
	defer func() {
		err = errors.Join(err, writer.Close())
	}()

	for _, batch := range batches {
		if err := writer.Write(batch); err != nil {
			return nil, err
		}
	}
	return
}

// decodeArrowBatches decodes the given base64 encoded byte slice into record batches.
func decodeArrowBatches(data []byte) ([]arrow.Record, error) {
	decoder := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(data))
	reader, err := ipc.NewReader(decoder, ipc.WithDelayReadSchema(true))
	if err != nil {
		return nil, err
	}

	batches := make([]arrow.Record, 0)
	for reader.Next() {
		batch := reader.Record()
		batch.Retain()
		batches = append(batches, batch)
	}
	return batches, nil
}

// arrowDataType maps an Arrow field type onto the wire DataType.
func arrowDataType(t arrow.DataType) (DataType, error) {
	switch t.ID() {
	case arrow.STRING:
		return DataTypeString, nil
	case arrow.BINARY:
		return DataTypeVarbinary, nil
	case arrow.FLOAT64:
		return DataTypeDouble, nil
	case arrow.FLOAT32:
		return DataTypeFloat, nil
	case arrow.INT64:
		return DataTypeInt64, nil
	case arrow.INT32:
		return DataTypeInt32, nil
	case arrow.INT16:
		return DataTypeInt16, nil
	case arrow.INT8:
		return DataTypeInt8, nil
	case arrow.UINT64:
		return DataTypeUInt64, nil
	case arrow.UINT32:
		return DataTypeUInt32, nil
	case arrow.UINT16:
		return DataTypeUInt16, nil
	case arrow.UINT8:
		return DataTypeUInt8, nil
	case arrow.BOOL:
		return DataTypeBoolean, nil
	case arrow.TIMESTAMP:
		return DataTypeTimestamp, nil
	default:
		return "", fmt.Errorf("unsupported arrow type: %s", t)
	}
}

// arrowCellValue reads one cell from an Arrow column as a tagged Value.
func arrowCellValue(col arrow.Array, i int) (Value, error) {
	if col.IsNull(i) {
		return NullValue(), nil
	}
	switch a := col.(type) {
	case *array.String:
		return StringValue(a.Value(i)), nil
	case *array.Binary:
		return VarbinaryValue(a.Value(i)), nil
	case *array.Float64:
		return DoubleValue(a.Value(i)), nil
	case *array.Float32:
		return FloatValue(a.Value(i)), nil
	case *array.Int64:
		return Int64Value(a.Value(i)), nil
	case *array.Int32:
		return Int32Value(a.Value(i)), nil
	case *array.Int16:
		return Int16Value(a.Value(i)), nil
	case *array.Int8:
		return Int8Value(a.Value(i)), nil
	case *array.Uint64:
		return UInt64Value(a.Value(i)), nil
	case *array.Uint32:
		return UInt32Value(a.Value(i)), nil
	case *array.Uint16:
		return UInt16Value(a.Value(i)), nil
	case *array.Uint8:
		return UInt8Value(a.Value(i)), nil
	case *array.Boolean:
		return BoolValue(a.Value(i)), nil
	case *array.Timestamp:
		typ := a.DataType().(*arrow.TimestampType)
		return TimestampValue(a.Value(i).ToTime(typ.Unit).UnixMilli()), nil
	default:
		return Value{}, fmt.Errorf("unsupported arrow column: %T", col)
	}
}

// arrowBatchesToRows flattens record batches into the row model shared with
// the JSON result format.
func arrowBatchesToRows(batches []arrow.Record) (Schema, [][]Value, error) {
	if len(batches) == 0 {
		return nil, nil, nil
	}

	arrowSchema := batches[0].Schema()
	schema := make(Schema, 0, arrowSchema.NumFields())
	for _, f := range arrowSchema.Fields() {
		dt, err := arrowDataType(f.Type)
		if err != nil {
			return nil, nil, err
		}
		schema = append(schema, ColumnSchema{Name: f.Name, Type: dt})
	}

	var rows [][]Value
	for _, batch := range batches {
		if !batch.Schema().Equal(arrowSchema) {
			return nil, nil, errors.New("schema mismatch across batches")
		}
		for i := 0; i < int(batch.NumRows()); i++ {
			row := make([]Value, batch.NumCols())
			for j, col := range batch.Columns() {
				v, err := arrowCellValue(col, i)
				if err != nil {
					return nil, nil, err
				}
				row[j] = v
			}
			rows = append(rows, row)
		}
	}
	return schema, rows, nil
}

func releaseArrowBatches(batches []arrow.Record) {
	for _, batch := range batches {
		batch.Release()
	}
}
