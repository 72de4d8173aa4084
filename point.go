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

// Point is one write unit: a metric name, a timestamp in epoch milliseconds,
// string-keyed tags (indexed dimensions) and fields (measured values).
//
// Points are immutable; construct them with a PointBuilder.
type Point struct {
	metric    string
	timestamp int64
	tags      map[string]Value
	fields    map[string]Value
}

func (p Point) Metric() string { return p.metric }

// Timestamp returns the point's timestamp in epoch milliseconds.
func (p Point) Timestamp() int64 { return p.timestamp }

// Tags returns the point's tags. The returned map must not be modified.
func (p Point) Tags() map[string]Value { return p.tags }

// Fields returns the point's fields. The returned map must not be modified.
func (p Point) Fields() map[string]Value { return p.fields }

// PointBuilder accumulates a point with validation deferred to Build.
//
// Builders are single-use: after Build succeeds the builder is finalized,
// further mutation is ignored and another Build fails.
type PointBuilder struct {
	metric    string
	timestamp int64
	hasTs     bool
	tags      map[string]Value
	fields    map[string]Value

	built bool
	err   *ValidationError
}

func NewPointBuilder(metric string) *PointBuilder {
	return &PointBuilder{
		metric: metric,
		tags:   make(map[string]Value),
		fields: make(map[string]Value),
	}
}

func (b *PointBuilder) setErr(field, reason string) {
	if b.err == nil {
		b.err = &ValidationError{Field: field, Reason: reason}
	}
}

// Metric overrides the metric name set at construction.
func (b *PointBuilder) Metric(metric string) *PointBuilder {
	if b.built {
		return b
	}
	b.metric = metric
	return b
}

// Timestamp sets the point's timestamp in epoch milliseconds.
func (b *PointBuilder) Timestamp(ms int64) *PointBuilder {
	if b.built {
		return b
	}
	b.timestamp = ms
	b.hasTs = true
	return b
}

// Tag adds one tag. Tag names must be unique within a point and must not
// collide with field names.
func (b *PointBuilder) Tag(name string, value Value) *PointBuilder {
	if b.built {
		return b
	}
	if name == "" {
		b.setErr("tag", "empty tag name")
		return b
	}
	if _, ok := b.tags[name]; ok {
		b.setErr("tag", "duplicate tag name: "+name)
		return b
	}
	if _, ok := b.fields[name]; ok {
		b.setErr("tag", "tag name collides with field: "+name)
		return b
	}
	b.tags[name] = value
	return b
}

// Field adds one field. Field names must be unique within a point and must
// not collide with tag names.
func (b *PointBuilder) Field(name string, value Value) *PointBuilder {
	if b.built {
		return b
	}
	if name == "" {
		b.setErr("field", "empty field name")
		return b
	}
	if _, ok := b.fields[name]; ok {
		b.setErr("field", "duplicate field name: "+name)
		return b
	}
	if _, ok := b.tags[name]; ok {
		b.setErr("field", "field name collides with tag: "+name)
		return b
	}
	b.fields[name] = value
	return b
}

// Build finalizes the builder and returns the immutable point. It fails with
// a ValidationError if the metric or timestamp was never set, no field was
// added, or a tag/field name was duplicated.
func (b *PointBuilder) Build() (Point, error) {
	if b.built {
		return Point{}, &ValidationError{Field: "builder", Reason: "point builder is already finalized"}
	}
	if b.err != nil {
		return Point{}, b.err
	}
	if b.metric == "" {
		return Point{}, &ValidationError{Field: "metric", Reason: "metric is not set"}
	}
	if !b.hasTs {
		return Point{}, &ValidationError{Field: "timestamp", Reason: "timestamp is not set"}
	}
	if b.timestamp < 0 {
		return Point{}, &ValidationError{Field: "timestamp", Reason: "timestamp is negative"}
	}
	if len(b.fields) == 0 {
		return Point{}, &ValidationError{Field: "fields", Reason: "point has no fields"}
	}

	b.built = true
	return Point{
		metric:    b.metric,
		timestamp: b.timestamp,
		tags:      b.tags,
		fields:    b.fields,
	}, nil
}

// WriteRequest is an ordered collection of points. Accumulate points with
// Add; the client snapshots the points at submission, so mutating the
// request after submitting it has no effect on the in-flight call.
type WriteRequest struct {
	points []Point
}

func NewWriteRequest() *WriteRequest {
	return &WriteRequest{}
}

// Add appends points to the request.
func (r *WriteRequest) Add(points ...Point) *WriteRequest {
	r.points = append(r.points, points...)
	return r
}

// Points returns the accumulated points in insertion order.
func (r *WriteRequest) Points() []Point { return r.points }

func (r *WriteRequest) snapshot() []Point {
	points := make([]Point, len(r.points))
	copy(points, r.points)
	return points
}
