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

/*
Package chronodb provides a lightweight client for writing points to and
querying a ChronoDB time-series service.

# Client

Use NewBuilder (or NewClient with a Config) to construct a client:

	client, err := chronodb.NewBuilder("127.0.0.1:8831", chronodb.ModeStandalone).
		DefaultDatabase("public").
		Build()
	if err != nil {
		return err
	}
	defer client.Close()

# Write Points

Build points with a PointBuilder, collect them in a WriteRequest and submit:

	point, err := chronodb.NewPointBuilder("demo").
		Timestamp(time.Now().UnixMilli()).
		Tag("name", chronodb.StringValue("test_tag1")).
		Field("value", chronodb.DoubleValue(0.4242)).
		Build()
	if err != nil {
		return err
	}

	resp, err := client.Write(ctx, &chronodb.RpcContext{Database: "public"},
		chronodb.NewWriteRequest().Add(point))
	if err != nil {
		return err
	}
	fmt.Printf("success: %d, failed: %d\n", resp.Success, resp.Failed)

Writes are at-least-once: inspect WriteResponse.Failed even when err is nil,
and do not assume a timed-out write was not applied.

# Query Data

	resp, err := client.SQLQuery(ctx, nil,
		chronodb.NewSQLQueryRequest([]string{"demo"}, "SELECT * FROM demo"))
	if err != nil {
		return err
	}
	for row := range resp.IterRows() {
		for col := range row.IterColumns() {
			fmt.Printf("%s:%v ", col.Name, col.Value)
		}
		fmt.Println()
	}

Write and SQLQuery are blocking wrappers over WriteAsync and SQLQueryAsync,
which return futures for callers that want to overlap requests.
*/
package chronodb
