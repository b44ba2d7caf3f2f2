// Package expect provides assertions over timed responses.
//
// Every function returns nil when the expectation holds and a descriptive
// error otherwise, so it works with plain `testing` as well as testify:
//
//	resp, err := client.Get(ctx, "/get")
//	require.NoError(t, err)
//	require.NoError(t, expect.Status(resp, 200))
//	require.NoError(t, expect.JSONPath(resp, "$.args.name", "test"))
//	require.NoError(t, expect.MaxTotal(resp, 2*time.Second))
//
// JSONPath expressions use the $.a.b[0] form and are evaluated with gjson.
// Schemas are JSON Schema documents validated with
// santhosh-tekuri/jsonschema.
package expect
