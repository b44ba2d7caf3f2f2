package expect

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

// Extract returns the value at a JSONPath expression as a string.
func Extract(resp *probehttp.AugmentedResponse, path string) (string, error) {
	result, err := lookup(resp, path)
	if err != nil {
		return "", err
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// Exists checks that path resolves to a value, null included.
func Exists(resp *probehttp.AugmentedResponse, path string) error {
	_, err := lookup(resp, path)
	return err
}

// JSONPath checks that the value at path equals want. want is compared as
// JSON, so 30, 30.0 and json.Number("30") all match a body value of 30.
func JSONPath(resp *probehttp.AugmentedResponse, path string, want any) error {
	result, err := lookup(resp, path)
	if err != nil {
		return err
	}

	wantRaw, err := json.Marshal(want)
	if err != nil {
		return fmt.Errorf("cannot encode expected value for %s: %w", path, err)
	}

	var got, expected any
	if err := json.Unmarshal([]byte(result.Raw), &got); err != nil {
		return fmt.Errorf("invalid JSON at %s: %w", path, err)
	}
	if err := json.Unmarshal(wantRaw, &expected); err != nil {
		return fmt.Errorf("cannot decode expected value for %s: %w", path, err)
	}

	if !reflect.DeepEqual(got, expected) {
		return fmt.Errorf("expected %s to be %s, got %s", path, wantRaw, result.Raw)
	}
	return nil
}

func lookup(resp *probehttp.AugmentedResponse, path string) (gjson.Result, error) {
	if resp == nil || len(resp.Body) == 0 {
		return gjson.Result{}, fmt.Errorf("empty JSON body")
	}
	if path == "" {
		return gjson.Result{}, fmt.Errorf("empty JSONPath expression")
	}
	if !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}, fmt.Errorf("response body is not JSON")
	}

	result := gjson.GetBytes(resp.Body, toGjsonPath(path))
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("path not found: %s", path)
	}
	return result, nil
}

// toGjsonPath converts a JSONPath expression to a gjson path.
//
//	JSONPath: $.users[0].name
//	gjson:    users.0.name
func toGjsonPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	// $['name'] and $["name"]
	path = strings.NewReplacer(`['`, ".", `']`, "", `["`, ".", `"]`, "").Replace(path)

	// [n] -> .n
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)
	return strings.TrimPrefix(path, ".")
}
