package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// maxUnwrapDepth bounds how many single-key envelopes are peeled
const maxUnwrapDepth = 2

// stripFences removes a markdown code fence around the payload, which some
// models emit even in JSON mode
func stripFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// unwrapArray returns the array payload of data. A bare array is returned
// as is; an object yields its key field if that is an array, otherwise its
// only array-valued field, otherwise the payload of its only object field.
func unwrapArray(data []byte, key string) ([]byte, error) {
	return unwrapArrayDepth(data, key, 0)
}

func unwrapArrayDepth(data []byte, key string, depth int) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return data, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	if v, ok := fields[key]; ok && isArray(v) {
		return v, nil
	}

	var arrays, objects []json.RawMessage
	for _, name := range sortedKeys(fields) {
		v := bytes.TrimSpace(fields[name])
		switch {
		case isArray(v):
			arrays = append(arrays, v)
		case len(v) > 0 && v[0] == '{':
			objects = append(objects, v)
		}
	}
	if len(arrays) == 1 {
		return arrays[0], nil
	}
	if len(arrays) == 0 && len(objects) == 1 && depth < maxUnwrapDepth {
		return unwrapArrayDepth(objects[0], key, depth+1)
	}
	return nil, fmt.Errorf("expected an array or an object holding a %q array", key)
}

// unwrapObject returns the object that carries key, searching nested
// object fields in name order. data itself is returned when it has
// key or when nothing nested does.
func unwrapObject(data []byte, key string) ([]byte, error) {
	data = bytes.TrimSpace(data)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if found := locate(data, fields, key, 0); found != nil {
		return found, nil
	}
	return data, nil
}

func locate(data []byte, fields map[string]json.RawMessage, key string, depth int) []byte {
	if _, ok := fields[key]; ok {
		return data
	}
	if depth >= maxUnwrapDepth {
		return nil
	}
	for _, name := range sortedKeys(fields) {
		var inner map[string]json.RawMessage
		if json.Unmarshal(fields[name], &inner) != nil {
			continue
		}
		if found := locate(bytes.TrimSpace(fields[name]), inner, key, depth+1); found != nil {
			return found
		}
	}
	return nil
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
