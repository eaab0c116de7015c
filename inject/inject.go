// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/validation/name"
)

// DefaultScriptID is the id attribute of the rendered script element.
const DefaultScriptID = "dynenv-script"

const closingScript = "</script>"

// Snapshot returns the subset of values that is safe to serialize: nil
// values are dropped, and so is every value whose serialized form contains
// a closing script tag. Each filtered key is logged as a warning.
func Snapshot(values map[string]any, logger *slog.Logger) map[string]any {
	out := make(map[string]any, len(values))
	for _, key := range sortedKeys(values) {
		v := values[key]
		if v == nil {
			continue
		}
		if containsClosingScript(v) {
			logging.OrDefault(logger).Warn(
				fmt.Sprintf("Env var %q contains </script> tag and was filtered out", key),
				"key", key,
			)
			continue
		}
		out[key] = v
	}
	return out
}

// MissingVars returns the sorted keys whose value is nil or empty.
func MissingVars(values map[string]any) []string {
	var missing []string
	for _, key := range sortedKeys(values) {
		switch v := values[key].(type) {
		case nil:
			missing = append(missing, key)
		case string:
			if v == "" {
				missing = append(missing, key)
			}
		}
	}
	return missing
}

// Script returns the JavaScript statement assigning values to the global
// slot varName:
//
//	window.__NEXT_DYNAMIC_ENV__ = {"API_URL":"https://api.example.com"};
//
// varName must be a plain identifier. Values are not filtered; pass them
// through Snapshot first.
func Script(varName string, values map[string]any) (string, error) {
	if err := name.ValidateSlot(varName); err != nil {
		return "", err
	}
	if values == nil {
		values = map[string]any{}
	}
	// json.Marshal escapes <, > and & so the payload cannot close the
	// surrounding element.
	payload, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to serialize environment: %w", err)
	}
	return fmt.Sprintf("window.%s = %s;", varName, payload), nil
}

// Tag renders Script inside a <script> element with the given id. A
// non-empty nonce is set for Content-Security-Policy.
func Tag(id, nonce, varName string, values map[string]any) (string, error) {
	body, err := Script(varName, values)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = DefaultScriptID
	}

	node := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "id", Val: id}},
	}
	if nonce != "" {
		node.Attr = append(node.Attr, html.Attribute{Key: "nonce", Val: nonce})
	}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: body})

	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", fmt.Errorf("failed to render script tag: %w", err)
	}
	return buf.String(), nil
}

func containsClosingScript(v any) bool {
	if s, ok := v.(string); ok {
		return strings.Contains(s, closingScript)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return strings.Contains(fmt.Sprint(v), closingScript)
	}
	return strings.Contains(buf.String(), closingScript)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
