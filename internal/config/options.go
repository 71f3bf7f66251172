package config

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Options is a loosely typed option bag decoded from JSON. Accessors never
// fail: a missing or mistyped key returns the supplied default.
type Options map[string]any

// Bool returns key as a bool. Strings "1", "true", "yes", "y" are accepted.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "y":
			return true
		case "0", "false", "no", "n":
			return false
		}
	case float64:
		return t != 0
	}
	return def
}

// Int returns key as an int. JSON numbers arrive as float64.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// String returns key as a string.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Rune returns the first rune of a string option. "\t" and "tab" both mean
// a tab character.
func (o Options) Rune(key string, def rune) rune {
	s, ok := o[key].(string)
	if !ok || s == "" {
		return def
	}
	switch strings.ToLower(s) {
	case `\t`, "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return def
	}
	return r
}

// StringMap returns key as map[string]string, skipping non-string values.
func (o Options) StringMap(key string) map[string]string {
	out := map[string]string{}
	m, ok := o[key].(map[string]any)
	if !ok {
		if sm, ok := o[key].(map[string]string); ok {
			return sm
		}
		return out
	}
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
