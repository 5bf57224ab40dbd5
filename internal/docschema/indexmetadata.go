// Package docschema resolves persisted, schemaless index mapping
// documents into immutable, strongly typed table schemas. The resolver
// walks the mapping once to classify columns, compiles generated and
// default expressions in a second pass, and freezes the result into a
// Table snapshot consumed by query analysis and planning.
package docschema

// IndexMetadata is the already-deserialized physical metadata of one
// index: shard/replica configuration, the raw settings bag, the
// open/closed physical state, and the mapping document with its `_meta`
// side block.
type IndexMetadata struct {
	// UUID is the stable identity of the physical index.
	UUID string

	// NumberOfShards is the configured shard count.
	NumberOfShards int

	// NumberOfReplicas is the configured replica count. It is carried
	// as the configured setting string, which is not necessarily
	// numeric (e.g. "0-1" or "0-all").
	NumberOfReplicas string

	// Settings is the raw settings bag of the index.
	Settings map[string]any

	// Mapping is the raw mapping document: a `properties` tree plus a
	// `_meta` side block.
	Mapping map[string]any

	// Closed is the physical open/closed state of the index. For
	// partitioned tables the effective state comes from the `_meta`
	// block instead, since an empty partitioned table has no physical
	// index state of its own.
	Closed bool

	// VersionCreated and VersionUpgraded are opaque version markers of
	// the engine that created and last upgraded the index.
	VersionCreated  string
	VersionUpgraded string
}

// Lenient accessors for schemaless map data. Missing or malformed
// entries resolve to zero values, never to errors.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

// asBoolDefault parses lenient boolean values with an explicit default
// for absence.
func asBoolDefault(v any, fallback bool) bool {
	switch b := v.(type) {
	case nil:
		return fallback
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return fallback
	}
}

// asInt accepts the numeric representations JSON decoding produces.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

// asStrings converts a list of arbitrary values to strings, skipping
// non-string entries.
func asStrings(v any) []string {
	var out []string
	for _, item := range asList(v) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asStringMap(v any) map[string]string {
	out := make(map[string]string)
	for key, val := range asMap(v) {
		if s, ok := val.(string); ok {
			out[key] = s
		}
	}
	return out
}
