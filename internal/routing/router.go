// Package routing maps documents onto shards and partitions using the
// resolved table schema: the routing column value hashes to a shard,
// and partition column values extracted from the document form the
// partition identity.
package routing

import (
	"fmt"
	"strconv"

	"github.com/spaolacci/murmur3"

	"github.com/meridiandb/meridian/internal/docschema"
	"github.com/meridiandb/meridian/internal/errors"
	"github.com/meridiandb/meridian/internal/metadata"
)

// Router computes shard and partition placement for one table.
type Router struct {
	table *docschema.Table
}

// NewRouter creates a router for the given table schema.
func NewRouter(table *docschema.Table) (*Router, error) {
	if table.NumberOfShards() <= 0 {
		return nil, errors.NewRoutingError(errors.CodeInvalidShardCount,
			fmt.Sprintf("routing: table %s has invalid shard count %d",
				table.Relation().FQN(), table.NumberOfShards()))
	}
	return &Router{table: table}, nil
}

// ShardID maps a routing value onto one of the table's shards.
func (r *Router) ShardID(routingValue string) int {
	hash := murmur3.Sum32([]byte(routingValue))
	return int(hash % uint32(r.table.NumberOfShards()))
}

// RouteDocument extracts the routing value from a document and maps it
// to a shard. Documents routed by a system column (e.g. the implicit
// _id key) must supply the value through the id argument.
func (r *Router) RouteDocument(doc map[string]any, id string) (int, error) {
	value, err := r.RoutingValue(doc, id)
	if err != nil {
		return 0, err
	}
	return r.ShardID(value), nil
}

// RoutingValue resolves the value of the table's routing column for one
// document. A missing value is an error: silently hashing an empty
// string would cluster all such documents on one shard.
func (r *Router) RoutingValue(doc map[string]any, id string) (string, error) {
	column := r.table.RoutingColumn()
	if column.IsSystemColumn() {
		if id == "" {
			return "", errors.NewRoutingError(errors.CodeMissingRoutingValue,
				fmt.Sprintf("routing: document id required for routing column %q", column.FQN()))
		}
		return id, nil
	}
	raw, ok := lookupPath(doc, column)
	if !ok || raw == nil {
		return "", errors.NewRoutingError(errors.CodeMissingRoutingValue,
			fmt.Sprintf("routing: document has no value for routing column %q", column.FQN()))
	}
	return formatValue(raw), nil
}

// PartitionValues extracts the partition column values of one document
// in declared partition order. Absent values become empty strings; the
// partition identity still has a fixed arity.
func (r *Router) PartitionValues(doc map[string]any) []string {
	partitionedBy := r.table.PartitionedBy()
	values := make([]string, len(partitionedBy))
	for i, column := range partitionedBy {
		if raw, ok := lookupPath(doc, column); ok && raw != nil {
			values[i] = formatValue(raw)
		}
	}
	return values
}

// lookupPath walks a document along a column's path segments.
func lookupPath(doc map[string]any, column metadata.ColumnIdent) (any, bool) {
	current, ok := doc[column.Name()]
	if !ok {
		return nil, false
	}
	for _, segment := range column.Path() {
		child, isMap := current.(map[string]any)
		if !isMap {
			return nil, false
		}
		current, ok = child[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func formatValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		// JSON decoding yields float64 for all numbers; render integral
		// values without a fraction so routing stays stable across
		// decoders.
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", value)
	}
}
