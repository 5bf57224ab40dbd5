package metadata

import "strings"

// Operation is a table-level operation a schema snapshot permits.
type Operation uint16

const (
	OpRead Operation = 1 << iota
	OpInsert
	OpUpdate
	OpDelete
	OpDropTable
	OpAlter
	OpAlterBlocks
	OpAlterOpenClose
	OpRefresh
	OpShowCreate
	OpOptimize
	OpCopyTo
)

var operationNames = []struct {
	op   Operation
	name string
}{
	{OpRead, "READ"},
	{OpInsert, "INSERT"},
	{OpUpdate, "UPDATE"},
	{OpDelete, "DELETE"},
	{OpDropTable, "DROP"},
	{OpAlter, "ALTER"},
	{OpAlterBlocks, "ALTER_BLOCKS"},
	{OpAlterOpenClose, "ALTER_OPEN_CLOSE"},
	{OpRefresh, "REFRESH"},
	{OpShowCreate, "SHOW_CREATE"},
	{OpOptimize, "OPTIMIZE"},
	{OpCopyTo, "COPY_TO"},
}

// Operations is the set of operations a table supports.
type Operations uint16

// AllOperations is the set supported by an open, unblocked table.
const AllOperations Operations = Operations(OpRead | OpInsert | OpUpdate | OpDelete |
	OpDropTable | OpAlter | OpAlterBlocks | OpAlterOpenClose | OpRefresh |
	OpShowCreate | OpOptimize | OpCopyTo)

// closedOperations is the set left to a closed table: it can only be
// reopened or have its metadata altered.
const closedOperations Operations = Operations(OpAlter | OpAlterBlocks | OpAlterOpenClose)

// readOnlyOperations is the set left when the read_only block is set.
const readOnlyOperations Operations = Operations(OpRead | OpAlterBlocks | OpShowCreate | OpCopyTo)

// Contains reports whether the set permits op.
func (s Operations) Contains(op Operation) bool {
	return Operations(op)&s != 0
}

// without removes the given operations from the set.
func (s Operations) without(ops ...Operation) Operations {
	for _, op := range ops {
		s &^= Operations(op)
	}
	return s
}

// String lists the contained operations in declaration order.
func (s Operations) String() string {
	var names []string
	for _, e := range operationNames {
		if s.Contains(e.op) {
			names = append(names, e.name)
		}
	}
	return strings.Join(names, ",")
}

// OperationsFromSettings derives the supported operations set from the
// table's block settings and open/closed state. Closed tables can only
// be altered; block settings subtract the operations they forbid.
func OperationsFromSettings(settings map[string]any, closed bool) Operations {
	if closed {
		return closedOperations
	}
	if settingAsBool(settings, "blocks.read_only", false) {
		return readOnlyOperations
	}
	ops := AllOperations
	if settingAsBool(settings, "blocks.read", false) {
		ops = ops.without(OpRead, OpCopyTo)
	}
	if settingAsBool(settings, "blocks.write", false) {
		ops = ops.without(OpInsert, OpUpdate, OpDelete, OpOptimize)
	}
	if settingAsBool(settings, "blocks.metadata", false) {
		ops = ops.without(OpAlter, OpAlterBlocks, OpAlterOpenClose, OpDropTable, OpShowCreate)
	}
	return ops
}

// settingAsBool reads a setting with lenient boolean semantics: raw
// settings arrive as strings or bools depending on their origin.
func settingAsBool(settings map[string]any, key string, fallback bool) bool {
	raw, ok := settings[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return fallback
	}
}
