package metadata

import "github.com/meridiandb/meridian/pkg/types"

// Synthetic system columns present in every table.
var (
	SysColumnID      = NewColumnIdent("_id")
	SysColumnUID     = NewColumnIdent("_uid")
	SysColumnVersion = NewColumnIdent("_version")
	SysColumnScore   = NewColumnIdent("_score")
	SysColumnDoc     = NewColumnIdent("_doc")
	SysColumnRaw     = NewColumnIdent("_raw")
)

// sysColumns lists the system columns with their types, in the order
// they are registered ahead of user columns in every catalog.
var sysColumns = []struct {
	ident ColumnIdent
	typ   types.DataType
}{
	{SysColumnID, types.String},
	{SysColumnUID, types.String},
	{SysColumnVersion, types.Long},
	{SysColumnScore, types.Float},
	{SysColumnDoc, types.UntypedObject},
	{SysColumnRaw, types.String},
}

// SysColumnsForTable calls register for each system column reference of
// the given relation, in registration order.
func SysColumnsForTable(relation RelationName, register func(ColumnIdent, *Reference)) {
	for _, sc := range sysColumns {
		register(sc.ident, &Reference{
			Ident:       ReferenceIdent{Relation: relation, Column: sc.ident},
			Granularity: GranularityDoc,
			Type:        sc.typ,
			IndexMode:   IndexNotAnalyzed,
		})
	}
}
