package metadata

// RowGranularity states at which level a column's value is stored.
type RowGranularity int

const (
	// GranularityDoc columns have one value per document.
	GranularityDoc RowGranularity = iota

	// GranularityPartition columns have one value per partition; they
	// are the partition-by columns and carry no per-document storage.
	GranularityPartition
)

// String implements fmt.Stringer.
func (g RowGranularity) String() string {
	switch g {
	case GranularityDoc:
		return "DOC"
	case GranularityPartition:
		return "PARTITION"
	default:
		return "UNKNOWN"
	}
}
