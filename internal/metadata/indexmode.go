package metadata

// IndexMode states how a column's values are indexed by the underlying
// search engine.
type IndexMode int

const (
	// IndexAnalyzed values pass through a full-text analyzer.
	IndexAnalyzed IndexMode = iota

	// IndexNotAnalyzed values are indexed verbatim.
	IndexNotAnalyzed

	// IndexOff values are not indexed at all.
	IndexOff
)

// String implements fmt.Stringer.
func (m IndexMode) String() string {
	switch m {
	case IndexAnalyzed:
		return "analyzed"
	case IndexNotAnalyzed:
		return "not_analyzed"
	case IndexOff:
		return "off"
	default:
		return "unknown"
	}
}
