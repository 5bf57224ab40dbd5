package metadata

// ColumnPolicy governs how undeclared columns encountered at write time
// are handled.
type ColumnPolicy int

const (
	// PolicyStrict rejects writes carrying undeclared columns.
	PolicyStrict ColumnPolicy = iota

	// PolicyDynamic adds undeclared columns to the schema on write.
	PolicyDynamic

	// PolicyIgnored stores undeclared columns without indexing them.
	PolicyIgnored
)

// String implements fmt.Stringer.
func (p ColumnPolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyDynamic:
		return "dynamic"
	case PolicyIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// DecodeColumnPolicy maps the raw `dynamic` mapping value to a policy.
// The value may be a bool or a string; "strict" means strict, explicit
// false means ignored, anything else (including absence) means dynamic.
func DecodeColumnPolicy(raw any) ColumnPolicy {
	switch v := raw.(type) {
	case string:
		switch v {
		case "strict":
			return PolicyStrict
		case "false":
			return PolicyIgnored
		}
	case bool:
		if !v {
			return PolicyIgnored
		}
	}
	return PolicyDynamic
}
