package dataset

// Role is how a feature column is interpreted by the preprocessing step.
type Role string

const (
	RoleNumeric     Role = "numeric"
	RoleCategorical Role = "categorical"
)

// ColumnRole pairs a feature column with its role. The list computed at training
// time is persisted with the model and fixes how prediction rows are read.
type ColumnRole struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// PartitionFeatures assigns a role to every column except target, in frame order:
// numeric storage gives RoleNumeric, boolean and string storage give
// RoleCategorical.
func PartitionFeatures(f *Frame, target string) []ColumnRole {
	roles := make([]ColumnRole, 0, f.NumColumns())
	for _, c := range f.Columns() {
		if c.Name == target {
			continue
		}
		role := RoleCategorical
		if c.Kind == KindNumeric {
			role = RoleNumeric
		}
		roles = append(roles, ColumnRole{Name: c.Name, Role: role})
	}
	return roles
}

// ColumnsWithRole returns the names having role r, in order.
func ColumnsWithRole(roles []ColumnRole, r Role) []string {
	var names []string
	for _, cr := range roles {
		if cr.Role == r {
			names = append(names, cr.Name)
		}
	}
	return names
}
