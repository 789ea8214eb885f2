package knowledge

// Visibility is the restriction state shared by documents and collections.
// Everyone=true means visible org-wide; otherwise only to members of
// DepartmentIDs.
type Visibility struct {
	Everyone      bool
	DepartmentIDs []string
}
