package gittool

// DiffMode values represent the kind of things a Change can represent:
// creations, modifications, deletions or renaming of files.
type DiffMode int

const (
	_ DiffMode = iota
	NewMode
	ModifyMode
	DeleteMode
	RenameMode
)

// DiffOperation defines the operation of a diff section.
type DiffOperation int

const (
	// Equal item represents an equals diff chunk.
	Equal DiffOperation = iota
	// Add item represents an insert diff chunk.
	Add
	// Delete item represents a delete diff chunk.
	Delete
)

// Section represents a portion of a file that contains changes made in the
// HEAD commit relative to the compared branch.
type Section struct {
	// Operation indicates how this section operates compared to the
	// specified branch.
	Operation DiffOperation
	// Count indicates how many lines this section contains in total.
	Count int
	// StartLine indicates where this section starts in the new file.
	StartLine int
	// EndLine indicates where this section ends in the new file.
	EndLine int
	// Contents contains the [StartLine..EndLine] lines of the new file.
	Contents []string
}

// Change contains all the changes made to a specific file in the HEAD
// commit relative to the compared branch.
type Change struct {
	// FileName is the repository-relative path the change applies to.
	FileName string
	// Mode indicates whether the file was created, modified, deleted or
	// renamed.
	Mode DiffMode
	// Sections holds the change details. For NewMode and RenameMode it
	// contains the whole contents of the new file; for ModifyMode the
	// individual added sections; for DeleteMode it is empty.
	Sections []*Section
}

// ChangedFiles returns the paths of all changes that still exist at HEAD,
// the set a coverage gap analysis is scoped to.
func ChangedFiles(changes []*Change) []string {
	var files []string
	for _, change := range changes {
		if change.Mode == DeleteMode {
			continue
		}
		files = append(files, change.FileName)
	}
	return files
}
