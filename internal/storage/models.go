package storage

// Record is a named unit of text content. Records are listed in
// lexicographic order of Name.
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}
