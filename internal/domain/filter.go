package domain

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type LibraryFilter struct {
	FolderPath string    `json:"folderPath,omitempty"`
	Search     string    `json:"search,omitempty"`
	SortBy     string    `json:"sortBy,omitempty"`
	SortOrder  SortOrder `json:"sortOrder,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	Offset     int       `json:"offset,omitempty"`
}
