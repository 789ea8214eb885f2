package knowledge

import (
	"fmt"
	"strings"
)

// SearchResultKind identifies the entity type of a search hit.
type SearchResultKind string

const (
	ResultDocument   SearchResultKind = "document"
	ResultCollection SearchResultKind = "collection"
	ResultDepartment SearchResultKind = "department"
	ResultTag        SearchResultKind = "tag"
)

// Per-kind result caps
const (
	MaxDocumentResults   = 50
	MaxCollectionResults = 25
	MaxDepartmentResults = 25
	MaxTagResults        = 25

	// MaxSearchQueryLength bounds the query string
	MaxSearchQueryLength = 200
)

// SearchOptions configures a unified search.
type SearchOptions struct {
	// Query is the search string (required)
	Query string

	// OrgID scopes every entity kind
	OrgID string

	// Kinds limits the entity kinds searched. Empty = all kinds.
	Kinds []SearchResultKind
}

// ApplyDefaults trims the query and fills in all kinds when none are set.
func (opts *SearchOptions) ApplyDefaults() {
	opts.Query = strings.TrimSpace(opts.Query)
	if len(opts.Kinds) == 0 {
		opts.Kinds = []SearchResultKind{ResultDocument, ResultCollection, ResultDepartment, ResultTag}
	}
}

// Validate checks that required fields are set and values are reasonable.
func (opts *SearchOptions) Validate() error {
	if opts.Query == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	if len(opts.Query) > MaxSearchQueryLength {
		return fmt.Errorf("search query cannot exceed %d characters", MaxSearchQueryLength)
	}
	if opts.OrgID == "" {
		return fmt.Errorf("organization is required")
	}
	for _, kind := range opts.Kinds {
		switch kind {
		case ResultDocument, ResultCollection, ResultDepartment, ResultTag:
		default:
			return fmt.Errorf("invalid search kind: %q (supported: document, collection, department, tag)", kind)
		}
	}
	return nil
}

// Includes reports whether kind is searched.
func (opts *SearchOptions) Includes(kind SearchResultKind) bool {
	for _, k := range opts.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// SearchResult is a single unified search hit.
type SearchResult struct {
	Kind    SearchResultKind `json:"kind"`
	ID      string           `json:"id"`
	Slug    string           `json:"slug,omitempty"`
	Title   string           `json:"title"`
	Snippet string           `json:"snippet"`
}

// DocumentHit is a matched document before snippet rendering and
// visibility filtering. SnippetSource is the text the snippet is cut from.
type DocumentHit struct {
	ID            string
	Title         string
	Everyone      bool
	DepartmentIDs []string
	SnippetSource string
}

// Visibility returns the hit's restriction state.
func (h *DocumentHit) Visibility() Visibility {
	return Visibility{Everyone: h.Everyone, DepartmentIDs: h.DepartmentIDs}
}

// SearchHits are raw matches grouped by kind.
type SearchHits struct {
	Documents   []DocumentHit
	Collections []Collection
	Departments []Department
	Tags        []Tag
}
