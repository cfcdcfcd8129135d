package search

import (
	"fmt"

	"github.com/Aman-CERP/pantry/internal/recipe"
)

// RequestKind identifies an index operation.
type RequestKind int

const (
	RequestReindexAll RequestKind = iota + 1
	RequestReindexSome
	RequestRemove
	RequestSearch
)

// String returns the operation name used in logs and metrics.
func (k RequestKind) String() string {
	switch k {
	case RequestReindexAll:
		return "reindex_all"
	case RequestReindexSome:
		return "reindex_some"
	case RequestRemove:
		return "remove"
	case RequestSearch:
		return "search"
	default:
		return fmt.Sprintf("request(%d)", int(k))
	}
}

// ResponseKind identifies the outcome variant of an index operation.
type ResponseKind int

const (
	ResponseReindexed ResponseKind = iota + 1
	ResponseRemoved
	ResponseSearched
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseReindexed:
		return "reindexed"
	case ResponseRemoved:
		return "removed"
	case ResponseSearched:
		return "searched"
	default:
		return fmt.Sprintf("response(%d)", int(k))
	}
}

// Expects is the response variant a well-behaved worker answers k with.
func (k RequestKind) Expects() ResponseKind {
	switch k {
	case RequestReindexAll, RequestReindexSome:
		return ResponseReindexed
	case RequestRemove:
		return ResponseRemoved
	case RequestSearch:
		return ResponseSearched
	default:
		return 0
	}
}

// Request is one message to the index worker.
type Request struct {
	Kind  RequestKind
	Paths []string // ReindexSome, Remove
	Query string   // Search
	Start int      // Search
	Size  int      // Search
}

// Response is the worker's answer to exactly one Request.
type Response struct {
	Kind   ResponseKind
	Result Result // Searched only
	Err    error
}

// Result is the outcome of a search.
type Result struct {
	Documents []recipe.Recipe `json:"documents"`
	// Categories and Tags count every match, not only the returned page.
	Categories map[string]int `json:"categories"`
	Tags       map[string]int `json:"tags"`
	Total      uint64         `json:"total"`
}
