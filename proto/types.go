// Package proto defines the request and reply values exchanged with a
// duplicate detection service, their binary envelope and their JSON text
// form.
package proto

// LookupType selects which matches a lookup reports.
type LookupType uint8

// lookup types
const (
	LookupAll LookupType = iota
	LookupBest
	LookupBestOrMine
)

// CondKind tells whether a condition always holds or compares the best
// similarity found.
type CondKind uint8

// condition kinds
const (
	CondAlways CondKind = iota
	CondBestSimLessThan
)

// Cond is shared by InsertCond and AssignCond.
type Cond struct {
	Kind      CondKind
	Threshold float64
}

// InsertCond decides whether a looked up text is inserted.
type InsertCond = Cond

// AssignCond decides whether an inserted text joins the chosen cluster.
type AssignCond = Cond

// ChoiceKind tells who picks the cluster.
type ChoiceKind uint8

// cluster choices
const (
	ServerChoice ChoiceKind = iota
	ClientChoice
)

// ClusterChoice picks the cluster for a new text.
type ClusterChoice struct {
	Kind      ChoiceKind
	ClusterID uint64
}

// ClusterAssign is the cluster assignment policy of an insert.
type ClusterAssign struct {
	Cond   AssignCond
	Choice ClusterChoice
}

// PostActionKind is what happens after a lookup.
type PostActionKind uint8

// post actions
const (
	PostActionNone PostActionKind = iota
	PostActionInsertNew
)

// PostAction is what the service does with the text after looking it up.
// Cond, Assign and UserData are used by PostActionInsertNew only.
type PostAction struct {
	Kind     PostActionKind
	Cond     InsertCond
	Assign   ClusterAssign
	UserData string
}

// LookupTask looks up one text.
type LookupTask struct {
	Text       string
	Result     LookupType
	PostAction PostAction
}

// Workload is either a single item or a batch.
type Workload[T any] struct {
	Many  bool
	Items []T
}

// Single makes a single item workload.
func Single[T any](item T) Workload[T] {
	return Workload[T]{Items: []T{item}}
}

// Many makes a batch workload.
func Many[T any](items ...T) Workload[T] {
	return Workload[T]{Many: true, Items: items}
}

// ReqKind is the request variant.
type ReqKind uint8

// request kinds
const (
	ReqInit ReqKind = iota
	ReqLookup
	ReqTerminate
)

// Req is a request, Lookup is used by ReqLookup only.
type Req struct {
	Kind   ReqKind
	Lookup Workload[LookupTask]
}

// Trans wraps a request with its delivery mode.
type Trans struct {
	Sync bool
	Req  Req
}

// Match is one neighbour of a looked up text.
type Match struct {
	ClusterID  uint64
	Similarity float64
	UserData   string
}

// LookupResultKind is the lookup result variant.
type LookupResultKind uint8

// lookup result kinds
const (
	ResultEmptySet LookupResultKind = iota
	ResultNeighbours
	ResultError
)

// LookupResult is the outcome of one LookupTask.
type LookupResult struct {
	Kind       LookupResultKind
	Neighbours Workload[Match]
	Error      string
}

// RepKind is the reply variant.
type RepKind uint8

// reply kinds
const (
	RepInit RepKind = iota
	RepUnknown
	RepTooBusy
	RepWantCrash
	RepTerminate
	RepUnexpected
	RepResult
)

// Rep is a reply. Unexpected carries the request the service did not
// expect, Result the lookup results.
type Rep struct {
	Kind       RepKind
	Unexpected Req
	Result     Workload[LookupResult]
}
