package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/multisocket/duplclient/errs"
)

// ErrBadJSON is returned for text that does not describe a valid value.
const ErrBadJSON = errs.Err("invalid json value")

// Text form: a variant without data is a JSON string ("init"), a variant
// with data is an object with the variant name as its only key
// ({"lookup": ...}).

var (
	transNames        = []string{"async", "sync"}
	reqNames          = []string{"init", "lookup", "terminate"}
	lookupTypeNames   = []string{"all", "best", "best_or_mine"}
	condNames         = []string{"always", "best_sim_less_than"}
	choiceNames       = []string{"server_choice", "client_choice"}
	postActionNames   = []string{"none", "insert_new"}
	repNames          = []string{"init", "unknown", "too_busy", "want_crash", "terminate", "unexpected", "result"}
	lookupResultNames = []string{"empty_set", "neighbours", "error"}
)

// ParseTrans parses the text form of a request.
func ParseTrans(text string) (t Trans, err error) {
	err = decodeStrict([]byte(text), &t)
	return
}

// ParseRep parses the text form of a reply.
func ParseRep(text string) (rep Rep, err error) {
	err = decodeStrict([]byte(text), &rep)
	return
}

// TransToJSON renders the text form of a request.
func TransToJSON(t *Trans, pretty bool) (string, error) {
	return render(t, pretty)
}

// RepToJSON renders the text form of a reply.
func RepToJSON(rep *Rep, pretty bool) (string, error) {
	return render(rep, pretty)
}

func render(v interface{}, pretty bool) (string, error) {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeStrict decodes exactly one JSON value, rejecting unknown fields and
// trailing data.
func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after value", ErrBadJSON)
	}
	return nil
}

func tagged(tag string, body interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{tag: body})
}

// variant splits a unit or single key variant into its name and body, body
// is nil for unit variants.
func variant(what string, data []byte, names []string) (int, json.RawMessage, error) {
	var (
		name string
		body json.RawMessage
	)
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &name); err != nil {
			return 0, nil, err
		}
	} else {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return 0, nil, fmt.Errorf("%w: %s: %s", ErrBadJSON, what, err)
		}
		if len(m) != 1 {
			return 0, nil, fmt.Errorf("%w: %s: expected exactly one variant, got %d", ErrBadJSON, what, len(m))
		}
		for name, body = range m {
		}
	}
	for i, n := range names {
		if n == name {
			return i, body, nil
		}
	}
	return 0, nil, fmt.Errorf("%w: unknown %s %q", ErrBadJSON, what, name)
}

func unitVariant(what string, data []byte, names []string) (int, error) {
	i, body, err := variant(what, data, names)
	if err == nil && body != nil {
		err = fmt.Errorf("%w: %s %q takes no value", ErrBadJSON, what, names[i])
	}
	return i, err
}

func dataVariant(what string, data []byte, names []string, unit ...int) (int, json.RawMessage, error) {
	i, body, err := variant(what, data, names)
	if err != nil {
		return 0, nil, err
	}
	isUnit := false
	for _, u := range unit {
		isUnit = isUnit || u == i
	}
	switch {
	case isUnit && body != nil:
		return 0, nil, fmt.Errorf("%w: %s %q takes no value", ErrBadJSON, what, names[i])
	case !isUnit && (body == nil || isNull(body)):
		return 0, nil, fmt.Errorf("%w: %s %q needs a value", ErrBadJSON, what, names[i])
	}
	return i, body, nil
}

func isNull(body json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(body), []byte("null"))
}

func decodeBody(body json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Workload

func (wl Workload[T]) MarshalJSON() ([]byte, error) {
	if wl.Many {
		items := wl.Items
		if items == nil {
			items = []T{}
		}
		return tagged("many", items)
	}
	var item T
	if len(wl.Items) > 0 {
		item = wl.Items[0]
	}
	return tagged("single", item)
}

func (wl *Workload[T]) UnmarshalJSON(data []byte) error {
	i, body, err := dataVariant("workload", data, []string{"single", "many"})
	if err != nil {
		return err
	}
	if i == 0 {
		var item T
		if err = decodeBody(body, &item); err != nil {
			return err
		}
		*wl = Single(item)
		return nil
	}
	var items []T
	if err = decodeBody(body, &items); err != nil {
		return err
	}
	*wl = Many(items...)
	return nil
}

// LookupType

func (lt LookupType) MarshalJSON() ([]byte, error) {
	if int(lt) >= len(lookupTypeNames) {
		return nil, fmt.Errorf("%w: lookup type %d", ErrBadTag, lt)
	}
	return json.Marshal(lookupTypeNames[lt])
}

func (lt *LookupType) UnmarshalJSON(data []byte) error {
	i, err := unitVariant("lookup type", data, lookupTypeNames)
	*lt = LookupType(i)
	return err
}

// Cond

func (c Cond) MarshalJSON() ([]byte, error) {
	if c.Kind == CondBestSimLessThan {
		return tagged(condNames[CondBestSimLessThan], c.Threshold)
	}
	return json.Marshal(condNames[CondAlways])
}

func (c *Cond) UnmarshalJSON(data []byte) error {
	i, body, err := dataVariant("condition", data, condNames, int(CondAlways))
	if err != nil {
		return err
	}
	*c = Cond{Kind: CondKind(i)}
	if c.Kind == CondBestSimLessThan {
		return decodeBody(body, &c.Threshold)
	}
	return nil
}

// ClusterChoice

func (cc ClusterChoice) MarshalJSON() ([]byte, error) {
	if cc.Kind == ClientChoice {
		return tagged(choiceNames[ClientChoice], cc.ClusterID)
	}
	return json.Marshal(choiceNames[ServerChoice])
}

func (cc *ClusterChoice) UnmarshalJSON(data []byte) error {
	i, body, err := dataVariant("cluster choice", data, choiceNames, int(ServerChoice))
	if err != nil {
		return err
	}
	*cc = ClusterChoice{Kind: ChoiceKind(i)}
	if cc.Kind == ClientChoice {
		return decodeBody(body, &cc.ClusterID)
	}
	return nil
}

// ClusterAssign

type clusterAssignJSON struct {
	Cond   *AssignCond    `json:"cond"`
	Choice *ClusterChoice `json:"choice"`
}

func (ca ClusterAssign) MarshalJSON() ([]byte, error) {
	return json.Marshal(clusterAssignJSON{Cond: &ca.Cond, Choice: &ca.Choice})
}

func (ca *ClusterAssign) UnmarshalJSON(data []byte) error {
	var v clusterAssignJSON
	if err := decodeBody(data, &v); err != nil {
		return err
	}
	if v.Cond == nil || v.Choice == nil {
		return fmt.Errorf("%w: cluster assign needs cond and choice", ErrBadJSON)
	}
	*ca = ClusterAssign{Cond: *v.Cond, Choice: *v.Choice}
	return nil
}

// PostAction

type insertNewJSON struct {
	Cond     *InsertCond    `json:"cond"`
	Assign   *ClusterAssign `json:"assign"`
	UserData *string        `json:"user_data"`
}

func (pa PostAction) MarshalJSON() ([]byte, error) {
	if pa.Kind == PostActionInsertNew {
		return tagged(postActionNames[PostActionInsertNew], insertNewJSON{
			Cond:     &pa.Cond,
			Assign:   &pa.Assign,
			UserData: &pa.UserData,
		})
	}
	return json.Marshal(postActionNames[PostActionNone])
}

func (pa *PostAction) UnmarshalJSON(data []byte) error {
	i, body, err := dataVariant("post action", data, postActionNames, int(PostActionNone))
	if err != nil {
		return err
	}
	*pa = PostAction{Kind: PostActionKind(i)}
	if pa.Kind != PostActionInsertNew {
		return nil
	}
	var v insertNewJSON
	if err = decodeBody(body, &v); err != nil {
		return err
	}
	if v.Cond == nil || v.Assign == nil || v.UserData == nil {
		return fmt.Errorf("%w: insert_new needs cond, assign and user_data", ErrBadJSON)
	}
	pa.Cond, pa.Assign, pa.UserData = *v.Cond, *v.Assign, *v.UserData
	return nil
}

// LookupTask

type lookupTaskJSON struct {
	Text       *string     `json:"text"`
	Result     *LookupType `json:"result"`
	PostAction *PostAction `json:"post_action"`
}

func (t LookupTask) MarshalJSON() ([]byte, error) {
	return json.Marshal(lookupTaskJSON{Text: &t.Text, Result: &t.Result, PostAction: &t.PostAction})
}

func (t *LookupTask) UnmarshalJSON(data []byte) error {
	var v lookupTaskJSON
	if err := decodeBody(data, &v); err != nil {
		return err
	}
	if v.Text == nil || v.Result == nil || v.PostAction == nil {
		return fmt.Errorf("%w: lookup task needs text, result and post_action", ErrBadJSON)
	}
	*t = LookupTask{Text: *v.Text, Result: *v.Result, PostAction: *v.PostAction}
	return nil
}

// Req

func (req Req) MarshalJSON() ([]byte, error) {
	if int(req.Kind) >= len(reqNames) {
		return nil, fmt.Errorf("%w: request %d", ErrBadTag, req.Kind)
	}
	if req.Kind == ReqLookup {
		return tagged(reqNames[ReqLookup], req.Lookup)
	}
	return json.Marshal(reqNames[req.Kind])
}

func (req *Req) UnmarshalJSON(data []byte) error {
	i, body, err := dataVariant("request", data, reqNames, int(ReqInit), int(ReqTerminate))
	if err != nil {
		return err
	}
	*req = Req{Kind: ReqKind(i)}
	if req.Kind == ReqLookup {
		return decodeBody(body, &req.Lookup)
	}
	return nil
}

// Trans

func (t Trans) MarshalJSON() ([]byte, error) {
	if t.Sync {
		return tagged(transNames[1], t.Req)
	}
	return tagged(transNames[0], t.Req)
}

func (t *Trans) UnmarshalJSON(data []byte) error {
	i, body, err := dataVariant("transmission", data, transNames)
	if err != nil {
		return err
	}
	*t = Trans{Sync: i == 1}
	return decodeBody(body, &t.Req)
}

// Match

type matchJSON struct {
	ClusterID  *uint64  `json:"cluster_id"`
	Similarity *float64 `json:"similarity"`
	UserData   *string  `json:"user_data"`
}

func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(matchJSON{ClusterID: &m.ClusterID, Similarity: &m.Similarity, UserData: &m.UserData})
}

func (m *Match) UnmarshalJSON(data []byte) error {
	var v matchJSON
	if err := decodeBody(data, &v); err != nil {
		return err
	}
	if v.ClusterID == nil || v.Similarity == nil || v.UserData == nil {
		return fmt.Errorf("%w: match needs cluster_id, similarity and user_data", ErrBadJSON)
	}
	*m = Match{ClusterID: *v.ClusterID, Similarity: *v.Similarity, UserData: *v.UserData}
	return nil
}

// LookupResult

func (res LookupResult) MarshalJSON() ([]byte, error) {
	switch res.Kind {
	case ResultNeighbours:
		return tagged(lookupResultNames[ResultNeighbours], res.Neighbours)
	case ResultError:
		return tagged(lookupResultNames[ResultError], res.Error)
	case ResultEmptySet:
		return json.Marshal(lookupResultNames[ResultEmptySet])
	}
	return nil, fmt.Errorf("%w: lookup result %d", ErrBadTag, res.Kind)
}

func (res *LookupResult) UnmarshalJSON(data []byte) error {
	i, body, err := dataVariant("lookup result", data, lookupResultNames, int(ResultEmptySet))
	if err != nil {
		return err
	}
	*res = LookupResult{Kind: LookupResultKind(i)}
	switch res.Kind {
	case ResultNeighbours:
		return decodeBody(body, &res.Neighbours)
	case ResultError:
		return decodeBody(body, &res.Error)
	}
	return nil
}

// Rep

func (rep Rep) MarshalJSON() ([]byte, error) {
	switch rep.Kind {
	case RepUnexpected:
		return tagged(repNames[RepUnexpected], rep.Unexpected)
	case RepResult:
		return tagged(repNames[RepResult], rep.Result)
	}
	if int(rep.Kind) >= len(repNames) {
		return nil, fmt.Errorf("%w: reply %d", ErrBadTag, rep.Kind)
	}
	return json.Marshal(repNames[rep.Kind])
}

func (rep *Rep) UnmarshalJSON(data []byte) error {
	i, body, err := dataVariant("reply", data, repNames,
		int(RepInit), int(RepUnknown), int(RepTooBusy), int(RepWantCrash), int(RepTerminate))
	if err != nil {
		return err
	}
	*rep = Rep{Kind: RepKind(i)}
	switch rep.Kind {
	case RepUnexpected:
		return decodeBody(body, &rep.Unexpected)
	case RepResult:
		return decodeBody(body, &rep.Result)
	}
	return nil
}
