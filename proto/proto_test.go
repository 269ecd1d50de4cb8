package proto

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrans() Trans {
	return Trans{Req: Req{
		Kind: ReqLookup,
		Lookup: Single(LookupTask{
			Text:   "some text to lookup",
			Result: LookupBestOrMine,
			PostAction: PostAction{
				Kind: PostActionInsertNew,
				Cond: InsertCond{Kind: CondBestSimLessThan, Threshold: 0.5},
				Assign: ClusterAssign{
					Cond:   AssignCond{Kind: CondAlways},
					Choice: ClusterChoice{Kind: ClientChoice, ClusterID: 177},
				},
				UserData: "some user data",
			},
		}),
	}}
}

func sampleRep() Rep {
	return Rep{Kind: RepResult, Result: Many(
		LookupResult{Kind: ResultEmptySet},
		LookupResult{Kind: ResultNeighbours, Neighbours: Many(
			Match{ClusterID: 1, Similarity: 0.75, UserData: "first"},
			Match{ClusterID: 2, Similarity: 0.5, UserData: "второй"},
		)},
		LookupResult{Kind: ResultNeighbours, Neighbours: Single(Match{ClusterID: 3, Similarity: 1})},
		LookupResult{Kind: ResultError, Error: "index is gone"},
	)}
}

const sampleTransJSON = `{"async":{"lookup":{"single":{"text":"some text to lookup","result":"best_or_mine",` +
	`"post_action":{"insert_new":{"cond":{"best_sim_less_than":0.5},` +
	`"assign":{"cond":"always","choice":{"client_choice":177}},"user_data":"some user data"}}}}}}`

func TestParseTrans(t *testing.T) {
	trans, err := ParseTrans(sampleTransJSON)
	require.NoError(t, err)
	assert.Equal(t, sampleTrans(), trans)

	text, err := TransToJSON(&trans, false)
	require.NoError(t, err)
	assert.JSONEq(t, sampleTransJSON, text)
}

func TestParseTransUnits(t *testing.T) {
	for _, tc := range []struct {
		text string
		want Trans
	}{
		{`{"sync":"init"}`, Trans{Sync: true, Req: Req{Kind: ReqInit}}},
		{`{"async":"terminate"}`, Trans{Req: Req{Kind: ReqTerminate}}},
		{` { "async" : { "lookup" : { "many" : [ ] } } } `, Trans{Req: Req{Kind: ReqLookup, Lookup: Many[LookupTask]()}}},
		{`{"sync":{"lookup":{"many":[{"text":"a","result":"all","post_action":"none"},` +
			`{"text":"b","result":"best","post_action":{"insert_new":{"cond":"always",` +
			`"assign":{"cond":{"best_sim_less_than":0.25},"choice":"server_choice"},"user_data":""}}}]}}}`,
			Trans{Sync: true, Req: Req{Kind: ReqLookup, Lookup: Many(
				LookupTask{Text: "a", Result: LookupAll},
				LookupTask{Text: "b", Result: LookupBest, PostAction: PostAction{
					Kind:   PostActionInsertNew,
					Assign: ClusterAssign{Cond: AssignCond{Kind: CondBestSimLessThan, Threshold: 0.25}},
				}},
			)}}},
	} {
		trans, err := ParseTrans(tc.text)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.want.Sync, trans.Sync, tc.text)
		assert.Equal(t, tc.want.Req.Kind, trans.Req.Kind, tc.text)
		assert.Equal(t, tc.want.Req.Lookup.Many, trans.Req.Lookup.Many, tc.text)
		assert.Equal(t, len(tc.want.Req.Lookup.Items), len(trans.Req.Lookup.Items), tc.text)
		for i := range tc.want.Req.Lookup.Items {
			assert.Equal(t, tc.want.Req.Lookup.Items[i], trans.Req.Lookup.Items[i], tc.text)
		}
	}
}

func TestParseTransInvalid(t *testing.T) {
	for _, text := range []string{
		``,
		`not json`,
		`"async"`,
		`{}`,
		`{"async":"init","sync":"init"}`,
		`{"later":"init"}`,
		`{"async":"lookup"}`,
		`{"async":{"init":1}}`,
		`{"async":{"lookup":{"single":{"text":"a","result":"worst","post_action":"none"}}}}`,
		`{"async":{"lookup":{"single":{"text":"a","result":"all"}}}}`,
		`{"async":{"lookup":{"single":{"text":"a","result":"all","post_action":"none","extra":1}}}}`,
		`{"async":"init"} trailing`,
		`{"async":null}`,
		`{"async":{"lookup":null}}`,
		`{"async":{"lookup":{"single":null}}}`,
		`{"async":{"lookup":{"many":[null]}}}`,
		`{"async":{"lookup":{"single":{"text":null,"result":"all","post_action":"none"}}}}`,
	} {
		_, err := ParseTrans(text)
		assert.Error(t, err, text)
	}
}

func TestParseTransNullValues(t *testing.T) {
	insertNew := func(cond, choice string) string {
		return `{"async":{"lookup":{"single":{"text":"a","result":"all","post_action":{"insert_new":{` +
			`"cond":` + cond + `,"assign":{"cond":"always","choice":` + choice + `},"user_data":""}}}}}}`
	}
	_, err := ParseTrans(insertNew(`{"best_sim_less_than":0.5}`, `{"client_choice":7}`))
	require.NoError(t, err)

	for _, text := range []string{
		insertNew(`{"best_sim_less_than":null}`, `"server_choice"`),
		insertNew(`"always"`, `{"client_choice":null}`),
		insertNew(`{"best_sim_less_than": null }`, `"server_choice"`),
		`{"async":{"lookup":{"many":null}}}`,
	} {
		_, err := ParseTrans(text)
		assert.True(t, errors.Is(err, ErrBadJSON), "%s: %v", text, err)
	}
}

func TestTransBinaryRoundTrip(t *testing.T) {
	trans := sampleTrans()
	n := trans.EncodedLen()
	buf := make([]byte, n+3)
	require.Equal(t, n, trans.Encode(buf))

	got, consumed, err := DecodeTrans(buf)
	require.NoError(t, err)
	assert.Equal(t, n, consumed)
	assert.Equal(t, trans, got)
}

func TestRepBinaryRoundTrip(t *testing.T) {
	for _, rep := range []Rep{
		{Kind: RepInit},
		{Kind: RepTooBusy},
		{Kind: RepTerminate},
		{Kind: RepUnexpected, Unexpected: sampleTrans().Req},
		sampleRep(),
	} {
		buf := make([]byte, rep.EncodedLen())
		require.Equal(t, len(buf), rep.Encode(buf))
		got, consumed, err := DecodeRep(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), consumed)
		assert.Equal(t, rep, got)
	}
}

func TestEncodeLayout(t *testing.T) {
	trans := Trans{Sync: true, Req: Req{Kind: ReqLookup, Lookup: Single(LookupTask{Text: "ab", Result: LookupBest})}}
	buf := make([]byte, trans.EncodedLen())
	trans.Encode(buf)
	assert.Equal(t, []byte{
		1,          // sync
		1,          // lookup
		0,          // single
		0, 0, 0, 2, // text length
		'a', 'b',
		1, // best
		0, // none
	}, buf)
}

func TestDecodeErrors(t *testing.T) {
	rep := sampleRep()
	buf := make([]byte, rep.EncodedLen())
	rep.Encode(buf)

	for i := 0; i < len(buf); i++ {
		_, _, err := DecodeRep(buf[:i])
		assert.True(t, errors.Is(err, ErrTruncated), "prefix %d: %v", i, err)
	}

	_, _, err := DecodeRep([]byte{7})
	assert.True(t, errors.Is(err, ErrBadTag))
	_, _, err = DecodeRep([]byte{byte(RepResult), 0, 3})
	assert.True(t, errors.Is(err, ErrBadTag))
	_, _, err = DecodeTrans([]byte{2, 0})
	assert.True(t, errors.Is(err, ErrBadTag))
	_, _, err = DecodeRep([]byte{byte(RepResult), 0, byte(ResultError), 0, 0, 0, 1, 0xff})
	assert.True(t, errors.Is(err, ErrBadUTF8))
	// batch count larger than the packet
	_, _, err = DecodeRep([]byte{byte(RepResult), 1, 0xff, 0xff, 0xff, 0xff})
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestRepToJSON(t *testing.T) {
	rep := Rep{Kind: RepUnexpected, Unexpected: sampleTrans().Req}
	text, err := RepToJSON(&rep, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, `{"unexpected":{"lookup":`), text)
	assert.NotContains(t, text, "\n")

	parsed, err := ParseRep(text)
	require.NoError(t, err)
	assert.Equal(t, rep, parsed)

	pretty, err := RepToJSON(&rep, true)
	require.NoError(t, err)
	assert.Contains(t, pretty, "\n  ")
	assert.JSONEq(t, text, pretty)

	for _, tc := range []struct {
		rep  Rep
		want string
	}{
		{Rep{Kind: RepInit}, `"init"`},
		{Rep{Kind: RepUnknown}, `"unknown"`},
		{Rep{Kind: RepTooBusy}, `"too_busy"`},
		{Rep{Kind: RepWantCrash}, `"want_crash"`},
		{Rep{Kind: RepTerminate}, `"terminate"`},
		{sampleRep(), `{"result":{"many":["empty_set",` +
			`{"neighbours":{"many":[{"cluster_id":1,"similarity":0.75,"user_data":"first"},` +
			`{"cluster_id":2,"similarity":0.5,"user_data":"второй"}]}},` +
			`{"neighbours":{"single":{"cluster_id":3,"similarity":1,"user_data":""}}},` +
			`{"error":"index is gone"}]}}`},
	} {
		text, err := RepToJSON(&tc.rep, false)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, text)

		parsed, err := ParseRep(text)
		require.NoError(t, err)
		assert.Equal(t, tc.rep, parsed)
	}
}
