package proto

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/multisocket/duplclient/errs"
)

// errors
const (
	ErrTruncated = errs.Err("packet truncated")
	ErrBadTag    = errs.Err("invalid variant tag")
	ErrBadUTF8   = errs.Err("invalid utf-8 string")
)

// Message is a value with a binary envelope.
//
// Every variant is a tag byte followed by its fields, strings are a u32
// length and the bytes, integers and float bits are big-endian u64.
type Message interface {
	EncodedLen() int
	Encode(b []byte) int
}

// writer encodes into buf, or only counts bytes when buf is nil.
type writer struct {
	buf []byte
	off int
}

func (w *writer) u8(v uint8) {
	if w.buf != nil {
		w.buf[w.off] = v
	}
	w.off++
}

func (w *writer) u32(v uint32) {
	if w.buf != nil {
		binary.BigEndian.PutUint32(w.buf[w.off:], v)
	}
	w.off += 4
}

func (w *writer) u64(v uint64) {
	if w.buf != nil {
		binary.BigEndian.PutUint64(w.buf[w.off:], v)
	}
	w.off += 8
}

func (w *writer) f64(v float64) {
	w.u64(math.Float64bits(v))
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	if w.buf != nil {
		copy(w.buf[w.off:], s)
	}
	w.off += len(s)
}

type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || len(r.b)-r.off < n {
		r.fail(ErrTruncated)
		return false
	}
	return true
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v
}

func (r *reader) f64() float64 {
	return math.Float64frombits(r.u64())
}

func (r *reader) str() string {
	n := r.u32()
	if !r.need(int(n)) {
		return ""
	}
	b := r.b[r.off : r.off+int(n)]
	if !utf8.Valid(b) {
		r.fail(ErrBadUTF8)
		return ""
	}
	r.off += int(n)
	return string(b)
}

// tag reads a variant tag that must be below max.
func (r *reader) tag(what string, max uint8) uint8 {
	t := r.u8()
	if r.err == nil && t >= max {
		r.fail(fmt.Errorf("%w %d for %s", ErrBadTag, t, what))
	}
	return t
}

// workload

func writeWorkload[T any](w *writer, wl *Workload[T], item func(*writer, *T)) {
	if !wl.Many {
		w.u8(0)
		if len(wl.Items) == 0 {
			var zero T
			item(w, &zero)
			return
		}
		item(w, &wl.Items[0])
		return
	}
	w.u8(1)
	w.u32(uint32(len(wl.Items)))
	for i := range wl.Items {
		item(w, &wl.Items[i])
	}
}

func readWorkload[T any](r *reader, item func(*reader) T) (wl Workload[T]) {
	switch r.tag("workload", 2) {
	case 0:
		wl.Items = []T{item(r)}
	case 1:
		wl.Many = true
		n := r.u32()
		// every item takes at least one byte
		if !r.need(int(n)) {
			return
		}
		wl.Items = make([]T, 0, n)
		for i := uint32(0); i < n && r.err == nil; i++ {
			wl.Items = append(wl.Items, item(r))
		}
	}
	return
}

// request side

func writeCond(w *writer, c *Cond) {
	w.u8(uint8(c.Kind))
	if c.Kind == CondBestSimLessThan {
		w.f64(c.Threshold)
	}
}

func readCond(r *reader) (c Cond) {
	c.Kind = CondKind(r.tag("condition", 2))
	if c.Kind == CondBestSimLessThan {
		c.Threshold = r.f64()
	}
	return
}

func writeLookupTask(w *writer, t *LookupTask) {
	w.str(t.Text)
	w.u8(uint8(t.Result))
	w.u8(uint8(t.PostAction.Kind))
	if t.PostAction.Kind == PostActionInsertNew {
		writeCond(w, &t.PostAction.Cond)
		writeCond(w, &t.PostAction.Assign.Cond)
		w.u8(uint8(t.PostAction.Assign.Choice.Kind))
		if t.PostAction.Assign.Choice.Kind == ClientChoice {
			w.u64(t.PostAction.Assign.Choice.ClusterID)
		}
		w.str(t.PostAction.UserData)
	}
}

func readLookupTask(r *reader) (t LookupTask) {
	t.Text = r.str()
	t.Result = LookupType(r.tag("lookup type", 3))
	t.PostAction.Kind = PostActionKind(r.tag("post action", 2))
	if t.PostAction.Kind == PostActionInsertNew {
		t.PostAction.Cond = readCond(r)
		t.PostAction.Assign.Cond = readCond(r)
		t.PostAction.Assign.Choice.Kind = ChoiceKind(r.tag("cluster choice", 2))
		if t.PostAction.Assign.Choice.Kind == ClientChoice {
			t.PostAction.Assign.Choice.ClusterID = r.u64()
		}
		t.PostAction.UserData = r.str()
	}
	return
}

func writeReq(w *writer, req *Req) {
	w.u8(uint8(req.Kind))
	if req.Kind == ReqLookup {
		writeWorkload(w, &req.Lookup, writeLookupTask)
	}
}

func readReq(r *reader) (req Req) {
	req.Kind = ReqKind(r.tag("request", 3))
	if req.Kind == ReqLookup {
		req.Lookup = readWorkload(r, readLookupTask)
	}
	return
}

func (t *Trans) write(w *writer) {
	if t.Sync {
		w.u8(1)
	} else {
		w.u8(0)
	}
	writeReq(w, &t.Req)
}

// EncodedLen is the size of the binary envelope of t.
func (t *Trans) EncodedLen() int {
	var w writer
	t.write(&w)
	return w.off
}

// Encode writes t into b, which must hold EncodedLen bytes, and returns
// the bytes written.
func (t *Trans) Encode(b []byte) int {
	w := writer{buf: b}
	t.write(&w)
	return w.off
}

// DecodeTrans decodes a request envelope, returning the bytes consumed.
func DecodeTrans(b []byte) (t Trans, n int, err error) {
	r := reader{b: b}
	t.Sync = r.tag("transmission", 2) == 1
	t.Req = readReq(&r)
	if r.err != nil {
		return Trans{}, 0, r.err
	}
	return t, r.off, nil
}

// reply side

func writeMatch(w *writer, m *Match) {
	w.u64(m.ClusterID)
	w.f64(m.Similarity)
	w.str(m.UserData)
}

func readMatch(r *reader) (m Match) {
	m.ClusterID = r.u64()
	m.Similarity = r.f64()
	m.UserData = r.str()
	return
}

func writeLookupResult(w *writer, res *LookupResult) {
	w.u8(uint8(res.Kind))
	switch res.Kind {
	case ResultNeighbours:
		writeWorkload(w, &res.Neighbours, writeMatch)
	case ResultError:
		w.str(res.Error)
	}
}

func readLookupResult(r *reader) (res LookupResult) {
	res.Kind = LookupResultKind(r.tag("lookup result", 3))
	switch res.Kind {
	case ResultNeighbours:
		res.Neighbours = readWorkload(r, readMatch)
	case ResultError:
		res.Error = r.str()
	}
	return
}

func (rep *Rep) write(w *writer) {
	w.u8(uint8(rep.Kind))
	switch rep.Kind {
	case RepUnexpected:
		writeReq(w, &rep.Unexpected)
	case RepResult:
		writeWorkload(w, &rep.Result, writeLookupResult)
	}
}

// EncodedLen is the size of the binary envelope of rep.
func (rep *Rep) EncodedLen() int {
	var w writer
	rep.write(&w)
	return w.off
}

// Encode writes rep into b, which must hold EncodedLen bytes, and returns
// the bytes written.
func (rep *Rep) Encode(b []byte) int {
	w := writer{buf: b}
	rep.write(&w)
	return w.off
}

// DecodeRep decodes a reply envelope, returning the bytes consumed.
func DecodeRep(b []byte) (rep Rep, n int, err error) {
	r := reader{b: b}
	rep.Kind = RepKind(r.tag("reply", 7))
	switch rep.Kind {
	case RepUnexpected:
		rep.Unexpected = readReq(&r)
	case RepResult:
		rep.Result = readWorkload(&r, readLookupResult)
	}
	if r.err != nil {
		return Rep{}, 0, r.err
	}
	return rep, r.off, nil
}
