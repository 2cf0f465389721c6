package store_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/jacentio/stratum/internal/wire"
)

// fakeDynamo is an in-memory DynamoDB endpoint speaking the JSON wire
// protocol, enough of it for the driver's six operations. Serving it
// over HTTP means every test exercises the signer and call layer too.
type fakeDynamo struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	tables  map[string]*fakeTable
	targets []string

	// pageSize caps Query pages to force cursor continuations.
	pageSize int

	// createLag is how many data-plane calls a new table answers with
	// ResourceInUseException before going active.
	createLag int
}

type fakeTable struct {
	creating int
	items    map[string]wire.Item // keyed by partition \x00 key
}

type fakeInput struct {
	TableName                 string            `json:"TableName"`
	Item                      wire.Item         `json:"Item"`
	Key                       wire.Item         `json:"Key"`
	ConditionExpression       string            `json:"ConditionExpression"`
	KeyConditionExpression    string            `json:"KeyConditionExpression"`
	UpdateExpression          string            `json:"UpdateExpression"`
	ExpressionAttributeValues wire.Item         `json:"ExpressionAttributeValues"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames"`
	ExclusiveStartKey         wire.Item         `json:"ExclusiveStartKey"`
}

func newFakeDynamo(t *testing.T) *fakeDynamo {
	f := &fakeDynamo{
		t:        t,
		tables:   make(map[string]*fakeTable),
		pageSize: 100,
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeDynamo) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "AWS4-HMAC-SHA256 ") {
		f.t.Errorf("request without a v4 signature: %q", auth)
	}
	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		f.t.Errorf("content-type: got %q", ct)
	}

	target := r.Header.Get("X-Amz-Target")
	f.targets = append(f.targets, target)

	var in fakeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		f.t.Errorf("decode %s body: %v", target, err)
		writeError(w, 400, "SerializationException", err.Error())
		return
	}

	op := target[strings.IndexByte(target, '.')+1:]
	switch op {
	case "CreateTable":
		f.createTable(w, in)
	case "PutItem":
		f.putItem(w, in)
	case "GetItem":
		f.getItem(w, in)
	case "Query":
		f.query(w, in)
	case "UpdateItem":
		f.updateItem(w, in)
	case "DeleteItem":
		f.deleteItem(w, in)
	default:
		writeError(w, 400, "UnknownOperationException", op)
	}
}

func writeError(w http.ResponseWriter, status int, typeName, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"__type":  "com.amazonaws.dynamodb.v20120810#" + typeName,
		"message": msg,
	})
}

func writeOK(w http.ResponseWriter, body any) {
	if body == nil {
		body = map[string]any{}
	}
	json.NewEncoder(w).Encode(body)
}

// dataTable resolves the table for a data-plane call, emitting the
// provisioning-convergence errors the driver has to ride out.
func (f *fakeDynamo) dataTable(w http.ResponseWriter, name string) *fakeTable {
	tbl, ok := f.tables[name]
	if !ok {
		writeError(w, 400, "ResourceNotFoundException", "Requested resource not found")
		return nil
	}
	if tbl.creating > 0 {
		tbl.creating--
		writeError(w, 400, "ResourceInUseException", "Table is being created")
		return nil
	}
	return tbl
}

func (f *fakeDynamo) createTable(w http.ResponseWriter, in fakeInput) {
	if _, ok := f.tables[in.TableName]; ok {
		writeError(w, 400, "ResourceInUseException", "Table already exists: "+in.TableName)
		return
	}
	f.tables[in.TableName] = &fakeTable{
		creating: f.createLag,
		items:    make(map[string]wire.Item),
	}
	writeOK(w, nil)
}

func itemKey(item wire.Item) string {
	return item["partition"].Str() + "\x00" + item["key"].Str()
}

func (f *fakeDynamo) putItem(w http.ResponseWriter, in fakeInput) {
	tbl := f.dataTable(w, in.TableName)
	if tbl == nil {
		return
	}
	id := itemKey(in.Item)
	if in.ConditionExpression != "" {
		// The driver's only put condition is attribute_not_exists.
		if _, exists := tbl.items[id]; exists {
			writeError(w, 400, "ConditionalCheckFailedException", "The conditional request failed")
			return
		}
	}
	tbl.items[id] = in.Item
	writeOK(w, nil)
}

func (f *fakeDynamo) getItem(w http.ResponseWriter, in fakeInput) {
	tbl := f.dataTable(w, in.TableName)
	if tbl == nil {
		return
	}
	item, ok := tbl.items[itemKey(in.Key)]
	if !ok {
		writeOK(w, nil)
		return
	}
	writeOK(w, map[string]any{"Item": item})
}

func (f *fakeDynamo) updateItem(w http.ResponseWriter, in fakeInput) {
	tbl := f.dataTable(w, in.TableName)
	if tbl == nil {
		return
	}
	item, ok := tbl.items[itemKey(in.Key)]
	if !ok || item["revision"].Str() != in.ExpressionAttributeValues[":rev"].Str() {
		writeError(w, 400, "ConditionalCheckFailedException", "The conditional request failed")
		return
	}

	// Apply the driver's update expression: replace document, stamp
	// updated, reissue revision, bump seq.
	next := wire.Item{}
	for k, v := range item {
		next[k] = v
	}
	next["document"] = in.ExpressionAttributeValues[":doc"]
	next["updated"] = in.ExpressionAttributeValues[":upd"]
	next["revision"] = in.ExpressionAttributeValues[":newrev"]
	next["seq"] = wire.Number(item["seq"].Int() + in.ExpressionAttributeValues[":one"].Int())
	tbl.items[itemKey(in.Key)] = next
	writeOK(w, nil)
}

func (f *fakeDynamo) deleteItem(w http.ResponseWriter, in fakeInput) {
	tbl := f.dataTable(w, in.TableName)
	if tbl == nil {
		return
	}
	id := itemKey(in.Key)
	if in.ConditionExpression != "" {
		item, ok := tbl.items[id]
		if !ok || item["revision"].Str() != in.ExpressionAttributeValues[":rev"].Str() {
			writeError(w, 400, "ConditionalCheckFailedException", "The conditional request failed")
			return
		}
	}
	delete(tbl.items, id)
	writeOK(w, nil)
}

func (f *fakeDynamo) query(w http.ResponseWriter, in fakeInput) {
	tbl := f.dataTable(w, in.TableName)
	if tbl == nil {
		return
	}

	partition := in.ExpressionAttributeValues[":p"].Str()
	var keys []string
	for id := range tbl.items {
		p, k, _ := strings.Cut(id, "\x00")
		if p != partition {
			continue
		}
		if f.matchKeyCondition(in, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	// Resume after the cursor key, if one was sent.
	if start := in.ExclusiveStartKey["key"].Str(); start != "" {
		i := sort.SearchStrings(keys, start)
		if i < len(keys) && keys[i] == start {
			i++
		}
		keys = keys[i:]
	}

	out := map[string]any{}
	page := keys
	if len(page) > f.pageSize {
		page = page[:f.pageSize]
		last := page[len(page)-1]
		out["LastEvaluatedKey"] = wire.Item{
			"partition": wire.String(partition),
			"key":       wire.String(last),
		}
	}

	items := make([]wire.Item, 0, len(page))
	for _, k := range page {
		items = append(items, tbl.items[partition+"\x00"+k])
	}
	out["Items"] = items
	writeOK(w, out)
}

// matchKeyCondition evaluates the driver's key-condition shapes the
// way DynamoDB would, BETWEEN being inclusive of both ends.
func (f *fakeDynamo) matchKeyCondition(in fakeInput, key string) bool {
	expr := in.KeyConditionExpression
	vals := in.ExpressionAttributeValues
	switch {
	case strings.Contains(expr, "begins_with"):
		return strings.HasPrefix(key, vals[":prefix"].Str())
	case strings.Contains(expr, "BETWEEN"):
		return key >= vals[":after"].Str() && key <= vals[":before"].Str()
	case strings.Contains(expr, ">="):
		return key >= vals[":after"].Str()
	case strings.Contains(expr, "<"):
		return key < vals[":before"].Str()
	default:
		return true
	}
}

// callCount reports how many times an operation was requested.
func (f *fakeDynamo) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, target := range f.targets {
		if strings.HasSuffix(target, "."+op) {
			n++
		}
	}
	return n
}

// seed drops a table into existence fully active, bypassing the lazy
// creation path.
func (f *fakeDynamo) seed(table string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = &fakeTable{items: make(map[string]wire.Item)}
}

// setCreating puts an existing table back into a provisioning window
// for the next n data-plane calls.
func (f *fakeDynamo) setCreating(table string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table].creating = n
}
