package store

import (
	"encoding/json"
	"time"

	"github.com/jacentio/stratum/internal/wire"
)

// Wire attribute names for record fields. The pair (partition, key)
// is the table's composite primary key.
const (
	attrPartition = "partition"
	attrKey       = "key"
	attrRevision  = "revision"
	attrCreated   = "created"
	attrUpdated   = "updated"
	attrSeq       = "seq"
	attrDocument  = "document"
)

// Record is one stored document and its bookkeeping fields.
type Record struct {
	// Partition and Key identify the record within its table.
	Partition string
	Key       string

	// Revision is the opaque optimistic-concurrency token, reissued on
	// every successful write. Present it back on Update or a
	// conditional Delete.
	Revision string

	// Seq counts successful updates, starting at 0 on Add.
	Seq int64

	// Created and Updated are RFC 3339 write timestamps.
	Created string
	Updated string

	// Document is the stored payload in its serialized form.
	Document json.RawMessage
}

// Unmarshal decodes the record's document into v.
func (r Record) Unmarshal(v any) error {
	return json.Unmarshal(r.Document, v)
}

// newItem builds the wire item for a freshly added record.
func newItem(partition, key, revision string, doc []byte, now time.Time) wire.Item {
	ts := now.UTC().Format(time.RFC3339)
	return wire.Item{
		attrPartition: wire.String(partition),
		attrKey:       wire.String(key),
		attrRevision:  wire.String(revision),
		attrCreated:   wire.String(ts),
		attrUpdated:   wire.String(ts),
		attrSeq:       wire.Number(0),
		attrDocument:  wire.String(string(doc)),
	}
}

// recordFromItem converts a wire item back into a Record.
func recordFromItem(item wire.Item) Record {
	return Record{
		Partition: item[attrPartition].Str(),
		Key:       item[attrKey].Str(),
		Revision:  item[attrRevision].Str(),
		Seq:       item[attrSeq].Int(),
		Created:   item[attrCreated].Str(),
		Updated:   item[attrUpdated].Str(),
		Document:  json.RawMessage(item[attrDocument].Str()),
	}
}
