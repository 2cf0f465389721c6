package store

import (
	"context"

	"github.com/jacentio/stratum/internal/wire"
)

// KeyRange filters a partition scan by key. Prefix takes precedence
// over After/Before when both are set. Both bounds are exclusive:
// After < key < Before, with either bound optional.
type KeyRange struct {
	Prefix string
	After  string
	Before string
}

// match is the exact range predicate. Every scanned item is re-checked
// against it client-side: the remote key-condition language cannot
// express every KeyRange in one clause (BETWEEN is inclusive of both
// ends), so the translated query is treated as a pre-filter only.
func (r *KeyRange) match(key string) bool {
	if r == nil {
		return true
	}
	if r.Prefix != "" {
		return len(key) >= len(r.Prefix) && key[:len(r.Prefix)] == r.Prefix
	}
	if r.After != "" && key <= r.After {
		return false
	}
	if r.Before != "" && key >= r.Before {
		return false
	}
	return true
}

// condition translates the range into a remote key condition.
func (r *KeyRange) condition() (expr string, names map[string]string, values wire.Item) {
	names = map[string]string{"#p": attrPartition}
	values = wire.Item{}

	switch {
	case r == nil || (r.Prefix == "" && r.After == "" && r.Before == ""):
		expr = "#p = :p"
	case r.Prefix != "":
		expr = "#p = :p AND begins_with(#k, :prefix)"
		names["#k"] = attrKey
		values[":prefix"] = wire.String(r.Prefix)
	case r.After != "" && r.Before != "":
		// BETWEEN is inclusive of both ends at the remote; match()
		// restores the exclusive bounds.
		expr = "#p = :p AND #k BETWEEN :after AND :before"
		names["#k"] = attrKey
		values[":after"] = wire.String(r.After)
		values[":before"] = wire.String(r.Before)
	case r.After != "":
		expr = "#p = :p AND #k >= :after"
		names["#k"] = attrKey
		values[":after"] = wire.String(r.After)
	default:
		expr = "#p = :p AND #k < :before"
		names["#k"] = attrKey
		values[":before"] = wire.String(r.Before)
	}
	return expr, names, values
}

// PartitionScan is a forward-only scan over one partition. Each
// GetPartition call starts a fresh scan; the continuation cursor is
// private to it and never outlives it.
//
//	scan := session.GetPartition("orders", "acct-1", nil)
//	for scan.Next(ctx) {
//	    rec := scan.Record()
//	    ...
//	}
//	if err := scan.Err(); err != nil {
//	    ...
//	}
type PartitionScan struct {
	session   *Session
	table     string
	partition string
	rng       *KeyRange

	items  []wire.Item
	idx    int
	cursor wire.Item
	record Record
	done   bool
	err    error
}

// GetPartition starts a scan over every record currently in the
// partition, in key order, optionally filtered by rng. A table that
// does not exist yet yields an empty scan, not an error: an empty
// partition and a not-yet-created table are indistinguishable to the
// caller.
func (s *Session) GetPartition(table, partition string, rng *KeyRange) *PartitionScan {
	return &PartitionScan{
		session:   s,
		table:     table,
		partition: partition,
		rng:       rng,
	}
}

// Next advances to the next matching record, fetching further pages as
// the remote cursor demands. It returns false when the scan is
// exhausted or failed; Err distinguishes the two.
func (p *PartitionScan) Next(ctx context.Context) bool {
	for p.err == nil {
		for p.idx < len(p.items) {
			item := p.items[p.idx]
			p.idx++
			rec := recordFromItem(item)
			if p.rng.match(rec.Key) {
				p.record = rec
				return true
			}
		}
		if p.done {
			return false
		}
		p.fetch(ctx)
	}
	return false
}

// Record returns the record Next advanced to.
func (p *PartitionScan) Record() Record { return p.record }

// Err returns the first error the scan hit, if any.
func (p *PartitionScan) Err() error { return p.err }

// Collect drains the scan into a slice.
func (p *PartitionScan) Collect(ctx context.Context) ([]Record, error) {
	var records []Record
	for p.Next(ctx) {
		records = append(records, p.Record())
	}
	return records, p.Err()
}

// fetch issues one page query, resuming from the cursor when present.
func (p *PartitionScan) fetch(ctx context.Context) {
	expr, names, values := p.rng.condition()
	values[":p"] = wire.String(p.partition)

	var out queryOutput
	err := p.session.client.Call(ctx, service, opQuery, &queryInput{
		TableName:                 p.session.cfg.tableName(p.table),
		KeyConditionExpression:    expr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         p.cursor,
	}, &out)

	switch wire.Kind(err) {
	case wire.KindResourceNotFound, wire.KindResourceInUse:
		// No table yet means no records.
		p.items, p.done = nil, true
		return
	}
	if err != nil {
		p.err = err
		return
	}

	p.items, p.idx = out.Items, 0
	p.cursor = out.LastEvaluatedKey
	p.done = len(out.LastEvaluatedKey) == 0
}
