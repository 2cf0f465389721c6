package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jacentio/stratum/internal/creds"
	"github.com/jacentio/stratum/internal/wire"
)

const service = "dynamodb"

// provisionRetries bounds the retry loop around table provisioning
// races. Convergence is expected within seconds; the bound exists so a
// wedged table eventually surfaces its remote error instead of
// retrying forever.
const provisionRetries = 120

// Session is one logical connection to the document store. Sessions
// own no sockets and carry no per-call mutable state; all concurrent-
// writer correctness is delegated to the remote conditional-write
// guarantee.
type Session struct {
	cfg    Config
	client *wire.Client
	logger *slog.Logger
}

// Connect resolves credentials and returns a ready Session.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	cfg.validate()

	c, err := creds.Resolve(cfg.Region, cfg.Profile)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		cfg: cfg,
		client: &wire.Client{
			Creds:    c,
			HTTP:     cfg.HTTPClient,
			Endpoint: cfg.Endpoint,
			Logger:   logger,
		},
		logger: logger,
	}, nil
}

// Close releases the session. The driver holds no persistent
// connections, so this is a no-op kept for symmetry with Connect.
func (s *Session) Close() error { return nil }

// Add stores a new record and returns its revision. The write is
// conditional on the identity not existing; a duplicate fails with
// ErrConflict. A table that does not exist yet is created lazily and
// the whole operation retried, with a fresh revision each attempt.
func (s *Session) Add(ctx context.Context, table, partition, key string, document any) (string, error) {
	doc, err := json.Marshal(document)
	if err != nil {
		return "", fmt.Errorf("stratum: marshal document: %w", err)
	}
	name := s.cfg.tableName(table)

	for attempt := 0; ; attempt++ {
		revision := uuid.NewString()
		err := s.client.Call(ctx, service, opPutItem, &putItemInput{
			TableName:                name,
			Item:                     newItem(partition, key, revision, doc, time.Now()),
			ConditionExpression:      "attribute_not_exists(#p)",
			ExpressionAttributeNames: map[string]string{"#p": attrPartition},
		}, nil)

		switch wire.Kind(err) {
		case wire.KindUnknown:
			if err != nil {
				return "", err
			}
			return revision, nil

		case wire.KindConditionFailed:
			return "", fmt.Errorf("stratum: add %s %s/%s: %w", table, partition, key, ErrConflict)

		case wire.KindResourceNotFound:
			if attempt >= provisionRetries {
				return "", err
			}
			if err := s.createTable(ctx, name); err != nil {
				return "", err
			}

		case wire.KindResourceInUse:
			// A concurrent creator got there first; provisioning is
			// still converging.
			if attempt >= provisionRetries {
				return "", err
			}
		}

		if err := s.waitProvision(ctx); err != nil {
			return "", err
		}
	}
}

// Get returns the record stored under (partition, key). A table that
// has never been created has no records, so table-not-found and
// table-provisioning both map to ErrNotFound.
func (s *Session) Get(ctx context.Context, table, partition, key string) (Record, error) {
	var out getItemOutput
	err := s.client.Call(ctx, service, opGetItem, &getItemInput{
		TableName:      s.cfg.tableName(table),
		Key:            keyOf(partition, key),
		ConsistentRead: true,
	}, &out)
	switch wire.Kind(err) {
	case wire.KindResourceNotFound, wire.KindResourceInUse:
		return Record{}, fmt.Errorf("stratum: get %s %s/%s: %w", table, partition, key, ErrNotFound)
	}
	if err != nil {
		return Record{}, err
	}
	if len(out.Item) == 0 {
		return Record{}, fmt.Errorf("stratum: get %s %s/%s: %w", table, partition, key, ErrNotFound)
	}
	return recordFromItem(out.Item), nil
}

// Update replaces the record's document, conditional on the caller
// holding the current revision. On success seq is incremented by
// exactly 1 and a new revision is returned. A stale revision fails
// with ErrConflict, as does a nonexistent table (a record there can
// never have had a valid revision).
func (s *Session) Update(ctx context.Context, table, partition, key, currentRevision string, document any) (string, error) {
	doc, err := json.Marshal(document)
	if err != nil {
		return "", fmt.Errorf("stratum: marshal document: %w", err)
	}
	name := s.cfg.tableName(table)

	for attempt := 0; ; attempt++ {
		revision := uuid.NewString()
		err := s.client.Call(ctx, service, opUpdateItem, &updateItemInput{
			TableName:           name,
			Key:                 keyOf(partition, key),
			UpdateExpression:    "SET #doc = :doc, #upd = :upd, #rev = :newrev, #seq = #seq + :one",
			ConditionExpression: "#rev = :rev",
			ExpressionAttributeNames: map[string]string{
				"#doc": attrDocument,
				"#upd": attrUpdated,
				"#rev": attrRevision,
				"#seq": attrSeq,
			},
			ExpressionAttributeValues: wire.Item{
				":doc":    wire.String(string(doc)),
				":upd":    wire.String(time.Now().UTC().Format(time.RFC3339)),
				":newrev": wire.String(revision),
				":rev":    wire.String(currentRevision),
				":one":    wire.Number(1),
			},
		}, nil)

		switch wire.Kind(err) {
		case wire.KindUnknown:
			if err != nil {
				return "", err
			}
			return revision, nil

		case wire.KindConditionFailed, wire.KindResourceNotFound:
			return "", fmt.Errorf("stratum: update %s %s/%s: %w", table, partition, key, ErrConflict)

		case wire.KindResourceInUse:
			if attempt >= provisionRetries {
				return "", err
			}
		}

		if err := s.waitProvision(ctx); err != nil {
			return "", err
		}
	}
}

// Delete removes the record. With a currentRevision the delete is
// conditional and a mismatch fails with ErrConflict; without one,
// absence is the desired end state and deleting a nonexistent record
// (or one in a nonexistent table) succeeds silently.
func (s *Session) Delete(ctx context.Context, table, partition, key, currentRevision string) error {
	in := &deleteItemInput{
		TableName: s.cfg.tableName(table),
		Key:       keyOf(partition, key),
	}
	if currentRevision != "" {
		in.ConditionExpression = "#rev = :rev"
		in.ExpressionAttributeNames = map[string]string{"#rev": attrRevision}
		in.ExpressionAttributeValues = wire.Item{":rev": wire.String(currentRevision)}
	}

	err := s.client.Call(ctx, service, opDeleteItem, in, nil)
	switch wire.Kind(err) {
	case wire.KindConditionFailed:
		return fmt.Errorf("stratum: delete %s %s/%s: %w", table, partition, key, ErrConflict)

	case wire.KindResourceInUse:
		// A table still being provisioned cannot contain the record.
		return nil

	case wire.KindResourceNotFound:
		if currentRevision != "" {
			// The caller believed a record existed; it cannot have.
			return fmt.Errorf("stratum: delete %s %s/%s: %w", table, partition, key, ErrConflict)
		}
		return nil
	}
	return err
}

// createTable provisions the table with the (partition, key) composite
// primary key. Creation is idempotent: a concurrent creator's
// ResourceInUse is swallowed.
func (s *Session) createTable(ctx context.Context, name string) error {
	in := &createTableInput{
		TableName: name,
		AttributeDefinitions: []attributeDefinition{
			{AttributeName: attrPartition, AttributeType: "S"},
			{AttributeName: attrKey, AttributeType: "S"},
		},
		KeySchema: []keySchemaElement{
			{AttributeName: attrPartition, KeyType: "HASH"},
			{AttributeName: attrKey, KeyType: "RANGE"},
		},
		BillingMode: s.cfg.BillingMode,
	}
	if s.cfg.BillingMode == BillingProvisioned {
		in.ProvisionedThroughput = &provisionedThroughput{
			ReadCapacityUnits:  s.cfg.ReadCapacity,
			WriteCapacityUnits: s.cfg.WriteCapacity,
		}
	}

	s.logger.Info("creating table", "table", name, "billing", s.cfg.BillingMode)

	err := s.client.Call(ctx, service, opCreateTable, in, nil)
	if wire.Kind(err) == wire.KindResourceInUse {
		return nil
	}
	return err
}

// waitProvision pauses one backoff interval, aborting early when the
// caller's context is cancelled.
func (s *Session) waitProvision(ctx context.Context) error {
	t := time.NewTimer(s.cfg.ProvisionWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func keyOf(partition, key string) wire.Item {
	return wire.Item{
		attrPartition: wire.String(partition),
		attrKey:       wire.String(key),
	}
}
