// Package store is a document store over the raw DynamoDB wire
// protocol: partitioned key/value records with optimistic concurrency
// and range scans, spoken directly as signed HTTP requests.
//
// Stratum builds every call itself, from Signature V4 signing through
// the JSON attribute encoding to the error-type discrimination its
// retry and conflict handling depend on. It runs anywhere an HTTP
// client and a credential set are available, with no AWS SDK.
//
// # Records
//
// A record is identified by (partition, key) within a table. Every
// record carries a revision, an opaque token reissued on each
// successful write; Update and conditional Delete must present the
// revision they last observed. A seq counter starts at 0 and increases
// by exactly 1 per update.
//
// # Sessions
//
// [Connect] resolves credentials (environment first, then the shared
// credentials file) and returns a [Session]:
//
//	sess, err := store.Connect(ctx, store.Config{TablePrefix: "app_"})
//	rev, err := sess.Add(ctx, "orders", "acct-1", "order-9", doc)
//	rec, err := sess.Get(ctx, "orders", "acct-1", "order-9")
//	rev, err = sess.Update(ctx, "orders", "acct-1", "order-9", rev, doc2)
//	err = sess.Delete(ctx, "orders", "acct-1", "order-9", rev)
//
// Tables are created lazily on the first Add that finds them missing;
// the write is retried once provisioning converges.
//
// # Scans
//
// [Session.GetPartition] walks one partition in key order, following
// the remote continuation cursor page by page:
//
//	scan := sess.GetPartition("orders", "acct-1", &store.KeyRange{Prefix: "2024-"})
//	for scan.Next(ctx) {
//	    rec := scan.Record()
//	}
//	err := scan.Err()
//
// # Errors
//
// Failures surface as typed errors carrying an HTTP-style status:
//
//   - [ErrNotFound] (404) - identity does not exist
//   - [ErrConflict] (409) - stale revision, or duplicate identity on Add
//
// Every other remote error is passed through unchanged, preserving the
// original status and response body.
package store
