// Package directory holds the client-side business directory.
//
// Store is the single owner of the directory. It accepts two kinds of
// mutation: wholesale replacement from Refresh or Clear, and single-record
// patches from ApplyUpdate. Every committed change is delivered to
// subscribers as an immutable Snapshot.
//
// Refresh and Clear are sequenced. Each operation takes a ticket from a
// monotonically increasing counter, and a result commits only when its
// ticket is newer than the last committed one, so a refresh issued before a
// clear can never bring cleared records back.
package directory
