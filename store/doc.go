// Copyright 2025 Openshelf Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package store provides the storage abstraction for the ingestion pipeline.
//
// This package defines writer interfaces that decouple the pipeline from the
// concrete store. The production implementation (store/pgstore) targets a
// Postgres schema with a pgvector embedding column and a generated full-text
// column; store/memstore implements the same semantics in memory for tests
// and dry runs.
//
// # Transactional contract
//
// Every batch submitted to a writer is one transaction: either all surviving
// rows of the batch become visible or none do. Under PolicyResilient, rows
// whose parent_asin is absent from the metadata table are excluded before
// commit and reported as skipped; under PolicyStrict the same condition
// fails the batch with ErrMissingParent.
//
// # Error classification
//
// Implementations wrap failures with ErrTransient (connection drops,
// serialization conflicts, timeouts - safe to retry the same batch) or
// ErrFatal (schema or permission problems - the shard must stop). Callers
// classify with errors.Is.
//
// # Constructor Return Type Pattern
//
// Public constructors return the store.Store interface to enforce
// abstraction:
//
//	st, err := pgstore.New(ctx, cfg)  // returns store.Store
//
// memstore.New returns its concrete type so tests can reach inspection and
// failure-injection hooks.
package store
