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


// Package ingest implements the sharded ingestion pipeline.
//
// A Coordinator plans the input file into N disjoint, contiguous shards
// (one per device), launches one Worker per shard on a bounded pool, and
// aggregates per-shard results into a consolidated Report. Each Worker owns
// one shard, one embedding engine bound to one device, and runs a strictly
// sequential stream -> embed -> write loop: a batch of decoded records is
// embedded, then committed to the store as a single transaction, then the
// shard's resume cursor is advanced.
//
// Failure isolation is layered. Malformed input lines are skipped and
// counted, never fatal to a shard. An embedding failure halves the
// effective batch and retries a bounded number of times before failing the
// shard. A transient store error retries the same batch with exponential
// backoff; a fatal store error stops the shard immediately. The Coordinator
// retries whole failed shards from their last committed cursor up to a
// configured ceiling before marking the run degraded.
package ingest
