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


package ingest

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/openshelf/reviewloader/core"
)

// shardReader reads lines from a byte range of a file, tracking the offset
// of the next unread line.
type shardReader struct {
	f      *os.File
	reader *bufio.Reader
	offset int64
	end    int64
}

func openShardReader(path string, start, end int64) (*shardReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &shardReader{
		f:      f,
		reader: bufio.NewReaderSize(f, 256*1024),
		offset: start,
		end:    end,
	}, nil
}

// nextLine returns the next line within the range and the offset it began
// at. Returns io.EOF once the range is exhausted.
func (sr *shardReader) nextLine() ([]byte, int64, error) {
	if sr.offset >= sr.end {
		return nil, sr.offset, io.EOF
	}
	lineStart := sr.offset

	var line []byte
	for {
		chunk, err := sr.reader.ReadSlice('\n')
		sr.offset += int64(len(chunk))
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(line) == 0 {
			return nil, lineStart, io.EOF
		}
		if err != nil && err != io.EOF {
			return nil, lineStart, err
		}
		return bytes.TrimRight(line, "\r\n"), lineStart, nil
	}
}

func (sr *shardReader) Close() error {
	return sr.f.Close()
}

// MetadataBatch is one batch of decoded metadata records. Next is the byte
// offset of the first line not yet consumed, suitable as a resume cursor.
type MetadataBatch struct {
	Records []*core.MetadataRecord
	Skipped []RecordError
	Next    int64
}

// ReviewBatch is one batch of decoded review records. Offsets holds the
// byte offset of each record's line, index-aligned with Records.
type ReviewBatch struct {
	Records []*core.ReviewRecord
	Offsets []int64
	Skipped []RecordError
	Next    int64
}

// ReviewStream lazily yields batches of reviews from one shard's range.
type ReviewStream struct {
	sr        *shardReader
	batchSize int
}

// OpenReviewStream opens a stream over the shard's range. If resumeAt
// falls inside the range the stream starts there instead, so a retried
// shard does not re-read batches the store already committed.
func OpenReviewStream(path string, shard Shard, batchSize int, resumeAt int64) (*ReviewStream, error) {
	start := shard.Start
	if resumeAt > start && resumeAt <= shard.End {
		start = resumeAt
	}
	sr, err := openShardReader(path, start, shard.End)
	if err != nil {
		return nil, err
	}
	return &ReviewStream{sr: sr, batchSize: batchSize}, nil
}

// Next returns the next batch, or io.EOF when the range is exhausted.
// Malformed lines are reported in Skipped, not as errors.
func (s *ReviewStream) Next() (*ReviewBatch, error) {
	batch := &ReviewBatch{}
	for len(batch.Records) < s.batchSize {
		line, lineStart, err := s.sr.nextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			continue
		}
		record, decodeErr := core.DecodeReviewLine(line)
		if decodeErr != nil {
			batch.Skipped = append(batch.Skipped, RecordError{Offset: lineStart, Reason: decodeErr.Error()})
			continue
		}
		batch.Records = append(batch.Records, record)
		batch.Offsets = append(batch.Offsets, lineStart)
	}
	batch.Next = s.sr.offset
	if len(batch.Records) == 0 && len(batch.Skipped) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

func (s *ReviewStream) Close() error {
	return s.sr.Close()
}

// MetadataStream lazily yields batches of metadata records.
type MetadataStream struct {
	sr        *shardReader
	batchSize int
}

// OpenMetadataStream opens a stream over the shard's range.
func OpenMetadataStream(path string, shard Shard, batchSize int, resumeAt int64) (*MetadataStream, error) {
	start := shard.Start
	if resumeAt > start && resumeAt <= shard.End {
		start = resumeAt
	}
	sr, err := openShardReader(path, start, shard.End)
	if err != nil {
		return nil, err
	}
	return &MetadataStream{sr: sr, batchSize: batchSize}, nil
}

// Next returns the next batch, or io.EOF when the range is exhausted.
func (s *MetadataStream) Next() (*MetadataBatch, error) {
	batch := &MetadataBatch{}
	for len(batch.Records) < s.batchSize {
		line, lineStart, err := s.sr.nextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			continue
		}
		record, decodeErr := core.DecodeMetadataLine(line)
		if decodeErr != nil {
			batch.Skipped = append(batch.Skipped, RecordError{Offset: lineStart, Reason: decodeErr.Error()})
			continue
		}
		batch.Records = append(batch.Records, record)
	}
	batch.Next = s.sr.offset
	if len(batch.Records) == 0 && len(batch.Skipped) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

func (s *MetadataStream) Close() error {
	return s.sr.Close()
}
