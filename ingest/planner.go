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
	"fmt"
	"io"
	"os"
)

// Shard is one worker's slice of the input file. Shards are contiguous,
// pairwise disjoint, ordered by ID, and together cover the whole file.
// Start and End are byte offsets; End is exclusive and falls on a line
// boundary. Records is the number of lines within the range.
type Shard struct {
	ID      int
	Device  int
	Start   int64
	End     int64
	Records int64
}

// PlanShards partitions the file at path into count shards whose record
// counts differ by at most one. The file is scanned twice (count, then
// boundary offsets); it is never loaded into memory. A positive
// maxRecords caps planning to the first maxRecords lines, used by
// test/dry-run mode. Returns ErrInvalidWorkerCount for count <= 0 and
// ErrEmptyInput for a file with no records.
func PlanShards(path string, count int, maxRecords int64) ([]Shard, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, count)
	}

	total, err := countRecords(path)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, path)
	}
	if maxRecords > 0 && total > maxRecords {
		total = maxRecords
	}

	// More shards than records would leave empty shards; cap instead.
	if int64(count) > total {
		count = int(total)
	}

	perShard := splitRecords(total, count)
	return scanBoundaries(path, perShard)
}

// splitRecords divides total records among count shards as evenly as
// possible. The first total%count shards get one extra record.
func splitRecords(total int64, count int) []int64 {
	base := total / int64(count)
	extra := total % int64(count)

	counts := make([]int64, count)
	for i := range counts {
		counts[i] = base
		if int64(i) < extra {
			counts[i]++
		}
	}
	return counts
}

// countRecords counts the lines in the file. A final line without a
// trailing newline still counts.
func countRecords(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var total int64
	endedWithNewline := true
	buf := make([]byte, 256*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				if b == '\n' {
					total++
				}
			}
			endedWithNewline = buf[n-1] == '\n'
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if !endedWithNewline {
		total++
	}
	return total, nil
}

// scanBoundaries walks the file once more, recording the byte offset at
// which each shard's record range begins and ends.
func scanBoundaries(path string, perShard []int64) ([]Shard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	shards := make([]Shard, len(perShard))
	reader := bufio.NewReaderSize(f, 256*1024)

	var offset int64
	for i, records := range perShard {
		shards[i] = Shard{ID: i, Device: i, Start: offset, Records: records}
		for consumed := int64(0); consumed < records; consumed++ {
			n, err := skipLine(reader)
			offset += n
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
		}
		shards[i].End = offset
	}
	return shards, nil
}

// skipLine advances past one line, returning the number of bytes consumed
// including the newline. io.EOF with n > 0 means a final unterminated line.
func skipLine(reader *bufio.Reader) (int64, error) {
	var n int64
	for {
		chunk, err := reader.ReadSlice('\n')
		n += int64(len(chunk))
		if err == bufio.ErrBufferFull {
			continue
		}
		return n, err
	}
}
