package checkpoint

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/varint"
)

// cursorMUS serializes Cursor values in the MUS format.
// Field order is fixed; bumping it requires a new version byte.
type cursorMUSSer struct{}

var cursorMUS = cursorMUSSer{}

const cursorFormatVersion = 1

func (cursorMUSSer) Size(c Cursor) int {
	size := varint.Int.Size(cursorFormatVersion)
	size += varint.Int.Size(c.ShardID)
	size += varint.Int64.Size(c.Offset)
	size += varint.Int64.Size(c.Processed)
	size += varint.Int64.Size(c.Skipped)
	size += varint.Int64.Size(c.UpdatedAt.UnixNano())
	return size
}

func (cursorMUSSer) Marshal(c Cursor, bs []byte) (n int) {
	n = varint.Int.Marshal(cursorFormatVersion, bs)
	n += varint.Int.Marshal(c.ShardID, bs[n:])
	n += varint.Int64.Marshal(c.Offset, bs[n:])
	n += varint.Int64.Marshal(c.Processed, bs[n:])
	n += varint.Int64.Marshal(c.Skipped, bs[n:])
	n += varint.Int64.Marshal(c.UpdatedAt.UnixNano(), bs[n:])
	return n
}

func (cursorMUSSer) Unmarshal(bs []byte) (c Cursor, n int, err error) {
	version, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return c, n, err
	}
	if version != cursorFormatVersion {
		return c, n, fmt.Errorf("unsupported cursor format version %d", version)
	}
	var n1 int
	c.ShardID, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Offset, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Processed, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Skipped, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	var nanos int64
	nanos, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.UpdatedAt = unixNano(nanos)
	return c, n, nil
}

func unixNano(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func marshalCursor(c *Cursor) []byte {
	buf := make([]byte, cursorMUS.Size(*c))
	cursorMUS.Marshal(*c, buf)
	return buf
}

func unmarshalCursor(data []byte) (*Cursor, error) {
	c, _, err := cursorMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
