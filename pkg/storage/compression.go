package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/vjranagit/healthdash/pkg/types"
)

const secondsPerDay = 24 * 60 * 60

var errTruncated = errors.New("truncated column")

// Codec encodes daily aggregate rows into compact zstd frames
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec with a compression level from 1 (fastest) to 4 (best)
func NewCodec(level int) (*Codec, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &Codec{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// EncodeDates stores dates as day numbers using delta-of-delta varints.
// Consecutive days encode as a run of zeros.
func (c *Codec) EncodeDates(rows []types.DailyAggregate) []byte {
	if len(rows) == 0 {
		return nil
	}

	buf := make([]byte, 0, len(rows)*2)
	var prevDay, prevDelta int64
	for i, row := range rows {
		day := dayNumber(row.Date)
		if i == 0 {
			buf = binary.AppendVarint(buf, day)
		} else {
			delta := day - prevDay
			buf = binary.AppendVarint(buf, delta-prevDelta)
			prevDelta = delta
		}
		prevDay = day
	}

	return c.encoder.EncodeAll(buf, make([]byte, 0, len(buf)))
}

// dayNumber counts days since the Unix epoch, rounding toward negative infinity
func dayNumber(t time.Time) int64 {
	secs := t.Unix()
	day := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		day--
	}
	return day
}

// DecodeDates reverses EncodeDates
func (c *Codec) DecodeDates(data []byte, count int) ([]time.Time, error) {
	if count == 0 {
		return []time.Time{}, nil
	}

	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}

	dates := make([]time.Time, count)
	var day, prevDelta int64
	for i := 0; i < count; i++ {
		v, n := binary.Varint(raw)
		if n <= 0 {
			return nil, errTruncated
		}
		raw = raw[n:]

		if i == 0 {
			day = v
		} else {
			delta := v + prevDelta
			day += delta
			prevDelta = delta
		}
		dates[i] = time.Unix(day*secondsPerDay, 0).UTC()
	}

	return dates, nil
}

// EncodeValues XORs each value's bits with its predecessor. Similar daily
// values share high bits, which zstd then squeezes out.
func (c *Codec) EncodeValues(rows []types.DailyAggregate) []byte {
	if len(rows) == 0 {
		return nil
	}

	buf := make([]byte, 0, len(rows)*8)
	var prevBits uint64
	for _, row := range rows {
		bits := math.Float64bits(row.Value)
		buf = binary.LittleEndian.AppendUint64(buf, bits^prevBits)
		prevBits = bits
	}

	return c.encoder.EncodeAll(buf, make([]byte, 0, len(buf)))
}

// DecodeValues reverses EncodeValues
func (c *Codec) DecodeValues(data []byte, count int) ([]float64, error) {
	if count == 0 {
		return []float64{}, nil
	}

	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	if len(raw) < count*8 {
		return nil, errTruncated
	}

	values := make([]float64, count)
	var prevBits uint64
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(raw[i*8:]) ^ prevBits
		values[i] = math.Float64frombits(bits)
		prevBits = bits
	}

	return values, nil
}

// EncodeRows encodes a table's rows into separate date and value columns
func (c *Codec) EncodeRows(rows []types.DailyAggregate) (dates, values []byte) {
	return c.EncodeDates(rows), c.EncodeValues(rows)
}

// DecodeRows rebuilds count rows from encoded columns
func (c *Codec) DecodeRows(dates, values []byte, count int) ([]types.DailyAggregate, error) {
	ds, err := c.DecodeDates(dates, count)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dates: %w", err)
	}
	vs, err := c.DecodeValues(values, count)
	if err != nil {
		return nil, fmt.Errorf("failed to decode values: %w", err)
	}

	rows := make([]types.DailyAggregate, count)
	for i := range rows {
		rows[i] = types.DailyAggregate{Date: ds[i], Value: vs[i]}
	}
	return rows, nil
}

// Close releases the codec resources
func (c *Codec) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
