package ros

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Time is a ROS time.
type Time struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// NewTime converts t, the zero time.Time becoming the zero ROS time.
func NewTime(t time.Time) Time {
	if t.IsZero() {
		return Time{}
	}
	return Time{Secs: t.Unix(), Nsecs: int64(t.Nanosecond())}
}

// Time converts to a time.Time, the zero ROS time becoming the zero time.Time.
func (t Time) Time() time.Time {
	if t.Secs == 0 && t.Nsecs == 0 {
		return time.Time{}
	}
	return time.Unix(t.Secs, t.Nsecs)
}

// Header is a std_msgs/Header.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// The sensor_msgs/PointField datatypes.
const (
	Int8    = 1
	Uint8   = 2
	Int16   = 3
	Uint16  = 4
	Int32   = 5
	Uint32  = 6
	Float32 = 7
	Float64 = 8
)

// PointField describes one channel of a PointCloud2 point.
type PointField struct {
	Name     string `json:"name"`
	Offset   uint32 `json:"offset"`
	Datatype uint8  `json:"datatype"`
	Count    uint32 `json:"count"`
}

// ByteData is uint8[] message data. It decodes from either a base64 string or an array
// of numbers and always encodes as base64.
type ByteData []byte

// UnmarshalJSON implements json.Unmarshaler.
func (b *ByteData) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var values []uint8
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return errors.Wrap(err, "decoding uint8 array")
		}
		*b = values
		return nil
	}
	var raw []byte
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return errors.Wrap(err, "decoding base64 data")
	}
	*b = raw
	return nil
}

// PointCloud2 is a sensor_msgs/PointCloud2.
type PointCloud2 struct {
	Header      Header       `json:"header"`
	Height      uint32       `json:"height"`
	Width       uint32       `json:"width"`
	Fields      []PointField `json:"fields"`
	IsBigendian bool         `json:"is_bigendian"`
	PointStep   uint32       `json:"point_step"`
	RowStep     uint32       `json:"row_step"`
	Data        ByteData     `json:"data"`
	IsDense     bool         `json:"is_dense"`
}

// PointCloud2Message is one JSON line of a topic, as rosbag writes them.
type PointCloud2Message struct {
	Meta Time        `json:"meta"`
	Data PointCloud2 `json:"data"`
}

// ParsePointCloud2Message parses one JSON line.
func ParsePointCloud2Message(line []byte) (*PointCloud2Message, error) {
	msg := &PointCloud2Message{}
	if err := json.Unmarshal(line, msg); err != nil {
		return nil, errors.Wrap(err, "parsing PointCloud2 message")
	}
	return msg, nil
}
