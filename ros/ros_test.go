package ros

import (
	"context"
	"encoding/binary"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/transport"
)

func TestTopicKey(t *testing.T) {
	test.That(t, topicKey(DefaultCloudTopic), test.ShouldEqual, "sensor_stick_point_cloud")
	test.That(t, topicKey("Camera/Depth"), test.ShouldEqual, "camera_depth")
	test.That(t, TopicFileName(transport.TopicTable), test.ShouldEqual, "pcl_table.json")
	test.That(t, TopicFileName("/a/b/"), test.ShouldEqual, "a-b.json")
}

func TestByteData(t *testing.T) {
	msg, err := ParsePointCloud2Message([]byte(`{"meta":{"secs":1,"nsecs":2},"data":{"data":[1,2,255]}}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []byte(msg.Data.Data), test.ShouldResemble, []byte{1, 2, 255})
	test.That(t, msg.Meta, test.ShouldResemble, Time{Secs: 1, Nsecs: 2})

	msg, err = ParsePointCloud2Message([]byte(`{"data":{"data":"AQL/"}}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []byte(msg.Data.Data), test.ShouldResemble, []byte{1, 2, 255})

	_, err = ParsePointCloud2Message([]byte(`{"data":{"data":[1,2,256]}}`))
	test.That(t, err, test.ShouldNotBeNil)
}

// bigEndianCloud has float64 coordinates with a padding byte and a uint32 rgba field.
func bigEndianCloud() *PointCloud2 {
	const pointStep = 32
	points := []r3.Vector{{X: 1, Y: 2, Z: 3}, {X: -0.5, Y: 0.25, Z: 0.8}}
	data := make([]byte, len(points)*pointStep)
	for i, p := range points {
		point := data[i*pointStep:]
		binary.BigEndian.PutUint64(point[0:], math.Float64bits(p.X))
		binary.BigEndian.PutUint64(point[8:], math.Float64bits(p.Y))
		binary.BigEndian.PutUint64(point[16:], math.Float64bits(p.Z))
		binary.BigEndian.PutUint32(point[28:], 0xFF102030)
	}
	return &PointCloud2{
		Height: 1,
		Width:  uint32(len(points)),
		Fields: []PointField{
			{Name: "x", Offset: 0, Datatype: Float64, Count: 1},
			{Name: "y", Offset: 8, Datatype: Float64, Count: 1},
			{Name: "z", Offset: 16, Datatype: Float64, Count: 1},
			{Name: "rgba", Offset: 28, Datatype: Uint32, Count: 1},
		},
		IsBigendian: true,
		PointStep:   pointStep,
		RowStep:     uint32(len(points) * pointStep),
		Data:        data,
	}
}

func TestDecodePointCloud2(t *testing.T) {
	cloud, err := DecodePointCloud2(bigEndianCloud())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	p, d := cloud.At(1)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: -0.5, Y: 0.25, Z: 0.8})
	r, g, b := d.RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{0x10, 0x20, 0x30})

	t.Run("organized", func(t *testing.T) {
		msg := bigEndianCloud()
		msg.Height, msg.Width, msg.RowStep = 2, 1, 32
		cloud, err := DecodePointCloud2(msg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cloud.Size(), test.ShouldEqual, 2)
	})

	for name, mutate := range map[string]func(m *PointCloud2){
		"missing z":     func(m *PointCloud2) { m.Fields = m.Fields[:2] },
		"int x":         func(m *PointCloud2) { m.Fields[0].Datatype = Int32 },
		"short data":    func(m *PointCloud2) { m.Data = m.Data[:40] },
		"zero step":     func(m *PointCloud2) { m.PointStep = 0 },
		"overrun":       func(m *PointCloud2) { m.Fields[3].Offset = 30 },
		"short row":     func(m *PointCloud2) { m.Height, m.RowStep = 2, 16 },
		"multi channel": func(m *PointCloud2) { m.Fields[1].Count = 3 },
		"huge height": func(m *PointCloud2) {
			m.Height, m.Width, m.RowStep, m.Data = math.MaxUint32, 1, math.MaxUint32, m.Data[:12]
		},
		"huge width": func(m *PointCloud2) { m.Height, m.Width, m.RowStep = 1, math.MaxUint32, 0 },
		"huge organized": func(m *PointCloud2) {
			m.Height, m.Width, m.RowStep = math.MaxUint32, math.MaxUint32, math.MaxUint32
		},
	} {
		t.Run(name, func(t *testing.T) {
			msg := bigEndianCloud()
			mutate(msg)
			_, err := DecodePointCloud2(msg)
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestEncodePointCloud2(t *testing.T) {
	cloud := pointcloud.New()
	test.That(t, cloud.Append(r3.Vector{X: 0.5, Y: -1, Z: 0.75}, pointcloud.NewColoredData(color.NRGBA{R: 200, G: 100, B: 50, A: 255})), test.ShouldBeNil)
	test.That(t, cloud.Append(r3.Vector{X: 1, Y: 2, Z: 3}, pointcloud.NewColoredData(color.NRGBA{R: 1, G: 2, B: 3, A: 255})), test.ShouldBeNil)

	stamp := time.Unix(1700000000, 5000)
	msg := EncodePointCloud2(cloud, NewHeader(7, stamp))
	test.That(t, msg.PointStep, test.ShouldEqual, 16)
	test.That(t, msg.RowStep, test.ShouldEqual, 32)
	test.That(t, msg.Header.FrameID, test.ShouldEqual, DefaultFrameID)
	test.That(t, msg.Header.Stamp.Time().Equal(stamp), test.ShouldBeTrue)
	test.That(t, msg.IsDense, test.ShouldBeTrue)

	decoded, err := DecodePointCloud2(msg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointcloud.CloudPositions(decoded), test.ShouldResemble, pointcloud.CloudPositions(cloud))
	_, d := decoded.At(0)
	r, g, b := d.RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{200, 100, 50})

	plain := pointcloud.New()
	test.That(t, plain.Append(r3.Vector{X: math.NaN()}, nil), test.ShouldBeNil)
	msg = EncodePointCloud2(plain, Header{})
	test.That(t, msg.Fields, test.ShouldHaveLength, 3)
	test.That(t, msg.IsDense, test.ShouldBeFalse)
}

func TestJSONSinkAndSource(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONSink(dir)
	test.That(t, err, test.ShouldBeNil)

	cloud := pointcloud.New()
	test.That(t, cloud.Append(r3.Vector{X: 0.25, Y: 0.5, Z: 0.75}, nil), test.ShouldBeNil)
	stamp := time.Unix(1700000000, 0)
	for seq := uint64(0); seq < 2; seq++ {
		frame := transport.NewFrame(seq, "test", stamp, cloud)
		test.That(t, sink.Publish(context.Background(), transport.TopicObjects, frame), test.ShouldBeNil)
	}
	test.That(t, sink.Close(), test.ShouldBeNil)

	source, err := NewJSONSource(filepath.Join(dir, TopicFileName(transport.TopicObjects)))
	test.That(t, err, test.ShouldBeNil)
	for seq := uint64(0); seq < 2; seq++ {
		frame, err := source.Next(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, frame.Seq, test.ShouldEqual, seq)
		test.That(t, frame.Stamp.Equal(stamp), test.ShouldBeTrue)
		test.That(t, pointcloud.CloudPositions(frame.Cloud), test.ShouldResemble, pointcloud.CloudPositions(cloud))
	}
	_, err = source.Next(context.Background())
	test.That(t, errors.Is(err, io.EOF), test.ShouldBeTrue)
	test.That(t, source.Close(), test.ShouldBeNil)

	_, err = NewBagSource(filepath.Join(dir, "missing.bag"), "")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestJSONSourceSkipsBadMessages(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONSink(dir)
	test.That(t, err, test.ShouldBeNil)
	cloud := pointcloud.New()
	test.That(t, cloud.Append(r3.Vector{X: 0.25, Y: 0.5, Z: 0.75}, nil), test.ShouldBeNil)
	frame := transport.NewFrame(0, "test", time.Unix(1700000000, 0), cloud)
	test.That(t, sink.Publish(context.Background(), transport.TopicTable, frame), test.ShouldBeNil)
	test.That(t, sink.Close(), test.ShouldBeNil)

	good, err := os.ReadFile(filepath.Join(dir, TopicFileName(transport.TopicTable)))
	test.That(t, err, test.ShouldBeNil)
	lines := append([]byte("not json\n{\"meta\":{},\"data\":{\"point_step\":0}}\n"), good...)
	fn := filepath.Join(dir, "mixed.json")
	test.That(t, os.WriteFile(fn, lines, 0o600), test.ShouldBeNil)

	source, err := NewJSONSource(fn)
	test.That(t, err, test.ShouldBeNil)
	for seq := uint64(0); seq < 2; seq++ {
		_, err = source.Next(context.Background())
		test.That(t, errors.Is(err, transport.ErrFrameDecode), test.ShouldBeTrue)
		var decodeErr *transport.FrameDecodeError
		test.That(t, errors.As(err, &decodeErr), test.ShouldBeTrue)
		test.That(t, decodeErr.Seq, test.ShouldEqual, seq)
	}
	got, err := source.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Seq, test.ShouldEqual, 2)
	test.That(t, pointcloud.CloudPositions(got.Cloud), test.ShouldResemble, pointcloud.CloudPositions(cloud))
	_, err = source.Next(context.Background())
	test.That(t, errors.Is(err, io.EOF), test.ShouldBeTrue)
}
