package ros

import (
	"encoding/binary"
	"image/color"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/tabletop/pointcloud"
)

// DefaultFrameID is the frame published clouds are expressed in.
const DefaultFrameID = "world"

func datatypeSize(datatype uint8) int {
	switch datatype {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

type fieldReader struct {
	offset   int
	datatype uint8
}

func (fr fieldReader) float(order binary.ByteOrder, point []byte) float64 {
	switch fr.datatype {
	case Float64:
		return math.Float64frombits(order.Uint64(point[fr.offset:]))
	default:
		return float64(math.Float32frombits(order.Uint32(point[fr.offset:])))
	}
}

// packed rgb is 0x00RRGGBB stored in the bits of a float32 or uint32.
func (fr fieldReader) color(order binary.ByteOrder, point []byte) color.NRGBA {
	packed := order.Uint32(point[fr.offset:])
	return color.NRGBA{R: uint8(packed >> 16), G: uint8(packed >> 8), B: uint8(packed), A: 255}
}

func findField(msg *PointCloud2, names ...string) (PointField, bool) {
	for _, f := range msg.Fields {
		for _, name := range names {
			if f.Name == name {
				return f, true
			}
		}
	}
	return PointField{}, false
}

func newFieldReader(msg *PointCloud2, f PointField, allowed ...uint8) (fieldReader, error) {
	ok := false
	for _, dt := range allowed {
		ok = ok || dt == f.Datatype
	}
	if !ok {
		return fieldReader{}, errors.Errorf("field %q has unsupported datatype %d", f.Name, f.Datatype)
	}
	if f.Count > 1 {
		return fieldReader{}, errors.Errorf("field %q has count %d, want 1", f.Name, f.Count)
	}
	if int(f.Offset)+datatypeSize(f.Datatype) > int(msg.PointStep) {
		return fieldReader{}, errors.Errorf("field %q overruns point step %d", f.Name, msg.PointStep)
	}
	return fieldReader{offset: int(f.Offset), datatype: f.Datatype}, nil
}

// DecodePointCloud2 converts a PointCloud2 message with float x, y and z fields, and
// optionally a packed rgb or rgba field, to a point cloud. Invalid points are kept;
// later stages skip them.
func DecodePointCloud2(msg *PointCloud2) (pointcloud.PointCloud, error) {
	if msg.PointStep == 0 {
		return nil, errors.New("point step must be positive")
	}
	axes := make([]fieldReader, 0, 3)
	for _, name := range []string{"x", "y", "z"} {
		f, ok := findField(msg, name)
		if !ok {
			return nil, errors.Errorf("missing field %q", name)
		}
		fr, err := newFieldReader(msg, f, Float32, Float64)
		if err != nil {
			return nil, err
		}
		axes = append(axes, fr)
	}
	var rgb *fieldReader
	if f, ok := findField(msg, "rgb", "rgba"); ok {
		fr, err := newFieldReader(msg, f, Float32, Uint32)
		if err != nil {
			return nil, err
		}
		rgb = &fr
	}

	// sizes are checked in uint64, where products of two uint32 cannot overflow
	width, height := uint64(msg.Width), uint64(msg.Height)
	rowStep, pointStep := uint64(msg.RowStep), uint64(msg.PointStep)
	rowBytes := width * pointStep
	if height > 1 && rowStep < rowBytes {
		return nil, errors.Errorf("row step %d is shorter than %d points of %d bytes", rowStep, width, pointStep)
	}
	if height == 1 && rowStep == 0 {
		rowStep = rowBytes
	}
	have := uint64(len(msg.Data))
	if width > 0 && height > 0 {
		if rowBytes > have || (height-1)*rowStep > have-rowBytes {
			return nil, errors.Errorf("data has %d bytes, a %dx%d cloud with row step %d and point step %d needs more",
				have, width, height, rowStep, pointStep)
		}
	}

	var order binary.ByteOrder = binary.LittleEndian
	if msg.IsBigendian {
		order = binary.BigEndian
	}

	cloud := pointcloud.NewWithPrealloc(int(min(width*height, have/pointStep)))
	for row := uint64(0); row < height; row++ {
		for col := uint64(0); col < width; col++ {
			start := row*rowStep + col*pointStep
			point := msg.Data[start : start+pointStep]
			p := r3.Vector{X: axes[0].float(order, point), Y: axes[1].float(order, point), Z: axes[2].float(order, point)}
			var d pointcloud.Data
			if rgb != nil {
				d = pointcloud.NewColoredData(rgb.color(order, point))
			}
			if err := cloud.Append(p, d); err != nil {
				return nil, err
			}
		}
	}
	return cloud, nil
}

// EncodePointCloud2 converts cloud to an unorganized little endian PointCloud2 with
// float32 x, y, z fields and a packed rgb field when the cloud has color.
func EncodePointCloud2(cloud pointcloud.PointCloud, header Header) *PointCloud2 {
	fields := []PointField{
		{Name: "x", Offset: 0, Datatype: Float32, Count: 1},
		{Name: "y", Offset: 4, Datatype: Float32, Count: 1},
		{Name: "z", Offset: 8, Datatype: Float32, Count: 1},
	}
	hasColor := cloud.MetaData().HasColor
	pointStep := 12
	if hasColor {
		fields = append(fields, PointField{Name: "rgb", Offset: 12, Datatype: Float32, Count: 1})
		pointStep = 16
	}

	data := make([]byte, cloud.Size()*pointStep)
	dense := true
	i := 0
	cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		point := data[i*pointStep : (i+1)*pointStep]
		binary.LittleEndian.PutUint32(point[0:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(point[4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(point[8:], math.Float32bits(float32(p.Z)))
		if hasColor && d != nil && d.HasColor() {
			r, g, b := d.RGB255()
			binary.LittleEndian.PutUint32(point[12:], uint32(r)<<16|uint32(g)<<8|uint32(b))
		}
		if math.IsNaN(p.X+p.Y+p.Z) || math.IsInf(p.X+p.Y+p.Z, 0) {
			dense = false
		}
		i++
		return true
	})

	return &PointCloud2{
		Header:    header,
		Height:    1,
		Width:     uint32(cloud.Size()),
		Fields:    fields,
		PointStep: uint32(pointStep),
		RowStep:   uint32(cloud.Size() * pointStep),
		Data:      data,
		IsDense:   dense,
	}
}

// NewHeader returns a header in the default frame.
func NewHeader(seq uint32, stamp time.Time) Header {
	return Header{Seq: seq, Stamp: NewTime(stamp), FrameID: DefaultFrameID}
}
