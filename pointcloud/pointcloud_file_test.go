package pointcloud

import (
	"bytes"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPCDRoundTrip(t *testing.T) {
	cloud := New()
	test.That(t, cloud.Append(NewVector(0.5, -1.25, 0.75), NewColoredData(color.NRGBA{R: 10, G: 20, B: 30, A: 255})), test.ShouldBeNil)
	test.That(t, cloud.Append(NewVector(1, 2, 3), NewColoredData(color.NRGBA{R: 255, G: 128, B: 0, A: 255})), test.ShouldBeNil)

	for _, pcdType := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, ToPCD(cloud, &buf, pcdType), test.ShouldBeNil)
		got, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Size(), test.ShouldEqual, 2)
		for i := 0; i < 2; i++ {
			p, d := got.At(i)
			q, e := cloud.At(i)
			test.That(t, p.X, test.ShouldAlmostEqual, q.X, 1e-6)
			test.That(t, p.Y, test.ShouldAlmostEqual, q.Y, 1e-6)
			test.That(t, p.Z, test.ShouldAlmostEqual, q.Z, 1e-6)
			r1, g1, b1 := d.RGB255()
			r2, g2, b2 := e.RGB255()
			test.That(t, []uint8{r1, g1, b1}, test.ShouldResemble, []uint8{r2, g2, b2})
		}
	}
}

func TestReadPCDFloatRGB(t *testing.T) {
	// PCL writes rgb as a float holding the packed color bits
	in := `# .PCD v0.7 - Point Cloud Data file format
VERSION 0.7
FIELDS x y z rgb
SIZE 4 4 4 4
TYPE F F F F
COUNT 1 1 1 1
WIDTH 2
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 2
DATA ascii
0.1 0.2 0.8 4.2108e+06
0.3 0.4 0.9 2.3418052e-38
`
	cloud, err := ReadPCD(strings.NewReader(in))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	p, d := cloud.At(0)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 0.1, Y: 0.2, Z: 0.8})
	test.That(t, d.HasColor(), test.ShouldBeTrue)
}

func TestReadPCDErrors(t *testing.T) {
	_, err := ReadPCD(strings.NewReader("VERSION .6\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported pcd version")

	truncated := "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 2\nHEIGHT 1\n" +
		"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 2\nDATA ascii\n1 2 3\n"
	_, err = ReadPCD(strings.NewReader(truncated))
	test.That(t, err, test.ShouldNotBeNil)

	mismatch := "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 2\nHEIGHT 1\n" +
		"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 3\nDATA ascii\n"
	_, err = ReadPCD(strings.NewReader(mismatch))
	test.That(t, err.Error(), test.ShouldContainSubstring, "does not match")
}

func TestPCDFile(t *testing.T) {
	cloud := makeCloud(NewVector(0, 0, 0.7), NewVector(0.1, 0, 0.7))
	fn := filepath.Join(t.TempDir(), "frame.pcd")
	test.That(t, WriteToFile(cloud, fn, PCDBinary), test.ShouldBeNil)
	test.That(t, IsSupportedFile(fn), test.ShouldBeTrue)

	got, err := NewFromFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, 2)
	test.That(t, got.MetaData().HasColor, test.ShouldBeFalse)

	_, err = NewFromFile(filepath.Join(t.TempDir(), "frame.ply"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how to read")
}

func TestLASFile(t *testing.T) {
	dir := t.TempDir()
	colored := New()
	test.That(t, colored.Append(NewVector(0.5, -1.25, 0.75), NewColoredData(color.NRGBA{R: 10, G: 20, B: 30, A: 255})), test.ShouldBeNil)
	test.That(t, colored.Append(NewVector(1, 2, 3), NewColoredData(color.NRGBA{R: 255, G: 128, B: 0, A: 255})), test.ShouldBeNil)
	test.That(t, colored.Append(NewVector(0.1, 0.2, 0.3), nil), test.ShouldBeNil)

	fn := filepath.Join(dir, "frame.las")
	test.That(t, WriteToFile(colored, fn, PCDBinary), test.ShouldBeNil)
	test.That(t, IsSupportedFile(fn), test.ShouldBeTrue)
	got, err := NewFromFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, 3)
	test.That(t, got.MetaData().HasColor, test.ShouldBeTrue)
	for i := 0; i < 3; i++ {
		p, _ := got.At(i)
		q, _ := colored.At(i)
		test.That(t, p.X, test.ShouldAlmostEqual, q.X, 1e-3)
		test.That(t, p.Y, test.ShouldAlmostEqual, q.Y, 1e-3)
		test.That(t, p.Z, test.ShouldAlmostEqual, q.Z, 1e-3)
	}
	_, d := got.At(1)
	r, g, b := d.RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{255, 128, 0})
	_, d = got.At(2)
	r, g, b = d.RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{255, 255, 255})

	plainFn := filepath.Join(dir, "plain.las")
	test.That(t, WriteToLASFile(makeCloud(NewVector(0, 0, 0.7), NewVector(0.1, 0, 0.7)), plainFn), test.ShouldBeNil)
	plain, err := NewFromLASFile(plainFn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plain.Size(), test.ShouldEqual, 2)
	test.That(t, plain.MetaData().HasColor, test.ShouldBeFalse)

	err = WriteToLASFile(New(), filepath.Join(dir, "empty.las"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "empty point cloud")

	_, err = NewFromFile(filepath.Join(dir, "missing.las"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.las")
}
