package vision

import (
	"image/color"
	"testing"

	"go.viam.com/test"

	"go.viam.com/tabletop/pointcloud"
)

func TestPaletteStable(t *testing.T) {
	p := NewPalette()
	table := p.ColorFor("/pcl_table")
	objects := p.ColorFor("/pcl_objects")
	test.That(t, p.ColorFor("/pcl_table"), test.ShouldResemble, table)
	test.That(t, p.Len(), test.ShouldEqual, 2)
	test.That(t, table.A, test.ShouldEqual, uint8(255))

	test.That(t, ColorDistance(table, objects), test.ShouldBeGreaterThan, 0.1)
	test.That(t, ColorDistance(table, table), test.ShouldAlmostEqual, 0.)
}

func TestPaletteDistinct(t *testing.T) {
	p := NewPalette()
	colors := make([]color.NRGBA, 0, 8)
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		colors = append(colors, p.ColorFor(key))
	}
	for i := range colors {
		for j := i + 1; j < len(colors); j++ {
			test.That(t, colors[i], test.ShouldNotResemble, colors[j])
		}
	}
}

func TestTint(t *testing.T) {
	cloud := pointcloud.New()
	test.That(t, cloud.Append(pointcloud.NewVector(0, 0, 1), nil), test.ShouldBeNil)
	test.That(t, cloud.Append(pointcloud.NewVector(1, 0, 1), nil), test.ShouldBeNil)

	c := color.NRGBA{R: 1, G: 2, B: 3, A: 255}
	tinted, err := Tint(cloud, c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tinted.Size(), test.ShouldEqual, 2)
	test.That(t, tinted.MetaData().HasColor, test.ShouldBeTrue)
	p, d := tinted.At(1)
	test.That(t, p, test.ShouldResemble, pointcloud.NewVector(1, 0, 1))
	r, g, b := d.RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{1, 2, 3})
	test.That(t, cloud.MetaData().HasColor, test.ShouldBeFalse)
}
