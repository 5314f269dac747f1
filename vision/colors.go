// Package vision holds helpers shared by the perception stages, such as the color
// palette used to tell segmented clouds apart.
package vision

import (
	"image/color"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"

	"go.viam.com/tabletop/pointcloud"
)

// goldenAngle spreads consecutive hues as far apart as possible.
const goldenAngle = 137.50776405003785

// Palette hands out a stable, visually distinct color per key. The same key always
// maps to the same color for the lifetime of the palette, so objects keep their color
// from one frame to the next. It is safe for concurrent use.
type Palette struct {
	mu         sync.Mutex
	assigned   map[string]color.NRGBA
	saturation float64
	value      float64
}

// NewPalette returns an empty palette.
func NewPalette() *Palette {
	return &Palette{
		assigned:   map[string]color.NRGBA{},
		saturation: 0.75,
		value:      0.95,
	}
}

// ColorFor returns the color assigned to key, assigning the next free one if needed.
func (p *Palette) ColorFor(key string) color.NRGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.assigned[key]; ok {
		return c
	}
	c := p.generate(len(p.assigned))
	p.assigned[key] = c
	return c
}

// Len returns the number of assigned colors.
func (p *Palette) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.assigned)
}

func (p *Palette) generate(i int) color.NRGBA {
	hue := math.Mod(float64(i)*goldenAngle, 360)
	r, g, b := colorful.Hsv(hue, p.saturation, p.value).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// ColorDistance returns the CIE94 distance between two colors, 0 meaning identical.
func ColorDistance(a, b color.Color) float64 {
	ca, _ := colorful.MakeColor(a)
	cb, _ := colorful.MakeColor(b)
	return ca.DistanceCIE94(cb)
}

// Tint returns a copy of cloud with every point painted c.
func Tint(cloud pointcloud.PointCloud, c color.NRGBA) (pointcloud.PointCloud, error) {
	out := pointcloud.NewWithPrealloc(cloud.Size())
	data := pointcloud.NewColoredData(c)
	var err error
	cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		err = out.Append(p, data)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
