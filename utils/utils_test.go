package utils

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestAngles(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, RadToDeg(DegToRad(37.5)), test.ShouldAlmostEqual, 37.5)
	test.That(t, Float64AlmostEqual(1, 1.0005, 1e-3), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.01, 1e-3), test.ShouldBeFalse)
}

func TestStoppableWorkers(t *testing.T) {
	var count atomic.Int32
	wait := func(ctx context.Context) {
		count.Add(1)
		<-ctx.Done()
	}
	sw := NewStoppableWorkers(wait, wait)
	sw.AddWorkers(wait)
	sw.Stop()
	test.That(t, count.Load(), test.ShouldEqual, 3)
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	// no-op once stopped
	sw.AddWorkers(wait)
	test.That(t, count.Load(), test.ShouldEqual, 3)

	parent, cancel := context.WithCancel(context.Background())
	sw = NewStoppableWorkersWithContext(parent, wait)
	cancel()
	<-sw.Context().Done()
	sw.Stop()
	test.That(t, count.Load(), test.ShouldEqual, 4)
}
