package axis

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Move drives the given axes to their targets as one coordinated move.
//
// feedrate is the path speed in mm/s; 0 leaves each axis at its reference
// speed. Every axis is further limited by its own reference speed, accel/decel
// and jerk, and the move lasts as long as the slowest axis needs. Targets are
// checked against the axis travel before anything moves. Positions are only
// written once the move completes; a cancelled ctx leaves them unchanged.
func (c *Controller) Move(ctx context.Context, targets map[ID]float64, feedrate float64) error {
	type leg struct {
		axis   *Axis
		target float64
		dist   float64
		limits Settings
	}

	legs := make([]leg, 0, len(targets))
	var pathSq float64
	for id, target := range targets {
		a, err := c.axis(id)
		if err != nil {
			return err
		}
		if err := a.checkBounds(target); err != nil {
			return err
		}
		pos, limits := a.snapshot()
		d := math.Abs(target - pos)
		legs = append(legs, leg{axis: a, target: target, dist: d, limits: limits})
		pathSq += d * d
	}

	path := math.Sqrt(pathSq)
	var duration float64
	for _, l := range legs {
		if l.dist == 0 {
			continue
		}
		speed := l.limits.ReferenceSpeed
		if feedrate > 0 && path > 0 {
			// the axis only has to cover its share of the path speed
			speed = math.Min(speed, feedrate*l.dist/path)
		}
		if t := profileTime(l.dist, speed, l.limits.ReferenceAccelDecel, l.limits.ReferenceJerk); t > duration {
			duration = t
		}
	}

	c.metrics.MoveDuration(duration)
	if err := c.Wait(ctx, time.Duration(duration*float64(time.Second))); err != nil {
		return err
	}

	for _, l := range legs {
		l.axis.setPosition(l.target)
		c.metrics.AxisPosition(string(l.axis.id), l.target)
	}
	return nil
}

// Wait blocks for d scaled by the controller time scale, or until ctx is done.
func (c *Controller) Wait(ctx context.Context, d time.Duration) error {
	scaled := time.Duration(float64(d) * c.timeScale)
	if scaled <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(scaled)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("motion interrupted: %w", ctx.Err())
	}
}

// profileTime returns the seconds needed to travel dist with a symmetric
// trapezoidal velocity profile. A positive jerk lengthens each of the two
// ramps by accel/jerk.
func profileTime(dist, speed, accel, jerk float64) float64 {
	if dist <= 0 || speed <= 0 || accel <= 0 {
		return 0
	}

	var t float64
	if dist >= speed*speed/accel {
		// accelerate to speed, cruise, decelerate
		t = dist/speed + speed/accel
	} else {
		// triangular, peak speed never reached
		t = 2 * math.Sqrt(dist/accel)
	}
	if jerk > 0 {
		t += 2 * accel / jerk
	}
	return t
}
