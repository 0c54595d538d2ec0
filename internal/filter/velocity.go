// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import (
	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/log"
)

const stateSize = 6 // [vx, ax, vy, ay, vz, az]

// EstimatorParams configures a VelocityEstimator. Durations are seconds.
type EstimatorParams struct {
	Dt                float64 // fixed sampling interval
	ProcessNoise      float64 // velocity process noise variance
	AccelNoiseRatio   float64 // acceleration process noise = ProcessNoise * ratio
	MeasurementNoise  float64 // acceleration measurement noise variance
	InitialCovariance float64 // diagonal prior
	IdleThreshold     float64 // horizontal |a| below this counts as idle
	IdleDuration      float64 // idle time after which state is reset
}

// DefaultEstimatorParams matches a 100 Hz sampling loop.
func DefaultEstimatorParams() EstimatorParams {
	return EstimatorParams{
		Dt:                0.01,
		ProcessNoise:      1e-3,
		AccelNoiseRatio:   10,
		MeasurementNoise:  0.1,
		InitialCovariance: 100,
		IdleThreshold:     0.15,
		IdleDuration:      0.5,
	}
}

// VelocityEstimator is a Kalman filter with a constant-acceleration model
// per axis. Acceleration is measured, velocity is inferred.
//
// Not safe for concurrent use.
type VelocityEstimator struct {
	params EstimatorParams

	f *mat.Dense // 6x6 transition
	q *mat.Dense // 6x6 process noise
	h *mat.Dense // 3x6 observation
	r *mat.Dense // 3x3 measurement noise

	x *mat.VecDense
	p *mat.Dense

	idle float64
}

func NewVelocityEstimator(params EstimatorParams) *VelocityEstimator {
	dt := params.Dt
	f := mat.NewDense(stateSize, stateSize, nil)
	q := mat.NewDense(stateSize, stateSize, nil)
	h := mat.NewDense(3, stateSize, nil)
	for axis := 0; axis < 3; axis++ {
		v, a := 2*axis, 2*axis+1
		// v' = v + a*dt, a' = a
		f.Set(v, v, 1)
		f.Set(v, a, dt)
		f.Set(a, a, 1)

		q.Set(v, v, params.ProcessNoise)
		q.Set(a, a, params.ProcessNoise*params.AccelNoiseRatio)

		h.Set(axis, a, 1)
	}
	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		r.Set(i, i, params.MeasurementNoise)
	}

	e := &VelocityEstimator{
		params: params,
		f:      f,
		q:      q,
		h:      h,
		r:      r,
		x:      mat.NewVecDense(stateSize, nil),
		p:      mat.NewDense(stateSize, stateSize, nil),
	}
	e.Reset()
	return e
}

// Reset restores zero state, the diagonal prior and clears the idle timer.
func (e *VelocityEstimator) Reset() {
	e.x.Zero()
	e.p.Zero()
	for i := 0; i < stateSize; i++ {
		e.p.Set(i, i, e.params.InitialCovariance)
	}
	e.idle = 0
}

// Apply feeds one acceleration sample and returns the velocity estimate.
// When the horizontal acceleration has stayed under IdleThreshold for longer
// than IdleDuration the filter is reset and zero velocity is returned.
func (e *VelocityEstimator) Apply(accel imu.Vec3) imu.Vec3 {
	if accel.HorizontalNorm() < e.params.IdleThreshold {
		e.idle += e.params.Dt
	} else {
		e.idle = 0
	}
	if e.idle > e.params.IdleDuration {
		log.Debug("filter: idle timeout, resetting velocity estimator", "idle", e.idle)
		e.Reset()
		return imu.Vec3{}
	}

	// Predict.
	var xPred mat.VecDense
	xPred.MulVec(e.f, e.x)
	var fp, pPred mat.Dense
	fp.Mul(e.f, e.p)
	pPred.Mul(&fp, e.f.T())
	pPred.Add(&pPred, e.q)

	// Residual against the acceleration sub-state.
	z := mat.NewVecDense(3, []float64{accel[0], accel[1], accel[2]})
	var hx, y mat.VecDense
	hx.MulVec(e.h, &xPred)
	y.SubVec(z, &hx)

	// Gain.
	var hp, s, sInv mat.Dense
	hp.Mul(e.h, &pPred)
	s.Mul(&hp, e.h.T())
	s.Add(&s, e.r)
	if err := sInv.Inverse(&s); err != nil {
		log.Warn("filter: innovation covariance not invertible, skipping update", "err", err)
		e.x.CopyVec(&xPred)
		e.p.Copy(&pPred)
		return e.Velocity()
	}
	var pht, k mat.Dense
	pht.Mul(&pPred, e.h.T())
	k.Mul(&pht, &sInv)

	// Correct.
	var ky mat.VecDense
	ky.MulVec(&k, &y)
	e.x.AddVec(&xPred, &ky)

	var kh mat.Dense
	kh.Mul(&k, e.h)
	ikh := identity(stateSize)
	ikh.Sub(ikh, &kh)
	e.p.Mul(ikh, &pPred)

	return e.Velocity()
}

// Velocity returns the current velocity estimate.
func (e *VelocityEstimator) Velocity() imu.Vec3 {
	return imu.Vec3{e.x.AtVec(0), e.x.AtVec(2), e.x.AtVec(4)}
}

// Acceleration returns the current acceleration estimate.
func (e *VelocityEstimator) Acceleration() imu.Vec3 {
	return imu.Vec3{e.x.AtVec(1), e.x.AtVec(3), e.x.AtVec(5)}
}

// Covariance returns a copy of the state covariance.
func (e *VelocityEstimator) Covariance() *mat.Dense {
	return mat.DenseCopyOf(e.p)
}

// IdleTime returns how long the input has been below the idle threshold.
func (e *VelocityEstimator) IdleTime() float64 { return e.idle }

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
