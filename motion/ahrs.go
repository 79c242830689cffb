package motion

import "math"

// Vec3 holds a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Orientation holds Euler angles derived from the AHRS quaternion.
type Orientation struct {
	Roll, Pitch, Yaw float64 // degrees
}

// AHRS is a Mahony attitude filter fed with gyroscope and accelerometer
// only. It integrates at a fixed nominal period.
type AHRS struct {
	Q [4]float64 // w, x, y, z

	kp   float64
	ki   float64
	errI Vec3
	dt   float64
	init bool
}

// NewAHRS creates an AHRS integrating every dt seconds.
func NewAHRS(dt float64) *AHRS {
	return &AHRS{
		Q:  [4]float64{1, 0, 0, 0},
		kp: 1.0,
		ki: 0.05,
		dt: dt,
	}
}

// seedTolerance is how far from 1 g the accelerometer may read for the
// sample to be taken as pure gravity.
const seedTolerance = 0.1

// ClearBias drops the integrated gyro bias correction. The attitude is
// kept: a sensor reset does not move the device.
func (a *AHRS) ClearBias() {
	a.errI = Vec3{}
}

// Update advances the estimate by one period. gyro is in °/s, accel in g.
// The first sample close to 1 g seeds the attitude; until then, and
// whenever the measured vector is too short to give a usable gravity
// direction, only the gyro is integrated.
func (a *AHRS) Update(gyro, accel Vec3) {
	gx := gyro.X * math.Pi / 180
	gy := gyro.Y * math.Pi / 180
	gz := gyro.Z * math.Pi / 180

	aNorm := math.Sqrt(accel.X*accel.X + accel.Y*accel.Y + accel.Z*accel.Z)
	if !a.init && math.Abs(aNorm-1) < seedTolerance {
		a.seed(accel.X/aNorm, accel.Y/aNorm, accel.Z/aNorm)
	}
	if a.init && aNorm >= 0.3 {
		inv := 1.0 / aNorm
		axN, ayN, azN := accel.X*inv, accel.Y*inv, accel.Z*inv

		qw, qx, qy, qz := a.Q[0], a.Q[1], a.Q[2], a.Q[3]

		// Gravity direction in the sensor frame from the estimate.
		vx := 2.0 * (qx*qz - qw*qy)
		vy := 2.0 * (qw*qx + qy*qz)
		vz := qw*qw - qx*qx - qy*qy + qz*qz

		// measured × estimated
		ex := ayN*vz - azN*vy
		ey := azN*vx - axN*vz
		ez := axN*vy - ayN*vx

		a.errI.X += a.ki * ex * a.dt
		a.errI.Y += a.ki * ey * a.dt
		a.errI.Z += a.ki * ez * a.dt

		gx += a.kp*ex + a.errI.X
		gy += a.kp*ey + a.errI.Y
		gz += a.kp*ez + a.errI.Z
	}

	qw, qx, qy, qz := a.Q[0], a.Q[1], a.Q[2], a.Q[3]
	hdt := 0.5 * a.dt
	dw := (-qx*gx - qy*gy - qz*gz) * hdt
	dx := (qw*gx + qy*gz - qz*gy) * hdt
	dy := (qw*gy - qx*gz + qz*gx) * hdt
	dz := (qw*gz + qx*gy - qy*gx) * hdt

	qw += dw
	qx += dx
	qy += dy
	qz += dz

	n := math.Sqrt(qw*qw + qx*qx + qy*qy + qz*qz)
	if n > 0 {
		inv := 1.0 / n
		qw *= inv
		qx *= inv
		qy *= inv
		qz *= inv
	}
	a.Q = [4]float64{qw, qx, qy, qz}
}

// seed sets roll and pitch from a unit gravity vector, yaw zero.
func (a *AHRS) seed(axN, ayN, azN float64) {
	roll0 := math.Atan2(ayN, azN)
	pitch0 := math.Atan2(-axN, math.Sqrt(ayN*ayN+azN*azN))
	cp := math.Cos(pitch0 * 0.5)
	sp := math.Sin(pitch0 * 0.5)
	cr := math.Cos(roll0 * 0.5)
	sr := math.Sin(roll0 * 0.5)
	a.Q = [4]float64{cr * cp, sr * cp, cr * sp, -sr * sp}
	a.init = true
}

// Orientation returns the current Euler angles.
func (a *AHRS) Orientation() Orientation {
	qw, qx, qy, qz := a.Q[0], a.Q[1], a.Q[2], a.Q[3]

	sinR := 2.0 * (qw*qx + qy*qz)
	cosR := 1.0 - 2.0*(qx*qx+qy*qy)
	roll := math.Atan2(sinR, cosR) * 180 / math.Pi

	sinP := 2.0 * (qw*qy - qz*qx)
	sinP = math.Max(-1, math.Min(1, sinP))
	pitch := math.Asin(sinP) * 180 / math.Pi

	sinY := 2.0 * (qw*qz + qx*qy)
	cosY := 1.0 - 2.0*(qy*qy+qz*qz)
	yaw := math.Atan2(sinY, cosY) * 180 / math.Pi

	return Orientation{Roll: roll, Pitch: pitch, Yaw: yaw}
}

// EarthAccel rotates accel (g, sensor frame) into the earth frame and
// removes gravity. A zero input gives a zero result on the X and Y axes.
func (a *AHRS) EarthAccel(accel Vec3) Vec3 {
	qw, qx, qy, qz := a.Q[0], a.Q[1], a.Q[2], a.Q[3]

	ex := (1-2*(qy*qy+qz*qz))*accel.X + 2*(qx*qy-qw*qz)*accel.Y + 2*(qx*qz+qw*qy)*accel.Z
	ey := 2*(qx*qy+qw*qz)*accel.X + (1-2*(qx*qx+qz*qz))*accel.Y + 2*(qy*qz-qw*qx)*accel.Z
	ez := 2*(qx*qz-qw*qy)*accel.X + 2*(qy*qz+qw*qx)*accel.Y + (1-2*(qx*qx+qy*qy))*accel.Z

	return Vec3{X: ex, Y: ey, Z: ez - 1}
}
