package client

import (
	"math"

	"voxelarena/protocol"
)

// GroundProbe 向下射线检测
type GroundProbe interface {
	// CastDown 从 origin 竖直向下投射长度 maxDist 的射线，返回命中距离
	CastDown(origin protocol.Vec3, maxDist float64) (dist float64, hit bool)
}

// MoveFlags 相互独立的方向输入
type MoveFlags struct {
	Forward, Backward, Left, Right bool
}

func (f MoveFlags) any() bool { return f.Forward || f.Backward || f.Left || f.Right }

// Tuning 移动参数。MaxSpeed 为 0 表示不限速：按住方向键时水平速度会持续增长
type Tuning struct {
	Accel           float64 // 有输入时每秒加速度
	Damping         float64 // 无输入时每秒衰减系数
	Gravity         float64
	JumpImpulse     float64
	GroundRayLength float64
	MaxSpeed        float64
	LookSensitivity float64 // 每像素弧度
}

func DefaultTuning() Tuning {
	return Tuning{
		Accel:           400,
		Damping:         10,
		Gravity:         980,
		JumpImpulse:     350,
		GroundRayLength: 2,
		LookSensitivity: 0.002,
	}
}

// Controller 本地化身：{grounded, airborne} 状态 + 方向输入 + 相机 yaw/pitch
type Controller struct {
	Position protocol.Vec3
	Velocity protocol.Vec3
	Yaw      float64
	Pitch    float64
	Input    MoveFlags

	tuning   Tuning
	grounded bool
	canJump  bool
}

func NewController(start protocol.Vec3, tuning Tuning) *Controller {
	return &Controller{Position: start, tuning: tuning}
}

// Grounded 最近一次 Step 的地面检测结果
func (c *Controller) Grounded() bool { return c.grounded }

// CanJump 本次着地期间是否还能起跳
func (c *Controller) CanJump() bool { return c.canJump }

// Look 鼠标位移转为 yaw/pitch，pitch 限制在 ±π/2
func (c *Controller) Look(dx, dy float64) {
	c.Yaw -= dx * c.tuning.LookSensitivity
	c.Pitch -= dy * c.tuning.LookSensitivity
	c.Pitch = math.Max(-math.Pi/2, math.Min(math.Pi/2, c.Pitch))
}

// Jump 每次着地只允许一次起跳
func (c *Controller) Jump() bool {
	if !c.canJump {
		return false
	}
	c.Velocity.Y += c.tuning.JumpImpulse
	c.canJump = false
	return true
}

// Forward 相机朝向在水平面上的前方（yaw=0 时朝 -Z）
func (c *Controller) Forward() protocol.Vec3 {
	return protocol.Vec3{X: -math.Sin(c.Yaw), Z: -math.Cos(c.Yaw)}
}

// Right 相机朝向在水平面上的右方
func (c *Controller) Right() protocol.Vec3 {
	return protocol.Vec3{X: math.Cos(c.Yaw), Z: -math.Sin(c.Yaw)}
}

// Step 推进 dt 秒
func (c *Controller) Step(dt float64, probe GroundProbe) {
	if dt <= 0 {
		return
	}
	t := c.tuning

	_, c.grounded = probe.CastDown(c.Position, t.GroundRayLength)
	c.Velocity.Y -= t.Gravity * dt
	// 起跳后仍在射线范围内的那一帧速度向上，不重新获得起跳机会
	if c.grounded && c.Velocity.Y <= 0 {
		c.Velocity.Y = 0
		c.canJump = true
	}

	c.stepHorizontal(dt)

	c.Position.X += c.Velocity.X * dt
	c.Position.Z += c.Velocity.Z * dt
	c.stepVertical(dt, probe)
}

func (c *Controller) stepHorizontal(dt float64) {
	t := c.tuning
	if !c.Input.any() {
		k := math.Min(1, t.Damping*dt)
		c.Velocity.X -= c.Velocity.X * k
		c.Velocity.Z -= c.Velocity.Z * k
		return
	}

	var fwd, side float64
	if c.Input.Forward {
		fwd++
	}
	if c.Input.Backward {
		fwd--
	}
	if c.Input.Right {
		side++
	}
	if c.Input.Left {
		side--
	}
	if n := math.Hypot(fwd, side); n > 0 {
		fwd, side = fwd/n, side/n
	}
	dir := c.Forward().Scale(fwd).Add(c.Right().Scale(side))
	c.Velocity.X += dir.X * t.Accel * dt
	c.Velocity.Z += dir.Z * t.Accel * dt

	if t.MaxSpeed > 0 {
		if speed := math.Hypot(c.Velocity.X, c.Velocity.Z); speed > t.MaxSpeed {
			c.Velocity.X *= t.MaxSpeed / speed
			c.Velocity.Z *= t.MaxSpeed / speed
		}
	}
}

// stepVertical 下落时不会穿过射线可见的表面：落到表面上方 GroundRayLength 处并清零竖直速度
func (c *Controller) stepVertical(dt float64, probe GroundProbe) {
	fall := -c.Velocity.Y * dt
	if fall <= 0 {
		c.Position.Y += c.Velocity.Y * dt
		return
	}
	reach := c.tuning.GroundRayLength
	if d, hit := probe.CastDown(c.Position, reach+fall); hit && d-fall < reach {
		c.Position.Y -= math.Max(0, d-reach)
		c.Velocity.Y = 0
		return
	}
	c.Position.Y -= fall
}
