package math

const (
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Compare(o Vec2, tolerance float32) bool {
	return Abs(v.X-o.X) <= tolerance && Abs(v.Y-o.Y) <= tolerance
}

// Cross returns the z component of the 3D cross product of two 2D vectors.
func (v Vec2) Cross(o Vec2) float32 {
	return v.X*o.Y - v.Y*o.X
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) XY() Vec2 {
	return Vec2{X: v.X, Y: v.Y}
}

func Abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// SignedArea2D returns twice the signed area of the triangle abc. It is
// positive when the points wind counter-clockwise in a y-up space.
func SignedArea2D(a, b, c Vec2) float32 {
	return b.Sub(a).Cross(c.Sub(a))
}
