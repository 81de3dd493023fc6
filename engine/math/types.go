package math

// Vec2 is a point or direction in clip space.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a vertex position. Z is carried through to the depth range untouched.
type Vec3 struct {
	X, Y, Z float32
}
