package entropy

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 mixes a seed and a tile coordinate into a well-distributed value.
func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9))
}

// Unit2 maps Hash2 onto [0, 1). salt separates independent uses of the
// same coordinate.
func Unit2(seed int64, salt uint64, x, y int) float64 {
	h := Hash2(seed^int64(mix64(salt)), x, y)
	return float64(h>>11) / float64(1<<53)
}
