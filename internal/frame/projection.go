package frame

// SumAlongX sums the frame along the horizontal axis, producing one value
// per row (length = Height). For a rank-1 profile the projection is the
// identity. Accumulation is in float64 regardless of the source dtype.
func SumAlongX(img *Frame) []float64 {
	if img.IsProfile() {
		out := make([]float64, img.Width)
		copy(out, img.Data)
		return out
	}
	out := make([]float64, img.Height)
	for y := 0; y < img.Height; y++ {
		var sum float64
		row := img.Data[y*img.Width : (y+1)*img.Width]
		for _, v := range row {
			sum += v
		}
		out[y] = sum
	}
	return out
}

// SumAlongY sums the frame along the vertical axis, producing one value per
// column (length = Width). For a rank-1 profile the projection is the
// identity.
func SumAlongY(img *Frame) []float64 {
	out := make([]float64, img.Width)
	if img.IsProfile() {
		copy(out, img.Data)
		return out
	}
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*img.Width : (y+1)*img.Width]
		for x, v := range row {
			out[x] += v
		}
	}
	return out
}
