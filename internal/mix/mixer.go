package mix

import "github.com/petems/echo-capture/internal/audio"

// Combine applies the origin's combination policy to the drained buffers.
// Single-source origins pass their samples through untouched; Both averages
// the two streams index by index, treating the shorter one as silence.
func Combine(origin audio.Origin, mic, sys []float32) []float32 {
	switch origin {
	case audio.OriginMicrophone:
		return mic
	case audio.OriginSystem:
		return sys
	}

	n := max(len(mic), len(sys))
	mixed := make([]float32, n)

	for i := 0; i < n; i++ {
		var m, s float32
		if i < len(mic) {
			m = mic[i]
		}
		if i < len(sys) {
			s = sys[i]
		}
		mixed[i] = clamp((m + s) / 2)
	}

	return mixed
}

// Float32ToInt16 clamps x to [-1, 1] and scales it by the largest positive
// int16, truncating toward zero.
func Float32ToInt16(x float32) int16 {
	return int16(clamp(x) * 32767.0)
}

func clamp(x float32) float32 {
	if x != x {
		return 0
	}
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
