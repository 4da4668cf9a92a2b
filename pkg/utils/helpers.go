package utils

import "math"

const earthRadiusKm = 6371

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Haversine returns the great-circle distance between two points in kilometers
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLon/2), 2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(min(h, 1)))
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// RoundTo rounds half away from zero to the given number of decimals
func RoundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// Lerp interpolates from a (t = 0) to b (t = 1)
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Mean returns the arithmetic mean, or 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation (ddof = 0)
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// FloatPtr returns a pointer to v
func FloatPtr(v float64) *float64 {
	return &v
}
