package domain

// HorizonPoint is one control point of a horizon profile: the elevation angle
// of the local horizon at a compass azimuth, both in degrees.
type HorizonPoint struct {
	Azimuth   float64
	Elevation float64
}

// HorizonProfile is a piecewise-linear azimuth→elevation profile of the local
// horizon. Control points must be sorted by azimuth; a profile covering the
// full circle should repeat its first elevation at 360°.
type HorizonProfile struct {
	points []HorizonPoint
}

// NewHorizonProfile validates the control points: at least two, sorted by
// azimuth, azimuths within [0, 360].
func NewHorizonProfile(points []HorizonPoint) (*HorizonProfile, error) {
	if len(points) < 2 {
		return nil, &ConfigError{Reason: "horizon profile needs at least two control points"}
	}
	for i, p := range points {
		if p.Azimuth < 0 || p.Azimuth > 360 {
			return nil, &ConfigError{Reason: "horizon azimuth out of range [0, 360]"}
		}
		if i > 0 && points[i-1].Azimuth > p.Azimuth {
			return nil, &ConfigError{Reason: "horizon profile must be sorted by azimuth"}
		}
	}
	profile := &HorizonProfile{points: make([]HorizonPoint, len(points))}
	copy(profile.points, points)
	return profile, nil
}

// ElevationAt linearly interpolates the horizon elevation at the given
// azimuth. Azimuths outside the profile span clamp to the nearest edge.
func (h *HorizonProfile) ElevationAt(azimuth float64) float64 {
	first := h.points[0]
	last := h.points[len(h.points)-1]
	if azimuth <= first.Azimuth {
		return first.Elevation
	}
	if azimuth >= last.Azimuth {
		return last.Elevation
	}
	for i := 0; i < len(h.points)-1; i++ {
		p1 := h.points[i]
		p2 := h.points[i+1]
		if p1.Azimuth <= azimuth && azimuth <= p2.Azimuth {
			if p2.Azimuth == p1.Azimuth {
				return p1.Elevation
			}
			frac := (azimuth - p1.Azimuth) / (p2.Azimuth - p1.Azimuth)
			return p1.Elevation + frac*(p2.Elevation-p1.Elevation)
		}
	}
	return last.Elevation
}

// Shades reports whether the given sun position is geometrically blocked by
// the horizon.
func (h *HorizonProfile) Shades(pos SunPosition) bool {
	return pos.Altitude < h.ElevationAt(pos.Azimuth)
}

// diffuseFraction returns the diffuse share of total irradiance, clamped to a
// minimum of 0. A zero denominator (pre-dawn, post-dusk, or both components
// absent) is treated as fully diffuse to avoid reporting spurious full power.
func diffuseFraction(diffuse, direct float64) float64 {
	total := diffuse + direct
	if total == 0 {
		return 1.0
	}
	f := diffuse / total
	if f < 0 {
		return 0
	}
	return f
}
