package domain

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// NOAASunProvider computes solar position and day boundaries using the NOAA
// solar geometry algorithm. It is deterministic and stateless.
type NOAASunProvider struct{}

// NewNOAASunProvider returns the default sun-position provider.
func NewNOAASunProvider() NOAASunProvider {
	return NOAASunProvider{}
}

// solarCoords holds the sun's declination and the equation of time for a
// given Julian date.
type solarCoords struct {
	declination float64 // radians
	eqTimeMin   float64 // minutes
}

// Position returns the sun's compass azimuth (0°=N, clockwise) and altitude
// in degrees at the given instant.
func (NOAASunProvider) Position(t time.Time, latitude, longitude float64) SunPosition {
	utc := t.UTC()
	sc := solarCoordinates(julian.TimeToJD(utc))

	// True solar time in minutes since local solar midnight
	minutes := float64(utc.Hour())*60 + float64(utc.Minute()) + float64(utc.Second())/60
	trueSolar := math.Mod(minutes+sc.eqTimeMin+4*longitude, 1440)
	if trueSolar < 0 {
		trueSolar += 1440
	}

	// Hour angle in degrees, negative before solar noon
	ha := trueSolar/4 - 180
	if ha < -180 {
		ha += 360
	}

	haRad := ha * math.Pi / 180
	latRad := latitude * math.Pi / 180

	sinAlt := math.Sin(latRad)*math.Sin(sc.declination) +
		math.Cos(latRad)*math.Cos(sc.declination)*math.Cos(haRad)
	altitude := math.Asin(sinAlt) * 180 / math.Pi

	// Azimuth measured from south, positive westwards, then normalized to
	// the compass convention via (180 + raw) mod 360.
	azSouth := math.Atan2(
		math.Sin(haRad),
		math.Cos(haRad)*math.Sin(latRad)-math.Tan(sc.declination)*math.Cos(latRad),
	) * 180 / math.Pi
	azimuth := math.Mod(180+azSouth, 360)
	if azimuth < 0 {
		azimuth += 360
	}

	return SunPosition{Azimuth: azimuth, Altitude: altitude}
}

// SunTimes returns sunrise and sunset for the day containing date, in date's
// location. For polar night both values collapse to solar noon; for polar day
// they span the whole day.
func (NOAASunProvider) SunTimes(date time.Time, latitude, longitude float64) (sunrise, sunset time.Time) {
	loc := date.Location()
	year, month, day := date.Date()

	// Julian day at 0h UT
	jd := julian.CalendarGregorianToJD(year, int(month), float64(day))
	sc := solarCoordinates(jd)

	latRad := latitude * math.Pi / 180

	// Standard refraction of 0.833 degrees (50 arcminutes)
	zenith := 90.833 * math.Pi / 180
	cosHA := math.Cos(zenith)/(math.Cos(latRad)*math.Cos(sc.declination)) -
		math.Tan(latRad)*math.Tan(sc.declination)

	// Solar noon in minutes from midnight UT
	solarNoon := 720 - longitude*4 - sc.eqTimeMin

	if cosHA > 1 {
		// Polar night: sun never rises, collapse to noon
		noon := julian.JDToTime(jd + solarNoon/1440).In(loc)
		return noon, noon
	}
	if cosHA < -1 {
		// Polar day: sun never sets
		return julian.JDToTime(jd - 0.5).In(loc), julian.JDToTime(jd + 0.5).In(loc)
	}

	ha := math.Acos(cosHA) * 180 / math.Pi
	sunrise = julian.JDToTime(jd + (solarNoon-ha*4)/1440).In(loc)
	sunset = julian.JDToTime(jd + (solarNoon+ha*4)/1440).In(loc)
	return sunrise, sunset
}

// solarCoordinates evaluates the NOAA low-precision solar ephemeris at jd.
func solarCoordinates(jd float64) solarCoords {
	// Julian century since J2000
	t := (jd - 2451545.0) / 36525.0

	// Geometric mean longitude and anomaly of the sun (degrees)
	l0 := math.Mod(280.46646+t*(36000.76983+0.0003032*t), 360)
	m := 357.52911 + t*(35999.05029-0.0001537*t)

	// Eccentricity of Earth's orbit
	e := 0.016708634 - t*(0.000042037+0.0000001267*t)

	// Equation of center
	mRad := m * math.Pi / 180
	c := (1.914602-t*(0.004817+0.000014*t))*math.Sin(mRad) +
		(0.019993-0.000101*t)*math.Sin(2*mRad) +
		0.000289*math.Sin(3*mRad)

	// Sun's apparent longitude
	omega := (125.04 - 1934.136*t) * math.Pi / 180
	appLon := (l0 + c - 0.00569 - 0.00478*math.Sin(omega)) * math.Pi / 180

	// Corrected obliquity of the ecliptic
	obliq := 23.0 + (26.0+(21.448-t*(46.8150+t*(0.00059-t*0.001813)))/60.0)/60.0
	obliqCorr := (obliq + 0.00256*math.Cos(omega)) * math.Pi / 180

	declination := math.Asin(math.Sin(obliqCorr) * math.Sin(appLon))

	// Equation of time (minutes)
	y := math.Tan(obliqCorr / 2)
	y = y * y
	l0Rad := l0 * math.Pi / 180
	eqTime := 4 * (y*math.Sin(2*l0Rad) -
		2*e*math.Sin(mRad) +
		4*e*y*math.Sin(mRad)*math.Cos(2*l0Rad) -
		0.5*y*y*math.Sin(4*l0Rad) -
		1.25*e*e*math.Sin(2*mRad)) * 180 / math.Pi

	return solarCoords{declination: declination, eqTimeMin: eqTime}
}
