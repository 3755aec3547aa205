package domain

import "fmt"

// CellTemperatureModel estimates PV cell temperature from ambient conditions.
// The strategy is selected once per deployment.
type CellTemperatureModel interface {
	// CellTemperature returns the estimated cell temperature in °C for the
	// given irradiance (W/m²), ambient temperature (°C) and wind speed (m/s).
	CellTemperature(irradiance, ambient, wind float64) float64

	// RequiresWind reports whether the model needs a wind-speed reading.
	RequiresWind() bool
}

// NOCTModel derives cell temperature from the NOCT rating, corrected for the
// actual wind speed:
//
//	Tc = Tamb + (G/Gnoct) * (h(Vnoct)/h(V)) * (Tnoct,cell - Tnoct,amb) * (1 - ηcell/τα)
//	h(v) = 8.91 + 2.0*v
type NOCTModel struct{}

func (NOCTModel) CellTemperature(irradiance, ambient, wind float64) float64 {
	rise := irradiance / NOCTIrradiance
	rise *= windHeatTransfer(NOCTWindSpeed) / windHeatTransfer(wind)
	rise *= NOCTCellTemperature - NOCTAmbientTemperature
	rise *= 1 - CellEfficiency/TransmittanceAbsorption
	return ambient + rise
}

func (NOCTModel) RequiresWind() bool { return true }

// windHeatTransfer is the convective heat transfer coefficient as a function
// of wind speed in m/s.
func windHeatTransfer(v float64) float64 {
	return 8.91 + 2.0*v
}

// RossModel is the simpler wind-independent linear model Tc = Tamb + k*G.
// The Ross coefficient k is fixed per mounting category.
type RossModel struct {
	k float64
}

// Ross coefficients (°C·m²/W) per mounting category.
var rossCoefficients = map[string]float64{
	"well-cooled":        0.0200,
	"free-standing":      0.0208,
	"flat-on-roof":       0.0260,
	"not-so-well-cooled": 0.0342,
	"transparent":        0.0455,
	"facade-integrated":  0.0538,
	"on-sloped-roof":     0.0563,
}

// NewRossModel returns the Ross model for a mounting category. The category
// names are fixed; the coefficient is not user-tunable.
func NewRossModel(mounting string) (RossModel, error) {
	k, ok := rossCoefficients[mounting]
	if !ok {
		return RossModel{}, &ConfigError{Reason: fmt.Sprintf("unknown ross mounting category %q", mounting)}
	}
	return RossModel{k: k}, nil
}

func (m RossModel) CellTemperature(irradiance, ambient, _ float64) float64 {
	return ambient + irradiance*m.k
}

func (RossModel) RequiresWind() bool { return false }
