package domain

import "time"

// Point is a WGS84 coordinate pair
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point is a usable coordinate.
// (0, 0) is treated as missing data: the crash dataset encodes
// unknown locations as zeroes.
func (p Point) Valid() bool {
	if p.Lat == 0 && p.Lon == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds is a lat/lon bounding box for metropolitan-area queries
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Valid reports whether the box corners are usable and ordered
func (b Bounds) Valid() bool {
	sw := Point{Lat: b.MinLat, Lon: b.MinLon}
	ne := Point{Lat: b.MaxLat, Lon: b.MaxLon}
	return sw.Valid() && ne.Valid() && b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon
}

// TimeWindow restricts a query to incidents reported within [From, To]
type TimeWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ModeCounts holds casualty counts for one involved-party mode
type ModeCounts struct {
	Fatal         int `json:"fatal"`
	MajorInjuries int `json:"major_injuries"`
	MinorInjuries int `json:"minor_injuries"`
	Total         int `json:"total"`
}

// Casualties groups counts by involved-party mode
type Casualties struct {
	Drivers     ModeCounts `json:"drivers"`
	Passengers  ModeCounts `json:"passengers"`
	Pedestrians ModeCounts `json:"pedestrians"`
	Bicyclists  ModeCounts `json:"bicyclists"`
}

// Circumstances carries contributing-factor flags from the crash report
type Circumstances struct {
	SpeedingInvolved    bool `json:"speeding_involved"`
	DriversImpaired     bool `json:"drivers_impaired"`
	PedestriansImpaired bool `json:"pedestrians_impaired"`
	BicyclistsImpaired  bool `json:"bicyclists_impaired"`
}

// Incident is one historical crash record. It is created and owned by the
// external incident store; this service only reads it.
type Incident struct {
	ID               string        `json:"id"`
	Location         Point         `json:"location"`
	ReportedAt       time.Time     `json:"reported_at"`
	Address          string        `json:"address,omitempty"`
	TotalVehicles    int           `json:"total_vehicles"`
	TotalPedestrians int           `json:"total_pedestrians"`
	TotalBicyclists  int           `json:"total_bicyclists"`
	Casualties       Casualties    `json:"casualties"`
	Circumstances    Circumstances `json:"circumstances"`
}

// Fatalities sums fatal counts across all modes
func (in Incident) Fatalities() int {
	return in.Casualties.Drivers.Fatal +
		in.Casualties.Passengers.Fatal +
		in.Casualties.Pedestrians.Fatal +
		in.Casualties.Bicyclists.Fatal
}

// MajorInjuries sums major-injury counts across all modes
func (in Incident) MajorInjuries() int {
	return in.Casualties.Drivers.MajorInjuries +
		in.Casualties.Passengers.MajorInjuries +
		in.Casualties.Pedestrians.MajorInjuries +
		in.Casualties.Bicyclists.MajorInjuries
}

// MinorInjuries sums minor-injury counts across all modes
func (in Incident) MinorInjuries() int {
	return in.Casualties.Drivers.MinorInjuries +
		in.Casualties.Passengers.MinorInjuries +
		in.Casualties.Pedestrians.MinorInjuries +
		in.Casualties.Bicyclists.MinorInjuries
}

// InvolvedParties counts everything that took part in the crash
func (in Incident) InvolvedParties() int {
	return in.TotalVehicles + in.TotalPedestrians + in.TotalBicyclists
}

// TotalCasualties sums every fatality and injury across all modes
func (in Incident) TotalCasualties() int {
	return in.Fatalities() + in.MajorInjuries() + in.MinorInjuries()
}

// Severity labels for the fixed bucketing taxonomy
type Severity string

const (
	SeverityFatal        Severity = "Fatal"
	SeverityMajorInjury  Severity = "Major Injury"
	SeverityMinorInjury  Severity = "Minor Injury"
	SeverityPropertyOnly Severity = "Property Damage Only"
)

// Severity classifies the incident by its worst outcome
func (in Incident) Severity() Severity {
	switch {
	case in.Fatalities() > 0:
		return SeverityFatal
	case in.MajorInjuries() > 0:
		return SeverityMajorInjury
	case in.MinorInjuries() > 0:
		return SeverityMinorInjury
	default:
		return SeverityPropertyOnly
	}
}
