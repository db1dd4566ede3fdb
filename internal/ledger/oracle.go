package ledger

// Physical bounds accepted by SubmitReading.
const (
	MinTemperature   int64 = -100 // °C
	MaxTemperature   int64 = 100
	MinPrecipitation int64 = 0 // mm
	MaxPrecipitation int64 = 5000
	MinWindSpeed     int64 = 0 // km/h
	MaxWindSpeed     int64 = 500
)

// ClimateReading is one immutable oracle observation.
type ClimateReading struct {
	ID            uint64 `json:"id"`
	Provider      string `json:"provider"`
	Timestamp     uint64 `json:"timestamp"`
	Temperature   int64  `json:"temperature"`
	Precipitation int64  `json:"precipitation"`
	WindSpeed     int64  `json:"windSpeed"`
}

// RegisterProvider adds provider to the registry. Registering the same
// principal twice fails with ErrAlreadyRegistered.
func (s *State) RegisterProvider(caller, provider string) error {
	if s.admin != "" && caller != s.admin {
		return ErrUnauthorized
	}
	if !ValidPrincipal(provider) {
		return ErrInvalidArguments
	}
	if s.providers[provider] {
		return ErrAlreadyRegistered
	}
	s.providers[provider] = true
	return nil
}

// IsProvider reports whether p is a registered data provider.
func (s *State) IsProvider(p string) bool {
	return s.providers[p]
}

// SubmitReading records a reading from caller and returns its id.
func (s *State) SubmitReading(caller string, temperature, precipitation, windSpeed int64) (uint64, error) {
	if !s.providers[caller] {
		return 0, ErrNotRegistered
	}
	if temperature < MinTemperature || temperature > MaxTemperature ||
		precipitation < MinPrecipitation || precipitation > MaxPrecipitation ||
		windSpeed < MinWindSpeed || windSpeed > MaxWindSpeed {
		return 0, ErrInvalidReading
	}
	s.lastReading++
	id := s.lastReading
	s.readings[id] = &ClimateReading{
		ID:            id,
		Provider:      caller,
		Timestamp:     s.block,
		Temperature:   temperature,
		Precipitation: precipitation,
		WindSpeed:     windSpeed,
	}
	return id, nil
}

// Reading returns the reading with the given id.
func (s *State) Reading(id uint64) (ClimateReading, error) {
	r, ok := s.readings[id]
	if !ok {
		return ClimateReading{}, ErrNotFound
	}
	return *r, nil
}

// LatestReading returns the most recently submitted reading.
func (s *State) LatestReading() (ClimateReading, error) {
	return s.Reading(s.lastReading)
}
