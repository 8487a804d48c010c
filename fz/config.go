package fz

// Config tunes a race. The host publishes its schema in the manifest
// and validates values at init.
type Config struct {
	// Laps to complete a race.
	Laps int `json:"laps" validate:"min=1,max=10"`
	// TrackPoints is the control point count of the procedural track.
	TrackPoints int `json:"track_points" validate:"min=8,max=256"`
	// TrackRadius of the procedural loop in meters.
	TrackRadius float32 `json:"track_radius" validate:"gt=0"`
	// TrackOBJ optionally replaces the procedural track with an authored
	// path mesh in OBJ wireframe format.
	TrackOBJ string `json:"track_obj,omitempty"`
}

// DefaultConfig matches the stock three-lap race.
func DefaultConfig() Config {
	return Config{
		Laps:        3,
		TrackPoints: 64,
		TrackRadius: 120,
	}
}
