package record

// Meter values get normalized into [0, 1] over this dBFS window so UI
// code never deals in decibels.
const (
	levelFloorDB = -60.0
	levelCeilDB  = 0.0
)

// NormalizeLevel maps a dBFS power value into [0, 1]: at or below -60dB is
// 0, at or above 0dB is 1, linear in between.
func NormalizeLevel(db float64) float64 {
	if db <= levelFloorDB {
		return 0
	}
	if db >= levelCeilDB {
		return 1
	}
	return (db - levelFloorDB) / (levelCeilDB - levelFloorDB)
}
