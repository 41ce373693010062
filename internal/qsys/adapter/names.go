package adapter

import "strconv"

// RouterSelectName returns the input-select control of a router output.
func RouterSelectName(output int) string {
	return "select." + strconv.Itoa(output)
}

// RouterMuteName returns the mute control of a router output.
func RouterMuteName(output int) string {
	return "mute." + strconv.Itoa(output)
}

// CrosspointMuteName returns the mute control of a matrix mixer crosspoint.
func CrosspointMuteName(input, output int) string {
	return crosspointPrefix(input, output) + ".mute"
}

// CrosspointGainName returns the gain control of a matrix mixer crosspoint.
func CrosspointGainName(input, output int) string {
	return crosspointPrefix(input, output) + ".gain"
}

// SnapshotLoadName returns the trigger that recalls snapshot n.
func SnapshotLoadName(n int) string {
	return "load." + strconv.Itoa(n)
}

// SnapshotSaveName returns the trigger that stores snapshot n.
func SnapshotSaveName(n int) string {
	return "save." + strconv.Itoa(n)
}

// SnapshotMatchName returns the indicator that is on while snapshot n
// matches the live state.
func SnapshotMatchName(n int) string {
	return "match." + strconv.Itoa(n)
}

func crosspointPrefix(input, output int) string {
	return "input." + strconv.Itoa(input) + ".output." + strconv.Itoa(output)
}
