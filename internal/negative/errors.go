package negative

import "fmt"

// GeometryError reports that no usable frame, border sample set or crop
// rectangle could be derived from the input.
type GeometryError struct {
	Stage  string
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

// ToneMapError reports a channel whose black and white points coincide, so
// the tonal stretch has no dynamic range to work with.
type ToneMapError struct {
	Pass    int
	Channel int
	Low     uint16
	High    uint16
	Reason  string
}

var channelNames = [...]string{"red", "green", "blue"}

func (e *ToneMapError) Error() string {
	if e.Reason != "" {
		return "stretch tone: " + e.Reason
	}
	return fmt.Sprintf("stretch tone: pass %d: %s channel has no dynamic range (low=%d high=%d)",
		e.Pass, channelNames[e.Channel], e.Low, e.High)
}
