package cast

import "fmt"

// Target is a discoverable remote playback device.
type Target struct {
	Name string
	Host string
	Port int
	// AudioOnly devices cannot receive a video session but still show up
	// in discovery results.
	AudioOnly bool
}

// Addr returns the device's host:port address, which also serves as its
// identity within a device set.
func (t Target) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}
