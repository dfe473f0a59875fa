package control

// Status is one side's view of the control link.
type Status string

const (
	Disconnected  Status = "DISCONNECTED"
	Connected     Status = "CONNECTED"
	Ready         Status = "READY"
	Disconnecting Status = "DISCONNECTING"
)

// Valid reports whether the status is one of the four known values.
func (s Status) Valid() bool {
	switch s {
	case Disconnected, Connected, Ready, Disconnecting:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
