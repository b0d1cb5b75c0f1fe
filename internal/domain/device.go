package domain

// DeviceSummary is a device as returned by the cloud listing call.
type DeviceSummary struct {
	ID        string
	Name      string
	Connected bool
}

// Device is the full record of a single device, including its manifest.
type Device struct {
	ID        string
	Name      string
	Connected bool
	Functions []string
	// Variables maps variable name to its declared type (int32, double, string, bool).
	Variables map[string]string
}

// HasFunction reports whether fn is in the function manifest. The match is case-sensitive.
func (d *Device) HasFunction(fn string) bool {
	for _, f := range d.Functions {
		if f == fn {
			return true
		}
	}
	return false
}

// Variable is the current value of a remote variable.
type Variable struct {
	Name  string
	Value any
}
