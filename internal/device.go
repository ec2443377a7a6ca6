package internal

import (
	"net/http"
	"runtime"

	"github.com/google/uuid"
)

const (
	// HeaderDeviceID carries the per-installation device identifier.
	HeaderDeviceID = "deviceuniqueid"
	// HeaderDeviceModel carries a free-form device description.
	HeaderDeviceModel = "devicemodel"
)

// Device identifies this client installation to the backend.
type Device struct {
	ID    string
	Model string
}

// NewDevice returns a Device with a fresh random identifier. An empty model
// falls back to the runtime platform.
func NewDevice(model string) Device {
	if model == "" {
		model = runtime.GOOS + "/" + runtime.GOARCH
	}
	return Device{ID: uuid.NewString(), Model: model}
}

// Header returns the device headers, or nil for a zero Device.
func (d Device) Header() http.Header {
	if d.ID == "" {
		return nil
	}
	h := make(http.Header, 2)
	h.Set(HeaderDeviceID, d.ID)
	h.Set(HeaderDeviceModel, d.Model)
	return h
}
