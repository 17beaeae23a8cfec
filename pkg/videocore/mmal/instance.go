package mmal

import "errors"

// Component names understood by the accelerator firmware.
const (
	ComponentVideoDecode = "ril.video_decode"
	ComponentVideoEncode = "ril.video_encode"
	ComponentISP         = "ril.isp"
	ComponentImageFX     = "ril.image_fx"
	ComponentImageEncode = "ril.image_encode"
)

var (
	// ErrPortDisabled is returned when submitting to a disabled port.
	ErrPortDisabled = errors.New("mmal: port disabled")
	// ErrParameterUnset is returned by PortParameterGet when the
	// accelerator has no value for the requested parameter.
	ErrParameterUnset = errors.New("mmal: parameter unset")
	// ErrComponentUnknown is returned for unrecognized component names.
	ErrComponentUnknown = errors.New("mmal: unknown component")
)

// Instance is a connection to the accelerator. Implementations own the
// dispatcher goroutine that delivers buffer callbacks; no Instance method
// invokes a callback synchronously.
type Instance interface {
	// ComponentInit creates a component by firmware name. The component
	// starts disabled with both data ports disabled.
	ComponentInit(name string) (*Component, error)
	ComponentEnable(c *Component) error
	ComponentDisable(c *Component) error
	// ComponentFinalize releases the component. Ports must be disabled.
	ComponentFinalize(c *Component) error

	// PortSetFormat commits p.Format and p.CurrentBuffer to the
	// accelerator, which may raise MinimumBuffer in response.
	PortSetFormat(p *Port) error
	// PortEnable binds cb and starts buffer flow on the port.
	PortEnable(p *Port, cb BufferCallback) error
	// PortDisable stops the port and flushes buffers held by the
	// accelerator; flushed buffers are returned through the callback
	// with zero length.
	PortDisable(p *Port) error

	PortParameterSet(p *Port, id uint32, value any) error
	// PortParameterGet fills value (a pointer) with the current setting.
	PortParameterGet(p *Port, id uint32, value any) error

	// SubmitBuffer hands a buffer to the accelerator. Ownership returns
	// via the port callback.
	SubmitBuffer(p *Port, b *Buffer) error
}
