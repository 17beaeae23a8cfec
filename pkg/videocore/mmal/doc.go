// Package mmal models the control channel to the VideoCore multimedia
// accelerator: components with input/output ports, port-level parameters,
// and buffer exchange with asynchronous completion callbacks.
//
// The Instance interface abstracts the transport. Callbacks bound via
// PortEnable are invoked from a dispatcher goroutine owned by the
// implementation and must not block; implementations never invoke them
// synchronously from within an Instance method call.
package mmal
