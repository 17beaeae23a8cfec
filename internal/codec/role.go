package codec

import (
	"fmt"

	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

// Role selects which accelerator function a session drives.
type Role int

const (
	RoleDecode Role = iota
	RoleEncode
	RoleISP
	RoleDeinterlace
	RoleEncodeImage
	numRoles
)

func (r Role) String() string {
	switch r {
	case RoleDecode:
		return "decode"
	case RoleEncode:
		return "encode"
	case RoleISP:
		return "isp"
	case RoleDeinterlace:
		return "deinterlace"
	case RoleEncodeImage:
		return "encode-image"
	default:
		return "unknown"
	}
}

// ParseRole converts a role name to its Role value.
func ParseRole(s string) (Role, error) {
	for r := RoleDecode; r < numRoles; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, NewError(ErrCodeInvalidArgument, fmt.Sprintf("unknown role %q", s), nil)
}

// Roles lists all supported roles.
func Roles() []Role {
	return []Role{RoleDecode, RoleEncode, RoleISP, RoleDeinterlace, RoleEncodeImage}
}

// roleCaps is the per-role capability table: component binding, geometry
// limits, selection targets and the allowed control set.
type roleCaps struct {
	component string
	maxWidth  uint32
	maxHeight uint32

	// alignHeight16 forces raw frame heights to a 16-line multiple,
	// matching the accelerator's macroblock granularity for these roles.
	alignHeight16 bool

	// compressedInput/compressedOutput describe which queue carries
	// compressed data; roles with neither run raw on both queues.
	compressedInput  bool
	compressedOutput bool

	// cropOnInput allows crop selection on the source queue,
	// composeOnOutput allows compose selection on the destination queue.
	cropOnInput     bool
	composeOnOutput bool

	// supportsCommands enables the stop/start stream commands.
	supportsCommands bool

	controls map[ControlID]bool
}

var encodeControls = map[ControlID]bool{
	CtrlBitrate:              true,
	CtrlBitrateMode:          true,
	CtrlRepeatSequenceHeader: true,
	CtrlHeaderMode:           true,
	CtrlH264IPeriod:          true,
	CtrlGOPSize:              true,
	CtrlH264Profile:          true,
	CtrlH264Level:            true,
	CtrlH264MinQP:            true,
	CtrlH264MaxQP:            true,
	CtrlForceKeyFrame:        true,
	CtrlHFlip:                true,
	CtrlVFlip:                true,
	CtrlIntraRefreshPeriod:   true,
	CtrlAUDelimiter:          true,
	CtrlSliceMaxMB:           true,
}

var roleTable = map[Role]roleCaps{
	RoleDecode: {
		component:        mmal.ComponentVideoDecode,
		maxWidth:         1920,
		maxHeight:        1920,
		alignHeight16:    true,
		compressedInput:  true,
		composeOnOutput:  true,
		supportsCommands: true,
	},
	RoleEncode: {
		component:        mmal.ComponentVideoEncode,
		maxWidth:         1920,
		maxHeight:        1920,
		compressedOutput: true,
		cropOnInput:      true,
		supportsCommands: true,
		controls:         encodeControls,
	},
	RoleISP: {
		component:       mmal.ComponentISP,
		maxWidth:        16384,
		maxHeight:       16384,
		cropOnInput:     true,
		composeOnOutput: true,
	},
	RoleDeinterlace: {
		component:       mmal.ComponentImageFX,
		maxWidth:        16384,
		maxHeight:       16384,
		cropOnInput:     true,
		composeOnOutput: true,
	},
	RoleEncodeImage: {
		component:        mmal.ComponentImageEncode,
		maxWidth:         1920,
		maxHeight:        1920,
		alignHeight16:    true,
		compressedOutput: true,
		controls: map[ControlID]bool{
			CtrlJPEGQuality: true,
		},
	},
}

func (r Role) caps() roleCaps {
	return roleTable[r]
}

// interlacedInput reports whether the role accepts interlaced source
// material.
func (r Role) interlacedInput() bool {
	return r == RoleDecode || r == RoleDeinterlace
}
