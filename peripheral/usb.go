package peripheral

import (
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// USB port detection results.
var UsbDetectStatuses = []shell.EnumValue{
	{Name: "No USB connection", Wire: "0"},
	{Name: "USB 100/500 mA", Wire: "1"},
	{Name: "1A5 high power", Wire: "2"},
	{Name: "3A high power", Wire: "3"},
}

var (
	usbLimit  = field[float64]{stem: "npmx vbusin current_limit", codec: shell.Milliamps(3)}
	usbDetect = field[string]{stem: "npmx vbusin status cc_get", codec: shell.Enum(UsbDetectStatuses...)}
)

// UsbCurrentLimiter controls the VBUS input current limit.
type UsbCurrentLimiter struct {
	*Base
	limit Range
}

// NewUsbCurrentLimiter creates the USB module.
func NewUsbCurrentLimiter(d Deps, limit Range) *UsbCurrentLimiter {
	u := &UsbCurrentLimiter{Base: newBase("usb", d), limit: limit}
	bind(u.Base, usbLimit, func(_ int, v float64) {
		u.bus.Emit(eventbus.UsbCurrentLimiterUpdate, state.UsbCurrentLimiterPatch{CurrentLimiter: &v})
	})
	bind(u.Base, usbDetect, func(_ int, v string) {
		u.bus.Emit(eventbus.UsbCurrentLimiterUpdate, state.UsbCurrentLimiterPatch{DetectStatus: &v})
	})
	return u
}

// GetAll queries the limit and the detected port type.
func (u *UsbCurrentLimiter) GetAll() {
	u.GetCurrentLimiter()
	u.GetDetectStatus()
}

func (u *UsbCurrentLimiter) GetCurrentLimiter() { get(u.Base, usbLimit, 0) }

// GetDetectStatus queries the detected USB port type. It is read only.
func (u *UsbCurrentLimiter) GetDetectStatus() { get(u.Base, usbDetect, 0) }

// SetCurrentLimiter sets the input current limit in amperes.
func (u *UsbCurrentLimiter) SetCurrentLimiter(a float64) *shell.Future {
	if err := checkRange("currentLimiter", a, u.limit); err != nil {
		return shell.Rejected(err)
	}
	return set(u.Base, usbLimit, 0, a)
}
