// Package state holds the confirmed device state. Records change only in
// response to bus events, never directly from a setter.
package state

// Charger is the battery charger configuration.
type Charger struct {
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	Recharge      bool    `json:"enableRecharging" yaml:"enableRecharging"`
	VTerm         float64 `json:"vTerm" yaml:"vTerm"`
	VTermR        float64 `json:"vTermR" yaml:"vTermR"`
	IChg          float64 `json:"iChg" yaml:"iChg"`
	VTrickleFast  float64 `json:"vTrickleFast" yaml:"vTrickleFast"`
	ITerm         string  `json:"iTerm" yaml:"iTerm"`
	NTCThermistor string  `json:"ntcThermistor" yaml:"ntcThermistor"`
}

// Buck is one buck regulator.
type Buck struct {
	VOutNormal      float64 `json:"vOutNormal" yaml:"vOutNormal"`
	VOutRetention   float64 `json:"vOutRetention" yaml:"vOutRetention"`
	Mode            string  `json:"mode" yaml:"mode"`
	Enabled         bool    `json:"enabled" yaml:"enabled"`
	ActiveDischarge bool    `json:"activeDischarge" yaml:"activeDischarge"`
}

// Boost is the boost regulator of single-cell devices.
type Boost struct {
	VOut float64 `json:"vOut" yaml:"vOut"`
	Mode string  `json:"mode" yaml:"mode"`
}

// Ldo is one LDO or load switch.
type Ldo struct {
	Enabled   bool    `json:"enabled" yaml:"enabled"`
	Voltage   float64 `json:"voltage" yaml:"voltage"`
	Mode      string  `json:"mode" yaml:"mode"`
	SoftStart bool    `json:"softStartEnabled" yaml:"softStartEnabled"`
}

// Gpio is one general purpose pin.
type Gpio struct {
	Mode      string `json:"mode" yaml:"mode"`
	Pull      string `json:"pull" yaml:"pull"`
	Drive     int    `json:"drive" yaml:"drive"`
	OpenDrain bool   `json:"openDrain" yaml:"openDrain"`
	Debounce  bool   `json:"debounce" yaml:"debounce"`
}

// Led is one LED driver.
type Led struct {
	Mode string `json:"mode" yaml:"mode"`
}

// Pof is the power-fail comparator.
type Pof struct {
	Enabled   bool    `json:"enable" yaml:"enable"`
	Polarity  string  `json:"polarity" yaml:"polarity"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Ship is the ship/hibernate (low power) configuration.
type Ship struct {
	TimeToActive   int  `json:"timeToActive" yaml:"timeToActive"`
	InvPolarity    bool `json:"invPolarity" yaml:"invPolarity"`
	LongPressReset bool `json:"longPressReset" yaml:"longPressReset"`
}

// Timer is the general purpose timer.
type Timer struct {
	Mode      string `json:"mode" yaml:"mode"`
	Prescaler string `json:"prescaler" yaml:"prescaler"`
	Period    int    `json:"period" yaml:"period"`
}

// UsbCurrentLimiter is the VBUS input limiter.
type UsbCurrentLimiter struct {
	CurrentLimiter float64 `json:"currentLimiter" yaml:"currentLimiter"`
	DetectStatus   string  `json:"detectStatus" yaml:"detectStatus"`
}

// FuelGauge is the fuel gauge and battery model selection.
type FuelGauge struct {
	Enabled             bool     `json:"enabled" yaml:"enabled"`
	ActiveBatteryModel  string   `json:"activeBatteryModel" yaml:"activeBatteryModel"`
	StoredBatteryModels []string `json:"storedBatteryModels" yaml:"storedBatteryModels"`
}

// OnBoardLoad is the evaluation kit's programmable load.
type OnBoardLoad struct {
	ILoad float64 `json:"iLoad" yaml:"iLoad"`
}

// Profile download phases.
const (
	DownloadIdle        = "idle"
	DownloadDownloading = "downloading"
	DownloadApplied     = "applied"
	DownloadFailed      = "failed"
	DownloadAborted     = "aborted"
)

// ProfileDownload tracks a battery model transfer.
type ProfileDownload struct {
	State    string  `json:"state" yaml:"state"`
	Progress float64 `json:"progress" yaml:"progress"`
	Message  string  `json:"message,omitempty" yaml:"message,omitempty"`
}

// Profiling is a battery profiling run.
type Profiling struct {
	Active bool    `json:"active" yaml:"active"`
	Period int     `json:"period" yaml:"period"`
	ILoad  float64 `json:"iLoad" yaml:"iLoad"`
}

// ProfilingSample is one measurement printed during profiling.
type ProfilingSample struct {
	Voltage     float64 `json:"vBat" yaml:"vBat"`
	Current     float64 `json:"iBat" yaml:"iBat"`
	Temperature float64 `json:"tBat" yaml:"tBat"`
	Timestamp   int64   `json:"timestamp" yaml:"timestamp"`
}

// PmicInfo identifies the attached device.
type PmicInfo struct {
	Connected  bool   `json:"connected" yaml:"connected"`
	Model      string `json:"model" yaml:"model"`
	Revision   string `json:"revision" yaml:"revision"`
	ResetCause string `json:"resetCause,omitempty" yaml:"resetCause,omitempty"`
}

// Reboot phases.
const (
	RebootRequested = "requested"
	RebootRebooting = "rebooting"
	RebootBooted    = "booted"
)

// Reboot reports device restarts.
type Reboot struct {
	Phase string `json:"phase" yaml:"phase"`
	Delay int    `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Connection is a connection state change.
type Connection struct {
	State    string `json:"state" yaml:"state"`
	Previous string `json:"previous" yaml:"previous"`
}
