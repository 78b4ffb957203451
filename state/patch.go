package state

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }

func merge[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// ChargerPatch is a partial Charger. Nil fields are left untouched.
type ChargerPatch struct {
	Enabled       *bool    `json:"enabled,omitempty"`
	Recharge      *bool    `json:"enableRecharging,omitempty"`
	VTerm         *float64 `json:"vTerm,omitempty"`
	VTermR        *float64 `json:"vTermR,omitempty"`
	IChg          *float64 `json:"iChg,omitempty"`
	VTrickleFast  *float64 `json:"vTrickleFast,omitempty"`
	ITerm         *string  `json:"iTerm,omitempty"`
	NTCThermistor *string  `json:"ntcThermistor,omitempty"`
}

// Apply merges the patch into c.
func (p ChargerPatch) Apply(c *Charger) {
	merge(&c.Enabled, p.Enabled)
	merge(&c.Recharge, p.Recharge)
	merge(&c.VTerm, p.VTerm)
	merge(&c.VTermR, p.VTermR)
	merge(&c.IChg, p.IChg)
	merge(&c.VTrickleFast, p.VTrickleFast)
	merge(&c.ITerm, p.ITerm)
	merge(&c.NTCThermistor, p.NTCThermistor)
}

// BuckPatch is a partial Buck.
type BuckPatch struct {
	VOutNormal      *float64 `json:"vOutNormal,omitempty"`
	VOutRetention   *float64 `json:"vOutRetention,omitempty"`
	Mode            *string  `json:"mode,omitempty"`
	Enabled         *bool    `json:"enabled,omitempty"`
	ActiveDischarge *bool    `json:"activeDischarge,omitempty"`
}

// Apply merges the patch into b.
func (p BuckPatch) Apply(b *Buck) {
	merge(&b.VOutNormal, p.VOutNormal)
	merge(&b.VOutRetention, p.VOutRetention)
	merge(&b.Mode, p.Mode)
	merge(&b.Enabled, p.Enabled)
	merge(&b.ActiveDischarge, p.ActiveDischarge)
}

// BoostPatch is a partial Boost.
type BoostPatch struct {
	VOut *float64 `json:"vOut,omitempty"`
	Mode *string  `json:"mode,omitempty"`
}

// Apply merges the patch into b.
func (p BoostPatch) Apply(b *Boost) {
	merge(&b.VOut, p.VOut)
	merge(&b.Mode, p.Mode)
}

// LdoPatch is a partial Ldo.
type LdoPatch struct {
	Enabled   *bool    `json:"enabled,omitempty"`
	Voltage   *float64 `json:"voltage,omitempty"`
	Mode      *string  `json:"mode,omitempty"`
	SoftStart *bool    `json:"softStartEnabled,omitempty"`
}

// Apply merges the patch into l.
func (p LdoPatch) Apply(l *Ldo) {
	merge(&l.Enabled, p.Enabled)
	merge(&l.Voltage, p.Voltage)
	merge(&l.Mode, p.Mode)
	merge(&l.SoftStart, p.SoftStart)
}

// GpioPatch is a partial Gpio.
type GpioPatch struct {
	Mode      *string `json:"mode,omitempty"`
	Pull      *string `json:"pull,omitempty"`
	Drive     *int    `json:"drive,omitempty"`
	OpenDrain *bool   `json:"openDrain,omitempty"`
	Debounce  *bool   `json:"debounce,omitempty"`
}

// Apply merges the patch into g.
func (p GpioPatch) Apply(g *Gpio) {
	merge(&g.Mode, p.Mode)
	merge(&g.Pull, p.Pull)
	merge(&g.Drive, p.Drive)
	merge(&g.OpenDrain, p.OpenDrain)
	merge(&g.Debounce, p.Debounce)
}

// LedPatch is a partial Led.
type LedPatch struct {
	Mode *string `json:"mode,omitempty"`
}

// Apply merges the patch into l.
func (p LedPatch) Apply(l *Led) { merge(&l.Mode, p.Mode) }

// PofPatch is a partial Pof.
type PofPatch struct {
	Enabled   *bool    `json:"enable,omitempty"`
	Polarity  *string  `json:"polarity,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Apply merges the patch into f.
func (p PofPatch) Apply(f *Pof) {
	merge(&f.Enabled, p.Enabled)
	merge(&f.Polarity, p.Polarity)
	merge(&f.Threshold, p.Threshold)
}

// ShipPatch is a partial Ship.
type ShipPatch struct {
	TimeToActive   *int  `json:"timeToActive,omitempty"`
	InvPolarity    *bool `json:"invPolarity,omitempty"`
	LongPressReset *bool `json:"longPressReset,omitempty"`
}

// Apply merges the patch into s.
func (p ShipPatch) Apply(s *Ship) {
	merge(&s.TimeToActive, p.TimeToActive)
	merge(&s.InvPolarity, p.InvPolarity)
	merge(&s.LongPressReset, p.LongPressReset)
}

// TimerPatch is a partial Timer.
type TimerPatch struct {
	Mode      *string `json:"mode,omitempty"`
	Prescaler *string `json:"prescaler,omitempty"`
	Period    *int    `json:"period,omitempty"`
}

// Apply merges the patch into t.
func (p TimerPatch) Apply(t *Timer) {
	merge(&t.Mode, p.Mode)
	merge(&t.Prescaler, p.Prescaler)
	merge(&t.Period, p.Period)
}

// UsbCurrentLimiterPatch is a partial UsbCurrentLimiter.
type UsbCurrentLimiterPatch struct {
	CurrentLimiter *float64 `json:"currentLimiter,omitempty"`
	DetectStatus   *string  `json:"detectStatus,omitempty"`
}

// Apply merges the patch into u.
func (p UsbCurrentLimiterPatch) Apply(u *UsbCurrentLimiter) {
	merge(&u.CurrentLimiter, p.CurrentLimiter)
	merge(&u.DetectStatus, p.DetectStatus)
}

// FuelGaugePatch is a partial FuelGauge.
type FuelGaugePatch struct {
	Enabled             *bool     `json:"enabled,omitempty"`
	ActiveBatteryModel  *string   `json:"activeBatteryModel,omitempty"`
	StoredBatteryModels *[]string `json:"storedBatteryModels,omitempty"`
}

// Apply merges the patch into f.
func (p FuelGaugePatch) Apply(f *FuelGauge) {
	merge(&f.Enabled, p.Enabled)
	merge(&f.ActiveBatteryModel, p.ActiveBatteryModel)
	if p.StoredBatteryModels != nil {
		f.StoredBatteryModels = append([]string(nil), (*p.StoredBatteryModels)...)
	}
}

// OnBoardLoadPatch is a partial OnBoardLoad.
type OnBoardLoadPatch struct {
	ILoad *float64 `json:"iLoad,omitempty"`
}

// Apply merges the patch into o.
func (p OnBoardLoadPatch) Apply(o *OnBoardLoad) { merge(&o.ILoad, p.ILoad) }

// ProfilingPatch is a partial Profiling.
type ProfilingPatch struct {
	Active *bool    `json:"active,omitempty"`
	Period *int     `json:"period,omitempty"`
	ILoad  *float64 `json:"iLoad,omitempty"`
}

// Apply merges the patch into r.
func (p ProfilingPatch) Apply(r *Profiling) {
	merge(&r.Active, p.Active)
	merge(&r.Period, p.Period)
	merge(&r.ILoad, p.ILoad)
}

// PmicInfoPatch is a partial PmicInfo.
type PmicInfoPatch struct {
	Connected  *bool   `json:"connected,omitempty"`
	Model      *string `json:"model,omitempty"`
	Revision   *string `json:"revision,omitempty"`
	ResetCause *string `json:"resetCause,omitempty"`
}

// Apply merges the patch into i.
func (p PmicInfoPatch) Apply(i *PmicInfo) {
	merge(&i.Connected, p.Connected)
	merge(&i.Model, p.Model)
	merge(&i.Revision, p.Revision)
	merge(&i.ResetCause, p.ResetCause)
}
