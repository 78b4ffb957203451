package peripheral

// Set is the collection of modules present on one PMIC model. Fields of
// peripherals the model lacks are nil.
type Set struct {
	Layout Layout

	Charger     *Charger
	Buck        *Buck
	Boost       *Boost
	Ldo         *Ldo
	Gpio        *Gpio
	Led         *Led
	Pof         *Pof
	Ship        *Ship
	Timer       *Timer
	Usb         *UsbCurrentLimiter
	FuelGauge   *FuelGauge
	OnBoardLoad *OnBoardLoad
	Reset       *Reset
	Profiling   *Profiling

	modules []Module
}

// Build creates the modules of layout and registers their matchers.
func Build(d Deps, layout Layout) *Set {
	s := &Set{Layout: layout}
	add := func(m Module) { s.modules = append(s.modules, m) }

	if layout.Charger != nil {
		s.Charger = NewCharger(d, *layout.Charger)
		add(s.Charger)
	}
	if layout.Bucks > 0 {
		s.Buck = NewBuck(d, layout)
		add(s.Buck)
	}
	if layout.Boosts > 0 {
		s.Boost = NewBoost(d, layout)
		add(s.Boost)
	}
	if layout.Ldos > 0 {
		s.Ldo = NewLdo(d, layout)
		add(s.Ldo)
	}
	if layout.Gpios > 0 {
		s.Gpio = NewGpio(d, layout.Gpios)
		add(s.Gpio)
	}
	if layout.Leds > 0 {
		s.Led = NewLed(d, layout.Leds)
		add(s.Led)
	}
	if layout.Usb {
		s.Usb = NewUsbCurrentLimiter(d, layout.UsbLimit)
		add(s.Usb)
	}

	s.Pof = NewPof(d, layout.PofThreshold)
	s.Timer = NewTimer(d)
	s.Ship = NewShip(d, layout, s.Timer)
	s.FuelGauge = NewFuelGauge(d)
	s.OnBoardLoad = NewOnBoardLoad(d, layout.Load)
	s.Reset = NewReset(d)
	s.Profiling = NewProfiling(d, s.Charger, s.OnBoardLoad)
	add(s.Pof)
	add(s.Timer)
	add(s.Ship)
	add(s.FuelGauge)
	add(s.OnBoardLoad)
	add(s.Reset)
	add(s.Profiling)
	return s
}

// Modules returns the modules in creation order.
func (s *Set) Modules() []Module {
	return append([]Module(nil), s.modules...)
}

// GetAll queries every field of every module.
func (s *Set) GetAll() {
	for _, m := range s.modules {
		m.GetAll()
	}
}

// Release unregisters all matchers and subscriptions.
func (s *Set) Release() {
	for _, m := range s.modules {
		m.Release()
	}
}
