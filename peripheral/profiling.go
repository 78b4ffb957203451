package peripheral

import (
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// ProfilingPeriod bounds the sampling period in ms.
var ProfilingPeriod = Range{Min: 100, Max: 60000}

const (
	profilingStart = "cc_profile start"
	profilingStop  = "cc_profile stop"
)

var sampleLine = regexp.MustCompile(`^profile:\s*(.*)$`)

// Profiling runs battery profiling: the charger is stopped, the on-board
// load discharges the battery and the device prints a sample every period.
type Profiling struct {
	*Base
	charger *Charger // nil on models without a charger
	load    *OnBoardLoad

	// restart is set when Start stopped an enabled charger.
	restart atomic.Bool
}

// NewProfiling creates the profiling module.
func NewProfiling(d Deps, charger *Charger, load *OnBoardLoad) *Profiling {
	p := &Profiling{Base: newBase("profiling", d), charger: charger, load: load}
	emit := func(v state.ProfilingPatch) { p.bus.Emit(eventbus.ProfilingUpdate, v) }

	p.onCommand(shell.ActionPattern(profilingStart), func(m shell.Match) {
		active := true
		iLoad := p.load.current()
		patch := state.ProfilingPatch{Active: &active, ILoad: &iLoad}
		if period, err := strconv.Atoi(m.Args); err == nil {
			patch.Period = &period
		}
		emit(patch)
	})
	p.onCommand(shell.ActionPattern(profilingStop), func(shell.Match) {
		active := false
		emit(state.ProfilingPatch{Active: &active})
	})
	p.onLine(sampleLine, func(_ string, groups []string) {
		sample, ok := parseSample(groups[1])
		if !ok {
			p.log.Debug().Str("line", groups[0]).Msg("malformed profiling sample")
			return
		}
		p.bus.Emit(eventbus.ProfilingSample, sample)
	})
	return p
}

func parseSample(text string) (state.ProfilingSample, bool) {
	kv := shell.ParseKeyValues(text)
	var s state.ProfilingSample
	var err error
	if s.Voltage, err = strconv.ParseFloat(kv["v"], 64); err != nil {
		return s, false
	}
	if s.Current, err = strconv.ParseFloat(kv["i"], 64); err != nil {
		return s, false
	}
	if t, ok := kv["t"]; ok {
		s.Temperature, _ = strconv.ParseFloat(t, 64)
	}
	if ts, ok := kv["ts"]; ok {
		s.Timestamp, _ = strconv.ParseInt(ts, 10, 64)
	}
	return s, true
}

// GetAll does nothing; profiling has no queryable fields.
func (p *Profiling) GetAll() {}

func (p *Profiling) resyncGets() []string {
	gets := []string{loadCurrent.getCmd(0)}
	if p.charger != nil {
		gets = append(gets, chargerEnabled.getCmd(0))
	}
	return gets
}

// Start stops charging, sets the load to iLoad mA and starts sampling every
// periodMs.
func (p *Profiling) Start(iLoad float64, periodMs int) *shell.Future {
	if err := checkRange("period", float64(periodMs), ProfilingPeriod); err != nil {
		return shell.Rejected(err)
	}
	if err := checkRange("iLoad", iLoad, p.load.limit); err != nil {
		return shell.Rejected(err)
	}

	var steps []Step
	charging := false
	if p.charger != nil {
		charging = p.charger.enabled.Load()
		steps = append(steps, func() *shell.Future { return p.charger.SetEnabled(false) })
	}
	steps = append(steps,
		func() *shell.Future { return p.load.SetILoad(iLoad) },
		func() *shell.Future {
			return p.action(profilingStart+" "+strconv.Itoa(periodMs), strconv.Itoa(periodMs))
		},
	)
	fut := Sequence(p.io, p.resyncGets(), steps...)
	fut.OnSettle(func(err error) {
		if err == nil && charging {
			p.restart.Store(true)
		}
	})
	return fut
}

// Stop ends sampling, turns the load off and re-enables charging if Start
// had stopped it.
func (p *Profiling) Stop() *shell.Future {
	restart := p.restart.Swap(false)
	steps := []Step{
		func() *shell.Future { return p.action(profilingStop, "") },
		func() *shell.Future { return p.load.SetILoad(0) },
	}
	if restart {
		steps = append(steps, func() *shell.Future { return p.charger.SetEnabled(true) })
	}
	fut := Sequence(p.io, p.resyncGets(), steps...)
	fut.OnSettle(func(err error) {
		if err != nil && restart {
			p.restart.Store(true)
		}
	})
	return fut
}
