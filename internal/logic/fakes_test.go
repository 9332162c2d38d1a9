package logic

import "time"

type lightChange struct {
	At    time.Time
	Light Light
	On    bool
}

// fakeLights records every write with the harness clock.
type fakeLights struct {
	clock   func() time.Time
	on      [NumLights]bool
	changes []lightChange
}

func (f *fakeLights) SetLight(l Light, on bool) {
	if l < 0 || int(l) >= NumLights {
		return
	}
	f.on[l] = on
	f.changes = append(f.changes, lightChange{At: f.clock(), Light: l, On: on})
}

func (f *fakeLights) all(on bool) bool {
	for _, v := range f.on {
		if v != on {
			return false
		}
	}
	return true
}

// fakeDisplay records render commands.
type fakeDisplay struct {
	menus      []int
	countdowns []int
	latencies  [][2]time.Duration
	summaries  []Summary
	errors     []string
}

func (f *fakeDisplay) ShowMenu(_ []MenuItem, selected int) { f.menus = append(f.menus, selected) }
func (f *fakeDisplay) ShowCountdown(stage int)            { f.countdowns = append(f.countdowns, stage) }
func (f *fakeDisplay) ShowLatency(cur, avg time.Duration) {
	f.latencies = append(f.latencies, [2]time.Duration{cur, avg})
}
func (f *fakeDisplay) ShowSummary(s Summary) { f.summaries = append(f.summaries, s) }
func (f *fakeDisplay) ShowError(msg string)  { f.errors = append(f.errors, msg) }

// fakeSink records appended records and supports DeleteLast.
type fakeSink struct {
	records   []SessionRecord
	appendErr error
	deleteErr error
	deleted   int
}

func (f *fakeSink) Append(rec SessionRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeSink) DeleteLast() error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if len(f.records) == 0 {
		return nil
	}
	f.records = f.records[:len(f.records)-1]
	f.deleted++
	return nil
}
