package vm

import (
	"github.com/gogpu/spirvm/idtable"
	"github.com/gogpu/spirvm/ierr"
)

// Workgroup interleaves several invocations of the same entry point.
// Each invocation runs cooperatively until it terminates or suspends
// at a control barrier; the barrier releases only once every invocation
// of the group has reached it, and a sibling that terminates while the
// others wait makes Run fail. Outside barriers, the relative
// order of invocations is unspecified.
type Workgroup struct {
	prog *Program
	invs []*Invocation
}

// NewWorkgroup prepares count invocations of ep, indexed 0..count-1.
func (p *Program) NewWorkgroup(ep *idtable.EntryPoint, count uint32) (*Workgroup, error) {
	if count == 0 {
		count = 1
	}
	wg := &Workgroup{prog: p}
	for i := uint32(0); i < count; i++ {
		inv, err := p.NewInvocation(ep, i, count)
		if err != nil {
			return nil, err
		}
		wg.invs = append(wg.invs, inv)
	}
	return wg, nil
}

// Invocations returns the workgroup's invocations in index order.
func (wg *Workgroup) Invocations() []*Invocation { return wg.invs }

// Cancel requests a cooperative stop of every invocation.
func (wg *Workgroup) Cancel() {
	for _, inv := range wg.invs {
		inv.Cancel()
	}
}

// Run drives every invocation to completion, rendezvousing at
// barriers. A barrier some (but not all) live invocations reach is a
// malformed module: the stragglers terminated without ever arriving,
// so the barrier would never release.
func (wg *Workgroup) Run() error {
	for {
		ranAny := false
		for _, inv := range wg.invs {
			if inv.Status() != StatusActive {
				continue
			}
			ranAny = true
			if err := inv.Run(); err != nil {
				return err
			}
		}
		waiting, done := 0, 0
		for _, inv := range wg.invs {
			switch inv.Status() {
			case StatusAtBarrier:
				waiting++
			case StatusDone:
				done++
			}
		}
		if done == len(wg.invs) {
			return nil
		}
		if waiting > 0 {
			if waiting+done < len(wg.invs) {
				continue // someone is still headed for the barrier
			}
			if done > 0 {
				return ierr.NewMalformedModule("control barrier reached by %d of %d invocations", waiting, waiting+done)
			}
			for _, inv := range wg.invs {
				if inv.Status() == StatusAtBarrier {
					inv.status = StatusActive
				}
			}
			continue
		}
		if !ranAny {
			return nil
		}
	}
}
