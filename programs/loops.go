package programs

import (
	"invlearn/adapters/harness"
)

func init() {
	mustRegister(Entry{
		Name:        "ex1",
		Description: "rotating linear update that preserves xa + 2*ya >= 0",
		Variables:   []string{"xa", "ya"},
		Program:     Ex1,
	})
	mustRegister(Entry{
		Name:        "substring1",
		Description: "index walks up to a bound: i <= k",
		Variables:   []string{"i", "k"},
		Program:     Substring1,
	})
	mustRegister(Entry{
		Name:        "count_up",
		Description: "counter increments towards 10 and never goes negative",
		Variables:   []string{"x"},
		Program:     CountUp,
	})
	mustRegister(Entry{
		Name:        "lockstep",
		Description: "two counters grow together, keeping x + y >= 0",
		Variables:   []string{"x", "y"},
		Program:     Lockstep,
	})
}

// Ex1 keeps xa + 2*ya non-negative across a nondeterministic update
func Ex1(r *harness.Recorder, a []int) {
	xa, ya := a[0], a[1]
	r.Assume(xa+2*ya >= 0)
	for r.Nondet(4) != 0 {
		if !r.Record(xa, ya) {
			return
		}
		x := xa + 2*ya
		y := -2*xa + ya

		x++
		if r.Nondet(4) != 0 {
			y = y + x
		} else {
			y = y - x
		}

		xa = x - 2*y
		ya = 2*x + y
	}
	r.Record(xa, ya)
	r.Assert(xa+2*ya >= 0)
}

// Substring1 advances i until it reaches k
func Substring1(r *harness.Recorder, a []int) {
	i, k := a[0], a[1]
	r.Assume(i >= 0 && i <= k && k >= 0 && k <= 100)
	for i < k {
		if !r.Record(i, k) {
			return
		}
		i++
	}
	r.Record(i, k)
	r.Assert(i <= k)
}

// CountUp counts x up to 10
func CountUp(r *harness.Recorder, a []int) {
	x := a[0]
	r.Assume(x >= 0)
	for x >= 0 && x < 10 {
		if !r.Record(x) {
			return
		}
		x++
	}
	r.Record(x)
	r.Assert(x >= 0)
}

// Lockstep grows x and y together for a nondeterministic number of steps
func Lockstep(r *harness.Recorder, a []int) {
	x, y := a[0], a[1]
	r.Assume(x >= 0 && y >= 0)
	for r.Nondet(3) != 0 {
		if !r.Record(x, y) {
			return
		}
		x++
		y++
	}
	r.Record(x, y)
	r.Assert(x+y >= 0)
}
