package derivable

import (
	"runtime"
	"strconv"
	"testing"
)

type memoryMetrics struct {
	Allocs     uint64
	TotalAlloc uint64
}

func readMemoryMetrics() memoryMetrics {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return memoryMetrics{Allocs: m.Mallocs, TotalAlloc: m.TotalAlloc}
}

// derivationChain returns an atom and the last of depth derivations, each
// adding one to the previous
func derivationChain(rt *Runtime, depth int) (*Atom[int], Derivable[int]) {
	root := NewAtom(rt, 0)
	var last Derivable[int] = root
	for i := 0; i < depth; i++ {
		prev := last
		last = Derive1(prev, func(v int) (int, error) { return v + 1, nil })
	}
	return root, last
}

func BenchmarkPropagation(b *testing.B) {
	for _, depth := range []int{1, 10, 100} {
		b.Run("chain-"+strconv.Itoa(depth), func(b *testing.B) {
			rt := NewRuntime()
			root, last := derivationChain(rt, depth)
			r, err := React(last, func(int, func()) error { return nil })
			if err != nil {
				b.Fatalf("react failed: %v", err)
			}
			defer r.Stop()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := root.Set(i + 1); err != nil {
					b.Fatalf("set failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkWideFanOut(b *testing.B) {
	rt := NewRuntime()
	root := NewAtom(rt, 0)
	for i := 0; i < 50; i++ {
		d := Derive1(root, func(v int) (int, error) { return v + i, nil })
		if _, err := React(d, func(int, func()) error { return nil }); err != nil {
			b.Fatalf("react failed: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		root.Set(i + 1)
	}
}

func BenchmarkTransaction(b *testing.B) {
	rt := NewRuntime()
	atoms := make([]*Atom[int], 10)
	for i := range atoms {
		atoms[i] = NewAtom(rt, 0)
	}
	sum := Derive(rt, func() (int, error) {
		total := 0
		for _, a := range atoms {
			total += a.Value()
		}
		return total, nil
	})
	if _, err := React(sum, func(int, func()) error { return nil }); err != nil {
		b.Fatalf("react failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := rt.Transact(func() error {
			for _, a := range atoms {
				if err := a.Set(i + 1); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatalf("transaction failed: %v", err)
		}
	}
}

// BenchmarkMemoryUsageProfile reports allocations of whole scenarios,
// runtime setup included
func BenchmarkMemoryUsageProfile(b *testing.B) {
	scenarios := []struct {
		name string
		fn   func(rt *Runtime) error
	}{
		{
			name: "UnobservedRead",
			fn: func(rt *Runtime) error {
				_, last := derivationChain(rt, 20)
				_, err := last.Get()
				return err
			},
		},
		{
			name: "ObservedChain",
			fn: func(rt *Runtime) error {
				root, last := derivationChain(rt, 20)
				if _, err := React(last, func(int, func()) error { return nil }); err != nil {
					return err
				}
				return root.Set(1)
			},
		},
		{
			name: "AutoCachedTurn",
			fn: func(rt *Runtime) error {
				_, last := derivationChain(rt, 20)
				AutoCache(last)
				return rt.Turn(func() error {
					for i := 0; i < 10; i++ {
						if _, err := last.Get(); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
	}

	for _, scenario := range scenarios {
		b.Run(scenario.name, func(b *testing.B) {
			b.StopTimer()
			initial := readMemoryMetrics()

			b.StartTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				rt := NewRuntime()
				if err := scenario.fn(rt); err != nil {
					b.Fatalf("scenario failed: %v", err)
				}
				rt.Dispose()
			}

			b.StopTimer()
			final := readMemoryMetrics()
			b.ReportMetric(float64(final.TotalAlloc-initial.TotalAlloc)/float64(b.N), "bytes/op_total")
			b.ReportMetric(float64(final.Allocs-initial.Allocs)/float64(b.N), "mallocs/op")
		})
	}
}
