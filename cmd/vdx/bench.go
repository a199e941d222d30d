package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vdx-ui/vdx/pkg/reactive"
)

func benchCmd() *cobra.Command {
	var (
		iters  int
		widths []int
		depths []int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run propagation benchmarks",
		Long: `Measure write-to-settled latency through computed chains.

Each case builds a grid of computed chains over one source value:
width parallel chains, each depth computeds deep, with an effect
reading every chain's tail. Every iteration writes the source and
flushes to settled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(iters, widths, depths)
		},
	}

	cmd.Flags().IntVarP(&iters, "iters", "n", 100, "Iterations per case")
	cmd.Flags().IntSliceVarP(&widths, "widths", "w", []int{1, 10, 100}, "Chain counts")
	cmd.Flags().IntSliceVarP(&depths, "depths", "d", []int{1, 10, 100}, "Chain depths")

	return cmd
}

func runBench(iters int, widths, depths []int) error {
	printBanner()

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"case", "effect runs", "avg", "min", "p75", "p99", "max"})

	for _, w := range widths {
		for _, d := range depths {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			runs := benchPropagate(tach, iters, w, d)
			calc := tach.Calc()
			tbl.AppendRow(table.Row{
				fmt.Sprintf("propagate %d x %d", w, d),
				humanize.Comma(int64(runs)),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			})
		}
	}

	tbl.Render()
	return nil
}

// benchPropagate measures the write-to-settled latency of one grid and
// returns the total number of effect executions observed.
func benchPropagate(tach *tachymeter.Tachymeter, iters, width, depth int) int {
	rt := reactive.NewRuntime(reactive.WithScheduler(func(func()) {}))
	st := rt.Reactive(map[string]any{"n": 0}).(*reactive.Object)

	runs := 0
	for i := 0; i < width; i++ {
		tail := reactive.NewComputed(rt, func() int {
			return st.Get("n").(int) + 1
		})
		for j := 1; j < depth; j++ {
			prev := tail
			tail = reactive.NewComputed(rt, func() int {
				return prev.Get() + 1
			})
		}
		tailN := tail
		rt.CreateEffect(func() reactive.Cleanup {
			_ = tailN.Get()
			runs++
			return nil
		})
	}

	for i := 0; i < iters; i++ {
		start := time.Now()
		st.Set("n", i+1)
		rt.FlushEffects()
		tach.AddTime(time.Since(start))
	}
	return runs
}
