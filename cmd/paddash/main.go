// paddash is a terminal dashboard for a running padd. It reads the status
// region padd publishes in shared memory and shows the button state, the
// motion estimate and the event channel counters.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/strumpad/strumpad/buttons"
	"github.com/strumpad/strumpad/event"
	"github.com/strumpad/strumpad/motion"
	"github.com/strumpad/strumpad/shm"
)

var version = "dev"

// ANSI escape codes.
const (
	rst     = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	red     = "\033[31m"
	grn     = "\033[32m"
	yel     = "\033[33m"
	cyn     = "\033[36m"
	bred    = "\033[91m"
	bwht    = "\033[97m"
	hideCur = "\033[?25l"
	showCur = "\033[?25h"
	altOn   = "\033[?1049h"
	altOff  = "\033[?1049l"
	clear   = "\033[2J\033[H"

	width  = 60
	blocks = " ▁▂▃▄▅▆▇█"

	staleAfter = 2 * time.Second
)

func main() {
	var name string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "paddash",
		Short: "Live dashboard for padd",
		Long: `paddash reads the status region published by padd (with the diagnostic
display capability enabled) and shows a live terminal dashboard with
the fret buttons, the motion sensor orientation and health, and the
event channel and serial counters.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), name, interval)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&name, "name", "n", shm.NameStatus, "status region name")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 100*time.Millisecond, "refresh interval")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

type history struct {
	motion []float64
	size   int
}

func (h *history) push(v float64) {
	h.motion = append(h.motion, v)
	if len(h.motion) > h.size {
		h.motion = h.motion[len(h.motion)-h.size:]
	}
}

func run(ctx context.Context, name string, interval time.Duration) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := shm.OpenStatus(name)
	if err != nil {
		return fmt.Errorf("opening status shm (is padd running with the display enabled?): %w", err)
	}
	defer func() { st.Close() }()

	var (
		lastCount uint32
		snap      shm.Snapshot
		valid     bool
		session   = st.Session()
		lastSeen  = time.Now()
		hist      = history{size: width - 4}
	)

	fmt.Print(altOn + hideCur)
	defer fmt.Print(showCur + altOff + "\n")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// padd unlinks the region on exit, so a stale mapping may belong to
		// a previous run. Remap and compare sessions.
		if time.Since(lastSeen) > staleAfter {
			if fresh, err := shm.OpenStatus(name); err == nil {
				st.Close()
				st = fresh
			}
			lastSeen = time.Now()
		}
		if s := st.Session(); s != session {
			session = s
			lastCount = 0
			hist.motion = hist.motion[:0]
		}

		if s, cnt, ok := st.Read(lastCount); ok {
			snap, lastCount, valid = s, cnt, true
			lastSeen = time.Now()
			hist.push(float64(s.Motion))
		}

		fmt.Print(clear + render(snap, valid, session, lastSeen, &hist))
	}
}

func render(s shm.Snapshot, valid bool, session uuid.UUID, lastSeen time.Time, h *history) string {
	var b strings.Builder
	gw := width - 4

	line := func(content string) {
		vl := visLen(content)
		pad := max(0, width-vl)
		fmt.Fprintf(&b, "%s│%s%s%s│%s\n", dim, rst, content, strings.Repeat(" ", pad), rst)
	}
	sep := func(label string) {
		if label != "" {
			rest := width - visLen(label) - 1
			fmt.Fprintf(&b, "%s├─%s%s┤%s\n", dim, label, strings.Repeat("─", rest), rst)
		} else {
			fmt.Fprintf(&b, "%s├%s┤%s\n", dim, strings.Repeat("─", width), rst)
		}
	}

	title := " STRUMPAD "
	topBar := strings.Repeat("─", width-len(title)-1)
	fmt.Fprintf(&b, "%s┌─%s%s%s%s%s┐%s\n", dim, rst, bwht, title, rst, dim+topBar, rst)

	if !valid {
		line(fmt.Sprintf("  %swaiting for padd...%s", dim, rst))
		fmt.Fprintf(&b, "%s└%s┘%s\n", dim, strings.Repeat("─", width), rst)
		return b.String()
	}

	age := time.Since(lastSeen)
	ageCol := dim
	if age > time.Second {
		ageCol = bred
	}
	line(fmt.Sprintf(" %ssession %s%s  %supdated %s ago%s",
		dim, session.String()[:8], rst, ageCol, age.Truncate(time.Millisecond), rst))
	line(fmt.Sprintf(" caps: %s", caps(s.Caps)))

	sep(" Buttons ")
	var keys strings.Builder
	for _, id := range buttons.All() {
		if s.Buttons&(1<<id) != 0 {
			fmt.Fprintf(&keys, " %s%s[%-5s]%s", bold, grn, id.Token(), rst)
		} else {
			fmt.Fprintf(&keys, " %s[%-5s]%s", dim, id.Token(), rst)
		}
	}
	line(keys.String())

	sep(" Motion ")
	if s.Caps&shm.CapMotionSensor == 0 {
		line(fmt.Sprintf("  %sno motion sensor%s", dim, rst))
	} else {
		health := motion.Health(s.Health)
		hcol := grn
		if health == motion.Degraded {
			hcol = bred
		}
		line(fmt.Sprintf("  %s%s%s  resets:%d  temp:%.1f°C  value:%+d",
			hcol, health, rst, s.Resets, s.TempC, s.Motion))
		line(fmt.Sprintf("  %s%s%s", yel, sparkline(h.motion, gw, event.MaxValue/8), rst))

		ow := width - 18
		line(fmt.Sprintf(" %sRoll %s %s%s%s %+7.1f°", dim, rst, cyn, angleGauge(float64(s.Roll), 180, ow), rst, s.Roll))
		line(fmt.Sprintf(" %sPitch%s %s%s%s %+7.1f°", dim, rst, cyn, angleGauge(float64(s.Pitch), 90, ow), rst, s.Pitch))
		line(fmt.Sprintf(" %sYaw  %s %s%s%s %+7.1f°", dim, rst, cyn, angleGauge(float64(s.Yaw), 180, ow), rst, s.Yaw))
	}

	sep(" Channel ")
	dcol := dim
	if s.Dropped > 0 {
		dcol = red
	}
	line(fmt.Sprintf("  enqueued:%d  %sdropped:%d%s", s.Enqueued, dcol, s.Dropped, rst))
	fcol := dim
	if s.Failed > 0 {
		fcol = red
	}
	line(fmt.Sprintf("  frames:%d  %sfailed:%d%s", s.Frames, fcol, s.Failed, rst))

	sep("")
	line(fmt.Sprintf(" %sctrl+c to quit%s", dim, rst))
	fmt.Fprintf(&b, "%s└%s┘%s\n", dim, strings.Repeat("─", width), rst)

	return b.String()
}

func caps(c uint8) string {
	var parts []string
	for _, f := range []struct {
		bit  uint8
		name string
	}{
		{shm.CapAnalogAxes, "analog"},
		{shm.CapMotionSensor, "motion"},
		{shm.CapDiagnosticDisplay, "display"},
	} {
		if c&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "buttons only"
	}
	return "buttons " + strings.Join(parts, " ")
}

func sparkline(data []float64, width int, ceil float64) string {
	if len(data) == 0 {
		return strings.Repeat(" ", width)
	}
	d := data
	if len(d) < width {
		pad := make([]float64, width-len(d))
		d = append(pad, d...)
	} else if len(d) > width {
		d = d[len(d)-width:]
	}
	if ceil <= 0 {
		ceil = 1
	}
	blk := []rune(blocks)
	var b strings.Builder
	for _, v := range d {
		frac := math.Min(1, math.Abs(v)/ceil)
		idx := min(8, int(frac*8))
		b.WriteRune(blk[idx])
	}
	return b.String()
}

// angleGauge draws deg on a symmetric ±limit scale with a tick at the
// centre and at each half range.
func angleGauge(deg, limit float64, width int) string {
	if width < 3 || limit <= 0 {
		return strings.Repeat("─", max(0, width))
	}
	last := width - 1
	at := func(v float64) int {
		t := (math.Max(-limit, math.Min(limit, v)) + limit) / (2 * limit)
		return int(math.Round(t * float64(last)))
	}
	bar := []rune(strings.Repeat("─", width))
	bar[at(-limit/2)] = '┊'
	bar[at(limit/2)] = '┊'
	bar[at(0)] = '┼'
	bar[at(deg)] = '●'
	return string(bar)
}

// styles lists every escape sequence render emits.
var styles = strings.NewReplacer(
	rst, "", bold, "", dim, "", red, "", grn, "", yel, "", cyn, "", bred, "", bwht, "",
)

// visLen is the number of terminal cells s occupies.
func visLen(s string) int {
	return utf8.RuneCountInString(styles.Replace(s))
}
