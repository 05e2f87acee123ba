package ttml

import (
	"encoding/xml"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// hours ":" minutes ":" seconds ( fraction | ":" frames ( "." sub-frames )? )?
	clockTimeRegex = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2})(?:(\.\d+)|:(\d{2,})(?:\.(\d+))?)?$`)
	// time-count fraction? metric
	offsetTimeRegex = regexp.MustCompile(`^(\d+)(\.\d+)?(h|ms|m|s|f|t)$`)
	// Apple writes [[h:]m:]s[.frac] without any metric
	appleTimeRegex = regexp.MustCompile(`^(?:(?:(\d+):)?(\d+):)?(\d+)(\.\d+)?$`)
)

// frame is one entry of the time container stack. The stack itself is the
// recursion of the body walk: every element receives its parent's frame.
type frame struct {
	begin  uint64
	end    uint64
	hasEnd bool
	level  int    // number of timed ancestors, including this element
	seq    bool   // children are laid out one after another
	cursor uint64 // end of the last child when seq is set
}

// base returns the point children's times are relative to
func (f frame) base() uint64 {
	if f.seq {
		return f.cursor
	}
	return f.begin
}

// TimeTracker resolves TTML time expressions using the document's frame,
// sub-frame and tick rates
type TimeTracker struct {
	frameRate    float64 // effective frame rate, multiplier applied
	subFrameRate float64
	tickRate     float64
	apple        bool
}

// NewTimeTracker reads the ttp timing parameters from the root element
func NewTimeTracker(root xml.StartElement, apple bool) (TimeTracker, error) {
	tt := TimeTracker{frameRate: 30, subFrameRate: 1, tickRate: 1, apple: apple}

	frameRate := attr(root, "frameRate", nsParameter)
	if frameRate != "" {
		v, err := strconv.ParseFloat(frameRate, 64)
		if err != nil || v <= 0 {
			return tt, fmt.Errorf("invalid frameRate %q", frameRate)
		}
		tt.frameRate = v
	}
	if multiplier := attr(root, "frameRateMultiplier", nsParameter); multiplier != "" {
		parts := strings.Fields(multiplier)
		if len(parts) != 2 {
			return tt, fmt.Errorf("invalid frameRateMultiplier %q", multiplier)
		}
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil || num <= 0 || den <= 0 {
			return tt, fmt.Errorf("invalid frameRateMultiplier %q", multiplier)
		}
		tt.frameRate = tt.frameRate * num / den
	}
	if sub := attr(root, "subFrameRate", nsParameter); sub != "" {
		v, err := strconv.ParseFloat(sub, 64)
		if err != nil || v <= 0 {
			return tt, fmt.Errorf("invalid subFrameRate %q", sub)
		}
		tt.subFrameRate = v
	}
	if tick := attr(root, "tickRate", nsParameter); tick != "" {
		v, err := strconv.ParseFloat(tick, 64)
		if err != nil || v <= 0 {
			return tt, fmt.Errorf("invalid tickRate %q", tick)
		}
		tt.tickRate = v
	} else if frameRate != "" {
		tt.tickRate = tt.frameRate * tt.subFrameRate
	}
	return tt, nil
}

// ParseTime converts a TTML time expression into milliseconds
func (tt TimeTracker) ParseTime(expr string) (uint64, error) {
	expr = strings.TrimSpace(expr)
	if tt.apple {
		if m := appleTimeRegex.FindStringSubmatch(expr); m != nil {
			h, _ := strconv.ParseFloat(orZero(m[1]), 64)
			min, _ := strconv.ParseFloat(orZero(m[2]), 64)
			s, _ := strconv.ParseFloat(m[3]+m[4], 64)
			return millis(h*3600 + min*60 + s), nil
		}
	}
	if m := clockTimeRegex.FindStringSubmatch(expr); m != nil {
		h, _ := strconv.ParseFloat(m[1], 64)
		min, _ := strconv.ParseFloat(m[2], 64)
		s, _ := strconv.ParseFloat(m[3]+m[4], 64)
		seconds := h*3600 + min*60 + s
		if m[5] != "" {
			frames, _ := strconv.ParseFloat(m[5], 64)
			seconds += frames / tt.frameRate
			if m[6] != "" {
				sub, _ := strconv.ParseFloat(m[6], 64)
				seconds += sub / (tt.frameRate * tt.subFrameRate)
			}
		}
		return millis(seconds), nil
	}
	if m := offsetTimeRegex.FindStringSubmatch(expr); m != nil {
		count, _ := strconv.ParseFloat(m[1]+m[2], 64)
		var seconds float64
		switch m[3] {
		case "h":
			seconds = count * 3600
		case "m":
			seconds = count * 60
		case "s":
			seconds = count
		case "ms":
			seconds = count / 1000
		case "f":
			seconds = count / tt.frameRate
		case "t":
			seconds = count / tt.tickRate
		}
		return millis(seconds), nil
	}
	return 0, fmt.Errorf("invalid time expression %q", expr)
}

// Resolve computes the frame of el from its parent's frame. An element
// without timing attributes inherits the parent's range and level.
func (tt TimeTracker) Resolve(parent frame, el xml.StartElement) (frame, error) {
	seq := attr(el, "timeContainer", "") == "seq"
	beginAttr := attr(el, "begin", "")
	endAttr := attr(el, "end", "")
	durAttr := attr(el, "dur", "")

	if beginAttr == "" && endAttr == "" && durAttr == "" {
		child := parent
		child.seq = seq
		child.cursor = child.begin
		return child, nil
	}

	base := parent.base()
	if tt.apple {
		// Apple documents use absolute times on every element
		base = 0
	}
	child := frame{begin: base, level: parent.level + 1, seq: seq}
	if beginAttr != "" {
		v, err := tt.ParseTime(beginAttr)
		if err != nil {
			return child, fmt.Errorf("begin: %w", err)
		}
		child.begin = base + v
	}
	switch {
	case endAttr != "":
		v, err := tt.ParseTime(endAttr)
		if err != nil {
			return child, fmt.Errorf("end: %w", err)
		}
		child.end, child.hasEnd = base+v, true
	case durAttr != "":
		v, err := tt.ParseTime(durAttr)
		if err != nil {
			return child, fmt.Errorf("dur: %w", err)
		}
		child.end, child.hasEnd = child.begin+v, true
	case parent.hasEnd:
		child.end, child.hasEnd = parent.end, true
	}
	if !tt.apple && parent.hasEnd && child.hasEnd && child.end > parent.end {
		child.end = parent.end
	}
	if child.hasEnd && child.end < child.begin {
		child.end = child.begin
	}
	child.cursor = child.begin
	return child, nil
}

func millis(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(math.Round(seconds * 1000))
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
