package domain

import (
	"regexp"
	"strings"
	"time"
)

const NewCallRingGap = 7 * time.Second

var callerIDKeyPrefix = regexp.MustCompile(`^\w+\s*=\s*`)

// CallStep is the result of feeding one modem line to a CallAccumulator.
type CallStep struct {
	// NewCall is set for a RING that follows the previous RING by more than
	// NewCallRingGap.
	NewCall  bool
	Complete bool
	Record   CallRecord
}

// CallAccumulator assembles Caller-ID lines into CallRecords. A record is
// complete when NAME arrives after DATE, or when a RING arrives after DATE
// for deliveries that carry no NAME line.
type CallAccumulator struct {
	current  CallRecord
	lastRing time.Time
}

func (a *CallAccumulator) Feed(line string, now time.Time) CallStep {
	var step CallStep

	switch {
	case strings.HasPrefix(line, "RING"):
		if a.lastRing.IsZero() || now.Sub(a.lastRing) > NewCallRingGap {
			step.NewCall = true
		}
		a.lastRing = now
		if a.current.Date == "" {
			return step
		}
	case strings.HasPrefix(line, "DATE"):
		a.current.Date = callerIDValue(line)
		return step
	case strings.HasPrefix(line, "TIME"):
		a.current.Time = callerIDValue(line)
		return step
	case strings.HasPrefix(line, "NMBR"):
		a.current.Number = callerIDValue(line)
		return step
	case strings.HasPrefix(line, "NAME"):
		if a.current.Date == "" {
			return step
		}
		a.current.Name = callerIDValue(line)
	default:
		return step
	}

	step.Complete = true
	step.Record = a.current
	a.Reset()

	return step
}

// Pending returns the fields captured so far for the call in progress.
func (a *CallAccumulator) Pending() CallRecord {
	return a.current
}

func (a *CallAccumulator) Reset() {
	a.current = CallRecord{}
}

func callerIDValue(line string) string {
	return callerIDKeyPrefix.ReplaceAllString(line, "")
}
