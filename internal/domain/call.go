package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type Outcome string

const (
	OutcomeAllow       Outcome = "allow"
	OutcomeBlock       Outcome = "block"
	OutcomeNoMatch     Outcome = "no match"
	OutcomeAddedByUser Outcome = "added to block by user * key"
)

const (
	callLogNumberWidth = 12
	callLogNameWidth   = 17
)

// CallRecord is one Caller-ID delivery. Date is MMDD and Time is HHMM as sent
// by the modem.
type CallRecord struct {
	Date   string
	Time   string
	Number string
	Name   string
}

// Timestamp combines year with the modem-reported date and time. Short or
// garbled fields yield short components rather than an error.
func (r CallRecord) Timestamp(year int) Timestamp {
	return Timestamp(fmt.Sprintf("%04d-%s-%s %s:%s",
		year,
		slice(r.Date, 0, 2), slice(r.Date, 2, 4),
		slice(r.Time, 0, 2), slice(r.Time, 2, 4),
	))
}

func (r CallRecord) IsZero() bool {
	return r == CallRecord{}
}

type CallLogEntry struct {
	Timestamp Timestamp
	Number    string
	Name      string
	Outcome   Outcome
}

// Line formats the entry as one call log line, without the trailing newline.
func (e CallLogEntry) Line() string {
	return string(e.Timestamp) + "  " +
		spaceFill(e.Number, callLogNumberWidth) +
		spaceFill(e.Name, callLogNameWidth) +
		" : " + string(e.Outcome)
}

// ParseCallLogLine reverses Line. The number column never contains spaces, so
// the name is everything between the number and the outcome separator.
func ParseCallLogLine(line string) (CallLogEntry, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < len(TimestampLayout)+2 {
		return CallLogEntry{}, fmt.Errorf("call log line too short: %q", line)
	}

	start := len(TimestampLayout) + 2
	sep := strings.LastIndex(line, " : ")
	if sep < start {
		return CallLogEntry{}, fmt.Errorf("call log line has no outcome: %q", line)
	}

	entry := CallLogEntry{
		Timestamp: Timestamp(line[:len(TimestampLayout)]),
		Outcome:   Outcome(line[sep+3:]),
	}

	// a withheld number leaves the column blank, so the first space ends it
	number, name, _ := strings.Cut(line[start:sep], " ")
	entry.Number = number
	entry.Name = strings.TrimSpace(name)

	return entry, nil
}

func spaceFill(s string, width int) string {
	pad := width - utf8.RuneCountInString(s) - 1
	if pad < 0 {
		pad = 0
	}

	return s + " " + strings.Repeat(" ", pad)
}

func slice(s string, from, to int) string {
	if from >= len(s) {
		return ""
	}
	if to > len(s) {
		to = len(s)
	}

	return s[from:to]
}
