package view

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/pixel-overlay-go/domain/engine"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows active detection time and loop counters.
type SessionStats interface {
	SetSession(session, total time.Duration)
	SetStats(s engine.Stats)
}

type sessionStats struct {
	sessionLbl *LabelWidget
	totalLbl   *LabelWidget
	statsLbl   *LabelWidget
	last       engine.Stats
}

// NewSessionStats creates the session, total and counter labels in parent
// starting at (row, startCol); the counters span the following row.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{
		sessionLbl: parent.Label(Width(16), Anchor("w")),
		totalLbl:   parent.Label(Width(16), Anchor("w")),
		statsLbl:   parent.Label(Anchor("w")),
	}
	Grid(s.sessionLbl, Row(row), Column(startCol), Sticky("w"), Padx("0.2m"))
	Grid(s.totalLbl, Row(row), Column(startCol+1), Sticky("w"), Padx("0.2m"))
	Grid(s.statsLbl, Row(row+1), Column(startCol), Columnspan(3), Sticky("w"), Padx("0.2m"))
	s.sessionLbl.Configure(Txt("Session: " + clock(0)))
	s.totalLbl.Configure(Txt("Total: " + clock(0)))
	s.statsLbl.Configure(Txt(statsLine(engine.Stats{})))
	return s
}

func (s *sessionStats) SetSession(session, total time.Duration) {
	if s == nil || s.sessionLbl == nil {
		return
	}
	s.sessionLbl.Configure(Txt("Session: " + clock(session)))
	s.totalLbl.Configure(Txt("Total: " + clock(total)))
}

func (s *sessionStats) SetStats(st engine.Stats) {
	if s == nil || s.statsLbl == nil || st == s.last {
		return
	}
	s.last = st
	s.statsLbl.Configure(Txt(statsLine(st)))
}

func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func statsLine(st engine.Stats) string {
	return fmt.Sprintf("FPS %.1f | frames %s | skipped %s | moves %s | detector faults %s",
		st.LastFPS,
		humanize.Comma(int64(st.Frames)),
		humanize.Comma(int64(st.Skipped)),
		humanize.Comma(int64(st.Actuations)),
		humanize.Comma(int64(st.DetectFaults)),
	)
}
