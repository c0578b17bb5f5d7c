package purchase

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatMoney renders an amount with two decimals and locale digit grouping.
func FormatMoney(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return moneyPrinter.Sprintf("%.2f", f)
}

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notice at a level matching its severity.
func (n *LogNotifier) Notify(notice Notice) {
	level := slog.LevelInfo
	if notice.Level == LevelError {
		level = slog.LevelWarn
	}
	n.logger.Log(context.Background(), level, "notice",
		slog.String("action", notice.Action),
		slog.String("level", string(notice.Level)),
		slog.String("message", notice.Message),
	)
}

// Recorder buffers notices until drained. It is owned by a single session.
type Recorder struct {
	notices []Notice
	next    Notifier
}

// NewRecorder builds a Recorder that also forwards to next when it is non-nil.
func NewRecorder(next Notifier) *Recorder {
	return &Recorder{next: next}
}

// Notify buffers the notice.
func (r *Recorder) Notify(notice Notice) {
	r.notices = append(r.notices, notice)
	if r.next != nil {
		r.next.Notify(notice)
	}
}

// Drain returns and clears the buffered notices.
func (r *Recorder) Drain() []Notice {
	out := r.notices
	r.notices = nil
	return out
}
