package report

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var won = message.NewPrinter(language.Korean)

// Won formats an amount as Korean won with digit grouping, e.g. ₩1,800.
func Won(amount int64) string {
	return won.Sprintf("₩%d", amount)
}

// Percent renders a rate in [0,1] as a whole percentage.
func Percent(rate float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(rate*100)))
}

// DayLabel renders days left as D-n, or D+n once expired.
func DayLabel(daysLeft int) string {
	if daysLeft >= 0 {
		return fmt.Sprintf("D-%d", daysLeft)
	}
	return fmt.Sprintf("D+%d", -daysLeft)
}
