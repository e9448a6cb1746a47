package productivity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

const (
	dateLayout = "2006-01-02"
	// isoLayout also accepts unpadded month and day.
	isoLayout = "2006-1-2"
)

var isoLike = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)

// ParseDate resolves s to a calendar day in ref's location. ISO dates are
// taken literally; anything else goes through natural-language parsing
// looking backward from ref.
func ParseDate(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if isoLike.MatchString(s) {
		t, err := time.ParseInLocation(isoLayout, s, ref.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("expected YYYY-MM-DD: %w", err)
		}
		return t, nil
	}

	t, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date: %w", err)
	}
	return midnight(t.In(ref.Location())), nil
}
