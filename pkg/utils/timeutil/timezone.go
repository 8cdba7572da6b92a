package timeutil

import "time"

// AppZone is the fixed deployment timezone. Every published timestamp is
// rendered in this zone regardless of the host timezone.
var AppZone = time.FixedZone("GMT+8", 8*60*60)

const Layout = "2006-01-02T15:04:05.000-07:00"

func Timestamp(t time.Time) string {
	return t.In(AppZone).Format(Layout)
}
