// AlertFilters describe user-provided filters to narrow the alert list.
package dto

import "time"

type AlertFilters struct {
	SessionID  string
	DateAfter  time.Time
	DateBefore time.Time
}
