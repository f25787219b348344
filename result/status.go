package result

// Status is the classification attached to every checked item.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusDown     Status = "down"
	StatusError    Status = "error"
)

// severity orders statuses for Worst. error and down are both
// connection-level failures; down ranks highest so an availability site
// with any unreachable page reads as down.
func (s Status) severity() int {
	switch s {
	case StatusOK:
		return 0
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	case StatusError:
		return 3
	case StatusDown:
		return 4
	default:
		return -1
	}
}

// Failed reports whether s is a connection-level failure.
func (s Status) Failed() bool {
	return s == StatusDown || s == StatusError
}

// Worst returns the most severe of the given statuses, or StatusOK when
// called with none.
func Worst(statuses ...Status) Status {
	worst := StatusOK
	for _, s := range statuses {
		if s.severity() > worst.severity() {
			worst = s
		}
	}
	return worst
}
