package compute

import "fmt"

// HealthStatus is the discrete classification of a PSP.
type HealthStatus uint8

const (
	StatusHealthy HealthStatus = iota
	StatusDegraded
	StatusUnhealthy
)

// Statuses lists every HealthStatus in increasing severity.
var Statuses = []HealthStatus{StatusHealthy, StatusDegraded, StatusUnhealthy}

func (s HealthStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return fmt.Sprintf("HealthStatus(%d)", uint8(s))
	}
}

// ParseHealthStatus is the inverse of HealthStatus.String.
func ParseHealthStatus(s string) (HealthStatus, error) {
	for _, st := range Statuses {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown health status %q", s)
}

func (s HealthStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *HealthStatus) UnmarshalText(b []byte) error {
	v, err := ParseHealthStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Severity is the severity of one AlertMessage.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Direction classifies a trend.
type Direction uint8

const (
	DirectionStable Direction = iota
	DirectionImproving
	DirectionWorsening
)

func (d Direction) String() string {
	switch d {
	case DirectionStable:
		return "stable"
	case DirectionImproving:
		return "improving"
	case DirectionWorsening:
		return "worsening"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "stable":
		*d = DirectionStable
	case "improving":
		*d = DirectionImproving
	case "worsening":
		*d = DirectionWorsening
	default:
		return fmt.Errorf("unknown trend direction %q", b)
	}
	return nil
}
