package model

type AuthMethod string

const (
	AuthPassword AuthMethod = "password"
	AuthKey      AuthMethod = "key"
	AuthAgent    AuthMethod = "agent"
)

type HostKeyMode string

const (
	HostKeyKnownHosts HostKeyMode = "known_hosts"
	HostKeyInsecure   HostKeyMode = "insecure"
)

type AuthConfig struct {
	Method  AuthMethod `json:"method"`
	KeyPath string     `json:"keyPath,omitempty"` // when method=key
}

type HostKeyConfig struct {
	Mode HostKeyMode `json:"mode,omitempty"` // known_hosts / insecure
}

type Host struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`

	Auth    AuthConfig    `json:"auth"`
	HostKey HostKeyConfig `json:"hostKey"`
}

// Thresholds are the alert levels for the background health monitor,
// in percent of the sampled resource.
type Thresholds struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Disk   float64 `json:"disk"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{CPU: 80, Memory: 85, Disk: 80}
}

type MonitorConfig struct {
	Thresholds  Thresholds `json:"thresholds"`
	IntervalSec int        `json:"intervalSec"`
	LogPath     string     `json:"logPath,omitempty"`
}

type AppConfig struct {
	Version int           `json:"version"`
	Hosts   []Host        `json:"hosts"`
	Monitor MonitorConfig `json:"monitor"`
}
