package channel

import "strings"

// State is the uplink a site is currently using.
type State string

const (
	Main    State = "main"
	Backup  State = "backup"
	Unknown State = "unknown"
)

// DefaultMainTags and DefaultBackupTags are the router model tags seen in
// gateway-status descriptors of the primary and backup uplinks.
var (
	DefaultMainTags   = []string{"CCR11", "CCR22"}
	DefaultBackupTags = []string{"CCR12", "CCR21"}
)

// Classifier turns a raw gateway-status descriptor into a State.
// Main tags are checked first, so a descriptor matching both sets is Main.
type Classifier struct {
	MainTags   []string
	BackupTags []string
}

func NewClassifier(mainTags, backupTags []string) Classifier {
	if len(mainTags) == 0 {
		mainTags = DefaultMainTags
	}
	if len(backupTags) == 0 {
		backupTags = DefaultBackupTags
	}
	return Classifier{MainTags: mainTags, BackupTags: backupTags}
}

func (c Classifier) Classify(raw string) State {
	if raw == "" {
		return Unknown
	}
	if containsAny(raw, c.MainTags) {
		return Main
	}
	if containsAny(raw, c.BackupTags) {
		return Backup
	}
	return Unknown
}

func containsAny(s string, tags []string) bool {
	for _, tag := range tags {
		if tag != "" && strings.Contains(s, tag) {
			return true
		}
	}
	return false
}

// GaugeValue maps a state onto the exported gauge: main 1, backup 0, unknown -1.
func GaugeValue(s State) float64 {
	switch s {
	case Main:
		return 1
	case Backup:
		return 0
	default:
		return -1
	}
}

// FromLiveness is the mapping for reserve sites, which have no secondary link
// to report: a live site is Main, anything else is Unknown.
func FromLiveness(live bool) State {
	if live {
		return Main
	}
	return Unknown
}
