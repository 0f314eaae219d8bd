package zabbix

// Host is a monitored host as returned by host.get.
type Host struct {
	HostID     string      `json:"hostid"`
	Host       string      `json:"host"` // technical name
	Name       string      `json:"name"` // visible name
	Status     string      `json:"status"`
	Interfaces []Interface `json:"interfaces,omitempty"`
}

// DisplayName is the visible name, falling back to the technical one.
func (h Host) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.Host
}

// IP returns the address of the main interface, or the first one.
func (h Host) IP() string {
	for _, i := range h.Interfaces {
		if i.Main == "1" && i.IP != "" {
			return i.IP
		}
	}
	for _, i := range h.Interfaces {
		if i.IP != "" {
			return i.IP
		}
	}
	return ""
}

// Active reports whether monitoring is enabled for the host (status 0).
func (h Host) Active() bool { return h.Status == "" || h.Status == "0" }

type Interface struct {
	IP   string `json:"ip"`
	Main string `json:"main,omitempty"`
}

// Group is a host group as returned by hostgroup.get.
type Group struct {
	GroupID string `json:"groupid"`
	Name    string `json:"name"`
}

// Item is one item with its latest value as returned by item.get.
type Item struct {
	ItemID    string `json:"itemid"`
	Key       string `json:"key_"`
	LastValue string `json:"lastvalue"`
	LastClock string `json:"lastclock"`
}

// HasValue is false for items that never received data.
func (i Item) HasValue() bool {
	return i.LastClock != "" && i.LastClock != "0"
}
