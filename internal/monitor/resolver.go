package monitor

import (
	"context"

	"github.com/pkg/errors"

	"uplink-status-monitor/internal/zabbix"
)

// ResolveGroups returns the active hosts that belong to every named group,
// optionally narrowed by a name substring. Hosts are ordered by first
// discovery and carry the details of the first fetch that returned them.
// An empty name list yields no hosts.
func ResolveGroups(ctx context.Context, dir Directory, names []string, nameFilter string) ([]zabbix.Host, error) {
	names = uniqueNames(names)
	if len(names) == 0 {
		return nil, nil
	}

	ids, err := dir.GroupIDs(ctx, names)
	if err != nil {
		return nil, err
	}

	var (
		order   []string
		details = make(map[string]zabbix.Host)
		members = make(map[string]int)
	)
	for _, name := range names {
		id, ok := ids[name]
		if !ok {
			return nil, errors.Wrapf(zabbix.ErrNotFound, "host group %q", name)
		}
		hosts, err := dir.Hosts(ctx, id, nameFilter)
		if err != nil {
			return nil, errors.Wrapf(err, "hosts of group %q", name)
		}

		seen := make(map[string]struct{}, len(hosts))
		for _, h := range hosts {
			if h.HostID == "" {
				continue
			}
			if _, dup := seen[h.HostID]; dup {
				continue
			}
			seen[h.HostID] = struct{}{}
			if _, known := details[h.HostID]; !known {
				details[h.HostID] = h
				order = append(order, h.HostID)
			}
			members[h.HostID]++
		}
	}

	out := make([]zabbix.Host, 0, len(order))
	for _, id := range order {
		if members[id] == len(names) {
			out = append(out, details[id])
		}
	}
	return out, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
