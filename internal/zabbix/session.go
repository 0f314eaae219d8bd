package zabbix

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Session is an authenticated view of the API. It is not reused across cycles.
type Session struct {
	client *Client
	token  string
}

func (s *Session) call(ctx context.Context, method string, params, out any) error {
	return s.client.call(ctx, method, params, s.token, out)
}

// Groups lists every host group.
func (s *Session) Groups(ctx context.Context) ([]Group, error) {
	var groups []Group
	err := s.call(ctx, "hostgroup.get", map[string]any{
		"output":    []string{"groupid", "name"},
		"sortfield": "name",
	}, &groups)
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupIDs resolves group names to ids. Every name must exist.
func (s *Session) GroupIDs(ctx context.Context, names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}
	var groups []Group
	err := s.call(ctx, "hostgroup.get", map[string]any{
		"output": []string{"groupid", "name"},
		"filter": map[string]any{"name": names},
	}, &groups)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(groups))
	for _, g := range groups {
		ids[g.Name] = g.GroupID
	}
	var missing []string
	for _, n := range names {
		if _, ok := ids[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrNotFound, "host groups %s", strings.Join(missing, ", "))
	}
	return ids, nil
}

// Hosts lists the active hosts of a group. A non-empty nameFilter is matched
// as a substring of the visible name by the server.
func (s *Session) Hosts(ctx context.Context, groupID, nameFilter string) ([]Host, error) {
	params := map[string]any{
		"output":           []string{"hostid", "host", "name", "status"},
		"selectInterfaces": []string{"ip", "main"},
		"groupids":         groupID,
		"filter":           map[string]any{"status": "0"},
	}
	if nameFilter != "" {
		params["search"] = map[string]any{"name": nameFilter}
	}

	var hosts []Host
	if err := s.call(ctx, "host.get", params, &hosts); err != nil {
		return nil, err
	}
	// The server filters already; this guards against frontends ignoring it.
	out := hosts[:0]
	for _, h := range hosts {
		if h.Active() {
			out = append(out, h)
		}
	}
	return out, nil
}

// Metrics returns the latest values of the requested item keys. Keys without
// an item or without data are absent from the result.
func (s *Session) Metrics(ctx context.Context, hostID string, keys []string) (map[string]string, error) {
	if hostID == "" || len(keys) == 0 {
		return map[string]string{}, nil
	}
	var items []Item
	err := s.call(ctx, "item.get", map[string]any{
		"output":  []string{"itemid", "key_", "lastvalue", "lastclock"},
		"hostids": hostID,
		"filter":  map[string]any{"key_": keys},
	}, &items)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(items))
	for _, it := range items {
		if it.HasValue() {
			values[it.Key] = it.LastValue
		}
	}
	return values, nil
}

// LookupHost finds a host by technical name, then by visible name.
func (s *Session) LookupHost(ctx context.Context, name string) (Host, bool, error) {
	if name == "" {
		return Host{}, false, nil
	}
	for _, field := range []string{"host", "name"} {
		var hosts []Host
		err := s.call(ctx, "host.get", map[string]any{
			"output":           []string{"hostid", "host", "name", "status"},
			"selectInterfaces": []string{"ip", "main"},
			"filter":           map[string]any{field: []string{name}},
		}, &hosts)
		if err != nil {
			return Host{}, false, err
		}
		if len(hosts) > 0 {
			return hosts[0], true, nil
		}
	}
	return Host{}, false, nil
}
