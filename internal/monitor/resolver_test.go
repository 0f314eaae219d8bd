package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uplink-status-monitor/internal/zabbix"
)

func hostIDs(hosts []zabbix.Host) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.HostID)
	}
	return out
}

func TestResolveGroupsIntersects(t *testing.T) {
	dir := newFakeDirectory()
	dir.addGroup("gr1", "1", host("a", "A", ""), host("b", "B", ""), host("c", "C", ""))
	dir.addGroup("gr2", "2", host("c", "C", ""), host("d", "D", ""), host("b", "B", ""))

	hosts, err := ResolveGroups(context.Background(), dir, []string{"gr1", "gr2"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, hostIDs(hosts))

	single, err := ResolveGroups(context.Background(), dir, []string{"gr2"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "b"}, hostIDs(single))
}

func TestResolveGroupsIsCommutative(t *testing.T) {
	dir := newFakeDirectory()
	dir.addGroup("gr1", "1", host("a", "A", ""), host("b", "B", ""), host("c", "C", ""))
	dir.addGroup("gr2", "2", host("c", "C", ""), host("b", "B", ""))
	dir.addGroup("gr3", "3", host("b", "B", ""), host("c", "C", ""), host("e", "E", ""))

	ab, err := ResolveGroups(context.Background(), dir, []string{"gr1", "gr2", "gr3"}, "")
	require.NoError(t, err)
	ba, err := ResolveGroups(context.Background(), dir, []string{"gr3", "gr2", "gr1"}, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, hostIDs(ab), hostIDs(ba))
}

func TestResolveGroupsExcludesHostInOneGroupOnly(t *testing.T) {
	dir := newFakeDirectory()
	dir.addGroup("gr3", "3", host("10", "gr3-shop", ""), host("11", "gr3-gym", ""))
	dir.addGroup("Xfit", "4", host("11", "gr3-gym", ""), host("12", "xfit-only", ""))

	hosts, err := ResolveGroups(context.Background(), dir, []string{"gr3", "Xfit"}, "gr3")
	require.NoError(t, err)
	assert.Equal(t, []string{"11"}, hostIDs(hosts))
}

func TestResolveGroupsKeepsFirstDetails(t *testing.T) {
	dir := newFakeDirectory()
	dir.addGroup("gr1", "1", host("a", "first", "10.0.0.1"))
	dir.addGroup("gr2", "2", host("a", "second", "10.0.0.2"))

	hosts, err := ResolveGroups(context.Background(), dir, []string{"gr1", "gr2"}, "")
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "first", hosts[0].Name)
	assert.Equal(t, "10.0.0.1", hosts[0].IP())
}

func TestResolveGroupsEmptyNames(t *testing.T) {
	hosts, err := ResolveGroups(context.Background(), newFakeDirectory(), nil, "x")
	require.NoError(t, err)
	assert.Empty(t, hosts)

	hosts, err = ResolveGroups(context.Background(), newFakeDirectory(), []string{"", ""}, "")
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestResolveGroupsUnknownGroup(t *testing.T) {
	dir := newFakeDirectory()
	dir.addGroup("gr1", "1", host("a", "A", ""))

	_, err := ResolveGroups(context.Background(), dir, []string{"gr1", "missing"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, zabbix.ErrNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestResolveGroupsHostsError(t *testing.T) {
	dir := newFakeDirectory()
	dir.addGroup("gr1", "1", host("a", "A", ""))
	boom := errors.New("boom")
	dir.hostsErr["1"] = boom

	_, err := ResolveGroups(context.Background(), dir, []string{"gr1"}, "")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "gr1")
}
