package snapshot

import (
	"slices"
	"sync/atomic"
	"time"

	"uplink-status-monitor/internal/channel"
)

// Snapshot is the read-only result of one complete refresh cycle.
type Snapshot struct {
	Cycle       uint64    `json:"cycle"`
	GeneratedAt time.Time `json:"generated_at"`
	Records     []Record  `json:"records"`

	// Exposition is the pre-rendered metrics payload for the records.
	Exposition []byte `json:"-"`
}

// Record is what the API exposes per site.
type Record struct {
	Name      string        `json:"name"`
	IP        string        `json:"ip,omitempty"`
	Channel   channel.State `json:"channel"`
	Reserve   bool          `json:"reserve,omitempty"`
	Telemetry Telemetry     `json:"telemetry"`
}

// Telemetry holds ICMP figures; nil means the value was not available.
type Telemetry struct {
	LossPercent15m  *float64 `json:"loss_percent_15m,omitempty"`
	AvgResponseMs1m *float64 `json:"avg_response_ms_1m,omitempty"`
}

// Empty reports whether the snapshot holds no cycle result.
func (s Snapshot) Empty() bool { return s.Cycle == 0 }

func (s Snapshot) clone() Snapshot {
	c := s
	if s.Records != nil {
		c.Records = make([]Record, len(s.Records))
		for i, r := range s.Records {
			r.Telemetry = r.Telemetry.clone()
			c.Records[i] = r
		}
	}
	c.Exposition = slices.Clone(s.Exposition)
	return c
}

func (t Telemetry) clone() Telemetry {
	return Telemetry{
		LossPercent15m:  cloneValue(t.LossPercent15m),
		AvgResponseMs1m: cloneValue(t.AvgResponseMs1m),
	}
}

func cloneValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// CycleError is the failure of the most recent cycle.
type CycleError struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Store holds the latest published snapshot. Writers replace it wholesale;
// readers never block and always see a complete cycle.
type Store struct {
	current atomic.Pointer[Snapshot]
	lastErr atomic.Pointer[CycleError]
	cycles  atomic.Uint64
}

func NewStore() *Store {
	return &Store{}
}

// NextCycle hands out the identity of the next cycle.
func (s *Store) NextCycle() uint64 {
	return s.cycles.Add(1)
}

// Publish replaces the current snapshot and clears the last cycle error.
func (s *Store) Publish(snap Snapshot) {
	c := snap.clone()
	s.current.Store(&c)
	s.lastErr.Store(nil)
}

// Fail records a failed cycle. The published snapshot is kept.
func (s *Store) Fail(at time.Time, err error) {
	s.lastErr.Store(&CycleError{At: at, Message: err.Error()})
}

// Get returns a copy of the latest snapshot.
// If nothing was published yet, returns zero-value snapshot.
func (s *Store) Get() Snapshot {
	if v := s.current.Load(); v != nil {
		return v.clone()
	}
	return Snapshot{}
}

// Exposition returns the metrics payload of the latest snapshot. The slice is
// shared and must not be modified.
func (s *Store) Exposition() []byte {
	if v := s.current.Load(); v != nil {
		return v.Exposition
	}
	return nil
}

// LastError returns the failure of the latest cycle, if it failed.
func (s *Store) LastError() *CycleError {
	return s.lastErr.Load()
}
