package services_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"techstock/internal/domain"
)

type insertCall struct {
	table domain.DestinationTable
	rec   domain.DestinationRecord
}

// fakeGateway assigns sequential ids and fails or panics on chosen serials.
type fakeGateway struct {
	mu       sync.Mutex
	fail     map[string]error
	panicOn  string
	delay    time.Duration
	seq      int
	inserted []insertCall
}

func (g *fakeGateway) Insert(ctx context.Context, table domain.DestinationTable, rec domain.DestinationRecord) (string, error) {
	serial, _ := rec.Fields["serial"].(string)
	if g.panicOn != "" && serial == g.panicOn {
		panic("nil map write in driver")
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.fail[serial]; ok {
		return "", err
	}
	g.seq++
	g.inserted = append(g.inserted, insertCall{table: table, rec: rec})
	return fmt.Sprintf("id-%03d", g.seq), nil
}

func (g *fakeGateway) calls() []insertCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]insertCall(nil), g.inserted...)
}

type fakeChecker struct {
	existing map[string]bool
	err      error
}

func (c *fakeChecker) SerialExists(ctx context.Context, serial string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.existing[strings.ToLower(serial)], nil
}

type fakeMetrics struct {
	mu      sync.Mutex
	ok      int
	failed  int
	batches int
}

func (m *fakeMetrics) ObserveUnit(variant string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.ok++
	} else {
		m.failed++
	}
}

func (m *fakeMetrics) ObserveBatch(variant string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
}
